package pgnative

import (
	"container/list"
	"sync"
	"time"

	"github.com/pgnative/pgnative/pglog"
)

// poolEntry is an idle session awaiting reuse: the session and the time
// it was released.
type poolEntry struct {
	conn       *Connection
	releasedAt time.Time
}

// allocation tracks a currently-checked-out session's deadline.
type allocation struct {
	deadline time.Time // zero == no deadline
}

// waiter is a pending acquire request: a result channel plus its enqueue
// time and optional deadline.
type waiter struct {
	result   chan acquireResult
	enqueued time.Time
	deadline time.Time // zero == no deadline
	done     bool      // set once satisfied or timed out, so a late timer fire is a no-op
}

type acquireResult struct {
	conn *Connection
	err  error
}

// Pool is a concurrent allocator of Connections bounded by MaxSessions,
// with a FIFO wait queue for callers beyond that bound, LRU reuse of idle
// sessions, pending-request and allocated-session timeouts, and a metrics
// accumulator flushed on a timer. All exported methods are safe for
// concurrent use from many goroutines.
type Pool struct {
	cfg PoolConfig
	log *pglog.Logger

	mu        sync.Mutex
	closed    bool
	idle      *list.List // of *poolEntry, front = oldest-released (reused first)
	allocated map[*Connection]*allocation
	creating  int        // reserved slots for in-flight Open calls, counted toward MaxSessions
	pending   *list.List // of *waiter, front = earliest-enqueued
	metrics   Metrics

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPool constructs a Pool. It does not eagerly open any sessions;
// sessions are created lazily on first Acquire up to cfg.MaxSessions.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 10
	}
	p := &Pool{
		cfg:       cfg,
		log:       pglog.New("pgnative.pool"),
		idle:      list.New(),
		allocated: make(map[*Connection]*allocation),
		pending:   list.New(),
		stopCh:    make(chan struct{}),
	}
	interval := cfg.MetricsFlushInterval
	if interval <= 0 {
		interval = time.Hour
	}
	p.wg.Add(1)
	go p.runBackground(interval)
	return p
}

// runBackground is the single dedicated timer goroutine: one ticker drives
// both allocation-timeout enforcement and the periodic metrics flush,
// avoiding a timer per pending request or per allocated session.
func (p *Pool) runBackground(flushInterval time.Duration) {
	defer p.wg.Done()
	const tick = 50 * time.Millisecond
	scanTicker := time.NewTicker(tick)
	defer scanTicker.Stop()
	flushTicker := time.NewTicker(flushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-scanTicker.C:
			p.scanDeadlines()
		case <-flushTicker.C:
			p.flushMetrics()
		}
	}
}

// scanDeadlines expires overdue waiters and force-closes sessions held
// past AllocatedSessionTimeout.
func (p *Pool) scanDeadlines() {
	now := time.Now()

	p.mu.Lock()
	var expired []*waiter
	if p.cfg.PendingRequestTimeout > 0 {
		var next *list.Element
		for e := p.pending.Front(); e != nil; e = next {
			next = e.Next()
			w := e.Value.(*waiter)
			if !w.deadline.IsZero() && now.After(w.deadline) {
				p.pending.Remove(e)
				w.done = true
				expired = append(expired, w)
			}
		}
	}
	var timedOut []*Connection
	if p.cfg.AllocatedSessionTimeout > 0 {
		for conn, alloc := range p.allocated {
			if !alloc.deadline.IsZero() && now.After(alloc.deadline) {
				timedOut = append(timedOut, conn)
			}
		}
	}
	p.mu.Unlock()

	for _, w := range expired {
		p.mu.Lock()
		p.metrics.UnsuccessfulRequestsTimedOut++
		p.mu.Unlock()
		w.result <- acquireResult{err: ErrTimedOutAcquiring}
	}
	for _, conn := range timedOut {
		conn.forceClose()
	}
}

func (p *Pool) flushMetrics() {
	snap := p.Snapshot()
	p.log.Info("pool metrics: successful=%d too_busy=%d timed_out=%d error=%d avg_acquire=%s allocated=%d idle=%d pending=%d",
		snap.SuccessfulRequests, snap.UnsuccessfulRequestsTooBusy, snap.UnsuccessfulRequestsTimedOut,
		snap.UnsuccessfulRequestsError, snap.AverageTimeToAcquireConnection, snap.Allocated, snap.Idle, snap.Pending)

	if p.cfg.MetricsResetWhenFlushed {
		p.mu.Lock()
		p.metrics.reset(snap.ConnectionsAtEndOfPeriod)
		p.mu.Unlock()
	}
}

// Snapshot returns a point-in-time copy of the pool's metrics and live
// session counts.
func (p *Pool) Snapshot() PoolSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := len(p.allocated) + p.idle.Len()
	p.metrics.ConnectionsAtEndOfPeriod = total
	return PoolSnapshot{
		Metrics:   p.metrics,
		Allocated: len(p.allocated),
		Idle:      p.idle.Len(),
		Pending:   p.pending.Len(),
	}
}

// Acquire returns a session, reusing an idle one (oldest-released first),
// opening a new one if under MaxSessions, or waiting in FIFO order
// otherwise.
func (p *Pool) Acquire() (*Connection, error) {
	start := time.Now()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrConnectionPoolClosed
	}

	if e := p.idle.Front(); e != nil {
		p.idle.Remove(e)
		entry := e.Value.(*poolEntry)
		p.allocated[entry.conn] = &allocation{deadline: p.allocationDeadline()}
		p.metrics.SuccessfulRequests++
		p.metrics.recordAcquireDuration(time.Since(start))
		p.mu.Unlock()
		return entry.conn, nil
	}

	if len(p.allocated)+p.creating < p.cfg.MaxSessions {
		p.creating++
		p.mu.Unlock()

		conn, err := Open(p.cfg.ConnectionConfig)

		p.mu.Lock()
		p.creating--
		if err != nil {
			p.metrics.UnsuccessfulRequestsError++
			p.mu.Unlock()
			return nil, err
		}
		p.metrics.ConnectionsCreated++
		p.allocated[conn] = &allocation{deadline: p.allocationDeadline()}
		p.metrics.SuccessfulRequests++
		p.metrics.recordAcquireDuration(time.Since(start))
		p.mu.Unlock()
		return conn, nil
	}

	if p.cfg.MaxPendingRequests > 0 && p.pending.Len() >= p.cfg.MaxPendingRequests {
		p.metrics.UnsuccessfulRequestsTooBusy++
		p.mu.Unlock()
		return nil, ErrTooManyRequests
	}

	w := &waiter{result: make(chan acquireResult, 1), enqueued: start}
	if p.cfg.PendingRequestTimeout > 0 {
		w.deadline = start.Add(p.cfg.PendingRequestTimeout)
	}
	p.pending.PushBack(w)
	p.metrics.observePendingCount(p.pending.Len())
	p.mu.Unlock()

	res := <-w.result
	if res.err == nil {
		p.mu.Lock()
		p.metrics.recordAcquireDuration(time.Since(start))
		p.mu.Unlock()
	}
	return res.conn, res.err
}

func (p *Pool) allocationDeadline() time.Time {
	if p.cfg.AllocatedSessionTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(p.cfg.AllocatedSessionTimeout)
}

// Release returns conn to the pool. A session whose
// transaction is left open (in-transaction or failed), that was closed by
// its holder, or that overran its allocation deadline is discarded rather
// than reused.
func (p *Pool) Release(conn *Connection) {
	p.mu.Lock()

	alloc, ok := p.allocated[conn]
	if !ok {
		p.mu.Unlock()
		p.log.Warning("Release called with a session not owned by this pool, or already released")
		conn.forceClose()
		return
	}
	delete(p.allocated, conn)

	leaking := byte(conn.txStatus) != txIdleMarker()
	timedOut := !alloc.deadline.IsZero() && time.Now().After(alloc.deadline)
	closedByHolder := conn.IsClosed()

	switch {
	case closedByHolder:
		p.metrics.AllocatedConnectionsClosedByRequestor++
	case timedOut:
		p.metrics.AllocatedConnectionsTimedOut++
		conn.forceClose()
	case leaking:
		conn.forceClose()
	default:
		p.idle.PushBack(&poolEntry{conn: conn, releasedAt: time.Now()})
	}

	p.dispatchWaitersLocked()
	p.mu.Unlock()
}

// txIdleMarker avoids importing internal/protocol's TransactionStatus type
// into this file's exported surface; Connection.txStatus is compared
// against the idle byte value directly.
func txIdleMarker() byte { return 'I' }

// dispatchWaitersLocked hands idle sessions to the oldest pending waiters,
// preserving FIFO order. Called with
// p.mu held.
func (p *Pool) dispatchWaitersLocked() {
	for p.pending.Len() > 0 && p.idle.Len() > 0 {
		we := p.pending.Front()
		w := we.Value.(*waiter)
		p.pending.Remove(we)
		if w.done {
			continue // already timed out; its channel has been signalled
		}
		w.done = true

		ie := p.idle.Front()
		entry := ie.Value.(*poolEntry)
		p.idle.Remove(ie)

		p.allocated[entry.conn] = &allocation{deadline: p.allocationDeadline()}
		p.metrics.SuccessfulRequests++
		w.result <- acquireResult{conn: entry.conn}
	}
}

// Close closes the pool. With force=false, idle
// sessions close immediately and allocated sessions close on their next
// Release. With force=true, currently-allocated sessions are also closed
// immediately; any in-flight operation on them will observe
// ConnectionClosed.
func (p *Pool) Close(force bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true

	for e := p.idle.Front(); e != nil; e = e.Next() {
		e.Value.(*poolEntry).conn.forceClose()
	}
	p.idle.Init()

	var waiting []*waiter
	for e := p.pending.Front(); e != nil; e = e.Next() {
		waiting = append(waiting, e.Value.(*waiter))
	}
	p.pending.Init()

	var toClose []*Connection
	if force {
		for conn := range p.allocated {
			toClose = append(toClose, conn)
		}
	}
	p.mu.Unlock()

	for _, w := range waiting {
		if !w.done {
			w.done = true
			w.result <- acquireResult{err: ErrConnectionPoolClosed}
		}
	}
	for _, conn := range toClose {
		conn.forceClose()
	}

	close(p.stopCh)
	p.wg.Wait()
}
