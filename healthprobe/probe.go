// Package healthprobe is a periodic liveness probe per registered pool: it
// acquires a session, executes "SELECT 1" through the normal extended
// query path (exercising the real Connection/Statement/Cursor code rather
// than a raw byte probe), releases the session, and records latency plus
// up/down state. Adapted from the retrieval pack's ticker-driven checker
// with failure-threshold debouncing, generalized from "is the tenant's TCP
// port open" to "can the pool round-trip a trivial query" — a meaningful
// signal specifically because pgnative owns the wire protocol end to end.
package healthprobe

import (
	"sync"
	"time"

	"github.com/pgnative/pgnative"
	"github.com/pgnative/pgnative/internal/metrics"
	"github.com/pgnative/pgnative/pglog"
	"github.com/pgnative/pgnative/poolreg"
)

// Status is the liveness state of one pool's target database.
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// PoolHealth is the latest probe result for one registered pool.
type PoolHealth struct {
	Status              Status
	LastCheck           time.Time
	ConsecutiveFailures int
	LastError           string
}

// Prober runs "SELECT 1" against every pool in a poolreg.Registry on a
// fixed interval.
type Prober struct {
	registry         *poolreg.Registry
	metrics          *metrics.Collector
	log              *pglog.Logger
	interval         time.Duration
	failureThreshold int

	mu       sync.RWMutex
	health   map[string]*PoolHealth
	prevSnap map[string]metrics.PoolSnapshot

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewProber constructs a Prober. A pool is reported unhealthy only after
// failureThreshold consecutive probe failures, to avoid flapping a
// single-query blip into a down signal.
func NewProber(reg *poolreg.Registry, m *metrics.Collector, interval time.Duration, failureThreshold int) *Prober {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	return &Prober{
		registry:         reg,
		metrics:          m,
		log:              pglog.New("pgnative.healthprobe"),
		interval:         interval,
		failureThreshold: failureThreshold,
		health:           make(map[string]*PoolHealth),
		prevSnap:         make(map[string]metrics.PoolSnapshot),
		stopCh:           make(chan struct{}),
	}
}

// Start begins periodic probing in a background goroutine.
func (p *Prober) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run()
	}()
	p.log.Info("health prober started: interval=%s threshold=%d", p.interval, p.failureThreshold)
}

// Stop stops the prober. Safe to call multiple times.
func (p *Prober) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *Prober) run() {
	p.checkAll()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.checkAll()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Prober) checkAll() {
	const maxWorkers = 10
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	p.registry.Each(func(name string, pool *pgnative.Pool) {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			start := time.Now()
			err := p.probeOne(pool)
			p.updateStatus(name, err)
			if p.metrics != nil {
				p.metrics.HealthCheckCompleted(name, time.Since(start), err == nil)
				p.reportPoolStats(name, pool)
			}
		}()
	})
	wg.Wait()
}

// reportPoolStats converts pool's live snapshot to the shape
// internal/metrics expects and pushes it alongside the previous period's
// snapshot, so the Prometheus counters advance by delta rather than
// resetting on every scrape.
func (p *Prober) reportPoolStats(name string, pool *pgnative.Pool) {
	snap := pool.Snapshot()
	cur := metrics.PoolSnapshot{
		Allocated:                      snap.Allocated,
		Idle:                           snap.Idle,
		Pending:                        snap.Pending,
		SuccessfulRequests:             snap.SuccessfulRequests,
		UnsuccessfulRequestsTooBusy:    snap.UnsuccessfulRequestsTooBusy,
		UnsuccessfulRequestsTimedOut:   snap.UnsuccessfulRequestsTimedOut,
		UnsuccessfulRequestsError:      snap.UnsuccessfulRequestsError,
		ConnectionsCreated:             snap.ConnectionsCreated,
		AverageTimeToAcquireConnection: snap.AverageTimeToAcquireConnection,
	}

	p.mu.Lock()
	prev := p.prevSnap[name]
	p.prevSnap[name] = cur
	p.mu.Unlock()

	p.metrics.UpdatePoolStats(name, prev, cur)
}

func (p *Prober) probeOne(pool *pgnative.Pool) error {
	conn, err := pool.Acquire()
	if err != nil {
		return err
	}
	defer pool.Release(conn)

	stmt, err := conn.Prepare("SELECT 1")
	if err != nil {
		return err
	}
	defer stmt.Close()

	cur, err := stmt.Execute()
	if err != nil {
		return err
	}
	for {
		_, drained, err := cur.Next()
		if err != nil {
			return err
		}
		if drained {
			return nil
		}
	}
}

func (p *Prober) updateStatus(name string, probeErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.health[name]
	if !ok {
		h = &PoolHealth{}
		p.health[name] = h
	}
	h.LastCheck = time.Now()

	if probeErr == nil {
		h.ConsecutiveFailures = 0
		h.Status = StatusHealthy
		h.LastError = ""
		return
	}
	h.ConsecutiveFailures++
	h.LastError = probeErr.Error()
	if h.ConsecutiveFailures >= p.failureThreshold {
		h.Status = StatusUnhealthy
	}
}

// Snapshot returns a copy of every pool's latest health.
func (p *Prober) Snapshot() map[string]PoolHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]PoolHealth, len(p.health))
	for name, h := range p.health {
		out[name] = *h
	}
	return out
}

// Healthy reports whether every probed pool is currently healthy or still
// unknown (has not yet crossed the failure threshold).
func (p *Prober) Healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, h := range p.health {
		if h.Status == StatusUnhealthy {
			return false
		}
	}
	return true
}
