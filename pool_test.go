package pgnative

import (
	"sync"
	"testing"
	"time"

	"github.com/pgnative/pgnative/internal/protocol"
)

func testPoolConfig(t *testing.T, maxSessions int) PoolConfig {
	fb := &fakeBackend{t: t, authMode: "trust", statements: map[string]cannedStatement{}}
	host, port := listenFakeBackendMulti(t, fb, maxSessions+4)
	cfg := testConfig(host, port, TrustCredential())
	pc := DefaultPoolConfig(cfg)
	pc.MaxSessions = maxSessions
	return pc
}

func TestPoolAcquireReleaseReusesIdleConnection(t *testing.T) {
	pool := NewPool(testPoolConfig(t, 2))
	defer pool.Close(true)

	conn1, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(conn1)

	conn2, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if conn2 != conn1 {
		t.Error("expected the released connection to be reused")
	}
	pool.Release(conn2)
}

func TestPoolAcquireUpToMaxSessionsThenBlocks(t *testing.T) {
	pool := NewPool(testPoolConfig(t, 1))
	defer pool.Close(true)

	conn1, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan *Connection, 1)
	go func() {
		c, err := pool.Acquire()
		if err != nil {
			t.Errorf("second Acquire: %v", err)
			return
		}
		acquired <- c
	}()

	select {
	case <-acquired:
		t.Fatal("expected second Acquire to block while the sole session is checked out")
	case <-time.After(100 * time.Millisecond):
	}

	pool.Release(conn1)

	select {
	case c := <-acquired:
		if c != conn1 {
			t.Error("expected the waiter to receive the released connection")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was never dispatched the released connection")
	}
}

func TestPoolAcquireAfterCloseFails(t *testing.T) {
	pool := NewPool(testPoolConfig(t, 2))
	pool.Close(true)

	if _, err := pool.Acquire(); err != ErrConnectionPoolClosed {
		t.Errorf("expected ErrConnectionPoolClosed, got %v", err)
	}
}

func TestPoolTooManyPendingRequests(t *testing.T) {
	cfg := testPoolConfig(t, 1)
	cfg.MaxPendingRequests = 1 // unbounded by default; cap it at one for this test
	pool := NewPool(cfg)
	defer pool.Close(true)

	conn1, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer pool.Release(conn1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pool.Acquire() // occupies the single pending slot; released after the test
	}()
	time.Sleep(50 * time.Millisecond)

	if _, err := pool.Acquire(); err != ErrTooManyRequests {
		t.Errorf("expected ErrTooManyRequests, got %v", err)
	}

	pool.Release(conn1)
	wg.Wait()
}

func TestPoolReleaseOfUnknownConnectionForceCloses(t *testing.T) {
	pool := NewPool(testPoolConfig(t, 2))
	defer pool.Close(true)

	conn, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(conn) // returns it to idle, no longer "allocated"
	pool.Release(conn) // second release: not owned anymore

	snap := pool.Snapshot()
	if snap.Allocated != 0 {
		t.Errorf("expected 0 allocated after double release, got %d", snap.Allocated)
	}
	if !conn.IsClosed() {
		t.Error("expected the second Release of a session no longer allocated to force-close it")
	}
}

func TestPoolSnapshotCountsMatchAcquireRelease(t *testing.T) {
	pool := NewPool(testPoolConfig(t, 3))
	defer pool.Close(true)

	c1, _ := pool.Acquire()
	c2, _ := pool.Acquire()

	snap := pool.Snapshot()
	if snap.Allocated != 2 {
		t.Errorf("Allocated = %d, want 2", snap.Allocated)
	}

	pool.Release(c1)
	pool.Release(c2)

	snap = pool.Snapshot()
	if snap.Allocated != 0 || snap.Idle != 2 {
		t.Errorf("got Allocated=%d Idle=%d, want 0, 2", snap.Allocated, snap.Idle)
	}
}

// TestPoolFIFOAndLRU covers spec scenario E4: with MaxSessions=5, acquiring
// A..E then releasing in order D,C,B,A,E hands the next five Acquire calls
// back in that same release order (idle reuse is oldest-released-first).
func TestPoolFIFOAndLRU(t *testing.T) {
	pool := NewPool(testPoolConfig(t, 5))
	defer pool.Close(true)

	var acquired []*Connection
	for i := 0; i < 5; i++ {
		c, err := pool.Acquire()
		if err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		acquired = append(acquired, c)
	}
	a, b, c, d, e := acquired[0], acquired[1], acquired[2], acquired[3], acquired[4]

	releaseOrder := []*Connection{d, c, b, a, e}
	for _, conn := range releaseOrder {
		pool.Release(conn)
	}

	for i, want := range releaseOrder {
		got, err := pool.Acquire()
		if err != nil {
			t.Fatalf("Acquire after release, iteration %d: %v", i, err)
		}
		if got != want {
			t.Errorf("reuse order[%d]: got connection %p, want %p", i, got, want)
		}
	}
}

// TestPoolPendingRequestTimeout covers spec scenario E5: once MaxSessions
// are all checked out, a further Acquire waiting past PendingRequestTimeout
// fails with ErrTimedOutAcquiring, and the pool's metrics record the
// timeout.
func TestPoolPendingRequestTimeout(t *testing.T) {
	cfg := testPoolConfig(t, 5)
	cfg.PendingRequestTimeout = 150 * time.Millisecond
	pool := NewPool(cfg)
	defer pool.Close(true)

	var held []*Connection
	for i := 0; i < 5; i++ {
		c, err := pool.Acquire()
		if err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		held = append(held, c)
	}
	defer func() {
		for _, c := range held {
			pool.Release(c)
		}
	}()

	start := time.Now()
	_, err := pool.Acquire()
	elapsed := time.Since(start)

	if err != ErrTimedOutAcquiring {
		t.Fatalf("Acquire: got %v, want ErrTimedOutAcquiring", err)
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("Acquire returned after %v, expected to wait out the %v timeout", elapsed, cfg.PendingRequestTimeout)
	}

	snap := pool.Snapshot()
	if snap.UnsuccessfulRequestsTimedOut != 1 {
		t.Errorf("UnsuccessfulRequestsTimedOut = %d, want 1", snap.UnsuccessfulRequestsTimedOut)
	}
}

// TestPoolReleaseOfLeakingTransactionForceCloses covers spec scenario E6: a
// session released while still in-transaction (the caller forgot to commit
// or rollback) is force-closed rather than handed back to the idle set, so
// a leaked transaction can never be reused by a later Acquire.
func TestPoolReleaseOfLeakingTransactionForceCloses(t *testing.T) {
	fb := &fakeBackend{
		t: t, authMode: "trust",
		statements: map[string]cannedStatement{
			"BEGIN": {commandTag: "BEGIN"},
		},
	}
	host, port := listenFakeBackendMulti(t, fb, 5)
	cfg := DefaultPoolConfig(testConfig(host, port, TrustCredential()))
	cfg.MaxSessions = 1
	pool := NewPool(cfg)
	defer pool.Close(true)

	conn, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := conn.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if conn.TransactionStatus() != protocol.TxActive {
		t.Fatalf("TransactionStatus after Begin = %q, want in-transaction", conn.TransactionStatus())
	}

	pool.Release(conn) // leaked: never committed or rolled back

	snap := pool.Snapshot()
	if snap.Idle != 0 {
		t.Errorf("Idle = %d, want 0: a leaking transaction must not be reused", snap.Idle)
	}
	if !conn.IsClosed() {
		t.Error("expected the leaking session to be force-closed on Release")
	}

	conn2, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire after leaked release: %v", err)
	}
	if conn2 == conn {
		t.Error("expected a freshly-created session, not the force-closed one")
	}
}

func TestPoolClosedConnectionIsNotReused(t *testing.T) {
	pool := NewPool(testPoolConfig(t, 2))
	defer pool.Close(true)

	conn, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	conn.Close() // holder closed it directly, bypassing Release
	pool.Release(conn)

	snap := pool.Snapshot()
	if snap.Idle != 0 {
		t.Errorf("expected a holder-closed session to be discarded, not idled, got Idle=%d", snap.Idle)
	}
}
