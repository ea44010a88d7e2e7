package pgnative

import "time"

// Metrics accumulates one flush period's pool counters. All
// fields are safe to read once a PoolSnapshot has been taken; the live
// copy inside Pool is guarded by Pool.mu.
type Metrics struct {
	SuccessfulRequests                    int64
	UnsuccessfulRequestsTooBusy           int64
	UnsuccessfulRequestsTimedOut          int64
	UnsuccessfulRequestsError             int64
	AverageTimeToAcquireConnection        time.Duration
	MinimumPendingRequests                int
	MaximumPendingRequests                int
	ConnectionsAtStartOfPeriod            int
	ConnectionsAtEndOfPeriod              int
	ConnectionsCreated                    int64
	AllocatedConnectionsClosedByRequestor int64
	AllocatedConnectionsTimedOut          int64

	totalAcquireTime time.Duration // running sum backing the average
	acquireSamples   int64
}

// reset clears the period-scoped counters. ConnectionsAtStartOfPeriod is
// set from the caller-supplied carry-over value (the previous period's
// ConnectionsAtEndOfPeriod).
func (m *Metrics) reset(carryStart int) {
	*m = Metrics{
		ConnectionsAtStartOfPeriod: carryStart,
		ConnectionsAtEndOfPeriod:   carryStart,
		MinimumPendingRequests:     0,
		MaximumPendingRequests:     0,
	}
}

func (m *Metrics) recordAcquireDuration(d time.Duration) {
	m.totalAcquireTime += d
	m.acquireSamples++
	if m.acquireSamples > 0 {
		m.AverageTimeToAcquireConnection = m.totalAcquireTime / time.Duration(m.acquireSamples)
	}
}

func (m *Metrics) observePendingCount(n int) {
	if m.acquireSamples == 0 && m.SuccessfulRequests == 0 && m.UnsuccessfulRequestsTooBusy == 0 &&
		m.UnsuccessfulRequestsTimedOut == 0 && m.UnsuccessfulRequestsError == 0 {
		m.MinimumPendingRequests = n
		m.MaximumPendingRequests = n
		return
	}
	if n < m.MinimumPendingRequests {
		m.MinimumPendingRequests = n
	}
	if n > m.MaximumPendingRequests {
		m.MaximumPendingRequests = n
	}
}

// PoolSnapshot is a point-in-time copy of a Pool's Metrics plus its live
// session counts, used both by the metrics-flush log record and by any
// external reporting surface (e.g. a Prometheus bridge).
type PoolSnapshot struct {
	Metrics
	Allocated int
	Idle      int
	Pending   int
}
