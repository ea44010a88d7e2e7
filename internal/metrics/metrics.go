// Package metrics registers and updates the Prometheus metrics exposed by
// internal/adminhttp's /metrics endpoint. The gauge/histogram layout and
// the registration idiom (one independent *prometheus.Registry per
// Collector, DeletePartialMatch for teardown) mirror the retrieval pack's
// tenant-labeled collector; labels here are relabeled from tenant to pool,
// since pgnative routes by pool name rather than tenant identity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds every Prometheus metric pgnative exposes for its pools.
type Collector struct {
	Registry *prometheus.Registry

	sessionsAllocated *prometheus.GaugeVec
	sessionsIdle      *prometheus.GaugeVec
	sessionsPending   *prometheus.GaugeVec
	poolHealth        *prometheus.GaugeVec
	requestsTooBusy   *prometheus.CounterVec

	acquireDuration     *prometheus.HistogramVec
	healthCheckDuration *prometheus.HistogramVec
	healthCheckErrors   *prometheus.CounterVec

	requestsSucceeded  *prometheus.CounterVec
	requestsTimedOut   *prometheus.CounterVec
	requestsErrored    *prometheus.CounterVec
	connectionsCreated *prometheus.CounterVec
}

// New creates and registers every metric on a fresh, independent registry.
// Safe to call more than once (tests, config reload) since each call's
// registry is isolated from any other.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		sessionsAllocated: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pgnative_sessions_allocated",
				Help: "Number of sessions currently checked out of the pool",
			},
			[]string{"pool"},
		),
		sessionsIdle: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pgnative_sessions_idle",
				Help: "Number of idle sessions held by the pool, available for reuse",
			},
			[]string{"pool"},
		),
		sessionsPending: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pgnative_requests_pending",
				Help: "Number of Acquire callers currently waiting in the FIFO queue",
			},
			[]string{"pool"},
		),
		poolHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pgnative_pool_health",
				Help: "Health of the pool's target database (1=healthy, 0=unhealthy)",
			},
			[]string{"pool"},
		),
		requestsTooBusy: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgnative_requests_too_busy_total",
				Help: "Acquire calls rejected because the pending queue was full",
			},
			[]string{"pool"},
		),
		acquireDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pgnative_acquire_duration_seconds",
				Help:    "Time spent waiting inside Acquire before a session was returned",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
			},
			[]string{"pool"},
		),
		healthCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pgnative_health_check_duration_seconds",
				Help:    "Duration of the periodic SELECT 1 probe",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"pool", "status"},
		),
		healthCheckErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgnative_health_check_errors_total",
				Help: "Probe failures observed by the health prober",
			},
			[]string{"pool"},
		),
		requestsSucceeded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgnative_requests_succeeded_total",
				Help: "Acquire calls that returned a session",
			},
			[]string{"pool"},
		),
		requestsTimedOut: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgnative_requests_timed_out_total",
				Help: "Acquire calls that gave up after pending_request_timeout",
			},
			[]string{"pool"},
		),
		requestsErrored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgnative_requests_errored_total",
				Help: "Acquire calls that failed while opening a new session",
			},
			[]string{"pool"},
		),
		connectionsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgnative_connections_created_total",
				Help: "Sessions opened by the pool over its lifetime",
			},
			[]string{"pool"},
		),
	}

	reg.MustRegister(
		c.sessionsAllocated,
		c.sessionsIdle,
		c.sessionsPending,
		c.poolHealth,
		c.requestsTooBusy,
		c.acquireDuration,
		c.healthCheckDuration,
		c.healthCheckErrors,
		c.requestsSucceeded,
		c.requestsTimedOut,
		c.requestsErrored,
		c.connectionsCreated,
	)

	return c
}

// PoolSnapshot is the subset of pgnative.PoolSnapshot this package needs;
// kept as a small struct rather than importing the root package, so
// internal/metrics has no dependency cycle risk against pgnative itself.
type PoolSnapshot struct {
	Allocated                      int
	Idle                           int
	Pending                        int
	SuccessfulRequests             int64
	UnsuccessfulRequestsTooBusy    int64
	UnsuccessfulRequestsTimedOut   int64
	UnsuccessfulRequestsError      int64
	ConnectionsCreated             int64
	AverageTimeToAcquireConnection time.Duration
}

// UpdatePoolStats pushes one pool's latest snapshot into the gauges and
// advances the monotonic counters by their delta since the previous call.
// prev is the previously-observed snapshot (zero value on first call).
func (c *Collector) UpdatePoolStats(pool string, prev, cur PoolSnapshot) {
	c.sessionsAllocated.WithLabelValues(pool).Set(float64(cur.Allocated))
	c.sessionsIdle.WithLabelValues(pool).Set(float64(cur.Idle))
	c.sessionsPending.WithLabelValues(pool).Set(float64(cur.Pending))

	if d := cur.SuccessfulRequests - prev.SuccessfulRequests; d > 0 {
		c.requestsSucceeded.WithLabelValues(pool).Add(float64(d))
	}
	if d := cur.UnsuccessfulRequestsTooBusy - prev.UnsuccessfulRequestsTooBusy; d > 0 {
		c.requestsTooBusy.WithLabelValues(pool).Add(float64(d))
	}
	if d := cur.UnsuccessfulRequestsTimedOut - prev.UnsuccessfulRequestsTimedOut; d > 0 {
		c.requestsTimedOut.WithLabelValues(pool).Add(float64(d))
	}
	if d := cur.UnsuccessfulRequestsError - prev.UnsuccessfulRequestsError; d > 0 {
		c.requestsErrored.WithLabelValues(pool).Add(float64(d))
	}
	if d := cur.ConnectionsCreated - prev.ConnectionsCreated; d > 0 {
		c.connectionsCreated.WithLabelValues(pool).Add(float64(d))
	}
	if cur.AverageTimeToAcquireConnection > 0 {
		c.acquireDuration.WithLabelValues(pool).Observe(cur.AverageTimeToAcquireConnection.Seconds())
	}
}

// SetPoolHealth sets the health gauge for a pool.
func (c *Collector) SetPoolHealth(pool string, healthy bool) {
	val := 0.0
	if healthy {
		val = 1.0
	}
	c.poolHealth.WithLabelValues(pool).Set(val)
}

// HealthCheckCompleted records a probe duration and result, and sets the
// pool health gauge to match.
func (c *Collector) HealthCheckCompleted(pool string, d time.Duration, healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
		c.healthCheckErrors.WithLabelValues(pool).Inc()
	}
	c.healthCheckDuration.WithLabelValues(pool, status).Observe(d.Seconds())
	c.SetPoolHealth(pool, healthy)
}

// RemovePool deletes every metric series for a pool, for use when a pool
// is removed from the registry on config reload.
func (c *Collector) RemovePool(pool string) {
	c.sessionsAllocated.DeletePartialMatch(prometheus.Labels{"pool": pool})
	c.sessionsIdle.DeletePartialMatch(prometheus.Labels{"pool": pool})
	c.sessionsPending.DeletePartialMatch(prometheus.Labels{"pool": pool})
	c.poolHealth.DeletePartialMatch(prometheus.Labels{"pool": pool})
	c.requestsTooBusy.DeletePartialMatch(prometheus.Labels{"pool": pool})
	c.acquireDuration.DeletePartialMatch(prometheus.Labels{"pool": pool})
	c.healthCheckDuration.DeletePartialMatch(prometheus.Labels{"pool": pool})
	c.healthCheckErrors.DeletePartialMatch(prometheus.Labels{"pool": pool})
	c.requestsSucceeded.DeletePartialMatch(prometheus.Labels{"pool": pool})
	c.requestsTimedOut.DeletePartialMatch(prometheus.Labels{"pool": pool})
	c.requestsErrored.DeletePartialMatch(prometheus.Labels{"pool": pool})
	c.connectionsCreated.DeletePartialMatch(prometheus.Labels{"pool": pool})
}
