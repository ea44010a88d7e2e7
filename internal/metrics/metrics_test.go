package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	c := New()
	return c, c.Registry
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	g.Write(m)
	return m.GetGauge().GetValue()
}

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	c.Write(m)
	return m.GetCounter().GetValue()
}

func TestUpdatePoolStatsGaugesReplace(t *testing.T) {
	c, _ := newTestCollector(t)

	c.UpdatePoolStats("primary", PoolSnapshot{}, PoolSnapshot{Allocated: 3, Idle: 5, Pending: 1})
	if v := getGaugeValue(c.sessionsAllocated.WithLabelValues("primary")); v != 3 {
		t.Errorf("expected allocated=3, got %v", v)
	}
	if v := getGaugeValue(c.sessionsIdle.WithLabelValues("primary")); v != 5 {
		t.Errorf("expected idle=5, got %v", v)
	}
	if v := getGaugeValue(c.sessionsPending.WithLabelValues("primary")); v != 1 {
		t.Errorf("expected pending=1, got %v", v)
	}

	c.UpdatePoolStats("primary", PoolSnapshot{Allocated: 3, Idle: 5, Pending: 1}, PoolSnapshot{Allocated: 2, Idle: 4, Pending: 0})
	if v := getGaugeValue(c.sessionsAllocated.WithLabelValues("primary")); v != 2 {
		t.Errorf("expected allocated=2 after update, got %v", v)
	}
}

func TestUpdatePoolStatsCountersAdvanceByDelta(t *testing.T) {
	c, _ := newTestCollector(t)

	prev := PoolSnapshot{}
	cur := PoolSnapshot{SuccessfulRequests: 5, UnsuccessfulRequestsTooBusy: 1, ConnectionsCreated: 2}
	c.UpdatePoolStats("primary", prev, cur)

	if v := getCounterValue(c.requestsSucceeded.WithLabelValues("primary")); v != 5 {
		t.Errorf("expected succeeded=5, got %v", v)
	}
	if v := getCounterValue(c.requestsTooBusy.WithLabelValues("primary")); v != 1 {
		t.Errorf("expected too_busy=1, got %v", v)
	}
	if v := getCounterValue(c.connectionsCreated.WithLabelValues("primary")); v != 2 {
		t.Errorf("expected created=2, got %v", v)
	}

	// A second call only advances by the delta from the previous snapshot.
	next := PoolSnapshot{SuccessfulRequests: 8, UnsuccessfulRequestsTooBusy: 1, ConnectionsCreated: 3}
	c.UpdatePoolStats("primary", cur, next)
	if v := getCounterValue(c.requestsSucceeded.WithLabelValues("primary")); v != 8 {
		t.Errorf("expected succeeded=8 after delta update, got %v", v)
	}
	if v := getCounterValue(c.requestsTooBusy.WithLabelValues("primary")); v != 1 {
		t.Errorf("expected too_busy to stay 1 when unchanged, got %v", v)
	}
}

func TestSetPoolHealth(t *testing.T) {
	c, _ := newTestCollector(t)

	c.SetPoolHealth("primary", true)
	if v := getGaugeValue(c.poolHealth.WithLabelValues("primary")); v != 1 {
		t.Errorf("expected health=1, got %v", v)
	}

	c.SetPoolHealth("primary", false)
	if v := getGaugeValue(c.poolHealth.WithLabelValues("primary")); v != 0 {
		t.Errorf("expected health=0, got %v", v)
	}
}

func TestHealthCheckCompleted(t *testing.T) {
	c, reg := newTestCollector(t)

	c.HealthCheckCompleted("primary", 5*time.Millisecond, true)
	c.HealthCheckCompleted("primary", 10*time.Millisecond, false)

	if v := getCounterValue(c.healthCheckErrors.WithLabelValues("primary")); v != 1 {
		t.Errorf("expected 1 health check error, got %v", v)
	}
	if v := getGaugeValue(c.poolHealth.WithLabelValues("primary")); v != 0 {
		t.Errorf("expected pool health to reflect the latest probe result (unhealthy), got %v", v)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() == "pgnative_health_check_duration_seconds" {
			found = true
		}
	}
	if !found {
		t.Error("health check duration metric not found")
	}
}

func TestRemovePool(t *testing.T) {
	c, reg := newTestCollector(t)

	c.UpdatePoolStats("primary", PoolSnapshot{}, PoolSnapshot{Allocated: 1, Idle: 2, Pending: 3})
	c.SetPoolHealth("primary", true)

	c.RemovePool("primary")

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "pool" && l.GetValue() == "primary" {
					t.Errorf("metric %s still has the primary pool label after removal", f.GetName())
				}
			}
		}
	}
}

func TestMultiplePools(t *testing.T) {
	c, _ := newTestCollector(t)

	c.UpdatePoolStats("primary", PoolSnapshot{}, PoolSnapshot{Allocated: 1})
	c.UpdatePoolStats("replica", PoolSnapshot{}, PoolSnapshot{Allocated: 2})

	v1 := getGaugeValue(c.sessionsAllocated.WithLabelValues("primary"))
	v2 := getGaugeValue(c.sessionsAllocated.WithLabelValues("replica"))

	if v1 != 1 {
		t.Errorf("expected primary allocated=1, got %v", v1)
	}
	if v2 != 2 {
		t.Errorf("expected replica allocated=2, got %v", v2)
	}
}

func TestNewDoesNotPanicOnMultipleCalls(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("New() panicked on repeated calls: %v", r)
		}
	}()

	c1 := New()
	c2 := New()

	c1.UpdatePoolStats("primary", PoolSnapshot{}, PoolSnapshot{Allocated: 1})
	c2.UpdatePoolStats("primary", PoolSnapshot{}, PoolSnapshot{Allocated: 2})

	v1 := getGaugeValue(c1.sessionsAllocated.WithLabelValues("primary"))
	v2 := getGaugeValue(c2.sessionsAllocated.WithLabelValues("primary"))

	if v1 != 1 {
		t.Errorf("c1 expected allocated=1, got %v", v1)
	}
	if v2 != 2 {
		t.Errorf("c2 expected allocated=2, got %v", v2)
	}
}
