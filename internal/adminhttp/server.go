// Package adminhttp is the operational HTTP surface for a pgnative
// deployment: Prometheus metrics, a JSON pool-status listing, and a
// liveness endpoint. Route registration and the graceful-shutdown
// pattern are adapted from the retrieval pack's REST API server; the
// tenant CRUD handlers and the bespoke HTML dashboard have no equivalent
// here (a client library registry has no tenant lifecycle to administer,
// and nothing renders the dashboard's charts) and are not carried over.
package adminhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pgnative/pgnative/healthprobe"
	"github.com/pgnative/pgnative/internal/metrics"
	"github.com/pgnative/pgnative/pglog"
	"github.com/pgnative/pgnative/poolreg"
)

// Server is the admin HTTP server.
type Server struct {
	registry   *poolreg.Registry
	prober     *healthprobe.Prober
	metrics    *metrics.Collector
	log        *pglog.Logger
	httpServer *http.Server
	startTime  time.Time
}

// NewServer constructs a Server. prober may be nil if health probing is
// disabled, in which case /healthz always reports ok.
func NewServer(reg *poolreg.Registry, prober *healthprobe.Prober, m *metrics.Collector) *Server {
	return &Server{
		registry:  reg,
		prober:    prober,
		metrics:   m,
		log:       pglog.New("pgnative.adminhttp"),
		startTime: time.Now(),
	}
}

// Start begins serving on the given port. Non-blocking; errors from the
// listener after Start returns are logged, not returned.
func (s *Server) Start(port int) error {
	r := mux.NewRouter()

	r.HandleFunc("/pools", s.listPools).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/status", s.status).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("admin HTTP listening on %s", addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Severe("admin HTTP server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the admin server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) listPools(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Name     string                  `json:"name"`
		Snapshot interface{}             `json:"snapshot"`
		Health   *healthprobe.PoolHealth `json:"health,omitempty"`
	}
	var result []entry

	for _, name := range s.registry.Names() {
		pool, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		snap := pool.Snapshot()
		e := entry{Name: name, Snapshot: snap}
		if s.prober != nil {
			health := s.prober.Snapshot()
			if h, ok := health[name]; ok {
				e.Health = &h
			}
		}
		result = append(result, e)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.prober == nil || s.prober.Healthy() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_mb":      float64(mem.Alloc) / 1024 / 1024,
		"pool_count":     len(s.registry.Names()),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
