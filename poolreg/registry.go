// Package poolreg is a named collection of pgnative.Pools, for
// applications that talk to more than one PostgreSQL target (primary +
// replica, per-tenant database, etc.). pgnative's Pool is single-target by
// construction; poolreg is an explicit, separate layer so the core pool's
// FIFO/LRU/metrics invariants stay provable against one target without
// reasoning about routing across many.
//
// Get is lock-free via atomic.Value, generalizing the snapshot-swap
// technique used for tenant routing elsewhere in the retrieval pack:
// reads never block on the rare add/remove/reload mutation.
package poolreg

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pgnative/pgnative"
	"github.com/pgnative/pgnative/internal/config"
)

type snapshot struct {
	pools map[string]*pgnative.Pool
}

// Registry resolves pool names to *pgnative.Pool. Get is lock-free;
// mutations serialize on a write mutex and swap in a new snapshot.
type Registry struct {
	snap atomic.Value // *snapshot
	wmu  sync.Mutex
}

// New builds a Registry with one Pool per entry in doc.Pools.
func New(doc *config.Document) (*Registry, error) {
	r := &Registry{}
	pools := make(map[string]*pgnative.Pool, len(doc.Pools))
	for name, spec := range doc.Pools {
		cfg, err := poolConfigFromSpec(spec)
		if err != nil {
			for _, p := range pools {
				p.Close(true)
			}
			return nil, fmt.Errorf("pool %q: %w", name, err)
		}
		pools[name] = pgnative.NewPool(cfg)
	}
	r.snap.Store(&snapshot{pools: pools})
	return r, nil
}

func (r *Registry) load() *snapshot {
	s, _ := r.snap.Load().(*snapshot)
	if s == nil {
		return &snapshot{pools: map[string]*pgnative.Pool{}}
	}
	return s
}

// Get resolves name to its Pool, lock-free.
func (r *Registry) Get(name string) (*pgnative.Pool, error) {
	p, ok := r.load().pools[name]
	if !ok {
		return nil, fmt.Errorf("poolreg: unknown pool %q", name)
	}
	return p, nil
}

// Names returns every registered pool name.
func (r *Registry) Names() []string {
	s := r.load()
	names := make([]string, 0, len(s.pools))
	for name := range s.pools {
		names = append(names, name)
	}
	return names
}

// Each calls fn for every registered (name, Pool) pair. Lock-free over a
// stable snapshot, so fn may take time without blocking Get.
func (r *Registry) Each(fn func(name string, p *pgnative.Pool)) {
	for name, p := range r.load().pools {
		fn(name, p)
	}
}

// Reload replaces the registry's pools from a freshly loaded Document:
// pools present in both the old and new document are left untouched,
// pools removed from the document are closed, and newly added pools are
// opened.
func (r *Registry) Reload(doc *config.Document) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	cur := r.load()
	next := make(map[string]*pgnative.Pool, len(doc.Pools))
	var toClose []*pgnative.Pool

	for name, spec := range doc.Pools {
		if existing, ok := cur.pools[name]; ok {
			next[name] = existing
			continue
		}
		cfg, err := poolConfigFromSpec(spec)
		if err != nil {
			return fmt.Errorf("pool %q: %w", name, err)
		}
		next[name] = pgnative.NewPool(cfg)
	}
	for name, p := range cur.pools {
		if _, stillPresent := doc.Pools[name]; !stillPresent {
			toClose = append(toClose, p)
		}
	}

	r.snap.Store(&snapshot{pools: next})
	for _, p := range toClose {
		p.Close(false)
	}
	return nil
}

// CloseAll closes every registered pool (force=true on each), for use
// during application shutdown.
func (r *Registry) CloseAll() {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	for _, p := range r.load().pools {
		p.Close(true)
	}
	r.snap.Store(&snapshot{pools: map[string]*pgnative.Pool{}})
}

func poolConfigFromSpec(spec config.PoolSpec) (pgnative.PoolConfig, error) {
	connCfg := pgnative.DefaultConfig()
	connCfg.Host = spec.Host
	connCfg.Port = spec.Port
	if spec.SSL != nil {
		connCfg.SSL = *spec.SSL
	}
	if spec.Database != "" {
		connCfg.Database = spec.Database
	}
	connCfg.User = spec.User
	connCfg.SocketTimeout = spec.SocketTimeout

	switch spec.Credential.Kind {
	case "", "trust":
		connCfg.Credential = pgnative.TrustCredential()
	case "cleartext":
		connCfg.Credential = pgnative.CleartextCredential(spec.Credential.Password)
	case "md5":
		connCfg.Credential = pgnative.MD5Credential(spec.Credential.Password)
	case "scram-sha-256":
		connCfg.Credential = pgnative.ScramSHA256Credential(spec.Credential.Password)
	default:
		return pgnative.PoolConfig{}, fmt.Errorf("unsupported credential kind %q", spec.Credential.Kind)
	}

	poolCfg := pgnative.DefaultPoolConfig(connCfg)
	if spec.MaxSessions > 0 {
		poolCfg.MaxSessions = spec.MaxSessions
	}
	poolCfg.MaxPendingRequests = spec.MaxPendingRequests
	poolCfg.PendingRequestTimeout = spec.PendingRequestTimeout
	poolCfg.AllocatedSessionTimeout = spec.AllocatedSessionTimeout
	if spec.MetricsFlushInterval > 0 {
		poolCfg.MetricsFlushInterval = spec.MetricsFlushInterval
	}
	if spec.MetricsResetWhenFlushed != nil {
		poolCfg.MetricsResetWhenFlushed = *spec.MetricsResetWhenFlushed
	}
	return poolCfg, nil
}
