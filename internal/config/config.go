// Package config loads the YAML pool-registry document consumed by
// poolreg and cmd/pgnative-demo. The wire-protocol core itself never
// touches a filesystem; this package exists only for the one place a
// pgnative deployment plausibly wants static configuration: a set of named
// pool targets, hot-reloaded from disk.
package config

import (
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/pgnative/pgnative/pglog"
)

// Document is the top-level shape of a pool-registry YAML file.
type Document struct {
	Pools map[string]PoolSpec `yaml:"pools"`
}

// CredentialSpec mirrors pgnative.Credential in a YAML-friendly shape.
type CredentialSpec struct {
	Kind     string `yaml:"kind"` // trust | cleartext | md5 | scram-sha-256
	Password string `yaml:"password"`
}

// PoolSpec describes one named pool's connection target and pool limits.
type PoolSpec struct {
	Host          string         `yaml:"host"`
	Port          int            `yaml:"port"`
	SSL           *bool          `yaml:"ssl,omitempty"`
	Database      string         `yaml:"database"`
	User          string         `yaml:"user"`
	Credential    CredentialSpec `yaml:"credential"`
	SocketTimeout time.Duration  `yaml:"socket_timeout,omitempty"`

	MaxSessions             int           `yaml:"max_sessions,omitempty"`
	MaxPendingRequests      int           `yaml:"max_pending_requests,omitempty"`
	PendingRequestTimeout   time.Duration `yaml:"pending_request_timeout,omitempty"`
	AllocatedSessionTimeout time.Duration `yaml:"allocated_session_timeout,omitempty"`
	MetricsFlushInterval    time.Duration `yaml:"metrics_flush_interval,omitempty"`
	MetricsResetWhenFlushed *bool         `yaml:"metrics_reset_when_flushed,omitempty"`
}

// envRefPattern matches ${VAR} and ${VAR:-default}: a bare reference
// resolves to the empty env var name as-is if unset (left untouched, so a
// missing var is loud rather than silently becoming ""), while the
// :-default form falls back to the literal default text, the shape
// credential passwords most often need since a pool spec with no fallback
// would otherwise refuse to start in any environment that hasn't set the
// secret yet.
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandEnvRefs resolves every ${VAR} / ${VAR:-default} reference in data
// against the process environment before the YAML parser ever sees it.
func expandEnvRefs(data []byte) []byte {
	return envRefPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envRefPattern.FindSubmatch(match)
		name, hasDefault, fallback := string(parts[1]), len(parts[2]) > 0, string(parts[3])
		if val, ok := os.LookupEnv(name); ok {
			return []byte(val)
		}
		if hasDefault {
			return []byte(fallback)
		}
		return match
	})
}

// Load reads and parses a pool-registry YAML file, expanding environment
// references first.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	doc := &Document{}
	if err := yaml.Unmarshal(expandEnvRefs(raw), doc); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := validatePools(doc.Pools); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return doc, nil
}

func validatePools(pools map[string]PoolSpec) error {
	for name, spec := range pools {
		if spec.Host == "" {
			return fmt.Errorf("pool %q: host is required", name)
		}
		if spec.Port <= 0 || spec.Port > 65535 {
			return fmt.Errorf("pool %q: port %d out of range", name, spec.Port)
		}
		switch spec.Credential.Kind {
		case "", "trust":
		case "cleartext", "md5", "scram-sha-256":
			if spec.Credential.Password == "" {
				return fmt.Errorf("pool %q: credential kind %q requires a password", name, spec.Credential.Kind)
			}
		default:
			return fmt.Errorf("pool %q: unknown credential kind %q", name, spec.Credential.Kind)
		}
		if spec.MaxSessions < 0 {
			return fmt.Errorf("pool %q: max_sessions must be non-negative", name)
		}
	}
	return nil
}

// Watcher watches a pool-registry YAML file for changes, reloading and
// invoking the callback with the freshly-parsed Document once writes have
// settled. Filesystem editors commonly emit a burst of CREATE/WRITE/RENAME
// events for a single logical save (truncate-then-write, atomic
// rename-into-place, ...); reloadDelay coalesces a burst into one reload
// rather than racing Load against a half-written file.
type Watcher struct {
	path        string
	callback    func(*Document)
	reloadDelay time.Duration
	fsw         *fsnotify.Watcher
	log         *pglog.Logger

	mu    sync.Mutex
	timer *time.Timer

	stopCh chan struct{}
}

// NewWatcher starts watching path for changes, invoking callback after each
// settled write with the freshly-reloaded Document. A failed reload (e.g. a
// transiently invalid file mid-save) is logged and skipped; the previous
// Document stays in effect until a later write parses cleanly.
func NewWatcher(path string, callback func(*Document)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	w := &Watcher{
		path:        path,
		callback:    callback,
		reloadDelay: 500 * time.Millisecond,
		fsw:         fsw,
		log:         pglog.New("pgnative.config"),
		stopCh:      make(chan struct{}),
	}
	go w.watch()
	return w, nil
}

func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warning("watching %s: %v", w.path, err)
		case <-w.stopCh:
			return
		}
	}
}

// scheduleReload resets a single pending timer rather than letting each
// event in a burst start its own, so N filesystem events for one save
// produce exactly one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.reloadDelay, w.reload)
}

func (w *Watcher) reload() {
	doc, err := Load(w.path)
	if err != nil {
		w.log.Warning("reloading %s: %v", w.path, err)
		return
	}
	w.log.Info("reloaded pool registry config from %s (%d pool(s))", w.path, len(doc.Pools))
	w.callback(doc)
}

// Stop stops watching and releases the underlying filesystem watch.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
