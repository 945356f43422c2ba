// Package registry implements the process-wide mapping from serverKey to
// one Managed Client, with an added/removed/modified diff against a newly
// loaded configuration.
package registry

import (
	"reflect"
	"sync"

	"mcpfed/internal/client"
	"mcpfed/internal/config"
	"mcpfed/internal/metrics"
	"mcpfed/pkg/logging"
)

// entry pairs a Managed Client with the normalized ServerConfig it was
// built from, so a later diff can tell whether anything significant
// changed.
type entry struct {
	cfg config.ServerConfig
	mc  *client.ManagedClient
}

// Registry owns every Managed Client for the process. Lifecycle
// operations (register/remove) on distinct keys run independently; two
// callers racing on the same key are serialized by a per-key lock so at
// most one lifecycle transition for that key is in flight at a time.
type Registry struct {
	newClient func(key string, cfg config.ServerConfig) *client.ManagedClient
	sink      metrics.Sink

	mu      sync.RWMutex
	entries map[string]*entry

	keyLocksMu sync.Mutex
	keyLocks   map[string]*sync.Mutex
}

// New constructs an empty Registry. sink may be nil.
func New(sink metrics.Sink) *Registry {
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return newWithClientFactory(sink, func(key string, cfg config.ServerConfig) *client.ManagedClient {
		return client.New(key, cfg, sink)
	})
}

// newWithClientFactory is New's implementation, parameterized on the
// Managed Client constructor so tests can substitute a fake without
// spawning real Transports.
func newWithClientFactory(sink metrics.Sink, factory func(key string, cfg config.ServerConfig) *client.ManagedClient) *Registry {
	return &Registry{
		sink:      sink,
		newClient: factory,
		entries:   make(map[string]*entry),
		keyLocks:  make(map[string]*sync.Mutex),
	}
}

// NewForTesting builds a Registry whose Managed Clients are produced by
// factory, for other packages' tests that need a working Registry
// without spawning real Transports.
func NewForTesting(factory func(key string, cfg config.ServerConfig) *client.ManagedClient) *Registry {
	return newWithClientFactory(nil, factory)
}

func (r *Registry) lockFor(key string) *sync.Mutex {
	r.keyLocksMu.Lock()
	defer r.keyLocksMu.Unlock()
	l, ok := r.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		r.keyLocks[key] = l
	}
	return l
}

// Register builds a Managed Client for key and stores it, replacing any
// prior entry for the same key. Construction never blocks; a disabled or
// misconfigured ServerConfig settles into its own disabled/error status
// without Register itself failing.
func (r *Registry) Register(key string, cfg config.ServerConfig) {
	keyLock := r.lockFor(key)
	keyLock.Lock()
	defer keyLock.Unlock()

	r.mu.RLock()
	prior := r.entries[key]
	r.mu.RUnlock()
	if prior != nil {
		_ = prior.mc.Close()
	}

	mc := r.newClient(key, cfg)

	r.mu.Lock()
	r.entries[key] = &entry{cfg: cfg, mc: mc}
	r.mu.Unlock()

	logging.Info("Registry", "registered %s (enabled=%v, transport=%s)", key, cfg.Enabled, cfg.Transport.Type)
}

// Remove closes the Managed Client for key, if any, and deletes it.
// Idempotent: removing an unknown key is a no-op.
func (r *Registry) Remove(key string) {
	keyLock := r.lockFor(key)
	keyLock.Lock()
	defer keyLock.Unlock()

	r.mu.Lock()
	e, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := e.mc.Close(); err != nil {
		logging.Warn("Registry", "error closing %s: %v", key, err)
	}
	logging.Info("Registry", "removed %s", key)
}

// Get looks up the Managed Client for key without creating one.
func (r *Registry) Get(key string) (*client.ManagedClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.mc, true
}

// Keys returns a snapshot of every registered serverKey.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// significantlyChanged reports whether two normalized ServerConfigs differ
// in a way that requires tearing down and recreating the Managed Client:
// a different transport, label, or enabled flag.
func significantlyChanged(a, b config.ServerConfig) bool {
	if a.Enabled != b.Enabled {
		return true
	}
	if a.Label != b.Label {
		return true
	}
	return !reflect.DeepEqual(a.Transport, b.Transport)
}

// DiffAndApply reconciles the registry against a freshly loaded
// AppConfig: keys absent from the new config are removed, keys new to
// the config are registered, and keys present in both whose transport,
// label, or enabled flag changed are torn down and re-registered.
func (r *Registry) DiffAndApply(newConfig config.AppConfig) {
	r.mu.RLock()
	current := make(map[string]config.ServerConfig, len(r.entries))
	for k, e := range r.entries {
		current[k] = e.cfg
	}
	r.mu.RUnlock()

	for key := range current {
		if _, ok := newConfig.MCPServers[key]; !ok {
			r.Remove(key)
		}
	}

	for key, cfg := range newConfig.MCPServers {
		prior, existed := current[key]
		switch {
		case !existed:
			r.Register(key, cfg)
		case significantlyChanged(prior, cfg):
			r.Remove(key)
			r.Register(key, cfg)
		}
	}
}
