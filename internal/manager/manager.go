// Package manager wires config, the Service Registry, the Poller, the
// Status Cache, the Tool Aggregator, and the Invocation Wrapper into one
// process-wide object with a single Start/Shutdown lifecycle.
package manager

import (
	"context"
	"os"
	"sync"
	"time"

	"mcpfed/internal/aggregator"
	"mcpfed/internal/config"
	"mcpfed/internal/invocation"
	"mcpfed/internal/metrics"
	"mcpfed/internal/poller"
	"mcpfed/internal/registry"
	"mcpfed/internal/statuscache"
	"mcpfed/pkg/logging"
)

// RedisURLEnv names the environment variable carrying the Status Cache's
// store address. When unset, the cache runs disabled: reads always
// synthesize status=uninitialized and writes are silently discarded.
const RedisURLEnv = "REDIS_URL"

// ShutdownBudget bounds how long Shutdown waits for every Managed Client
// to tear down before returning. Individual clients still enforce their
// own close timeout (and a forceful stdio kill) beneath this ceiling.
const ShutdownBudget = 10 * time.Second

// Manager owns every long-lived component of the federation manager and
// coordinates their startup and shutdown.
type Manager struct {
	configPath string

	Registry *registry.Registry
	Cache    *statuscache.Cache
	Wrapper  *invocation.Wrapper
	poller   *poller.Poller
	watcher  *config.Watcher

	updates chan config.ConfigUpdated
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Manager from the process environment: CONFIG_DIR for the
// config file location, REDIS_URL for the Status Cache. sink may be nil.
func New(sink metrics.Sink) *Manager {
	if sink == nil {
		sink = metrics.NoopSink{}
	}

	reg := registry.New(sink)
	cache := newStatusCache()
	return newManager(config.ConfigPath(), reg, cache, sink)
}

// NewForTesting builds a Manager around an already-constructed Registry
// and Status Cache, for tests that need to exercise Start/Shutdown wiring
// without a real Transport or Valkey connection.
func NewForTesting(configPath string, reg *registry.Registry, cache *statuscache.Cache) *Manager {
	return newManager(configPath, reg, cache, metrics.NoopSink{})
}

func newManager(configPath string, reg *registry.Registry, cache *statuscache.Cache, sink metrics.Sink) *Manager {
	return &Manager{
		configPath: configPath,
		Registry:   reg,
		Cache:      cache,
		Wrapper:    invocation.New(reg, sink),
		poller:     poller.New(configPath, reg, cache, 0),
		watcher:    config.NewWatcher(configPath, 0),
		updates:    make(chan config.ConfigUpdated, 1),
	}
}

// newStatusCache dials Valkey at REDIS_URL, or returns a disabled Cache
// when the variable is unset.
func newStatusCache() *statuscache.Cache {
	addr := os.Getenv(RedisURLEnv)
	if addr == "" {
		logging.Info("Manager", "REDIS_URL unset, Status Cache disabled")
		return statuscache.NewDisabled()
	}

	cache, err := statuscache.New([]string{addr}, 0)
	if err != nil {
		logging.Error("Manager", err, "failed to connect to Status Cache at %s, falling back to disabled", addr)
		return statuscache.NewDisabled()
	}
	return cache
}

// Start loads the current configuration, registers every server and its
// schemas, then launches the Config Watcher and the Poller as background
// tasks. Start never blocks on any one server's initialization: a slow or
// unreachable server settles into its own status independently.
func (m *Manager) Start(ctx context.Context) error {
	cctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	initial := config.LoadAppConfig(m.configPath)
	m.Registry.DiffAndApply(initial)
	m.registerSchemas(initial)

	if err := m.watcher.Start(cctx, m.updates); err != nil {
		cancel()
		return err
	}

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.reactToConfigUpdates(cctx)
	}()
	go func() {
		defer m.wg.Done()
		m.poller.Start(cctx)
	}()

	logging.Info("Manager", "started with %d configured server(s)", len(initial.MCPServers))
	return nil
}

// reactToConfigUpdates reloads and reconciles the registry every time the
// Config Watcher signals a change, independently of the Poller's own
// periodic reload.
func (m *Manager) reactToConfigUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.updates:
			logging.Info("Manager", "config change detected, reconciling")
			cfg := config.LoadAppConfig(m.configPath)
			m.Registry.DiffAndApply(cfg)
			m.registerSchemas(cfg)
		}
	}
}

// registerSchemas compiles and registers every server's per-tool JSON
// Schema documents with the Invocation Wrapper, under the same
// <serverKey>_<toolName> identifier the Tool Aggregator exposes.
func (m *Manager) registerSchemas(cfg config.AppConfig) {
	for serverKey, serverCfg := range cfg.MCPServers {
		for toolName, schema := range serverCfg.Schemas {
			exposedName := aggregator.ExposedName(serverKey, toolName)
			if err := m.Wrapper.RegisterSchema(exposedName, string(schema)); err != nil {
				logging.Warn("Manager", "failed to register schema for %s: %v", exposedName, err)
			}
		}
	}
}

// Catalog returns the current federated tool catalog.
func (m *Manager) Catalog(ctx context.Context) []aggregator.AggregatedTool {
	return aggregator.BuildCatalog(ctx, m.Registry)
}

// InvokeTool dispatches one federated tool call by its exposed
// <serverKey>_<toolName> identifier, resolving the owning server from
// the current catalog rather than by splitting the name (server keys
// may themselves contain underscores).
func (m *Manager) InvokeTool(ctx context.Context, exposedName string, args map[string]interface{}, callID string) (interface{}, *invocation.CallError) {
	for _, tool := range aggregator.BuildCatalog(ctx, m.Registry) {
		if tool.Name == exposedName {
			return m.Wrapper.Invoke(ctx, exposedName, tool.ServerKey, tool.ToolName, args, callID)
		}
	}
	return nil, &invocation.CallError{
		Error:    true,
		Kind:     "execution_error",
		Message:  "tool not found in the federated catalog",
		ToolName: exposedName,
	}
}

// Shutdown stops the Poller, removes every registered server (tearing
// down its Transport), stops the Config Watcher, and releases the Status
// Cache connection. The whole sequence is bounded by ShutdownBudget;
// individual Managed Clients enforce their own close timeout beneath it.
func (m *Manager) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, ShutdownBudget)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)

		m.poller.Stop()
		m.Registry.DiffAndApply(config.AppConfig{MCPServers: map[string]config.ServerConfig{}})

		if err := m.watcher.Stop(); err != nil {
			logging.Warn("Manager", "error stopping config watcher: %v", err)
		}
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()
		m.Cache.Close()
	}()

	select {
	case <-done:
		logging.Info("Manager", "shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logging.Warn("Manager", "shutdown budget exceeded, returning with teardown still in flight")
		return shutdownCtx.Err()
	}
}
