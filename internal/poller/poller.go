// Package poller runs the single background task that keeps the Service
// Registry in sync with the on-disk configuration and republishes every
// Managed Client's status to the Status Cache.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mcpfed/internal/config"
	"mcpfed/internal/registry"
	"mcpfed/internal/statuscache"
	"mcpfed/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the fixed cadence between ticks.
const DefaultInterval = 60 * time.Second

// Poller owns the single periodic task that reloads configuration and
// refreshes every registered server's status.
type Poller struct {
	interval   time.Duration
	configPath string
	registry   *registry.Registry
	cache      *statuscache.Cache

	running  int32
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Poller. interval of zero falls back to DefaultInterval.
func New(configPath string, reg *registry.Registry, cache *statuscache.Cache, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		interval:   interval,
		configPath: configPath,
		registry:   reg,
		cache:      cache,
		stopCh:     make(chan struct{}),
	}
}

// Start runs an initial tick immediately, then ticks at Poller's interval
// until ctx is canceled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// Stop ends the polling loop. Idempotent.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// tick reloads configuration, reconciles the registry against it, then
// fans out a parallel status refresh across every registered server. A
// tick still in flight when the next interval fires is skipped rather
// than allowed to overlap.
func (p *Poller) tick(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		logging.Warn("Poller", "previous tick still running, skipping")
		return
	}
	defer atomic.StoreInt32(&p.running, 0)

	newConfig := config.LoadAppConfig(p.configPath)
	p.registry.DiffAndApply(newConfig)

	keys := p.registry.Keys()
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			p.refreshStatus(gctx, key)
			return nil
		})
	}
	_ = g.Wait()
}

// refreshStatus snapshots one server's Managed Client status and writes
// it to the Status Cache. An errored remote client whose unreachable
// backoff has elapsed gets a fresh initialization attempt first. A
// server that vanished from the registry between Keys() and this call
// is silently skipped.
func (p *Poller) refreshStatus(ctx context.Context, key string) {
	mc, ok := p.registry.Get(key)
	if !ok {
		return
	}
	mc.MaybeRetryUnreachable(ctx)
	info := mc.Status(ctx)
	p.cache.Write(ctx, key, info)
}
