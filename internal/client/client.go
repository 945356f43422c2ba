// Package client implements the Managed Client: the object that owns
// exactly one Transport for one ServerConfig and exposes an idempotent
// status()/tools()/invoke()/close() surface.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"

	"mcpfed/internal/circuit"
	"mcpfed/internal/config"
	"mcpfed/internal/metrics"
	"mcpfed/internal/transport"
	"mcpfed/pkg/logging"
)

// MaxRetries is the number of initialization attempts before a client
// settles into status=error.
const MaxRetries = 3

// InitialRetryDelay and MaxRetryDelay bound the exponential backoff between
// initialization attempts (delay = InitialRetryDelay * 2^(attempt-1),
// capped at MaxRetryDelay).
const (
	InitialRetryDelay = 1 * time.Second
	MaxRetryDelay     = 10 * time.Second
)

// DefaultInitTimeout wraps each individual initialization attempt.
const DefaultInitTimeout = 30 * time.Second

// UnreachableThreshold, InitialUnreachableBackoff, and MaxUnreachableBackoff
// govern a second, longer backoff layered on top of MaxRetries: once a
// remote (sse/streamable-http) Managed Client has exhausted MaxRetries and
// settled into status=error this many consecutive times, NextRetryAt backs
// off exponentially so the Poller stops re-dialing a known-unreachable
// server every tick. It does not apply to stdio, which has no notion of
// "unreachable" beyond the child process itself failing to start.
const (
	UnreachableThreshold      = 3
	InitialUnreachableBackoff = 30 * time.Second
	MaxUnreachableBackoff     = 30 * time.Minute
)

// ManagedClient owns one Transport for one ServerConfig. Construction never
// blocks: initialization runs as a background goroutine, and status(),
// tools(), invoke(), and close() all share that single in-flight attempt
// via singleflight so concurrent callers never race a second initialization.
type ManagedClient struct {
	key string
	cfg config.ServerConfig

	newTransport func(config.ServerConfig) (transport.Transport, error)
	metrics      metrics.Sink
	breaker      *circuit.Breaker

	initGroup  singleflight.Group
	initFn     func() (interface{}, error)
	retryGroup singleflight.Group
	initMu     sync.Mutex

	mu             sync.RWMutex
	status         Status
	errorDetails   string
	tools          []ToolDescriptor
	transport      transport.Transport
	lastUpdated    time.Time
	remoteFailures int
	nextRetryAt    *time.Time

	closeOnce sync.Once
}

// New constructs a ManagedClient and schedules background initialization.
// It never blocks. When cfg.Enabled is false, the client settles
// immediately into status=disabled and spawns no Transport.
func New(key string, cfg config.ServerConfig, sink metrics.Sink) *ManagedClient {
	return newWithTransportFactory(key, cfg, sink, transport.NewTransport)
}

// newWithTransportFactory is New's implementation, parameterized on the
// transport factory so tests can substitute a fake Transport without
// spawning real processes or network connections.
func newWithTransportFactory(key string, cfg config.ServerConfig, sink metrics.Sink, factory func(config.ServerConfig) (transport.Transport, error)) *ManagedClient {
	if sink == nil {
		sink = metrics.NoopSink{}
	}

	c := &ManagedClient{
		key:          key,
		cfg:          cfg,
		newTransport: factory,
		metrics:      sink,
		breaker:      circuit.New(circuit.DefaultFailureThreshold, circuit.DefaultResetTimeout),
		status:       StatusUninitialized,
		lastUpdated:  time.Now(),
	}

	if !cfg.Enabled {
		c.setStatus(StatusDisabled, "")
		return c
	}

	ctx := context.Background()
	c.initFn = func() (interface{}, error) {
		c.attemptInitializationWithRetries(ctx)
		return nil, nil
	}

	go c.ensureInitialized()
	return c
}

// ensureInitialized is the singleflight-shared initialization barrier.
// Both the background call from New and any caller of awaitInit invoke Do
// with the identical initFn closure: whichever reaches singleflight first
// actually runs attemptInitializationWithRetries, and every other
// concurrent caller shares that one result instead of starting a second
// attempt or racing a no-op ahead of the real work.
func (c *ManagedClient) ensureInitialized() {
	_, _, _ = c.initGroup.Do("init", c.initFn)
}

// attemptInitializationWithRetries runs the retry loop: up to
// MaxRetries attempts (or cfg.Retry.MaxRetries+1 when set), each wrapped with
// DefaultInitTimeout (or cfg.TimeoutMs when set), backing off exponentially
// between attempts per the package constants or cfg.Retry when set.
func (c *ManagedClient) attemptInitializationWithRetries(ctx context.Context) {
	// Serializes the retry loop itself: a caller racing awaitInit against
	// MaybeRetryUnreachable waits here and then sees the settled status
	// instead of dialing a second Transport.
	c.initMu.Lock()
	defer c.initMu.Unlock()

	c.mu.RLock()
	settled := c.status == StatusConnected || c.status == StatusNoToolsFound || c.status == StatusError || c.status == StatusDisabled
	c.mu.RUnlock()
	if settled {
		// A prior Do("init", ...) already resolved this client, or Close has
		// disabled it; singleflight does not cache completed calls, so later
		// callers sharing this closure must no-op instead of re-running the
		// retry loop.
		return
	}

	c.setStatus(StatusInitializing, "")

	timeout := DefaultInitTimeout
	if c.cfg.TimeoutMs > 0 {
		timeout = time.Duration(c.cfg.TimeoutMs) * time.Millisecond
	}

	maxAttempts := MaxRetries
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = InitialRetryDelay
	policy.MaxInterval = MaxRetryDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	if r := c.cfg.Retry; r != nil {
		if r.MaxRetries > 0 {
			// A configured maxRetries counts retries after the first
			// attempt, so attempts total maxRetries+1.
			maxAttempts = r.MaxRetries + 1
		}
		if r.BaseDelayMs > 0 {
			policy.InitialInterval = time.Duration(r.BaseDelayMs) * time.Millisecond
		}
		if r.MaxDelayMs > 0 {
			policy.MaxInterval = time.Duration(r.MaxDelayMs) * time.Millisecond
		}
		if r.BackoffMultiplier > 0 {
			policy.Multiplier = r.BackoffMultiplier
		}
	}

	var lastErr error
	_, _ = backoff.Retry(ctx, func() (struct{}, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		tr, tools, err := c.openAndDiscover(attemptCtx)
		if err != nil {
			lastErr = err
			c.metrics.RecordConnectionAttempt(c.key, false)
			logging.Warn("ManagedClient", "init attempt failed for %s: %v", c.key, err)
			return struct{}{}, err
		}

		c.mu.Lock()
		c.transport = tr
		c.tools = tools
		c.mu.Unlock()

		if len(tools) == 0 {
			c.setStatus(StatusNoToolsFound, "")
		} else {
			c.setStatus(StatusConnected, "")
		}
		c.resetUnreachableBackoff()
		c.metrics.RecordConnectionAttempt(c.key, true)
		logging.Info("ManagedClient", "%s initialized with %d tools", c.key, len(tools))
		return struct{}{}, nil
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(uint(maxAttempts)))

	c.mu.RLock()
	settled = c.status == StatusConnected || c.status == StatusNoToolsFound
	c.mu.RUnlock()
	if settled {
		return
	}

	msg := "initialization failed"
	if lastErr != nil {
		msg = lastErr.Error()
	}
	c.setStatus(StatusError, msg)
	c.recordUnreachableFailure()
	logging.Error("ManagedClient", lastErr, "%s exhausted %d initialization attempts", c.key, maxAttempts)
}

// isRemoteTransport reports whether this client dials out over the network
// (sse or streamable-http) rather than spawning a local stdio child.
func (c *ManagedClient) isRemoteTransport() bool {
	t := c.cfg.Transport.Type
	return t == config.TransportSSE || t == config.TransportStreamableHTTP
}

// recordUnreachableFailure counts one more exhausted initialization cycle
// for a remote client and, once UnreachableThreshold consecutive cycles
// have failed, schedules NextRetryAt via exponential backoff.
func (c *ManagedClient) recordUnreachableFailure() {
	if !c.isRemoteTransport() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.remoteFailures++
	if c.remoteFailures < UnreachableThreshold {
		return
	}

	backoffDelay := InitialUnreachableBackoff << uint(c.remoteFailures-UnreachableThreshold)
	if backoffDelay > MaxUnreachableBackoff || backoffDelay <= 0 {
		backoffDelay = MaxUnreachableBackoff
	}
	next := time.Now().Add(backoffDelay)
	c.nextRetryAt = &next
}

// resetUnreachableBackoff clears the unreachable-backoff state after a
// successful initialization.
func (c *ManagedClient) resetUnreachableBackoff() {
	c.mu.Lock()
	c.remoteFailures = 0
	c.nextRetryAt = nil
	c.mu.Unlock()
}

// MaybeRetryUnreachable re-attempts initialization for a remote Managed
// Client parked in status=error once its NextRetryAt backoff has elapsed.
// The Poller calls this before refreshing status so a known-unreachable
// remote server gets a fresh attempt instead of staying errored forever,
// but no more often than its own backoff allows. It is a no-op for a
// stdio client, a client that isn't in status=error, or one still within
// its backoff window.
func (c *ManagedClient) MaybeRetryUnreachable(ctx context.Context) {
	c.mu.RLock()
	status := c.status
	nextRetryAt := c.nextRetryAt
	remote := c.isRemoteTransport()
	c.mu.RUnlock()

	if status != StatusError || !remote {
		return
	}
	if nextRetryAt != nil && time.Now().Before(*nextRetryAt) {
		return
	}

	_, _, _ = c.retryGroup.Do("retry", func() (interface{}, error) {
		c.setStatus(StatusInitializing, "")
		c.attemptInitializationWithRetries(ctx)
		return nil, nil
	})
}

func (c *ManagedClient) openAndDiscover(ctx context.Context) (transport.Transport, []ToolDescriptor, error) {
	tr, err := c.newTransport(c.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("build transport: %w", err)
	}
	if err := tr.Open(ctx); err != nil {
		return nil, nil, fmt.Errorf("open session: %w", err)
	}

	rawTools, err := tr.Tools(ctx)
	if err != nil {
		tr.Close()
		return nil, nil, fmt.Errorf("discover tools: %w", err)
	}

	descs := make([]ToolDescriptor, len(rawTools))
	for i, t := range rawTools {
		descs[i] = ToolDescriptor{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}
	return tr, descs, nil
}

func (c *ManagedClient) setStatus(s Status, errorDetails string) {
	c.mu.Lock()
	c.status = s
	c.errorDetails = errorDetails
	c.lastUpdated = time.Now()
	c.mu.Unlock()
}

// Status awaits any in-flight initialization and returns a snapshot of the
// client's current lifecycle state.
func (c *ManagedClient) Status(ctx context.Context) ManagedServerInfo {
	c.awaitInit(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	// Tools is always non-nil so the cached snapshot serializes as [].
	return ManagedServerInfo{
		Key:           c.key,
		Label:         c.cfg.Label,
		Status:        c.status,
		TransportType: string(c.cfg.Transport.Type),
		Tools:         append([]ToolDescriptor{}, c.tools...),
		ErrorDetails:  c.errorDetails,
		LastUpdated:   c.lastUpdated,
		NextRetryAt:   c.nextRetryAt,
	}
}

// Tools awaits any in-flight initialization and returns the catalog. A
// client not in status=connected never exposes tools.
func (c *ManagedClient) Tools(ctx context.Context) []ToolDescriptor {
	c.awaitInit(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status != StatusConnected {
		return nil
	}
	return append([]ToolDescriptor(nil), c.tools...)
}

// Invoke dispatches toolName through the client's Transport. It refuses
// immediately (no transport I/O) unless the client is connected, and is
// gated by the circuit breaker.
func (c *ManagedClient) Invoke(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error) {
	c.awaitInit(ctx)

	c.mu.RLock()
	status := c.status
	tr := c.transport
	c.mu.RUnlock()

	if status != StatusConnected {
		return nil, newError(ErrKindConnectionError, c.key, toolName, fmt.Sprintf("client is %s", status))
	}

	if err := c.breaker.Allow(); err != nil {
		return nil, newError(ErrKindCircuitOpen, c.key, toolName, err.Error())
	}

	result, err := tr.Call(ctx, toolName, args)
	if err != nil {
		c.breaker.Failure()
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
			return nil, newError(ErrKindTimeout, c.key, toolName, err.Error())
		case ctx.Err() != nil:
			return nil, newError(ErrKindAborted, c.key, toolName, err.Error())
		default:
			return nil, newError(ErrKindExecutionError, c.key, toolName, err.Error())
		}
	}

	c.breaker.Success()
	return result, nil
}

// HealthCheck returns true iff the Transport's own health probe succeeds
// within 5s.
func (c *ManagedClient) HealthCheck(ctx context.Context) bool {
	c.mu.RLock()
	tr := c.transport
	status := c.status
	c.mu.RUnlock()

	if tr == nil || (status != StatusConnected && status != StatusNoToolsFound) {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return tr.Health(ctx)
}

// Close waits for any in-flight initialization to resolve, then tears down
// the Transport. Close is idempotent.
func (c *ManagedClient) Close() error {
	c.awaitInit(context.Background())

	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		tr := c.transport
		c.transport = nil
		c.status = StatusDisabled
		c.mu.Unlock()

		if tr != nil {
			err = tr.Close()
		}
	})
	return err
}

// awaitInit blocks until the in-flight initialization (if any) resolves. A
// disabled client never scheduled one and returns immediately. Any other
// caller joins the same singleflight call the background goroutine started
// (or, in the unlikely case it wins the race to call Do first, performs
// the one real initialization attempt itself).
func (c *ManagedClient) awaitInit(ctx context.Context) {
	if c.initFn == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		_, _, _ = c.initGroup.Do("init", c.initFn)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}
