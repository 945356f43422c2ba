// Package statuscache persists each Managed Client's ManagedServerInfo
// snapshot to a shared Valkey store, so any process (the poller, the
// admin status surface, a second replica) can read the federation
// manager's current view without holding an in-memory reference to the
// Managed Client itself.
package statuscache

import (
	"context"
	"encoding/json"
	"time"

	"mcpfed/internal/client"
	"mcpfed/pkg/logging"
)

// DefaultTTL is how long a written status survives before expiring, if
// nothing refreshes it first.
const DefaultTTL = 300 * time.Second

const keyPrefix = "mcp_status:"

// CacheUnavailableDetails is the ErrorDetails value Read reports when the
// store itself could not be reached, as opposed to a plain cache miss.
const CacheUnavailableDetails = "cache unavailable"

func cacheKey(serverKey string) string {
	return keyPrefix + serverKey
}

// conn is the narrow store contract Cache depends on, so the Valkey wire
// protocol stays isolated to cache_valkey.go and tests can substitute an
// in-memory fake.
type conn interface {
	set(ctx context.Context, key, value string, ttl time.Duration) error
	get(ctx context.Context, key string) (value string, found bool, err error)
	close()
}

// Cache wraps a store connection with the write-with-TTL /
// fail-soft-read contract the status surface relies on.
type Cache struct {
	conn conn
	ttl  time.Duration
}

// New dials a Valkey (or Redis-protocol-compatible) store at the given
// addresses. ttl of zero falls back to DefaultTTL.
func New(addresses []string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c, err := newValkeyConn(addresses)
	if err != nil {
		return nil, err
	}
	return &Cache{conn: c, ttl: ttl}, nil
}

// disabledConn backs a Cache when no store address is configured: every
// write is a no-op and every read is a miss, so Read always synthesizes
// status=uninitialized without ever reporting CacheUnavailableDetails.
type disabledConn struct{}

func (disabledConn) set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}
func (disabledConn) get(ctx context.Context, key string) (string, bool, error) { return "", false, nil }
func (disabledConn) close()                                                   {}

// NewDisabled builds a Cache with no backing store, for when REDIS_URL is
// unset: reads always come back status=uninitialized and writes are
// silently discarded.
func NewDisabled() *Cache {
	return &Cache{conn: disabledConn{}, ttl: DefaultTTL}
}

// Write serializes info as JSON and stores it under mcp_status:<serverKey>,
// refreshing the TTL. A write failure is logged and swallowed: the
// manager must keep running even when the store is unreachable.
func (c *Cache) Write(ctx context.Context, serverKey string, info client.ManagedServerInfo) {
	payload, err := json.Marshal(info)
	if err != nil {
		logging.Error("StatusCache", err, "marshal status for %s", serverKey)
		return
	}

	if err := c.conn.set(ctx, cacheKey(serverKey), string(payload), c.ttl); err != nil {
		logging.Warn("StatusCache", "write failed for %s: %v", serverKey, err)
	}
}

// Read returns the cached ManagedServerInfo for serverKey. A plain cache
// miss yields a synthetic status=uninitialized snapshot with no error
// details; an unreachable store yields the same status with
// ErrorDetails=CacheUnavailableDetails so callers can distinguish "never
// written yet" from "the cache is down".
func (c *Cache) Read(ctx context.Context, serverKey string) client.ManagedServerInfo {
	synthetic := client.ManagedServerInfo{Key: serverKey, Status: client.StatusUninitialized}

	raw, found, err := c.conn.get(ctx, cacheKey(serverKey))
	if err != nil {
		logging.Warn("StatusCache", "read failed for %s: %v", serverKey, err)
		synthetic.ErrorDetails = CacheUnavailableDetails
		return synthetic
	}
	if !found {
		return synthetic
	}

	var info client.ManagedServerInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		logging.Warn("StatusCache", "decode failed for %s: %v", serverKey, err)
		synthetic.ErrorDetails = CacheUnavailableDetails
		return synthetic
	}
	return info
}

// Close releases the underlying store connection.
func (c *Cache) Close() {
	c.conn.close()
}
