package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent. Absence is
// always "unknown", never "does not exist"; existence is decided by the
// primary store.
var ErrCacheMiss = errors.New("cache miss")

// Client is the capability surface the directory service needs from a
// cache backend. It is injected at construction with an explicit
// lifecycle; only atomic single-key or single-command operations are
// issued against it.
type Client interface {
	// Get returns the value at key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value at key with a time-to-live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Del removes the given keys.
	Del(ctx context.Context, keys ...string) error

	// ZAdd adds or updates a member's score in a sorted set.
	ZAdd(ctx context.Context, key, member string, score float64) error
	// ZRem removes a member from a sorted set.
	ZRem(ctx context.Context, key, member string) error
	// ZRangeDesc returns members ordered by descending score for the
	// closed rank interval [start, stop].
	ZRangeDesc(ctx context.Context, key string, start, stop int64) ([]string, error)
	// ZCard returns the member count of a sorted set.
	ZCard(ctx context.Context, key string) (int64, error)

	// InvalidatePattern removes every key matching a glob-style pattern.
	InvalidatePattern(ctx context.Context, pattern string) error

	// Ping checks backend reachability.
	Ping(ctx context.Context) error
	// Close releases the backend connection.
	Close() error
}
