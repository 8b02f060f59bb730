// Package cache provides short-lived key-value storage with TTLs and atomic
// fetch-and-delete, used for authorization state and browser sessions.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key-value store. Implementations must make GetDel atomic so
// that concurrent callers racing on the same key observe the value at most once.
type Store interface {
	// Set stores value under key for ttl, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value under key for ttl only when key is absent. It reports
	// whether the value was stored and must be atomic like GetDel.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Get returns the value for key. found is false on a miss or expired entry.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// GetDel returns the value for key and removes it in one step.
	GetDel(ctx context.Context, key string) (value []byte, found bool, err error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the store.
	Close() error
}
