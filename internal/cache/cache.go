// Package cache provides the shared key/value cache used on read paths.
//
// The cache is disposable: callers populate it opportunistically and only the
// component that mutated the underlying source of truth invalidates a key,
// strictly after its transaction commits. Implementations never return errors;
// an unavailable backend degrades every operation to a no-op so the durable
// store remains the single source of truth.
package cache

import (
	"context"
	"time"
)

// Cache is the get/set/delete-by-key contract shared by all implementations.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string)
}
