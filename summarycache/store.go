package summarycache

import (
	"context"
	"fmt"
)

// ErrCacheMiss is returned by Store.Get when the key is not present.
var ErrCacheMiss = fmt.Errorf("cache miss")

// IsCacheMiss reports whether err is a cache miss.
func IsCacheMiss(err error) bool {
	return err == ErrCacheMiss
}

// Store is the persistence backend for summary records. The default is
// the in-process memory store; shared deployments can use the redis
// store so compactions on different instances reuse each other's work.
type Store interface {
	// Get returns the record for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (*Record, error)

	// Put stores the record. Writes for the same key are idempotent:
	// re-summarizing the same range overwrites with an equivalent result.
	Put(ctx context.Context, rec *Record) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// List returns all stored records. Used for range invalidation.
	List(ctx context.Context) ([]*Record, error)

	// Clear removes every record.
	Clear(ctx context.Context) error
}
