package store

import (
	"context"
	"errors"
)

var (
	ErrNotInitialized = errors.New("store not initialized")
	ErrQuotaExceeded  = errors.New("storage quota exceeded")
)

// Store is the raw persistent key-value capability. Values are opaque
// strings; namespacing, versioning and expiry live in kvstore.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
