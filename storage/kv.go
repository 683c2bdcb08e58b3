package storage

import "context"

// KV is the durable key-value capability the adapter writes through.
// Implementations need no cross-key transactions.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
