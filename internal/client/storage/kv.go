package storage

import "context"

//go:generate moq -out kvstorage_mock.go . KVStorage

// KVStorage is the durable key/value interface the offline queue is persisted through.
// Implementations must make a successful Set durable before returning.
type KVStorage interface {
	// Get returns the value stored under key
	// Returns ErrKeyNotFound if nothing is stored
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error
}
