package storage

import "errors"

// Common client storage errors
var (
	// ErrKeyNotFound indicates that no value is stored under the key
	ErrKeyNotFound = errors.New("key not found")

	// ErrMappingNotFound indicates that no server id is recorded for the temp id
	ErrMappingNotFound = errors.New("reconciliation mapping not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
