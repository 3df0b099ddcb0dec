package storage

import (
	"context"
	"time"
)

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveLastFlush saves the time of the last drain cycle that emptied the queue
	SaveLastFlush(ctx context.Context, at time.Time) error

	// GetLastFlush retrieves the time of the last complete drain
	// Returns zero time if the queue was never drained
	GetLastFlush(ctx context.Context) (time.Time, error)
}
