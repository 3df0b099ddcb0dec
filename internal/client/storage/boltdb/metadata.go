package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/storage"
)

const (
	keyLastFlush = "last_flush"
)

// SaveLastFlush saves the time of the last complete drain
func (s *Storage) SaveLastFlush(ctx context.Context, at time.Time) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Храним unix nano в big endian
		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, uint64(at.UnixNano()))

		if err := bucket.Put([]byte(keyLastFlush), value); err != nil {
			return fmt.Errorf("failed to save last flush time: %w", err)
		}

		return nil
	})
}

// GetLastFlush retrieves the time of the last complete drain
// Returns zero time if the queue was never drained
func (s *Storage) GetLastFlush(ctx context.Context) (time.Time, error) {
	if s.db == nil {
		return time.Time{}, storage.ErrStorageClosed
	}

	var at time.Time

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		value := bucket.Get([]byte(keyLastFlush))
		if value == nil {
			return nil
		}

		at = time.Unix(0, int64(binary.BigEndian.Uint64(value)))
		return nil
	})

	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last flush time: %w", err)
	}

	return at, nil
}
