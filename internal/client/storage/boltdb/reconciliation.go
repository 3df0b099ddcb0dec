package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/storage"
)

// SaveMapping stores a tempId → serverId mapping
func (s *Storage) SaveMapping(ctx context.Context, m storage.Mapping) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketReconciliation)
		if bucket == nil {
			return fmt.Errorf("reconciliation bucket not found")
		}
		return bucket.Put([]byte(m.TempID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	return nil
}

// GetMapping returns the mapping recorded for tempID
func (s *Storage) GetMapping(ctx context.Context, tempID string) (*storage.Mapping, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var m *storage.Mapping

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketReconciliation)
		if bucket == nil {
			return storage.ErrMappingNotFound
		}

		data := bucket.Get([]byte(tempID))
		if data == nil {
			return storage.ErrMappingNotFound
		}

		m = &storage.Mapping{}
		if err := json.Unmarshal(data, m); err != nil {
			return fmt.Errorf("failed to unmarshal mapping: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return m, nil
}

// ListMappings returns all mappings in key order
func (s *Storage) ListMappings(ctx context.Context) ([]storage.Mapping, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var mappings []storage.Mapping

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketReconciliation)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var m storage.Mapping
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal mapping %s: %w", k, err)
			}
			mappings = append(mappings, m)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}

	return mappings, nil
}

// DeleteMapping removes the mapping for tempID
func (s *Storage) DeleteMapping(ctx context.Context, tempID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketReconciliation)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(tempID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}

	return nil
}
