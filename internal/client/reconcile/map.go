// Package reconcile keeps the tempId → serverId map produced by replay.
//
// A mapping is recorded once, when the server confirms a create, and is
// never rewritten to a different server id. Entries are kept in memory for
// lookups on the render path and persisted so that a restart does not
// reintroduce duplicates in merged views.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/storage"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// ErrConflictingMapping indicates an attempt to map a temp id to a second server id
var ErrConflictingMapping = errors.New("temp id already mapped to a different server id")

// Map is the Reconciliation Map
type Map struct {
	store   storage.ReconciliationStorage
	logger  *slog.Logger
	now     func() time.Time
	entries map[string]storage.Mapping
	mu      sync.RWMutex
}

// New creates an empty map backed by store. Call Load to restore persisted entries.
func New(store storage.ReconciliationStorage, logger *slog.Logger) *Map {
	return &Map{
		store:   store,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]storage.Mapping),
	}
}

// Load replaces the in-memory entries with the persisted ones
func (m *Map) Load(ctx context.Context) error {
	mappings, err := m.store.ListMappings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mappings: %w", err)
	}

	entries := make(map[string]storage.Mapping, len(mappings))
	for _, mp := range mappings {
		entries[mp.TempID] = mp
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()

	m.logger.Debug("Reconciliation map loaded", "count", len(entries))
	return nil
}

// Record stores tempID → serverID. Recording the same pair again is a no-op.
func (m *Map) Record(ctx context.Context, tempID, serverID string) error {
	if tempID == "" || serverID == "" {
		return fmt.Errorf("%w: temp and server ids are required", models.ErrInvalidIdentifier)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[tempID]; ok {
		if existing.ServerID == serverID {
			return nil
		}
		return fmt.Errorf("%w: %s is %s, got %s", ErrConflictingMapping, tempID, existing.ServerID, serverID)
	}

	mp := storage.Mapping{
		RecordedAt: m.now(),
		TempID:     tempID,
		ServerID:   serverID,
	}
	if err := m.store.SaveMapping(ctx, mp); err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	m.entries[tempID] = mp

	m.logger.Info("Temp id reconciled", "temp_id", tempID, "server_id", serverID)
	return nil
}

// Resolve returns the server id recorded for tempID
func (m *Map) Resolve(tempID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mp, ok := m.entries[tempID]
	return mp.ServerID, ok
}

// ResolveIdentifier turns a Local identifier into its Remote form when a mapping exists.
// Remote and unmapped identifiers are returned unchanged.
func (m *Map) ResolveIdentifier(id models.Identifier) models.Identifier {
	if !id.IsLocal() {
		return id
	}
	if serverID, found := m.Resolve(id.LocalID()); found {
		return models.Remote(serverID)
	}
	return id
}

// Snapshot returns a copy of all entries keyed by temp id
func (m *Map) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.entries))
	for tempID, mp := range m.entries {
		out[tempID] = mp.ServerID
	}
	return out
}

// Len returns the number of recorded mappings
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Forget removes the mapping for tempID
func (m *Map) Forget(ctx context.Context, tempID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteMapping(ctx, tempID); err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	delete(m.entries, tempID)
	return nil
}

// Prune drops mappings recorded before cutoff whose temp id is not in keep.
// keep is typically the set of local ids still referenced by queued actions.
func (m *Map) Prune(ctx context.Context, cutoff time.Time, keep func(tempID string) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for tempID, mp := range m.entries {
		if !mp.RecordedAt.Before(cutoff) {
			continue
		}
		if keep != nil && keep(tempID) {
			continue
		}
		if err := m.store.DeleteMapping(ctx, tempID); err != nil {
			return removed, fmt.Errorf("failed to delete mapping: %w", err)
		}
		delete(m.entries, tempID)
		removed++
	}

	if removed > 0 {
		m.logger.Debug("Reconciliation map pruned", "removed", removed)
	}
	return removed, nil
}
