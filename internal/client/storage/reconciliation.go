package storage

import (
	"context"
	"time"
)

// Mapping связывает временный идентификатор с серверным
type Mapping struct {
	RecordedAt time.Time `json:"recorded_at"`
	TempID     string    `json:"temp_id"`
	ServerID   string    `json:"server_id"`
}

// ReconciliationStorage persists tempId → serverId mappings
type ReconciliationStorage interface {
	// SaveMapping stores a mapping, replacing any mapping for the same temp id
	SaveMapping(ctx context.Context, m Mapping) error

	// GetMapping returns the mapping for tempID
	// Returns ErrMappingNotFound if none is recorded
	GetMapping(ctx context.Context, tempID string) (*Mapping, error)

	// ListMappings returns all recorded mappings
	ListMappings(ctx context.Context) ([]Mapping, error)

	// DeleteMapping removes the mapping for tempID, missing ids are ignored
	DeleteMapping(ctx context.Context, tempID string) error
}
