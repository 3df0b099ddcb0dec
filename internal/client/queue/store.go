// Package queue implements the durable offline action queue.
//
// The queue is one JSON array document stored under a single key of the
// device's key/value storage. Every mutation is a read-modify-write of that
// document serialized by the store mutex, so an append can never clobber a
// concurrent remove. Quarantined (permanently failed) actions live in a
// second document next to it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/storage"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// DefaultKey is the storage key of the active queue document
const DefaultKey = "offline_queue"

var (
	// ErrActionNotFound indicates that no action with the local id is queued
	ErrActionNotFound = errors.New("queued action not found")

	// ErrDuplicateAction indicates that the local id is already known to the queue
	ErrDuplicateAction = errors.New("duplicate local id")
)

// Store is the Durable Queue Store
type Store struct {
	kv        storage.KVStorage
	logger    *slog.Logger
	now       func() time.Time
	key       string
	failedKey string
	mu        sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithKey overrides the storage key of the queue document
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
		s.failedKey = key + "_failed"
	}
}

// WithClock overrides the time source used for quarantine timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a queue store over kv
func NewStore(kv storage.KVStorage, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		logger:    logger,
		now:       time.Now,
		key:       DefaultKey,
		failedKey: DefaultKey + "_failed",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds action to the tail of the queue.
// When Append returns nil the action is durable.
func (s *Store) Append(ctx context.Context, action models.QueuedAction) error {
	if err := action.Validate(); err != nil {
		return fmt.Errorf("invalid action: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := readDocument[models.QueuedAction](ctx, s.kv, s.key)
	if err != nil {
		return err
	}
	failed, err := readDocument[models.FailedAction](ctx, s.kv, s.failedKey)
	if err != nil {
		return err
	}

	// localId никогда не переиспользуется, в том числе после карантина
	if indexOf(actions, action.LocalID) >= 0 || indexOfFailed(failed, action.LocalID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, action.LocalID)
	}

	actions = append(actions, action)
	if err := writeDocument(ctx, s.kv, s.key, actions); err != nil {
		return err
	}

	s.logger.Debug("Action appended to queue",
		"local_id", action.LocalID,
		"kind", action.Kind().String(),
		"queue_length", len(actions))

	return nil
}

// List returns the queued actions in insertion order
func (s *Store) List(ctx context.Context) ([]models.QueuedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return readDocument[models.QueuedAction](ctx, s.kv, s.key)
}

// Len returns the number of queued actions
func (s *Store) Len(ctx context.Context) (int, error) {
	actions, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(actions), nil
}

// Get returns the queued action with localID
func (s *Store) Get(ctx context.Context, localID string) (models.QueuedAction, error) {
	actions, err := s.List(ctx)
	if err != nil {
		return models.QueuedAction{}, err
	}

	idx := indexOf(actions, localID)
	if idx < 0 {
		return models.QueuedAction{}, fmt.Errorf("%w: %s", ErrActionNotFound, localID)
	}
	return actions[idx], nil
}

// RemoveByID removes the action with localID. This is the commit point of a delivery.
func (s *Store) RemoveByID(ctx context.Context, localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := readDocument[models.QueuedAction](ctx, s.kv, s.key)
	if err != nil {
		return err
	}

	idx := indexOf(actions, localID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrActionNotFound, localID)
	}

	actions = append(actions[:idx], actions[idx+1:]...)
	return writeDocument(ctx, s.kv, s.key, actions)
}

// UpdateAttempt increments the attempt counter of localID and records errMsg.
// Returns the updated action.
func (s *Store) UpdateAttempt(ctx context.Context, localID, errMsg string) (models.QueuedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := readDocument[models.QueuedAction](ctx, s.kv, s.key)
	if err != nil {
		return models.QueuedAction{}, err
	}

	idx := indexOf(actions, localID)
	if idx < 0 {
		return models.QueuedAction{}, fmt.Errorf("%w: %s", ErrActionNotFound, localID)
	}

	actions[idx].Attempts++
	actions[idx].LastError = errMsg

	if err := writeDocument(ctx, s.kv, s.key, actions); err != nil {
		return models.QueuedAction{}, err
	}

	return actions[idx], nil
}

// Quarantine moves localID out of the active queue into the failed document.
// The failed document is written first: a crash in between leaves the action
// active, and ListFailed hides failed entries that are still active.
func (s *Store) Quarantine(ctx context.Context, localID, reason string, exhausted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := readDocument[models.QueuedAction](ctx, s.kv, s.key)
	if err != nil {
		return err
	}

	idx := indexOf(actions, localID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrActionNotFound, localID)
	}

	failed, err := readDocument[models.FailedAction](ctx, s.kv, s.failedKey)
	if err != nil {
		return err
	}

	if indexOfFailed(failed, localID) < 0 {
		failed = append(failed, models.FailedAction{
			FailedAt:  s.now(),
			Reason:    reason,
			Action:    actions[idx],
			Exhausted: exhausted,
		})
		if err := writeDocument(ctx, s.kv, s.failedKey, failed); err != nil {
			return err
		}
	}

	actions = append(actions[:idx], actions[idx+1:]...)
	if err := writeDocument(ctx, s.kv, s.key, actions); err != nil {
		return err
	}

	s.logger.Info("Action quarantined",
		"local_id", localID,
		"reason", reason,
		"exhausted", exhausted)

	return nil
}

// ListFailed returns quarantined actions in quarantine order
func (s *Store) ListFailed(ctx context.Context) ([]models.FailedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := readDocument[models.QueuedAction](ctx, s.kv, s.key)
	if err != nil {
		return nil, err
	}
	failed, err := readDocument[models.FailedAction](ctx, s.kv, s.failedKey)
	if err != nil {
		return nil, err
	}

	// Активная очередь побеждает незавершенный перенос
	visible := make([]models.FailedAction, 0, len(failed))
	for _, f := range failed {
		if indexOf(actions, f.Action.LocalID) >= 0 {
			continue
		}
		visible = append(visible, f)
	}

	return visible, nil
}

// Requeue moves a quarantined action back to the tail of the active queue
// with its attempt counter reset. Used for the manual "retry" affordance.
func (s *Store) Requeue(ctx context.Context, localID string) (models.QueuedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	failed, err := readDocument[models.FailedAction](ctx, s.kv, s.failedKey)
	if err != nil {
		return models.QueuedAction{}, err
	}

	fidx := indexOfFailed(failed, localID)
	if fidx < 0 {
		return models.QueuedAction{}, fmt.Errorf("%w: %s", ErrActionNotFound, localID)
	}

	actions, err := readDocument[models.QueuedAction](ctx, s.kv, s.key)
	if err != nil {
		return models.QueuedAction{}, err
	}

	action := failed[fidx].Action
	action.Attempts = 0
	action.LastError = ""

	// Сначала активная очередь, затем failed: так действие не теряется при сбое
	if indexOf(actions, localID) < 0 {
		actions = append(actions, action)
		if err := writeDocument(ctx, s.kv, s.key, actions); err != nil {
			return models.QueuedAction{}, err
		}
	}

	failed = append(failed[:fidx], failed[fidx+1:]...)
	if err := writeDocument(ctx, s.kv, s.failedKey, failed); err != nil {
		return models.QueuedAction{}, err
	}

	return action, nil
}

// Discard drops a quarantined action for good
func (s *Store) Discard(ctx context.Context, localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	failed, err := readDocument[models.FailedAction](ctx, s.kv, s.failedKey)
	if err != nil {
		return err
	}

	fidx := indexOfFailed(failed, localID)
	if fidx < 0 {
		return fmt.Errorf("%w: %s", ErrActionNotFound, localID)
	}

	failed = append(failed[:fidx], failed[fidx+1:]...)
	return writeDocument(ctx, s.kv, s.failedKey, failed)
}

func readDocument[T any](ctx context.Context, kv storage.KVStorage, key string) ([]T, error) {
	data, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	items := []T{}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	return items, nil
}

func writeDocument[T any](ctx context.Context, kv storage.KVStorage, key string, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if err := kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	return nil
}

func indexOf(actions []models.QueuedAction, localID string) int {
	for i := range actions {
		if actions[i].LocalID == localID {
			return i
		}
	}
	return -1
}

func indexOfFailed(failed []models.FailedAction, localID string) int {
	for i := range failed {
		if failed[i].Action.LocalID == localID {
			return i
		}
	}
	return -1
}
