// Package complaints is the screen-facing complaint service: writes go
// through the offline queue, reads merge the server list with pending state.
package complaints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/mergeview"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/storage"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// CacheKey is the storage key of the last fetched server list
const CacheKey = "complaints_cache"

// ErrNotFound indicates that no complaint with the identifier is known
var ErrNotFound = models.ErrNotFound

// Reader fetches server state
//
//go:generate moq -out reader_mock.go . Reader
type Reader interface {
	ListComplaints(ctx context.Context) ([]models.Complaint, error)
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
}

// Queue is the part of the offline queue service used here
type Queue interface {
	Enqueue(ctx context.Context, payload models.Payload) (models.Identifier, error)
	Pending(ctx context.Context) ([]models.QueuedAction, error)
	Failed(ctx context.Context) ([]models.FailedAction, error)
	Resolve(id models.Identifier) models.Identifier
}

// ListResult is a merged list
type ListResult struct {
	FetchErr error // FetchErr ошибка загрузки с сервера, если показан кэш
	Items    []mergeview.Item
	Stale    bool
}

// Service определяет интерфейс сервиса жалоб
type Service interface {
	File(ctx context.Context, c models.ComplaintCreate) (models.Identifier, error)
	Update(ctx context.Context, id models.Identifier, patch models.ComplaintUpdate) (models.Identifier, error)
	Withdraw(ctx context.Context, id models.Identifier, reason string) (models.Identifier, error)
	List(ctx context.Context) (*ListResult, error)
	Get(ctx context.Context, id models.Identifier) (*mergeview.Item, error)
}

type service struct {
	reader Reader
	queue  Queue
	cache  storage.KVStorage
	logger *slog.Logger
}

// NewService creates a complaint service
func NewService(reader Reader, queue Queue, cache storage.KVStorage, logger *slog.Logger) Service {
	return &service{
		reader: reader,
		queue:  queue,
		cache:  cache,
		logger: logger,
	}
}

// File queues a new complaint and returns its provisional identifier
func (s *service) File(ctx context.Context, c models.ComplaintCreate) (models.Identifier, error) {
	id, err := s.queue.Enqueue(ctx, c)
	if err != nil {
		return models.Identifier{}, fmt.Errorf("failed to file complaint: %w", err)
	}
	return id, nil
}

// Update queues a patch for the complaint id. Returns the local id of the queued action.
func (s *service) Update(ctx context.Context, id models.Identifier, patch models.ComplaintUpdate) (models.Identifier, error) {
	patch.Target = id
	actionID, err := s.queue.Enqueue(ctx, patch)
	if err != nil {
		return models.Identifier{}, fmt.Errorf("failed to update complaint: %w", err)
	}
	return actionID, nil
}

// Withdraw queues a delete for the complaint id
func (s *service) Withdraw(ctx context.Context, id models.Identifier, reason string) (models.Identifier, error) {
	actionID, err := s.queue.Enqueue(ctx, models.ComplaintDelete{Target: id, Reason: reason})
	if err != nil {
		return models.Identifier{}, fmt.Errorf("failed to withdraw complaint: %w", err)
	}
	return actionID, nil
}

// List merges the server list with queued actions.
// When the server is unreachable the last cached list is used.
func (s *service) List(ctx context.Context) (*ListResult, error) {
	result := &ListResult{}

	server, err := s.reader.ListComplaints(ctx)
	if err != nil {
		s.logger.Warn("Failed to fetch complaints, using cache", "error", err)
		result.FetchErr = err
		result.Stale = true

		server, err = s.loadCache(ctx)
		if err != nil {
			return nil, err
		}
	} else if err := s.saveCache(ctx, server); err != nil {
		// Кэш вспомогательный, ошибку только логируем
		s.logger.Warn("Failed to cache complaints", "error", err)
	}

	items, err := s.merge(ctx, server)
	if err != nil {
		return nil, err
	}
	result.Items = items

	return result, nil
}

// Get returns one complaint. A Local identifier is never sent to the server:
// it is answered from the queue, or from its server twin once reconciled.
func (s *service) Get(ctx context.Context, id models.Identifier) (*mergeview.Item, error) {
	resolved := s.queue.Resolve(id)

	var server []models.Complaint
	if resolved.IsRemote() {
		c, err := s.reader.GetComplaint(ctx, resolved.RemoteID())
		switch {
		case err == nil:
			server = []models.Complaint{*c}
		case errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, resolved)
		default:
			s.logger.Warn("Failed to fetch complaint, using cache", "id", resolved.String(), "error", err)
			if server, err = s.loadCache(ctx); err != nil {
				return nil, err
			}
		}
	} else {
		cached, err := s.loadCache(ctx)
		if err != nil {
			return nil, err
		}
		server = cached
	}

	items, err := s.merge(ctx, server)
	if err != nil {
		return nil, err
	}

	item, ok := mergeview.Find(items, id, queueResolver{queue: s.queue})
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &item, nil
}

func (s *service) merge(ctx context.Context, server []models.Complaint) ([]mergeview.Item, error) {
	pending, err := s.queue.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	failed, err := s.queue.Failed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read failed actions: %w", err)
	}

	return mergeview.Complaints(mergeview.Input{
		Server:   server,
		Pending:  pending,
		Failed:   failed,
		Resolver: queueResolver{queue: s.queue},
	}), nil
}

func (s *service) loadCache(ctx context.Context) ([]models.Complaint, error) {
	data, err := s.cache.Get(ctx, CacheKey)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read complaints cache: %w", err)
	}

	var complaints []models.Complaint
	if err := json.Unmarshal(data, &complaints); err != nil {
		return nil, fmt.Errorf("failed to decode complaints cache: %w", err)
	}
	return complaints, nil
}

func (s *service) saveCache(ctx context.Context, complaints []models.Complaint) error {
	data, err := json.Marshal(complaints)
	if err != nil {
		return fmt.Errorf("failed to encode complaints cache: %w", err)
	}
	return s.cache.Set(ctx, CacheKey, data)
}

// queueResolver adapts Queue.Resolve to mergeview.Resolver
type queueResolver struct {
	queue Queue
}

func (r queueResolver) Resolve(tempID string) (string, bool) {
	id := r.queue.Resolve(models.Local(tempID))
	return id.RemoteID(), id.IsRemote()
}
