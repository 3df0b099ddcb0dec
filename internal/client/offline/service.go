// Package offline provides OfflineQueueService: the single owner of the
// durable queue, the reconciliation map and the replay engine for a process.
// Screens receive a *Service and never touch the queue document directly.
package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/connectivity"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/queue"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/reconcile"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/replay"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// ErrNotInitialized is returned by operations called before Init or after Dispose
var ErrNotInitialized = errors.New("offline queue service is not initialized")

// Config holds the service tunables
type Config struct {
	EnqueueBackoff time.Duration // первая задержка повтора записи в хранилище
	MappingTTL     time.Duration // 0 - сопоставления не удаляются
	EnqueueRetries uint64
}

// DefaultConfig returns the service defaults
func DefaultConfig() Config {
	return Config{
		EnqueueBackoff: 50 * time.Millisecond,
		EnqueueRetries: 3,
		MappingTTL:     30 * 24 * time.Hour,
	}
}

// Service is the OfflineQueueService
type Service struct {
	queue       *queue.Store
	recon       *reconcile.Map
	engine      *replay.Engine
	monitor     *connectivity.Monitor
	logger      *slog.Logger
	newID       func() (string, error)
	now         func() time.Time
	unsubscribe []func()
	cfg         Config
	enqueueMu   sync.Mutex
	mu          sync.Mutex
	initialized bool
}

// NewService wires the service. monitor may be nil, in which case the device is treated as online.
func NewService(
	q *queue.Store,
	recon *reconcile.Map,
	engine *replay.Engine,
	monitor *connectivity.Monitor,
	cfg Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		queue:   q,
		recon:   recon,
		engine:  engine,
		monitor: monitor,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		newID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
}

// Init loads persisted state and starts the replay engine and connectivity monitor.
// The engine keeps running until Dispose; ctx only bounds the loading.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	if err := s.recon.Load(ctx); err != nil {
		return fmt.Errorf("failed to load reconciliation map: %w", err)
	}

	if s.cfg.MappingTTL > 0 {
		if err := s.pruneMappings(ctx); err != nil {
			// Устаревшие сопоставления не мешают работе
			s.logger.Warn("Failed to prune reconciliation map", "error", err)
		}
	}

	s.engine.Start(context.WithoutCancel(ctx))

	if s.monitor != nil {
		s.unsubscribe = append(s.unsubscribe,
			s.monitor.Subscribe(s.engine.SetOnline),
			s.monitor.OnReconnect(func() { s.engine.Trigger("reconnect") }),
		)
		s.monitor.Start()
		s.engine.SetOnline(s.monitor.Online())
	} else {
		s.engine.SetOnline(true)
	}

	s.initialized = true

	pending, err := s.queue.Len(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	if pending > 0 {
		s.engine.Trigger("init")
	}

	s.logger.Info("Offline queue service started", "pending", pending, "online", s.engine.Online())
	return nil
}

// Dispose stops the monitor and the engine. The queue stays on disk.
func (s *Service) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return
	}

	for _, fn := range s.unsubscribe {
		fn()
	}
	s.unsubscribe = nil

	if s.monitor != nil {
		s.monitor.Stop()
	}
	s.engine.Stop()
	s.initialized = false

	s.logger.Debug("Offline queue service disposed")
}

func (s *Service) ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	return nil
}

// Enqueue durably appends a write intent and returns its provisional identifier.
// Enqueues are serialized; once Enqueue returns nil the action survives a crash.
func (s *Service) Enqueue(ctx context.Context, payload models.Payload) (models.Identifier, error) {
	if err := s.ready(); err != nil {
		return models.Identifier{}, err
	}
	if payload == nil {
		return models.Identifier{}, fmt.Errorf("%w: payload is required", models.ErrInvalidPayload)
	}

	// Цель, уже получившая серверный id, сразу отправляется как Remote
	if targeted, ok := payload.(models.Targeted); ok {
		payload = targeted.WithTarget(s.recon.ResolveIdentifier(targeted.TargetID()))
	}
	if err := payload.Validate(); err != nil {
		return models.Identifier{}, err
	}

	s.enqueueMu.Lock()
	defer s.enqueueMu.Unlock()

	localID, err := s.newID()
	if err != nil {
		return models.Identifier{}, fmt.Errorf("failed to generate local id: %w", err)
	}
	action := models.NewQueuedAction(localID, payload, s.now())

	backoff := retry.WithMaxRetries(s.cfg.EnqueueRetries, retry.NewExponential(s.enqueueBackoff()))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.queue.Append(ctx, action); err != nil {
			if errors.Is(err, queue.ErrDuplicateAction) || errors.Is(err, models.ErrInvalidPayload) {
				return err
			}
			s.logger.Warn("Queue write failed, retrying", "local_id", localID, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return models.Identifier{}, fmt.Errorf("could not save action: %w", err)
	}

	s.logger.Info("Action enqueued", "local_id", localID, "kind", action.Kind().String())
	s.engine.Trigger("enqueue")

	return action.LocalIdentifier(), nil
}

func (s *Service) enqueueBackoff() time.Duration {
	if s.cfg.EnqueueBackoff <= 0 {
		return DefaultConfig().EnqueueBackoff
	}
	return s.cfg.EnqueueBackoff
}

// Pending returns the active queue in FIFO order
func (s *Service) Pending(ctx context.Context) ([]models.QueuedAction, error) {
	return s.queue.List(ctx)
}

// PendingCount returns the number of actions awaiting delivery
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.queue.Len(ctx)
}

// Failed returns quarantined actions
func (s *Service) Failed(ctx context.Context) ([]models.FailedAction, error) {
	return s.queue.ListFailed(ctx)
}

// Flush runs a drain cycle now and waits for its report
func (s *Service) Flush(ctx context.Context) (*replay.Report, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.engine.Flush(ctx)
}

// Foreground signals that the app came to the foreground
func (s *Service) Foreground() {
	s.engine.Trigger("foreground")
}

// Online reports the engine's view of connectivity
func (s *Service) Online() bool {
	return s.engine.Online()
}

// Subscribe registers fn for replay events
func (s *Service) Subscribe(fn func(replay.Event)) func() {
	return s.engine.Subscribe(fn)
}

// Resolve maps a Local identifier to its Remote form once reconciled
func (s *Service) Resolve(id models.Identifier) models.Identifier {
	return s.recon.ResolveIdentifier(id)
}

// Retry requeues a quarantined action, or all of them when localID is empty.
// A failed create and the failed updates/deletes that target it are requeued
// together in enqueue order, so a dependent never runs ahead of its create.
func (s *Service) Retry(ctx context.Context, localID string) (int, error) {
	failed, err := s.queue.ListFailed(ctx)
	if err != nil {
		return 0, err
	}

	chain := retryChain(failed, localID)
	if len(chain) == 0 {
		if localID == "" {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %s", queue.ErrActionNotFound, localID)
	}

	for _, id := range chain {
		if _, err := s.queue.Requeue(ctx, id); err != nil {
			return 0, fmt.Errorf("failed to requeue %s: %w", id, err)
		}
	}

	s.logger.Info("Failed actions requeued", "count", len(chain))
	s.engine.Trigger("retry")

	return len(chain), nil
}

// Discard drops a quarantined action
func (s *Service) Discard(ctx context.Context, localID string) error {
	if err := s.queue.Discard(ctx, localID); err != nil {
		return err
	}
	s.logger.Info("Failed action discarded", "local_id", localID)
	return nil
}

// retryChain returns the local ids to requeue for localID, ordered by enqueue time
func retryChain(failed []models.FailedAction, localID string) []string {
	byID := make(map[string]models.QueuedAction, len(failed))
	for _, f := range failed {
		byID[f.Action.LocalID] = f.Action
	}

	selected := make(map[string]bool)
	if localID == "" {
		for id := range byID {
			selected[id] = true
		}
	} else {
		root, ok := byID[localID]
		if !ok {
			return nil
		}
		selected[localID] = true

		// Создание, от которого зависит действие
		if target := localTarget(root); target != "" {
			if _, ok := byID[target]; ok {
				selected[target] = true
			}
		}

		// Зависимые изменения, если это создание
		if root.Operation == models.OperationCreate {
			for id, a := range byID {
				if localTarget(a) == localID {
					selected[id] = true
				}
			}
		}
	}

	chain := make([]models.QueuedAction, 0, len(selected))
	for id := range selected {
		chain = append(chain, byID[id])
	}
	sort.SliceStable(chain, func(i, j int) bool {
		if chain[i].EnqueuedAt.Equal(chain[j].EnqueuedAt) {
			return chain[i].LocalID < chain[j].LocalID
		}
		return chain[i].EnqueuedAt.Before(chain[j].EnqueuedAt)
	})

	ids := make([]string, 0, len(chain))
	for _, a := range chain {
		ids = append(ids, a.LocalID)
	}
	return ids
}

func localTarget(a models.QueuedAction) string {
	targeted, ok := a.Payload.(models.Targeted)
	if !ok {
		return ""
	}
	return targeted.TargetID().LocalID()
}

// pruneMappings drops old mappings no queued or failed action still refers to
func (s *Service) pruneMappings(ctx context.Context) error {
	active, err := s.queue.List(ctx)
	if err != nil {
		return err
	}
	failed, err := s.queue.ListFailed(ctx)
	if err != nil {
		return err
	}

	referenced := make(map[string]bool)
	for _, a := range active {
		referenced[a.LocalID] = true
		if t := localTarget(a); t != "" {
			referenced[t] = true
		}
	}
	for _, f := range failed {
		referenced[f.Action.LocalID] = true
		if t := localTarget(f.Action); t != "" {
			referenced[t] = true
		}
	}

	_, err = s.recon.Prune(ctx, s.now().Add(-s.cfg.MappingTTL), func(tempID string) bool {
		return referenced[tempID]
	})
	return err
}
