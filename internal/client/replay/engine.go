// Package replay drains the offline queue against the remote services.
//
// The Engine owns a single worker goroutine. Triggers (reconnect, foreground,
// manual flush, backoff timer, enqueue) are sent to a one-slot channel, so
// any number of triggers arriving while a cycle runs collapse into exactly
// one follow-up cycle and two cycles never run concurrently.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/queue"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/reconcile"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/storage"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// Config holds the engine tunables
type Config struct {
	CallTimeout time.Duration // таймаут одного вызова Executor
	BackoffBase time.Duration // первая задержка повтора
	BackoffMax  time.Duration // потолок задержки
	MaxAttempts int           // 0 - без ограничения
	// StorageBackoff is the first delay between retries of a failed local
	// storage write within a cycle
	StorageBackoff time.Duration
	StorageRetries uint64 // 0 - сбой хранилища сразу останавливает цикл
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		CallTimeout: 30 * time.Second,
		BackoffBase: time.Second,
		BackoffMax:  5 * time.Minute,
		MaxAttempts: 10,

		StorageBackoff: 50 * time.Millisecond,
		StorageRetries: 3,
	}
}

// Engine is the Replay Engine
type Engine struct {
	queue    *queue.Store
	executor Executor
	recon    *reconcile.Map
	meta     storage.MetadataStorage
	logger   *slog.Logger
	now      func() time.Time
	kick     chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
	backoff  retry.Backoff
	timer    *time.Timer
	subs     map[int]func(Event)
	waiters  []chan *Report
	cfg      Config
	nextSub  int
	mu       sync.Mutex
	online   bool
	draining bool
}

// NewEngine creates a stopped engine. meta may be nil.
func NewEngine(
	q *queue.Store,
	executor Executor,
	recon *reconcile.Map,
	meta storage.MetadataStorage,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	defaults := DefaultConfig()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaults.CallTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaults.BackoffBase
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = cfg.BackoffBase
	}
	if cfg.StorageBackoff <= 0 {
		cfg.StorageBackoff = defaults.StorageBackoff
	}

	e := &Engine{
		queue:    q,
		executor: executor,
		recon:    recon,
		meta:     meta,
		logger:   logger,
		now:      time.Now,
		kick:     make(chan struct{}, 1),
		subs:     make(map[int]func(Event)),
		cfg:      cfg,
	}
	e.backoff = e.newBackoff()

	return e
}

func (e *Engine) newBackoff() retry.Backoff {
	b := retry.NewExponential(e.cfg.BackoffBase)
	b = retry.WithJitterPercent(10, b)
	return retry.WithCappedDuration(e.cfg.BackoffMax, b)
}

// Start launches the worker goroutine. Calling Start on a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	go e.run(ctx, e.done)

	e.logger.Debug("Replay engine started")
}

// Stop cancels the worker and waits for it to exit.
// An in-flight call is cancelled and not counted as an attempt.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel = nil
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done

	e.logger.Debug("Replay engine stopped")
}

// SetOnline gates the start of new deliveries
func (e *Engine) SetOnline(online bool) {
	e.mu.Lock()
	e.online = online
	e.mu.Unlock()
}

// Online reports the connectivity state last given to SetOnline
func (e *Engine) Online() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

// Draining reports whether a cycle is in progress
func (e *Engine) Draining() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draining
}

// Trigger requests a drain cycle. It never blocks.
func (e *Engine) Trigger(reason string) {
	select {
	case e.kick <- struct{}{}:
		e.logger.Debug("Drain triggered", "reason", reason)
	default:
		// цикл уже запрошен, объединяем
	}
}

// Flush triggers a cycle and waits for its report.
// The report belongs to a cycle that started after Flush was called.
func (e *Engine) Flush(ctx context.Context) (*Report, error) {
	ch := make(chan *Report, 1)

	e.mu.Lock()
	if e.cancel == nil {
		e.mu.Unlock()
		return nil, ErrEngineStopped
	}
	e.waiters = append(e.waiters, ch)
	done := e.done
	e.mu.Unlock()

	e.Trigger("flush")

	select {
	case report, ok := <-ch:
		if !ok || report == nil {
			return nil, ErrEngineStopped
		}
		return report, nil
	case <-done:
		// Отчет мог прийти одновременно с остановкой
		select {
		case report, ok := <-ch:
			if ok && report != nil {
				return report, nil
			}
		default:
		}
		return nil, ErrEngineStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe registers fn for engine events. fn is called from the worker
// goroutine and must not block. Returns the unsubscribe function.
func (e *Engine) Subscribe(fn func(Event)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *Engine) emit(ev Event) {
	e.mu.Lock()
	subs := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer e.releaseWaiters()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.kick:
		}

		// Ожидающие Flush, зарегистрированные до старта цикла, получат его отчет
		e.mu.Lock()
		waiters := e.waiters
		e.waiters = nil
		e.draining = true
		e.mu.Unlock()

		report := e.drain(ctx)

		e.mu.Lock()
		e.draining = false
		e.mu.Unlock()

		for _, ch := range waiters {
			ch <- report
		}
		e.emit(Event{Type: EventCycleFinished, Report: report, Err: report.Err})
	}
}

func (e *Engine) releaseWaiters() {
	e.mu.Lock()
	waiters := e.waiters
	e.waiters = nil
	e.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}

// drain runs one cycle. It never panics or returns an error: every outcome is in the report.
func (e *Engine) drain(ctx context.Context) *Report {
	report := &Report{Started: e.now()}
	defer func() {
		report.Finished = e.now()
	}()

	var actions []models.QueuedAction
	err := e.retryStorage(ctx, "list", func(ctx context.Context) error {
		var err error
		actions, err = e.queue.List(ctx)
		return err
	})
	if err != nil {
		e.storageHalt(report, "", fmt.Errorf("failed to read queue: %w", err))
		return report
	}

	if len(actions) > 0 && !e.Online() {
		report.Err = ErrOffline
		report.Interrupted = true
		report.Remaining = len(actions)
		return report
	}

	e.logger.Debug("Drain cycle started", "queue_length", len(actions))

	remaining := len(actions)
	for i, action := range actions {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		// Текущий вызов завершается, новые не начинаем
		if i > 0 && !e.Online() {
			report.Interrupted = true
			report.Err = ErrOffline
			break
		}

		halt := e.deliver(ctx, action, report)
		if halt {
			break
		}
		remaining--
	}

	if n, err := e.queue.Len(ctx); err == nil {
		report.Remaining = n
	} else {
		report.Remaining = remaining
	}

	if report.Remaining == 0 && report.Err == nil {
		e.resetBackoff()
		if e.meta != nil {
			if err := e.meta.SaveLastFlush(ctx, e.now()); err != nil {
				e.logger.Warn("Failed to save last flush time", "error", err)
			}
		}
	}

	e.logger.Info("Drain cycle finished",
		"committed", len(report.Committed),
		"failed", len(report.Failed),
		"remaining", report.Remaining,
		"interrupted", report.Interrupted)

	return report
}

// deliver sends one action and applies its outcome. Returns true when the cycle must halt.
func (e *Engine) deliver(ctx context.Context, action models.QueuedAction, report *Report) bool {
	log := e.logger.With("local_id", action.LocalID, "kind", action.Kind().String())

	payload, err := e.resolveTarget(action)
	if err != nil {
		return e.fail(ctx, action, err, report)
	}

	req := Request{
		Payload:        payload,
		LocalID:        action.LocalID,
		IdempotencyKey: action.IdempotencyKey(),
		Service:        action.Service,
		Operation:      action.Operation,
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	result, err := e.executor.Execute(callCtx, req)
	cancel()

	if err != nil {
		// Остановка движка - не попытка
		if ctx.Err() != nil {
			report.Interrupted = true
			return true
		}
		if Classify(err) == Permanent {
			return e.fail(ctx, action, err, report)
		}
		return e.retryLater(ctx, action, err, report)
	}

	serverID := ""
	if result != nil {
		serverID = result.ServerID
	}

	// Сопоставление записываем до удаления: после сбоя повторная отправка
	// вернет тот же id по ключу идемпотентности
	if action.Operation == models.OperationCreate && serverID != "" {
		err := e.retryStorage(ctx, "record_mapping", func(ctx context.Context) error {
			return e.recon.Record(ctx, action.LocalID, serverID)
		}, reconcile.ErrConflictingMapping, models.ErrInvalidIdentifier)
		if err != nil {
			if errors.Is(err, reconcile.ErrConflictingMapping) {
				log.Error("Server returned a different id for a committed create", "server_id", serverID, "error", err)
				return e.fail(ctx, action, err, report)
			}
			return e.storageHalt(report, action.LocalID, fmt.Errorf("failed to record mapping: %w", err))
		}
	}

	err = e.retryStorage(ctx, "remove", func(ctx context.Context) error {
		return e.queue.RemoveByID(ctx, action.LocalID)
	}, queue.ErrActionNotFound)
	if err != nil {
		return e.storageHalt(report, action.LocalID, fmt.Errorf("failed to remove committed action: %w", err))
	}

	report.Committed = append(report.Committed, Commit{LocalID: action.LocalID, ServerID: serverID})
	log.Info("Action committed", "server_id", serverID)
	e.emit(Event{Type: EventCommitted, LocalID: action.LocalID, ServerID: serverID})

	return false
}

// resolveTarget rewrites a Local target of update/delete payloads to its server id
func (e *Engine) resolveTarget(action models.QueuedAction) (models.Payload, error) {
	targeted, ok := action.Payload.(models.Targeted)
	if !ok {
		return action.Payload, nil
	}

	target := e.recon.ResolveIdentifier(targeted.TargetID())
	if target.IsLocal() {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedTarget, target)
	}

	return targeted.WithTarget(target), nil
}

func (e *Engine) retryLater(ctx context.Context, action models.QueuedAction, cause error, report *Report) bool {
	var updated models.QueuedAction
	err := e.retryStorage(ctx, "update_attempt", func(ctx context.Context) error {
		var err error
		updated, err = e.queue.UpdateAttempt(ctx, action.LocalID, cause.Error())
		return err
	}, queue.ErrActionNotFound)
	if err != nil {
		return e.storageHalt(report, action.LocalID, fmt.Errorf("failed to update attempt: %w", err))
	}

	if e.cfg.MaxAttempts > 0 && updated.Attempts >= e.cfg.MaxAttempts {
		reason := fmt.Sprintf("gave up after %d attempts: %s", updated.Attempts, cause.Error())
		err := e.retryStorage(ctx, "quarantine", func(ctx context.Context) error {
			return e.queue.Quarantine(ctx, action.LocalID, reason, true)
		}, queue.ErrActionNotFound)
		if err != nil {
			return e.storageHalt(report, action.LocalID, fmt.Errorf("failed to quarantine action: %w", err))
		}
		report.Failed = append(report.Failed, action.LocalID)
		e.logger.Warn("Retry limit reached, action quarantined",
			"local_id", action.LocalID,
			"attempts", updated.Attempts,
			"error", cause)
		e.emit(Event{Type: EventFailed, LocalID: action.LocalID, Err: cause})
		return false
	}

	delay := e.scheduleRetry()
	report.Retry = action.LocalID
	report.Err = cause

	e.logger.Warn("Delivery failed, retry scheduled",
		"local_id", action.LocalID,
		"attempts", updated.Attempts,
		"retry_in", delay,
		"error", cause)
	e.emit(Event{Type: EventRetryScheduled, LocalID: action.LocalID, Err: cause, RetryIn: delay})

	return true
}

func (e *Engine) fail(ctx context.Context, action models.QueuedAction, cause error, report *Report) bool {
	err := e.retryStorage(ctx, "update_attempt", func(ctx context.Context) error {
		_, err := e.queue.UpdateAttempt(ctx, action.LocalID, cause.Error())
		return err
	}, queue.ErrActionNotFound)
	if err != nil {
		return e.storageHalt(report, action.LocalID, fmt.Errorf("failed to update attempt: %w", err))
	}
	err = e.retryStorage(ctx, "quarantine", func(ctx context.Context) error {
		return e.queue.Quarantine(ctx, action.LocalID, cause.Error(), false)
	}, queue.ErrActionNotFound)
	if err != nil {
		return e.storageHalt(report, action.LocalID, fmt.Errorf("failed to quarantine action: %w", err))
	}

	report.Failed = append(report.Failed, action.LocalID)
	e.logger.Warn("Action permanently failed", "local_id", action.LocalID, "error", cause)
	e.emit(Event{Type: EventFailed, LocalID: action.LocalID, Err: cause})

	return false
}

// retryStorage runs a local storage operation with a short bounded backoff.
// Errors matching one of terminal are returned without retrying.
func (e *Engine) retryStorage(ctx context.Context, op string, fn func(ctx context.Context) error, terminal ...error) error {
	backoff := retry.WithMaxRetries(e.cfg.StorageRetries, retry.NewExponential(e.cfg.StorageBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		for _, target := range terminal {
			if errors.Is(err, target) {
				return err
			}
		}
		e.logger.Warn("Storage operation failed, retrying", "op", op, "error", err)
		return retry.RetryableError(err)
	})
}

// storageHalt stops the cycle after a storage failure and schedules the next one
func (e *Engine) storageHalt(report *Report, localID string, err error) bool {
	delay := e.scheduleRetry()
	report.Err = err
	report.Retry = localID

	e.logger.Error("Storage failure, retry scheduled",
		"local_id", localID,
		"retry_in", delay,
		"error", err)
	e.emit(Event{Type: EventRetryScheduled, LocalID: localID, Err: err, RetryIn: delay})

	return true
}

func (e *Engine) scheduleRetry() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	delay, stop := e.backoff.Next()
	if stop {
		delay = e.cfg.BackoffMax
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(delay, func() {
		e.Trigger("backoff")
	})

	return delay
}

func (e *Engine) resetBackoff() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.backoff = e.newBackoff()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
