package replay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/queue"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/reconcile"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/storage/boltdb"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

type testEnv struct {
	ctx    context.Context
	db     *boltdb.Storage
	queue  *queue.Store
	recon  *reconcile.Map
	exec   *ExecutorMock
	engine *Engine
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := boltdb.New(ctx, filepath.Join(t.TempDir(), "replay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		ctx:   ctx,
		db:    db,
		queue: queue.NewStore(db, logger),
		recon: reconcile.New(db, logger),
		exec:  &ExecutorMock{},
	}
	env.engine = NewEngine(env.queue, env.exec, env.recon, db, cfg, logger)
	env.engine.SetOnline(true)
	env.engine.Start(ctx)
	t.Cleanup(env.engine.Stop)

	return env
}

// testConfig отключает автоматические повторы по таймеру
func testConfig() Config {
	return Config{
		CallTimeout: time.Second,
		BackoffBase: time.Hour,
		BackoffMax:  time.Hour,
		MaxAttempts: 5,
	}
}

func (env *testEnv) enqueue(t *testing.T, localID string, payload models.Payload) {
	t.Helper()
	require.NoError(t, env.queue.Append(env.ctx, models.NewQueuedAction(localID, payload, time.Now())))
}

func (env *testEnv) flush(t *testing.T) *Report {
	t.Helper()
	ctx, cancel := context.WithTimeout(env.ctx, 5*time.Second)
	defer cancel()

	report, err := env.engine.Flush(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)
	return report
}

func sentIDs(exec *ExecutorMock) []string {
	calls := exec.ExecuteCalls()
	ids := make([]string, 0, len(calls))
	for _, c := range calls {
		ids = append(ids, c.Req.LocalID)
	}
	return ids
}

func TestEngine_CreateReconciles(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		return &Result{ServerID: "42"}, nil
	}

	env.enqueue(t, "x", models.ComplaintCreate{Title: "Vol de moto"})

	report := env.flush(t)

	assert.Equal(t, []Commit{{LocalID: "x", ServerID: "42"}}, report.Committed)
	assert.True(t, report.Drained())
	assert.NoError(t, report.Err)

	calls := env.exec.ExecuteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "x", calls[0].Req.IdempotencyKey)
	assert.Equal(t, models.KindComplaintCreate, calls[0].Req.Kind())

	n, err := env.queue.Len(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	serverID, ok := env.recon.Resolve("x")
	require.True(t, ok)
	assert.Equal(t, "42", serverID)

	lastFlush, err := env.db.GetLastFlush(env.ctx)
	require.NoError(t, err)
	assert.False(t, lastFlush.IsZero())
}

func TestEngine_TransientHaltsThenResumesInOrder(t *testing.T) {
	env := newTestEnv(t, testConfig())

	var mu sync.Mutex
	failedOnce := map[string]bool{}
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		mu.Lock()
		defer mu.Unlock()
		if !failedOnce[req.LocalID] {
			failedOnce[req.LocalID] = true
			return nil, NewTransientError(errors.New("network unreachable"))
		}
		return &Result{ServerID: "srv-" + req.LocalID}, nil
	}

	env.enqueue(t, "A", models.ComplaintCreate{Title: "first"})
	env.enqueue(t, "B", models.ComplaintCreate{Title: "second"})

	// Первый цикл: A падает, B не отправляется
	report := env.flush(t)
	assert.Equal(t, "A", report.Retry)
	assert.Empty(t, report.Committed)
	assert.Equal(t, 2, report.Remaining)
	assert.Equal(t, []string{"A"}, sentIDs(env.exec))

	a, err := env.queue.Get(env.ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Attempts)
	assert.Contains(t, a.LastError, "network unreachable")

	// Второй цикл: A проходит, B падает один раз
	report = env.flush(t)
	assert.Equal(t, []Commit{{LocalID: "A", ServerID: "srv-A"}}, report.Committed)
	assert.Equal(t, "B", report.Retry)

	// Третий цикл: B проходит
	report = env.flush(t)
	assert.Equal(t, []Commit{{LocalID: "B", ServerID: "srv-B"}}, report.Committed)
	assert.True(t, report.Drained())

	assert.Equal(t, []string{"A", "A", "B", "B"}, sentIDs(env.exec))
}

func TestEngine_PermanentFailureDoesNotBlock(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		if req.LocalID == "A" {
			return nil, NewPermanentError(http.StatusUnprocessableEntity, "title too long")
		}
		return &Result{ServerID: "7"}, nil
	}

	env.enqueue(t, "A", models.ComplaintCreate{Title: "bad"})
	env.enqueue(t, "B", models.ComplaintCreate{Title: "good"})

	report := env.flush(t)
	assert.Equal(t, []string{"A"}, report.Failed)
	assert.Equal(t, []Commit{{LocalID: "B", ServerID: "7"}}, report.Committed)
	assert.True(t, report.Drained())

	failed, err := env.queue.ListFailed(env.ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "A", failed[0].Action.LocalID)
	assert.False(t, failed[0].Exhausted)
	assert.Contains(t, failed[0].Reason, "title too long")
	assert.Equal(t, 1, failed[0].Action.Attempts)
}

func TestEngine_UnclassifiedErrorIsTransient(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		return nil, errors.New("connection reset by peer")
	}

	env.enqueue(t, "A", models.ComplaintCreate{Title: "first"})

	report := env.flush(t)
	assert.Equal(t, "A", report.Retry)
	assert.Empty(t, report.Failed)

	n, err := env.queue.Len(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEngine_TimeoutIsTransient(t *testing.T) {
	cfg := testConfig()
	cfg.CallTimeout = 20 * time.Millisecond
	env := newTestEnv(t, cfg)
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	env.enqueue(t, "A", models.ComplaintCreate{Title: "slow"})

	report := env.flush(t)
	assert.Equal(t, "A", report.Retry)
	require.ErrorIs(t, report.Err, context.DeadlineExceeded)
}

func TestEngine_MaxAttemptsQuarantines(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 2
	env := newTestEnv(t, cfg)
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		if req.LocalID == "A" {
			return nil, NewTransientError(errors.New("503"))
		}
		return &Result{ServerID: "9"}, nil
	}

	env.enqueue(t, "A", models.ComplaintCreate{Title: "flaky"})
	env.enqueue(t, "B", models.ComplaintCreate{Title: "fine"})

	report := env.flush(t)
	assert.Equal(t, "A", report.Retry)

	// Вторая неудача исчерпывает лимит, цикл продолжается с B
	report = env.flush(t)
	assert.Equal(t, []string{"A"}, report.Failed)
	assert.Equal(t, []Commit{{LocalID: "B", ServerID: "9"}}, report.Committed)

	failed, err := env.queue.ListFailed(env.ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.True(t, failed[0].Exhausted)
	assert.Equal(t, 2, failed[0].Action.Attempts)
}

func TestEngine_Offline(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		return &Result{ServerID: "1"}, nil
	}
	env.engine.SetOnline(false)

	env.enqueue(t, "A", models.ComplaintCreate{Title: "offline"})

	report := env.flush(t)
	require.ErrorIs(t, report.Err, ErrOffline)
	assert.True(t, report.Interrupted)
	assert.Equal(t, 1, report.Remaining)
	assert.Empty(t, env.exec.ExecuteCalls())

	// Попытка не засчитывается
	a, err := env.queue.Get(env.ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, a.Attempts)
}

func TestEngine_OfflineMidDrainFinishesInFlight(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		// Связь пропала во время вызова, результат все равно учитывается
		env.engine.SetOnline(false)
		return &Result{ServerID: "srv-" + req.LocalID}, nil
	}

	env.enqueue(t, "A", models.ComplaintCreate{Title: "first"})
	env.enqueue(t, "B", models.ComplaintCreate{Title: "second"})

	report := env.flush(t)
	assert.Equal(t, []Commit{{LocalID: "A", ServerID: "srv-A"}}, report.Committed)
	assert.True(t, report.Interrupted)
	assert.Equal(t, 1, report.Remaining)
	assert.Equal(t, []string{"A"}, sentIDs(env.exec))
}

func TestEngine_ResolvesLocalTarget(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		if req.Operation == models.OperationCreate {
			return &Result{ServerID: "42"}, nil
		}
		return &Result{}, nil
	}

	title := "Vol de moto (corrigé)"
	env.enqueue(t, "x", models.ComplaintCreate{Title: "Vol de moto"})
	env.enqueue(t, "u", models.ComplaintUpdate{Target: models.Local("x"), Title: &title})
	env.enqueue(t, "d", models.ComplaintDelete{Target: models.Local("x")})

	report := env.flush(t)
	require.Len(t, report.Committed, 3)
	assert.True(t, report.Drained())

	calls := env.exec.ExecuteCalls()
	require.Len(t, calls, 3)

	update, ok := calls[1].Req.Payload.(models.ComplaintUpdate)
	require.True(t, ok)
	assert.Equal(t, models.Remote("42"), update.Target)

	del, ok := calls[2].Req.Payload.(models.ComplaintDelete)
	require.True(t, ok)
	assert.Equal(t, models.Remote("42"), del.Target)
}

func TestEngine_UnresolvedTargetIsPermanent(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		return &Result{}, nil
	}

	env.enqueue(t, "d", models.ComplaintDelete{Target: models.Local("ghost")})

	report := env.flush(t)
	assert.Equal(t, []string{"d"}, report.Failed)
	assert.Empty(t, env.exec.ExecuteCalls())

	failed, err := env.queue.ListFailed(env.ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Reason, ErrUnresolvedTarget.Error())
}

func TestEngine_ReplayAfterCrashIsIdempotent(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		// Сервер узнает ключ идемпотентности и возвращает ту же запись
		return &Result{ServerID: "42"}, nil
	}

	// Сбой после записи сопоставления, но до удаления из очереди
	env.enqueue(t, "x", models.ComplaintCreate{Title: "Vol de moto"})
	require.NoError(t, env.recon.Record(env.ctx, "x", "42"))

	report := env.flush(t)
	assert.Equal(t, []Commit{{LocalID: "x", ServerID: "42"}}, report.Committed)
	assert.True(t, report.Drained())
	assert.Equal(t, 1, env.recon.Len())
}

func TestEngine_ConflictingServerIDQuarantines(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		return &Result{ServerID: "43"}, nil
	}

	env.enqueue(t, "x", models.ComplaintCreate{Title: "Vol de moto"})
	require.NoError(t, env.recon.Record(env.ctx, "x", "42"))

	report := env.flush(t)
	assert.Equal(t, []string{"x"}, report.Failed)

	serverID, _ := env.recon.Resolve("x")
	assert.Equal(t, "42", serverID)
}

func TestEngine_SingleFlight(t *testing.T) {
	env := newTestEnv(t, testConfig())

	var inflight, maxInflight atomic.Int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			m := maxInflight.Load()
			if n <= m || maxInflight.CompareAndSwap(m, n) {
				break
			}
		}
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return &Result{ServerID: "srv-" + req.LocalID}, nil
	}

	var cycles atomic.Int32
	unsubscribe := env.engine.Subscribe(func(ev Event) {
		if ev.Type == EventCycleFinished {
			cycles.Add(1)
		}
	})
	defer unsubscribe()

	env.enqueue(t, "A", models.ComplaintCreate{Title: "first"})
	env.engine.Trigger("test")

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("executor was not called")
	}

	// Триггеры во время цикла объединяются в один следующий
	for i := 0; i < 10; i++ {
		env.engine.Trigger("flap")
	}
	assert.True(t, env.engine.Draining())
	close(release)

	assert.Eventually(t, func() bool { return cycles.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), cycles.Load())
	assert.Equal(t, int32(1), maxInflight.Load())
	assert.Len(t, env.exec.ExecuteCalls(), 1)
}

func TestEngine_BackoffTimerRetries(t *testing.T) {
	cfg := testConfig()
	cfg.BackoffBase = 10 * time.Millisecond
	cfg.BackoffMax = 50 * time.Millisecond
	env := newTestEnv(t, cfg)

	var calls atomic.Int32
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		if calls.Add(1) == 1 {
			return nil, NewTransientError(errors.New("timeout"))
		}
		return &Result{ServerID: "5"}, nil
	}

	committed := make(chan Event, 1)
	unsubscribe := env.engine.Subscribe(func(ev Event) {
		if ev.Type == EventCommitted {
			committed <- ev
		}
	})
	defer unsubscribe()

	env.enqueue(t, "A", models.ComplaintCreate{Title: "retry me"})
	env.engine.Trigger("test")

	select {
	case ev := <-committed:
		assert.Equal(t, "A", ev.LocalID)
		assert.Equal(t, "5", ev.ServerID)
	case <-time.After(5 * time.Second):
		t.Fatal("backoff retry did not happen")
	}
}

func TestEngine_FlushStopped(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.engine.Stop()

	_, err := env.engine.Flush(env.ctx)
	require.ErrorIs(t, err, ErrEngineStopped)

	// Повторный Stop безопасен
	env.engine.Stop()
}

func TestEngine_EmptyQueue(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.engine.SetOnline(false)

	report := env.flush(t)
	assert.NoError(t, report.Err)
	assert.True(t, report.Drained())
	assert.Empty(t, env.exec.ExecuteCalls())
}
