package replay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
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

var errDiskBusy = errors.New("disk busy")

// flakyKV отказывает заданное число раз в Get или Set
type flakyKV struct {
	*boltdb.Storage
	failGets atomic.Int32
	failSets atomic.Int32
}

func (kv *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if kv.failGets.Add(-1) >= 0 {
		return nil, errDiskBusy
	}
	return kv.Storage.Get(ctx, key)
}

func (kv *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	if kv.failSets.Add(-1) >= 0 {
		return errDiskBusy
	}
	return kv.Storage.Set(ctx, key, value)
}

func newFlakyEnv(t *testing.T, cfg Config) (*testEnv, *flakyKV) {
	t.Helper()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := boltdb.New(ctx, filepath.Join(t.TempDir(), "replay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	kv := &flakyKV{Storage: db}
	env := &testEnv{
		ctx:   ctx,
		db:    db,
		queue: queue.NewStore(kv, logger),
		recon: reconcile.New(db, logger),
		exec:  &ExecutorMock{},
	}
	env.exec.ExecuteFunc = func(ctx context.Context, req Request) (*Result, error) {
		return &Result{ServerID: "7"}, nil
	}
	env.engine = NewEngine(env.queue, env.exec, env.recon, db, cfg, logger)
	env.engine.SetOnline(true)
	env.engine.Start(ctx)
	t.Cleanup(env.engine.Stop)

	return env, kv
}

func (env *testEnv) awaitCommit(t *testing.T) <-chan Event {
	t.Helper()

	committed := make(chan Event, 1)
	unsubscribe := env.engine.Subscribe(func(ev Event) {
		if ev.Type == EventCommitted {
			select {
			case committed <- ev:
			default:
			}
		}
	})
	t.Cleanup(unsubscribe)

	return committed
}

func TestEngine_StorageFailureRetriedWithinCycle(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackoff = 5 * time.Millisecond
	cfg.StorageRetries = 3
	env, kv := newFlakyEnv(t, cfg)

	env.enqueue(t, "A", models.ComplaintCreate{Title: "Vol de moto"})
	// Первая запись при удалении подтвержденного действия не удается
	kv.failSets.Store(1)

	report := env.flush(t)

	require.NoError(t, report.Err)
	assert.True(t, report.Drained())
	assert.Equal(t, []Commit{{LocalID: "A", ServerID: "7"}}, report.Committed)
	assert.Len(t, env.exec.ExecuteCalls(), 1)

	n, err := env.queue.Len(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEngine_StorageFailureSchedulesRetry(t *testing.T) {
	cfg := testConfig()
	cfg.BackoffBase = 10 * time.Millisecond
	cfg.BackoffMax = 50 * time.Millisecond
	env, kv := newFlakyEnv(t, cfg)
	committed := env.awaitCommit(t)

	env.enqueue(t, "A", models.ComplaintCreate{Title: "Vol de moto"})
	kv.failSets.Store(1)

	report := env.flush(t)
	require.Error(t, report.Err)
	assert.ErrorIs(t, report.Err, errDiskBusy)
	assert.Contains(t, report.Err.Error(), "failed to remove committed action")
	assert.Equal(t, "A", report.Retry)
	assert.Empty(t, report.Committed)

	// Следующий цикл запускает таймер, без внешнего триггера
	select {
	case ev := <-committed:
		assert.Equal(t, "A", ev.LocalID)
		assert.Equal(t, "7", ev.ServerID)
	case <-time.After(5 * time.Second):
		t.Fatal("no retry after storage failure")
	}

	// Повторная отправка идет с тем же ключом идемпотентности
	assert.Equal(t, []string{"A", "A"}, sentIDs(env.exec))
	for _, c := range env.exec.ExecuteCalls() {
		assert.Equal(t, "A", c.Req.IdempotencyKey)
	}

	serverID, ok := env.recon.Resolve("A")
	require.True(t, ok)
	assert.Equal(t, "7", serverID)

	assert.Eventually(t, func() bool {
		n, err := env.queue.Len(env.ctx)
		return err == nil && n == 0
	}, time.Second, 10*time.Millisecond)
}

func TestEngine_QueueReadFailureSchedulesRetry(t *testing.T) {
	cfg := testConfig()
	cfg.BackoffBase = 10 * time.Millisecond
	cfg.BackoffMax = 50 * time.Millisecond
	env, kv := newFlakyEnv(t, cfg)
	committed := env.awaitCommit(t)

	env.enqueue(t, "A", models.ComplaintCreate{Title: "Vol de moto"})
	kv.failGets.Store(1)

	report := env.flush(t)
	require.Error(t, report.Err)
	assert.Contains(t, report.Err.Error(), "failed to read queue")
	assert.Empty(t, env.exec.ExecuteCalls())

	select {
	case ev := <-committed:
		assert.Equal(t, "A", ev.LocalID)
	case <-time.After(5 * time.Second):
		t.Fatal("no retry after queue read failure")
	}
}
