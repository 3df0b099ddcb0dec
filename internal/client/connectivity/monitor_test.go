package connectivity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder собирает стабильные состояния монитора
type recorder struct {
	states []bool
	mu     sync.Mutex
}

func (r *recorder) add(online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, online)
}

func (r *recorder) get() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.states...)
}

func TestMonitor_InitialStateWithoutDebounce(t *testing.T) {
	provider := NewManualProvider(true)
	m := NewMonitor(provider, time.Hour, testLogger())

	var reconnects atomic.Int32
	m.OnReconnect(func() { reconnects.Add(1) })

	m.Start()
	defer m.Stop()

	assert.True(t, m.Online())
	assert.Equal(t, int32(1), reconnects.Load())
}

func TestMonitor_NoDebounce(t *testing.T) {
	provider := NewManualProvider(false)
	m := NewMonitor(provider, 0, testLogger())

	rec := &recorder{}
	m.Subscribe(rec.add)

	var reconnects atomic.Int32
	m.OnReconnect(func() { reconnects.Add(1) })

	m.Start()
	defer m.Stop()
	assert.False(t, m.Online())

	provider.Set(true)
	provider.Set(true)
	provider.Set(false)
	provider.Set(true)

	assert.Equal(t, []bool{true, false, true}, rec.get())
	assert.Equal(t, int32(2), reconnects.Load())
}

func TestMonitor_DebouncesFlapping(t *testing.T) {
	provider := NewManualProvider(false)
	m := NewMonitor(provider, 50*time.Millisecond, testLogger())

	rec := &recorder{}
	m.Subscribe(rec.add)

	m.Start()
	defer m.Stop()

	// Быстрое переключение внутри окна не меняет состояние
	provider.Set(true)
	provider.Set(false)
	provider.Set(true)
	provider.Set(false)

	time.Sleep(120 * time.Millisecond)
	assert.False(t, m.Online())
	assert.Empty(t, rec.get())

	// Устойчивое состояние принимается после окна
	provider.Set(true)
	assert.False(t, m.Online())
	assert.Eventually(t, m.Online, time.Second, 5*time.Millisecond)
	assert.Equal(t, []bool{true}, rec.get())
}

func TestMonitor_UnsubscribeAndStop(t *testing.T) {
	provider := NewManualProvider(false)
	m := NewMonitor(provider, 0, testLogger())

	rec := &recorder{}
	unsubscribe := m.Subscribe(rec.add)

	m.Start()
	provider.Set(true)
	unsubscribe()
	provider.Set(false)
	assert.Equal(t, []bool{true}, rec.get())

	m.Stop()
	provider.Set(true)
	assert.False(t, m.Online())
}

func TestProbeProvider(t *testing.T) {
	var healthy atomic.Bool
	checker := HealthCheckFunc(func(ctx context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("connection refused")
	})

	provider := NewProbeProvider(checker, 10*time.Millisecond, time.Second, testLogger())
	m := NewMonitor(provider, 0, testLogger())

	reconnected := make(chan struct{}, 1)
	m.OnReconnect(func() {
		select {
		case reconnected <- struct{}{}:
		default:
		}
	})

	m.Start()
	defer m.Stop()

	assert.Never(t, m.Online, 50*time.Millisecond, 5*time.Millisecond)

	healthy.Store(true)
	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect edge was not reported")
	}
	assert.True(t, m.Online())
}

func TestProbeProvider_Timeout(t *testing.T) {
	checker := HealthCheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	provider := NewProbeProvider(checker, time.Hour, 20*time.Millisecond, testLogger())
	require.False(t, provider.Probe(context.Background()))
}
