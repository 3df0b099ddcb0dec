// Package connectivity turns raw reachability signals into a debounced
// online/offline state and reconnect edges. It never retries anything by
// itself; consumers react to the edges.
package connectivity

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is how long a new state must hold before it is reported
const DefaultDebounce = 2 * time.Second

// Provider is a source of raw connectivity states.
// Subscribe should deliver the current state to fn as soon as it is known.
type Provider interface {
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Monitor is the Connectivity Monitor
type Monitor struct {
	provider    Provider
	logger      *slog.Logger
	timer       *time.Timer
	unsubscribe func()
	subs        map[int]func(online bool)
	reconnect   map[int]func()
	debounce    time.Duration
	seq         uint64
	nextID      int
	mu          sync.Mutex
	online      bool
	candidate   bool
	known       bool
}

// NewMonitor creates a stopped monitor over provider. debounce <= 0 disables debouncing.
func NewMonitor(provider Provider, debounce time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		provider:  provider,
		logger:    logger,
		debounce:  debounce,
		subs:      make(map[int]func(bool)),
		reconnect: make(map[int]func()),
	}
}

// Start subscribes to the provider
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.unsubscribe != nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	unsubscribe := m.provider.Subscribe(m.observe)

	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
}

// Stop unsubscribes from the provider and drops any pending transition
func (m *Monitor) Stop() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.seq++
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Online returns the current stable state
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers fn for stable state changes. Returns the unsubscribe function.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// OnReconnect registers fn for offline → online edges. Returns the unsubscribe function.
func (m *Monitor) OnReconnect(fn func()) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.reconnect[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.reconnect, id)
		m.mu.Unlock()
	}
}

// observe handles a raw state from the provider
func (m *Monitor) observe(online bool) {
	m.mu.Lock()

	// Первое значение принимаем сразу, без задержки
	if !m.known {
		m.known = true
		m.mu.Unlock()
		m.apply(online)
		return
	}

	if online == m.online {
		// Вернулись в стабильное состояние до истечения окна - отмена
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
			m.seq++
		}
		m.mu.Unlock()
		return
	}

	if m.debounce <= 0 {
		m.mu.Unlock()
		m.apply(online)
		return
	}

	if m.timer != nil && m.candidate == online {
		m.mu.Unlock()
		return
	}

	m.candidate = online
	m.seq++
	seq := m.seq
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, func() {
		m.mu.Lock()
		if seq != m.seq {
			m.mu.Unlock()
			return
		}
		m.timer = nil
		m.mu.Unlock()
		m.apply(online)
	})
	m.mu.Unlock()
}

// apply commits a stable state and notifies subscribers outside the lock
func (m *Monitor) apply(online bool) {
	m.mu.Lock()
	previous := m.online
	changed := previous != online
	m.online = online

	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	reconnect := make([]func(), 0, len(m.reconnect))
	if !previous && online {
		for _, fn := range m.reconnect {
			reconnect = append(reconnect, fn)
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Info("Connectivity changed", "online", online)

	for _, fn := range subs {
		fn(online)
	}
	for _, fn := range reconnect {
		fn()
	}
}
