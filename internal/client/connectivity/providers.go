package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ManualProvider reports whatever state it was last given.
// Used for the --offline flag and in tests.
type ManualProvider struct {
	subs   map[int]func(bool)
	nextID int
	mu     sync.Mutex
	online bool
}

// NewManualProvider creates a provider with the initial state
func NewManualProvider(online bool) *ManualProvider {
	return &ManualProvider{
		online: online,
		subs:   make(map[int]func(bool)),
	}
}

// Set changes the state and notifies subscribers synchronously
func (p *ManualProvider) Set(online bool) {
	p.mu.Lock()
	p.online = online
	subs := make([]func(bool), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe implements Provider
func (p *ManualProvider) Subscribe(fn func(online bool)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	online := p.online
	p.mu.Unlock()

	fn(online)

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// HealthChecker probes the server
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker
type HealthCheckFunc func(ctx context.Context) error

// Health calls f(ctx)
func (f HealthCheckFunc) Health(ctx context.Context) error {
	return f(ctx)
}

// ProbeProvider polls a health endpoint and reports reachability
type ProbeProvider struct {
	checker  HealthChecker
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewProbeProvider creates a provider that probes checker every interval
func NewProbeProvider(checker HealthChecker, interval, timeout time.Duration, logger *slog.Logger) *ProbeProvider {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ProbeProvider{
		checker:  checker,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Probe runs one health check
func (p *ProbeProvider) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.checker.Health(ctx); err != nil {
		p.logger.Debug("Health probe failed", "error", err)
		return false
	}
	return true
}

// Subscribe implements Provider. Each subscription owns a polling goroutine
// that is stopped by the returned function.
func (p *ProbeProvider) Subscribe(fn func(online bool)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			online := p.Probe(ctx)
			if ctx.Err() != nil {
				return
			}
			fn(online)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
