package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/api"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/complaints"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/config"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/connectivity"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/iocli"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/offline"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/queue"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/reconcile"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/replay"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/storage/boltdb"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// App is the wired client for one command invocation
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Storage    *boltdb.Storage
	Client     *api.Client
	Offline    *offline.Service
	Complaints complaints.Service
	IO         iocli.IO

	activity    *activity
	unsubscribe func()
}

// activity collects engine outcomes for the lifetime of one invocation.
// Cycles triggered on startup finish before a later Flush returns, so after
// Flush it holds every delivery made by this process.
type activity struct {
	committed []replay.Commit
	failed    []string
	mu        sync.Mutex
}

func (a *activity) record(ev replay.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Type {
	case replay.EventCommitted:
		a.committed = append(a.committed, replay.Commit{LocalID: ev.LocalID, ServerID: ev.ServerID})
	case replay.EventFailed:
		a.failed = append(a.failed, ev.LocalID)
	}
}

func (a *activity) committedAs(localID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range a.committed {
		if c.LocalID == localID {
			return c.ServerID, true
		}
	}
	return "", false
}

func (a *activity) rejected(localID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Contains(a.failed, localID)
}

// summary returns last with the deliveries of every cycle run so far
func (a *activity) summary(last *replay.Report) *replay.Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	report := *last
	report.Committed = slices.Clone(a.committed)
	report.Failed = slices.Clone(a.failed)
	return &report
}

// loadConfig resolves configuration: defaults, file, environment, then flags
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv(os.LookupEnv)

	if o.ServerURL != "" {
		cfg.ServerURL = o.ServerURL
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Offline {
		cfg.Offline = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp wires storage, transport and the offline queue service.
// live selects a polling connectivity provider for long-running commands;
// otherwise the server is probed once and the result is held for the invocation.
func openApp(cmd *cobra.Command, opts *RootOptions, live bool) (*App, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	store, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	client := api.NewClient(cfg.ServerURL,
		api.WithToken(cfg.Token),
		api.WithTimeout(cfg.Sync.CallTimeout),
	)

	monitor := connectivity.NewMonitor(newProvider(ctx, cfg, client, logger, live), monitorDebounce(cfg, live), logger)

	q := queue.NewStore(store, logger)
	recon := reconcile.New(store, logger)
	engineCfg := replay.DefaultConfig()
	engineCfg.CallTimeout = cfg.Sync.CallTimeout
	engineCfg.BackoffBase = cfg.Sync.BackoffBase
	engineCfg.BackoffMax = cfg.Sync.BackoffMax
	engineCfg.MaxAttempts = cfg.Sync.MaxAttempts
	engine := replay.NewEngine(q, client, recon, store, engineCfg, logger)

	svcCfg := offline.DefaultConfig()
	svcCfg.MappingTTL = cfg.Sync.MappingTTL
	svc := offline.NewService(q, recon, engine, monitor, svcCfg, logger)

	act := &activity{}
	unsubscribe := svc.Subscribe(act.record)

	if err := svc.Init(ctx); err != nil {
		unsubscribe()
		if cerr := store.Close(); cerr != nil {
			logger.Error("Failed to close database", "error", cerr)
		}
		return nil, fmt.Errorf("failed to start offline queue: %w", err)
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		Storage:    store,
		Client:     client,
		Offline:    svc,
		Complaints: complaints.NewService(newReader(cfg, client), svc, store, logger),
		IO:         iocli.New(cmd.InOrStdin(), cmd.OutOrStdout()),

		activity:    act,
		unsubscribe: unsubscribe,
	}, nil
}

func newProvider(ctx context.Context, cfg *config.Config, client *api.Client, logger *slog.Logger, live bool) connectivity.Provider {
	if cfg.Offline {
		return connectivity.NewManualProvider(false)
	}

	probe := connectivity.NewProbeProvider(client, cfg.Sync.ProbeInterval, cfg.Sync.ProbeTimeout, logger)
	if live {
		return probe
	}
	return connectivity.NewManualProvider(probe.Probe(ctx))
}

// cacheOnlyReader keeps reads local in offline mode
type cacheOnlyReader struct{}

func (cacheOnlyReader) ListComplaints(context.Context) ([]models.Complaint, error) {
	return nil, replay.ErrOffline
}

func (cacheOnlyReader) GetComplaint(context.Context, string) (*models.Complaint, error) {
	return nil, replay.ErrOffline
}

func newReader(cfg *config.Config, client *api.Client) complaints.Reader {
	if cfg.Offline {
		return cacheOnlyReader{}
	}
	return client
}

func monitorDebounce(cfg *config.Config, live bool) time.Duration {
	if !live {
		return 0
	}
	return cfg.Sync.Debounce
}

// Close stops the engine and closes the database. Queued actions stay on disk.
func (a *App) Close() error {
	a.Offline.Dispose()
	a.unsubscribe()
	if err := a.Storage.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// settle flushes the queue before a short-lived command exits so that a
// write made while online is delivered in the same invocation.
// Returns nil when the device is offline or the flush did not complete.
func (a *App) settle(ctx context.Context) *replay.Report {
	if !a.Offline.Online() {
		return nil
	}

	timeout := a.Config.Sync.CallTimeout
	if timeout <= 0 {
		timeout = replay.DefaultConfig().CallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report, err := a.Offline.Flush(ctx)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			a.Logger.Warn("Flush failed", "error", err)
		}
		return nil
	}
	return a.activity.summary(report)
}

// withApp opens the app, runs fn and closes the app
func withApp(cmd *cobra.Command, opts *RootOptions, live bool, fn func(ctx context.Context, app *App) error) (err error) {
	app, err := openApp(cmd, opts, live)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, app)
}
