package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/replay"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// NewQueueCommand creates the queue command.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "queue",
		Short:         "Show pending and failed actions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, false, func(ctx context.Context, app *App) error {
				pending, err := app.Offline.Pending(ctx)
				if err != nil {
					return err
				}
				failed, err := app.Offline.Failed(ctx)
				if err != nil {
					return err
				}
				lastFlush, err := app.Storage.GetLastFlush(ctx)
				if err != nil {
					return err
				}
				return renderQueue(cmd.OutOrStdout(), pending, failed, app.Offline.Online(), lastFlush)
			})
		},
	}
}

// NewRetryCommand creates the retry command.
func NewRetryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [local-id]",
		Short: "Requeue failed actions",
		Long: `Move a failed action back to the end of the queue. Updates and withdrawals
of a failed complaint are requeued with it. Without an argument every failed
action is requeued.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var localID string
			if len(args) == 1 {
				localID = parseLocalID(args[0])
			}

			return withApp(cmd, rootOpts, false, func(ctx context.Context, app *App) error {
				n, err := app.Offline.Retry(ctx, localID)
				if err != nil {
					return err
				}
				if n == 0 {
					app.IO.Println("No failed actions.")
					return nil
				}

				app.IO.Printf("Requeued %d action(s)\n", n)
				if report := app.settle(ctx); report != nil {
					return renderReport(cmd.OutOrStdout(), report)
				}
				app.IO.Println("Offline: they will be sent when the network is available.")
				return nil
			})
		},
	}
}

// NewDiscardCommand creates the discard command.
func NewDiscardCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "discard <local-id>",
		Short:         "Drop a failed action",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			localID := parseLocalID(args[0])
			return withApp(cmd, rootOpts, false, func(ctx context.Context, app *App) error {
				if err := app.Offline.Discard(ctx, localID); err != nil {
					return err
				}
				app.IO.Printf("Discarded %s\n", models.Local(localID))
				return nil
			})
		},
	}
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "sync",
		Short:         "Deliver queued actions now",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, false, func(ctx context.Context, app *App) error {
				if !app.Offline.Online() {
					n, err := app.Offline.PendingCount(ctx)
					if err != nil {
						return err
					}
					return fmt.Errorf("%w: %d action(s) stay queued", replay.ErrOffline, n)
				}

				report, err := app.Offline.Flush(ctx)
				if err != nil {
					return err
				}
				return renderReport(cmd.OutOrStdout(), app.activity.summary(report))
			})
		},
	}
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep running and deliver actions whenever the server is reachable",
		Long: `Keep the replay engine running. Connectivity is probed periodically and the
queue is drained on every reconnect. Stop with Ctrl+C.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, app *App) error {
				out := cmd.OutOrStdout()

				var mu sync.Mutex
				unsubscribe := app.Offline.Subscribe(func(ev replay.Event) {
					mu.Lock()
					defer mu.Unlock()
					renderEvent(out, ev)
				})
				defer unsubscribe()

				n, err := app.Offline.PendingCount(ctx)
				if err != nil {
					return err
				}

				mu.Lock()
				fmt.Fprintf(out, "Watching %s, %d action(s) queued. Press Ctrl+C to stop.\n", app.Config.ServerURL, n)
				mu.Unlock()

				// Сессия наблюдения равносильна выходу приложения на передний план
				app.Offline.Foreground()

				<-ctx.Done()
				return nil
			})
		},
	}
}

// parseLocalID accepts both the raw local id and its TEMP- display form
func parseLocalID(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), models.TempPrefix)
}
