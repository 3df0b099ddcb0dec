package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// FileOptions holds flags for the file command.
type FileOptions struct {
	*RootOptions
	Title       string
	Description string
	Category    string
	Location    string
	Attachments []string
}

// NewFileCommand creates the file command.
func NewFileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "file",
		Short: "File a new complaint",
		Long: `File a new complaint. The complaint is saved on the device first and shown
with a TEMP- identifier until the server confirms it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, false, func(ctx context.Context, app *App) error {
				return runFile(ctx, app, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Title, "title", "t", "", "short summary (prompted when empty)")
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "what happened")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category, e.g. theft or assault")
	cmd.Flags().StringVar(&opts.Location, "location", "", "where it happened")
	cmd.Flags().StringSliceVar(&opts.Attachments, "attachment", nil, "reference to an uploaded file (repeatable)")

	return cmd
}

func runFile(ctx context.Context, app *App, opts *FileOptions) error {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		input, err := app.IO.ReadInput("Title: ")
		if err != nil {
			return fmt.Errorf("failed to read title: %w", err)
		}
		title = input
	}

	id, err := app.Complaints.File(ctx, models.ComplaintCreate{
		Title:       title,
		Description: opts.Description,
		Category:    opts.Category,
		Location:    opts.Location,
		Attachments: opts.Attachments,
	})
	if err != nil {
		return err
	}

	app.IO.Printf("Complaint queued: %s\n", id)
	reportDelivery(ctx, app, id.LocalID())
	return nil
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List complaints including ones not yet delivered",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, false, func(ctx context.Context, app *App) error {
				result, err := app.Complaints.List(ctx)
				if err != nil {
					return err
				}
				return renderList(cmd.OutOrStdout(), result)
			})
		},
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one complaint by server id or TEMP- id",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := models.ParseIdentifier(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, false, func(ctx context.Context, app *App) error {
				item, err := app.Complaints.Get(ctx, id)
				if err != nil {
					return err
				}
				return renderComplaint(cmd.OutOrStdout(), item)
			})
		},
	}
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	var title, description, category, location string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a complaint",
		Long: `Queue a change to a complaint. Only the flags given are changed.
A TEMP- id may be used: the change is sent after the complaint itself.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := models.ParseIdentifier(args[0])
			if err != nil {
				return err
			}

			var patch models.ComplaintUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("category") {
				patch.Category = &category
			}
			if flags.Changed("location") {
				patch.Location = &location
			}
			if patch.Title == nil && patch.Description == nil && patch.Category == nil && patch.Location == nil {
				return errors.New("nothing to change: pass at least one of --title, --description, --category, --location")
			}

			return withApp(cmd, rootOpts, false, func(ctx context.Context, app *App) error {
				actionID, err := app.Complaints.Update(ctx, id, patch)
				if err != nil {
					return err
				}
				app.IO.Printf("Update queued for %s (action %s)\n", id, actionID)
				reportDelivery(ctx, app, actionID.LocalID())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	cmd.Flags().StringVar(&location, "location", "", "new location")

	return cmd
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	var reason string
	var yes bool

	cmd := &cobra.Command{
		Use:           "withdraw <id>",
		Short:         "Withdraw a complaint",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := models.ParseIdentifier(args[0])
			if err != nil {
				return err
			}

			return withApp(cmd, rootOpts, false, func(ctx context.Context, app *App) error {
				if !yes {
					answer, err := app.IO.ReadInput(fmt.Sprintf("Withdraw complaint %s? [y/N]: ", id))
					if err != nil {
						return fmt.Errorf("failed to read confirmation: %w", err)
					}
					if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
						app.IO.Println("Cancelled.")
						return nil
					}
				}

				actionID, err := app.Complaints.Withdraw(ctx, id, reason)
				if err != nil {
					return err
				}
				app.IO.Printf("Withdrawal queued for %s (action %s)\n", id, actionID)
				reportDelivery(ctx, app, actionID.LocalID())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "reason for withdrawal")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

// reportDelivery tells the user whether the write reached the server in this invocation
func reportDelivery(ctx context.Context, app *App, localID string) {
	report := app.settle(ctx)
	if report == nil {
		if app.Offline.Online() {
			app.IO.Println("Not delivered yet. It stays queued.")
		} else {
			app.IO.Println("Offline: it will be sent when the network is available.")
		}
		return
	}

	if serverID, ok := app.activity.committedAs(localID); ok {
		if serverID != "" {
			app.IO.Printf("Delivered, server id %s\n", serverID)
		} else {
			app.IO.Println("Delivered.")
		}
		return
	}
	if app.activity.rejected(localID) {
		app.IO.Println("Rejected by the server. Run 'queue' for the reason.")
		return
	}
	if report.Err != nil {
		app.IO.Printf("Not delivered yet (%v). It stays queued.\n", report.Err)
		return
	}
	app.IO.Println("Not delivered yet. Run 'queue' for details.")
}
