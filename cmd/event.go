package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/core/events"
	"github.com/frahmantamala/procurement/internal/transition"
	"github.com/frahmantamala/procurement/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish procurement events by hand, for example to replay a notification after an outage.`,
}

var publishStatusChangedCmd = &cobra.Command{
	Use:   "status-changed [pr-id]",
	Short: "Publish a status change event for a purchase request",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishStatusChanged(args[0])
	},
}

var publishQuoteConflictCmd = &cobra.Command{
	Use:   "quote-conflict [pr-id]",
	Short: "Publish a quote conflict event for a purchase request",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishQuoteConflict(args[0])
	},
}

var (
	eventFrom    string
	eventActor   string
	eventNotes   string
	eventRemind  bool
	eventTimeout time.Duration
)

func withApp(run func(ctx context.Context, app *App) error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	app, err := buildApp(cfg, db, log)
	if err != nil {
		log.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}

	ctx, cancel := internal.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	if err := run(ctx, app); err != nil {
		log.Error("event command failed", "error", err)
		os.Exit(1)
	}
}

func publishStatusChanged(prID string) {
	withApp(func(ctx context.Context, app *App) error {
		pr, err := app.PurchaseRequests.GetByID(ctx, prID)
		if err != nil {
			return fmt.Errorf("load purchase request %s: %w", prID, err)
		}

		event := events.NewStatusChangedEvent(pr.ID, pr.OrganizationID, eventFrom, string(pr.Status), eventActor, eventNotes).
			WithSequence(len(pr.Workflow.History))
		app.Logger.Info("publishing status change", "pr_id", pr.ID, "from", eventFrom, "to", pr.Status)
		return app.Bus.PublishSync(ctx, event)
	})
}

func publishQuoteConflict(prID string) {
	withApp(func(ctx context.Context, app *App) error {
		pr, err := app.PurchaseRequests.GetByID(ctx, prID)
		if err != nil {
			return fmt.Errorf("load purchase request %s: %w", prID, err)
		}
		if !transition.DetectConflict(pr) {
			return fmt.Errorf("purchase request %s has no open quote conflict", prID)
		}

		w := pr.Workflow
		event := events.NewQuoteConflictFlaggedEvent(pr.ID, pr.OrganizationID,
			w.CurrentApproverID, w.SecondApproverID,
			w.FirstSelectedQuoteID, w.SecondSelectedQuoteID).
			WithSequence(len(w.History))
		if eventRemind {
			event = event.AsReminder(time.Now())
		}

		app.Logger.Info("publishing quote conflict", "pr_id", pr.ID, "reminder", eventRemind)
		return app.Bus.PublishSync(ctx, event)
	})
}

func init() {
	publishStatusChangedCmd.Flags().StringVar(&eventFrom, "from", "", "Previous status; empty means creation")
	publishStatusChangedCmd.Flags().StringVar(&eventActor, "actor", "", "User id recorded as the actor")
	publishStatusChangedCmd.Flags().StringVar(&eventNotes, "notes", "", "Notes included in the notification")
	publishQuoteConflictCmd.Flags().BoolVar(&eventRemind, "reminder", false, "Send as today's reminder")
	eventCmd.PersistentFlags().DurationVar(&eventTimeout, "timeout", 30*time.Second, "Command timeout")

	eventCmd.AddCommand(publishStatusChangedCmd)
	eventCmd.AddCommand(publishQuoteConflictCmd)

	rootCmd.AddCommand(eventCmd)
}
