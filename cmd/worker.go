package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/procurement/internal/notification"
	"github.com/frahmantamala/procurement/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background worker pools such as the quote conflict reminder scheduler.`,
}

var reminderWorkerCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Start the quote conflict reminder scheduler",
	Long:  `Re-notify approvers once a day for every purchase request held by a quote conflict.`,
	Run: func(cmd *cobra.Command, args []string) {
		startReminderWorker()
	},
}

var (
	reminderInterval time.Duration
	maxWorkers       int
	jobQueueSize     int
)

func startReminderWorker() {
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

	scheduler := newReminderScheduler(app)
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("reminder worker is running. Press Ctrl+C to stop.")
	sig := <-sigChan
	log.Info("received signal, shutting down reminder worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		scheduler.Shutdown()
		app.Bus.Wait()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		log.Info("reminder worker shutdown complete")
	case <-ctx.Done():
		log.Warn("shutdown timeout reached, forcing exit")
	}
}

func newReminderScheduler(app *App) *notification.ReminderScheduler {
	cfg := notification.ReminderConfig{
		Interval:   getDurationFlag(reminderInterval, app.Config.Notification.ReminderInterval),
		MaxWorkers: getIntFlag(maxWorkers, app.Config.Notification.Workers),
		QueueSize:  getIntFlag(jobQueueSize, app.Config.Notification.QueueSize),
	}
	app.Logger.Info("starting reminder scheduler",
		"interval", cfg.Interval.String(),
		"max_workers", cfg.MaxWorkers,
		"queue_size", cfg.QueueSize)

	return notification.NewReminderScheduler(app.PurchaseRequests, app.Bus, cfg, app.Logger)
}

func getDurationFlag(flagValue, configValue time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	reminderWorkerCmd.Flags().DurationVar(&reminderInterval, "interval", 0, "Sweep interval (overrides config)")
	reminderWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	reminderWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")

	workerCmd.AddCommand(reminderWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
