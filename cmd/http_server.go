package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/auth"
	"github.com/frahmantamala/procurement/internal/exchangerate"
	"github.com/frahmantamala/procurement/internal/notification"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
	"github.com/frahmantamala/procurement/internal/transport/middleware"
	"github.com/frahmantamala/procurement/internal/transport/rest"
	"github.com/frahmantamala/procurement/internal/user"
	"github.com/frahmantamala/procurement/pkg/logger"
)

var withReminders bool

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func init() {
	httpServerCmd.Flags().BoolVar(&withReminders, "with-reminders", false, "Run the quote conflict reminder scheduler in-process")
}

func startHTTPServer() {
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

	app, err := buildApp(cfg, db, log)
	if err != nil {
		log.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	if app.Auth == nil {
		log.Error("security.jwt_public_key is required to serve the API")
		os.Exit(1)
	}

	router := chi.NewRouter()
	setupRoutes(router, app)

	var scheduler *notification.ReminderScheduler
	if withReminders {
		scheduler = newReminderScheduler(app)
		scheduler.Start()
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	log.Info("starting HTTP server", "address", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	// let in-flight notifications finish before the pool closes
	app.Bus.Wait()
	if err := db.Close(); err != nil {
		log.Error("database close error", "error", err)
	}

	log.Info("server stopped")
}

func setupRoutes(router *chi.Mux, app *App) {
	opts := rest.RouterOptions{
		AllowedOrigins:  app.Config.Server.AllowedOrigins,
		OpenAPISpecPath: app.Config.Server.OpenAPISpecPath,
	}
	openapiRouter, err := middleware.LoadOpenAPIRouter(context.Background(), app.Config.Server.OpenAPISpecPath)
	if err != nil {
		// validation is an extra guard; handlers validate on their own
		app.Logger.Warn("openapi request validation disabled", "path", app.Config.Server.OpenAPISpecPath, "error", err)
	} else {
		opts.OpenAPIRouter = openapiRouter
	}

	rest.RegisterAllRoutes(router, app.DB.DB, rest.Handlers{
		Auth:            auth.NewHandler(app.Auth),
		User:            user.NewHandler(app.Directory),
		PurchaseRequest: purchaserequest.NewHandler(app.PurchaseRequestSvc),
		ExchangeRate:    exchangerate.NewHandler(app.Resolver),
		Notification:    notification.NewHandler(app.PurchaseRequestSvc, app.Notifications),
	}, opts, app.Logger)
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
