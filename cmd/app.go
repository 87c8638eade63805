package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/approval"
	"github.com/frahmantamala/procurement/internal/auth"
	"github.com/frahmantamala/procurement/internal/core/events"
	"github.com/frahmantamala/procurement/internal/exchangerate"
	exchangeratePostgres "github.com/frahmantamala/procurement/internal/exchangerate/postgres"
	"github.com/frahmantamala/procurement/internal/notification"
	notificationPostgres "github.com/frahmantamala/procurement/internal/notification/postgres"
	organizationPostgres "github.com/frahmantamala/procurement/internal/organization/postgres"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
	purchaseRequestPostgres "github.com/frahmantamala/procurement/internal/purchaserequest/postgres"
	"github.com/frahmantamala/procurement/internal/quote"
	rulePostgres "github.com/frahmantamala/procurement/internal/rule/postgres"
	"github.com/frahmantamala/procurement/internal/transition"
	"github.com/frahmantamala/procurement/internal/user"
	userPostgres "github.com/frahmantamala/procurement/internal/user/postgres"
	vendor "github.com/frahmantamala/procurement/internal/vendors"
	vendorPostgres "github.com/frahmantamala/procurement/internal/vendors/postgres"
)

// App holds the wired services shared by the server and the workers.
type App struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Logger *slog.Logger
	Bus    *events.EventBus

	Users            *userPostgres.UserRepository
	Directory        *user.Directory
	PurchaseRequests *purchaseRequestPostgres.PurchaseRequestRepository
	Notifications    *notificationPostgres.NotificationRepository

	Resolver            *exchangerate.Resolver
	Auth                *auth.Service
	PurchaseRequestSvc  *purchaserequest.Service
	NotificationService *notification.Service
}

func buildApp(cfg *internal.Config, db *sqlx.DB, logger *slog.Logger) (*App, error) {
	gdb, err := openGorm(db)
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus(logger)

	users := userPostgres.NewUserRepository(gdb)
	directory := user.NewDirectory(users, logger)
	orgs := organizationPostgres.NewOrganizationRepository(gdb)
	rules := rulePostgres.NewRuleRepository(gdb)
	vendors := vendor.NewApprovalChecker(vendorPostgres.NewVendorRepository(gdb), logger)
	prs := purchaseRequestPostgres.NewPurchaseRequestRepository(gdb)
	notifications := notificationPostgres.NewNotificationRepository(gdb)

	rates := exchangerate.NewFrankfurterClient(exchangerate.ClientConfig{
		BaseURL:           cfg.RateService.BaseURL,
		Timeout:           cfg.RateService.Timeout,
		RequestsPerSecond: cfg.RateService.RequestsPerSecond,
		Burst:             cfg.RateService.Burst,
	}, logger)
	resolver := exchangerate.NewResolver(
		exchangerate.NewCache(cfg.RateService.CacheTTL, time.Now),
		rates,
		exchangeratePostgres.NewRateRepository(gdb),
		logger,
	)

	quotes := quote.NewValidator(resolver, logger)
	approvals := approval.NewValidator(rules, vendors, users, quotes, logger)
	prService := purchaserequest.NewService(prs, approvals, bus, logger)

	builder := transition.NewBuilder(orgs, directory, cfg.Notification.AppBaseURL, logger)
	notifier := notification.NewService(
		prs,
		transition.DefaultRegistry(),
		builder,
		notification.NewGuard(notifications, logger),
		notification.NewLogSender(logger),
		cfg.Notification.FromAddress,
		logger,
	)
	notifier.Subscribe(bus)

	app := &App{
		Config:              cfg,
		DB:                  db,
		Gorm:                gdb,
		Logger:              logger,
		Bus:                 bus,
		Users:               users,
		Directory:           directory,
		PurchaseRequests:    prs,
		Notifications:       notifications,
		Resolver:            resolver,
		PurchaseRequestSvc:  prService,
		NotificationService: notifier,
	}

	if cfg.Security.JWTPublicKey != "" {
		pub, err := cfg.Security.GetPublicKey()
		if err != nil {
			return nil, fmt.Errorf("load jwt public key: %w", err)
		}
		app.Auth = auth.NewService(auth.NewRS256Validator(pub, cfg.Security.Issuer), users, logger)
	}

	return app, nil
}

// openGorm shares the sqlx connection pool with gorm.
func openGorm(db *sqlx.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}
	return gdb, nil
}
