package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/procurement/internal/auth"
	"github.com/frahmantamala/procurement/internal/exchangerate"
	"github.com/frahmantamala/procurement/internal/notification"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
	"github.com/frahmantamala/procurement/internal/transport/middleware"
	"github.com/frahmantamala/procurement/internal/transport/swagger"
	"github.com/frahmantamala/procurement/internal/user"
)

// Handlers groups every HTTP handler mounted by RegisterAllRoutes. Nil
// handlers leave their routes unmounted.
type Handlers struct {
	Auth            *auth.Handler
	User            *user.Handler
	PurchaseRequest *purchaserequest.Handler
	ExchangeRate    *exchangerate.Handler
	Notification    *notification.Handler
}

type RouterOptions struct {
	AllowedOrigins  string
	OpenAPISpecPath string
	// OpenAPIRouter enables request validation when set.
	OpenAPIRouter routers.Router
}

const openAPIDocPath = "/openapi.yml"

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, opts RouterOptions, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))

	specPath := opts.OpenAPISpecPath
	if specPath == "" {
		specPath = "./api/openapi.yml"
	}
	router.Get(openAPIDocPath, func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, specPath)
	})
	router.Handle("/swagger/*", swagger.Handler(openAPIDocPath))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.LoggingMiddleware(logger))
		if opts.OpenAPIRouter != nil {
			r.Use(middleware.OpenAPIValidator(opts.OpenAPIRouter, logger))
		}

		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth == nil {
			logger.Warn("auth handler missing, protected routes are not mounted")
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
			}

			if h.ExchangeRate != nil {
				pr.Get("/exchange-rates", h.ExchangeRate.GetRate)
			}

			if h.PurchaseRequest != nil {
				pr.Route("/purchase-requests", func(prr chi.Router) {
					prr.Post("/", h.PurchaseRequest.Create)

					prr.Group(func(mr chi.Router) {
						mr.Use(middleware.RequirePermissionLevels(
							user.LevelAdmin,
							user.LevelSeniorApprover,
							user.LevelProcurement,
						))
						mr.Get("/quote-conflicts", h.PurchaseRequest.ListQuoteConflicts)
					})

					prr.Route("/{id}", func(ir chi.Router) {
						ir.Get("/", h.PurchaseRequest.Get)
						ir.Post("/quotes", h.PurchaseRequest.AddQuote)
						ir.Patch("/status", h.PurchaseRequest.UpdateStatus)
						ir.Post("/approve", h.PurchaseRequest.Approve)
						ir.Post("/validate", h.PurchaseRequest.Validate)

						ir.Post("/quote-conflict/resolve", h.PurchaseRequest.ResolveQuoteConflict)

						if h.Notification != nil {
							ir.Get("/notifications", h.Notification.ListByPurchaseRequest)
						}
					})
				})
			}
		})
	})
}
