package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/transport"
	"github.com/frahmantamala/procurement/pkg/logger"
)

type ServiceAPI interface {
	Authenticate(ctx context.Context, token string) (*internal.Actor, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     svc,
	}
}

// ExtractBearerToken returns the token of an "Authorization: Bearer" header.
func ExtractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware puts the authenticated actor and a user-scoped logger on the
// request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractBearerToken(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		actor, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			h.Logger.Info("auth middleware: token rejected", "error", err)
			h.HandleServiceError(w, err)
			return
		}

		ctx := internal.ContextWithActor(r.Context(), actor)
		ctx = logger.With(ctx, "user_id", actor.ID, "organization_id", actor.OrganizationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
