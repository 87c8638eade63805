package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/user"
)

// RequirePermissionLevels rejects callers whose permission level is not one
// of levels. It must run after the auth middleware.
func RequirePermissionLevels(levels ...user.PermissionLevel) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := internal.ActorFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if !HasPermissionLevel(actor, levels...) {
				slog.WarnContext(r.Context(), "access denied: permission level not allowed",
					"user_id", actor.ID,
					"permission_level", actor.PermissionLevel,
					"required_levels", levels)
				writeError(w, http.StatusForbidden, "forbidden: insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func HasPermissionLevel(actor *internal.Actor, levels ...user.PermissionLevel) bool {
	if actor == nil {
		return false
	}
	for _, l := range levels {
		if user.PermissionLevel(actor.PermissionLevel) == l {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    status,
		"message": message,
	})
}
