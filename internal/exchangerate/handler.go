package exchangerate

import (
	"context"
	"net/http"

	"github.com/frahmantamala/procurement/internal/transport"
	"github.com/frahmantamala/procurement/pkg/logger"
)

type ResolverAPI interface {
	Resolve(ctx context.Context, from, to string) Resolution
}

type Handler struct {
	*transport.BaseHandler
	Resolver ResolverAPI
}

func NewHandler(resolver ResolverAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Resolver:    resolver,
	}
}

// GetRate handles GET /exchange-rates?from=USD&to=LSL.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	from := normalizeCode(r.URL.Query().Get("from"))
	to := normalizeCode(r.URL.Query().Get("to"))
	if len(from) != 3 || len(to) != 3 {
		h.WriteError(w, http.StatusBadRequest, "from and to must be ISO 4217 currency codes")
		return
	}

	res := h.Resolver.Resolve(r.Context(), from, to)
	h.WriteJSON(w, http.StatusOK, res)
}
