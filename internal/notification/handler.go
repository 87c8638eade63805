package notification

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
	"github.com/frahmantamala/procurement/internal/transport"
	"github.com/frahmantamala/procurement/pkg/logger"
)

// PurchaseRequestAccess resolves a PR on behalf of an actor, enforcing the
// organization boundary.
type PurchaseRequestAccess interface {
	Get(ctx context.Context, id string, actor *internal.Actor) (*purchaserequest.PurchaseRequest, error)
}

type HistoryReader interface {
	ListByPurchaseRequest(ctx context.Context, prID string) ([]*Log, error)
}

type Handler struct {
	*transport.BaseHandler
	PurchaseRequests PurchaseRequestAccess
	History          HistoryReader
}

func NewHandler(prs PurchaseRequestAccess, history HistoryReader) *Handler {
	return &Handler{
		BaseHandler:      transport.NewBaseHandler(logger.LoggerWrapper()),
		PurchaseRequests: prs,
		History:          history,
	}
}

// ListByPurchaseRequest handles GET /purchase-requests/{id}/notifications
func (h *Handler) ListByPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	pr, err := h.PurchaseRequests.Get(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	logs, err := h.History.ListByPurchaseRequest(r.Context(), pr.ID)
	if err != nil {
		h.Logger.Error("failed to list notifications", "pr_id", pr.ID, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": logs,
		"count":         len(logs),
	})
}
