package purchaserequest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/transport"
	"github.com/frahmantamala/procurement/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor *internal.Actor, dto CreatePurchaseRequestDTO) (*PurchaseRequest, error)
	Get(ctx context.Context, id string, actor *internal.Actor) (*PurchaseRequest, error)
	AddQuote(ctx context.Context, id string, actor *internal.Actor, dto QuoteDTO) (*PurchaseRequest, error)
	UpdateStatus(ctx context.Context, id string, actor *internal.Actor, dto UpdateStatusDTO) (*PurchaseRequest, error)
	Approve(ctx context.Context, id string, actor *internal.Actor, dto ApproveDTO) (*PurchaseRequest, error)
	ResolveQuoteConflict(ctx context.Context, id string, actor *internal.Actor, dto ResolveQuoteConflictDTO) (*PurchaseRequest, error)
	Validate(ctx context.Context, id string, actor *internal.Actor, target string) (*ValidationResult, error)
	ListQuoteConflicts(ctx context.Context, organizationID string) ([]*PurchaseRequest, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     service,
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*internal.Actor, bool) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return actor, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Logger.Info("invalid request body", "path", r.URL.Path, "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// Create handles POST /purchase-requests
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto CreatePurchaseRequestDTO
	if !h.decode(w, r, &dto) {
		return
	}

	pr, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, pr)
}

// Get handles GET /purchase-requests/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	pr, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, pr)
}

// AddQuote handles POST /purchase-requests/{id}/quotes
func (h *Handler) AddQuote(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto QuoteDTO
	if !h.decode(w, r, &dto) {
		return
	}
	pr, err := h.Service.AddQuote(r.Context(), chi.URLParam(r, "id"), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, pr)
}

// UpdateStatus handles PATCH /purchase-requests/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto UpdateStatusDTO
	if !h.decode(w, r, &dto) {
		return
	}
	pr, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, pr)
}

// Approve handles POST /purchase-requests/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto ApproveDTO
	if !h.decode(w, r, &dto) {
		return
	}
	pr, err := h.Service.Approve(r.Context(), chi.URLParam(r, "id"), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, pr)
}

// ResolveQuoteConflict handles POST /purchase-requests/{id}/quote-conflict/resolve
func (h *Handler) ResolveQuoteConflict(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto ResolveQuoteConflictDTO
	if !h.decode(w, r, &dto) {
		return
	}
	pr, err := h.Service.ResolveQuoteConflict(r.Context(), chi.URLParam(r, "id"), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, pr)
}

// Validate handles POST /purchase-requests/{id}/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto ValidateDTO
	if !h.decode(w, r, &dto) {
		return
	}
	result, err := h.Service.Validate(r.Context(), chi.URLParam(r, "id"), actor, dto.TargetStatus)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// ListQuoteConflicts handles GET /purchase-requests/quote-conflicts
func (h *Handler) ListQuoteConflicts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	prs, err := h.Service.ListQuoteConflicts(r.Context(), actor.OrganizationID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"purchase_requests": prs,
		"count":             len(prs),
	})
}
