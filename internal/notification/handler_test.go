package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/notification"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
)

type prAccess struct {
	prs map[string]*purchaserequest.PurchaseRequest
}

func (p *prAccess) Get(ctx context.Context, id string, actor *internal.Actor) (*purchaserequest.PurchaseRequest, error) {
	pr, ok := p.prs[id]
	if !ok {
		return nil, internal.ErrPurchaseRequestNotFound
	}
	if actor.OrganizationID != pr.OrganizationID {
		return nil, internal.ErrUnauthorizedAccess
	}
	return pr, nil
}

type historyStub struct {
	logs map[string][]*notification.Log
	err  error
}

func (h *historyStub) ListByPurchaseRequest(ctx context.Context, prID string) ([]*notification.Log, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.logs[prID], nil
}

var _ = Describe("Notification Handler", func() {
	var (
		history *historyStub
		handler *notification.Handler
		router  *chi.Mux
	)

	serve := func(actor *internal.Actor, id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/purchase-requests/"+id+"/notifications", nil)
		if actor != nil {
			req = req.WithContext(internal.ContextWithActor(req.Context(), actor))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		history = &historyStub{logs: map[string][]*notification.Log{
			"pr-1": {
				{ID: "n-1", PRID: "pr-1", Type: "STATUS_CHANGE_NEW_TO_SUBMITTED", Status: notification.StatusSent},
				{ID: "n-2", PRID: "pr-1", Type: "QUOTE_CONFLICT", Status: notification.StatusFailed, Error: "smtp down"},
			},
		}}
		access := &prAccess{prs: map[string]*purchaserequest.PurchaseRequest{
			"pr-1": {ID: "pr-1", OrganizationID: "org-1"},
		}}
		handler = notification.NewHandler(access, history)
		router = chi.NewRouter()
		router.Get("/purchase-requests/{id}/notifications", handler.ListByPurchaseRequest)
	})

	It("lists the notification log of a purchase request", func() {
		w := serve(&internal.Actor{ID: "u-1", OrganizationID: "org-1"}, "pr-1")

		Expect(w.Code).To(Equal(http.StatusOK))
		var body struct {
			Notifications []notification.Log `json:"notifications"`
			Count         int                `json:"count"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Count).To(Equal(2))
		Expect(body.Notifications[1].Error).To(Equal("smtp down"))
	})

	It("hides purchase requests of other organizations", func() {
		w := serve(&internal.Actor{ID: "u-2", OrganizationID: "org-2"}, "pr-1")
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("returns 404 for an unknown purchase request", func() {
		w := serve(&internal.Actor{ID: "u-1", OrganizationID: "org-1"}, "missing")
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("requires an authenticated actor", func() {
		w := serve(nil, "pr-1")
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("reports store failures as 500", func() {
		history.err = errors.New("connection reset")
		w := serve(&internal.Actor{ID: "u-1", OrganizationID: "org-1"}, "pr-1")
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})
})
