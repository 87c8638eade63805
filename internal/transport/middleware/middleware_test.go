package middleware_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/routers"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/transport/middleware"
	"github.com/frahmantamala/procurement/internal/user"
	"github.com/frahmantamala/procurement/pkg/logger"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

var _ = Describe("CORS", func() {
	It("echoes an allowed origin", func() {
		h := middleware.CORS("https://app.example.com")(okHandler)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusTeapot))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.example.com"))
	})

	It("does not allow unknown origins", func() {
		h := middleware.CORS("https://app.example.com")(okHandler)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("answers preflight requests without calling the handler", func() {
		h := middleware.CORS("")(okHandler)
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://anywhere.example.com"))
	})
})

var _ = Describe("RequirePermissionLevels", func() {
	serve := func(actor *internal.Actor) int {
		h := middleware.RequirePermissionLevels(user.LevelAdmin, user.LevelProcurement)(okHandler)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if actor != nil {
			req = req.WithContext(internal.ContextWithActor(req.Context(), actor))
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	It("lets listed levels through", func() {
		Expect(serve(&internal.Actor{ID: "u-1", PermissionLevel: int(user.LevelProcurement)})).To(Equal(http.StatusTeapot))
	})

	It("forbids other levels", func() {
		Expect(serve(&internal.Actor{ID: "u-2", PermissionLevel: int(user.LevelRequester)})).To(Equal(http.StatusForbidden))
	})

	It("rejects anonymous callers", func() {
		Expect(serve(nil)).To(Equal(http.StatusUnauthorized))
	})
})

var _ = Describe("RequestID", func() {
	It("keeps an incoming trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace-ID", "trace-123")
		w := httptest.NewRecorder()
		middleware.RequestID(okHandler).ServeHTTP(w, req)

		Expect(w.Header().Get("X-Trace-ID")).To(Equal("trace-123"))
	})

	It("generates one when missing", func() {
		w := httptest.NewRecorder()
		middleware.RequestID(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})

	It("replaces trace ids that are oversized or not printable", func() {
		for _, bad := range []string{strings.Repeat("a", 200), "trace\x00id", "two words"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Trace-ID", bad)
			w := httptest.NewRecorder()
			middleware.RequestID(okHandler).ServeHTTP(w, req)

			got := w.Header().Get("X-Trace-ID")
			Expect(got).NotTo(Equal(bad))
			Expect(got).To(HaveLen(36))
		}
	})

	It("attaches the trace id to request logs", func() {
		buf := &bytes.Buffer{}
		slogger := slog.New(logger.NewContextHandler(slog.NewJSONHandler(buf, nil)))
		h := middleware.RequestID(middleware.LoggingMiddleware(slogger)(okHandler))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.Header.Set("X-Trace-ID", "trace-456")
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(buf.String()).To(ContainSubstring(`"trace_id":"trace-456"`))
	})
})

var _ = Describe("OpenAPIValidator", func() {
	var (
		router routers.Router
		h      http.Handler
	)

	BeforeEach(func() {
		var err error
		router, err = middleware.LoadOpenAPIRouter(context.Background(), "../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())

		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		h = middleware.OpenAPIValidator(router, slogger)(okHandler)
	})

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	It("passes a well formed purchase request", func() {
		w := post("/api/v1/purchase-requests", `{"description":"Laptops","estimated_amount":"1500.00","currency":"USD"}`)
		Expect(w.Code).To(Equal(http.StatusTeapot))
	})

	It("rejects a body missing required fields", func() {
		w := post("/api/v1/purchase-requests", `{"estimated_amount":10,"currency":"USD"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("invalid request body"))
	})

	It("rejects a resolve request without quote_id", func() {
		w := post("/api/v1/purchase-requests/pr-1/quote-conflict/resolve", `{"notes":"changed my mind"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects exchange rate lookups with missing parameters", func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/exchange-rates?from=USD", nil))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("leaves undocumented routes to the router", func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
		Expect(w.Code).To(Equal(http.StatusTeapot))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("converts a panic into a 500 without leaking the cause", func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 4}))
		h := middleware.RecoveryMiddleware(slogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("db password is hunter2")
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).NotTo(ContainSubstring("hunter2"))
	})
})

var _ = Describe("LoggingMiddleware", func() {
	var (
		buf *bytes.Buffer
		h   http.Handler
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		slogger := slog.New(slog.NewJSONHandler(buf, nil))
		h = middleware.LoggingMiddleware(slogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(body)
		}))
	})

	It("passes the body through while redacting the log", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase-requests",
			strings.NewReader(`{"description":"Laptops","requestor_email":"jane.doe@example.com","api_token":"abc"}`))
		req.Header.Set("Authorization", "Bearer secret-token")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(w.Body.String()).To(ContainSubstring("jane.doe@example.com"))

		logged := buf.String()
		Expect(logged).To(ContainSubstring("Laptops"))
		Expect(logged).NotTo(ContainSubstring("jane.doe@example.com"))
		Expect(logged).NotTo(ContainSubstring("secret-token"))
		Expect(logged).NotTo(ContainSubstring(`abc`))
		Expect(logged).To(ContainSubstring(`"status_code":201`))
	})
})
