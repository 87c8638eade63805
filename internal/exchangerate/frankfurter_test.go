package exchangerate_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/procurement/internal/exchangerate"
)

var _ = Describe("FrankfurterClient", func() {
	var (
		server  *httptest.Server
		logger  *slog.Logger
		handler http.HandlerFunc
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newClient := func(timeout time.Duration, burst int) *exchangerate.FrankfurterClient {
		return exchangerate.NewFrankfurterClient(exchangerate.ClientConfig{
			BaseURL:           server.URL + "/",
			Timeout:           timeout,
			RequestsPerSecond: 0.001,
			Burst:             burst,
		}, logger)
	}

	It("decodes the rate table for the requested base", func() {
		var gotPath, gotFrom string
		handler = func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotFrom = r.URL.Query().Get("from")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"amount":1.0,"base":"USD","date":"2026-10-16","rates":{"EUR":0.9213,"ZAR":18.41}}`))
		}

		rates, err := newClient(time.Second, 5).FetchRates(context.Background(), "USD")
		Expect(err).ToNot(HaveOccurred())
		Expect(gotPath).To(Equal("/latest"))
		Expect(gotFrom).To(Equal("USD"))
		Expect(rates).To(HaveLen(2))
		Expect(rates["EUR"].String()).To(Equal("0.9213"))
		Expect(rates["ZAR"].String()).To(Equal("18.41"))
	})

	It("wraps non-200 responses", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
		}

		_, err := newClient(time.Second, 5).FetchRates(context.Background(), "XXX")
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, exchangerate.ErrUnexpectedStatus)).To(BeTrue())
	})

	It("gives up after the configured timeout", func() {
		release := make(chan struct{})
		handler = func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}
		defer close(release)

		start := time.Now()
		_, err := newClient(50*time.Millisecond, 5).FetchRates(context.Background(), "USD")
		Expect(err).To(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
	})

	It("fails fast once the burst is spent", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"rates":{"EUR":0.92}}`))
		}
		client := newClient(time.Second, 1)

		_, err := client.FetchRates(context.Background(), "USD")
		Expect(err).ToNot(HaveOccurred())

		_, err = client.FetchRates(context.Background(), "USD")
		Expect(errors.Is(err, exchangerate.ErrRateLimited)).To(BeTrue())
	})

	It("reports its provider name", func() {
		Expect(newClient(time.Second, 1).Name()).To(Equal("frankfurter"))
	})
})

var _ = Describe("Handler", func() {
	It("rejects malformed currency codes", func() {
		h := exchangerate.NewHandler(exchangerate.NewResolver(nil, nil, nil, slog.Default()))
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/exchange-rates?from=US&to=LSL", nil)

		h.GetRate(rec, req)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns the resolution as JSON", func() {
		h := exchangerate.NewHandler(exchangerate.NewResolver(nil, nil, nil, slog.Default()))
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/exchange-rates?from=zar&to=LSL", nil)

		h.GetRate(rec, req)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"source":"pegged"`))
		Expect(rec.Body.String()).To(ContainSubstring(`"rate":"1"`))
	})
})
