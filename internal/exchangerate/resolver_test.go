package exchangerate_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/procurement/internal/exchangerate"
)

type mockFetcher struct {
	tables map[string]map[string]decimal.Decimal
	err    error
	calls  map[string]int
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		tables: make(map[string]map[string]decimal.Decimal),
		calls:  make(map[string]int),
	}
}

func (m *mockFetcher) Name() string { return "mock" }

func (m *mockFetcher) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	m.calls[base]++
	if m.err != nil {
		return nil, m.err
	}
	table, ok := m.tables[base]
	if !ok {
		return nil, errors.New("unknown base")
	}
	return table, nil
}

type mockStore struct {
	rates map[[2]string]decimal.Decimal
	err   error
}

func (m *mockStore) FindRate(ctx context.Context, from, to string) (decimal.Decimal, bool, error) {
	if m.err != nil {
		return decimal.Zero, false, m.err
	}
	rate, ok := m.rates[[2]string{from, to}]
	return rate, ok, nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var _ = Describe("Resolver", func() {
	var (
		ctx      context.Context
		fetcher  *mockFetcher
		store    *mockStore
		cache    *exchangerate.Cache
		now      time.Time
		resolver *exchangerate.Resolver
		logger   *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
		fetcher = newMockFetcher()
		store = &mockStore{rates: make(map[[2]string]decimal.Decimal)}
		cache = exchangerate.NewCache(time.Hour, func() time.Time { return now })
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		resolver = exchangerate.NewResolver(cache, fetcher, store, logger)
	})

	Describe("identity", func() {
		It("returns rate 1 from same_currency for identical codes", func() {
			for _, code := range []string{"USD", "LSL", "EUR", "XYZ"} {
				res := resolver.Resolve(ctx, code, code)
				Expect(res.Rate.Equal(decimal.NewFromInt(1))).To(BeTrue())
				Expect(res.Source).To(Equal(exchangerate.SourceSameCurrency))
				Expect(res.Degraded).To(BeFalse())
			}
			Expect(fetcher.calls).To(BeEmpty())
		})

		It("normalizes case before comparing", func() {
			res := resolver.Resolve(ctx, "usd", " USD ")
			Expect(res.Source).To(Equal(exchangerate.SourceSameCurrency))
			Expect(res.Degraded).To(BeFalse())
		})
	})

	Describe("pegged pairs", func() {
		It("resolves 1:1 in both directions even when the live service is down", func() {
			fetcher.err = errors.New("connection refused")

			forward := resolver.Resolve(ctx, "LSL", "ZAR")
			backward := resolver.Resolve(ctx, "ZAR", "LSL")

			Expect(forward.Source).To(Equal(exchangerate.SourcePegged))
			Expect(backward.Source).To(Equal(exchangerate.SourcePegged))
			Expect(forward.Rate.Equal(decimal.NewFromInt(1))).To(BeTrue())
			Expect(backward.Rate.Equal(decimal.NewFromInt(1))).To(BeTrue())
			Expect(fetcher.calls).To(BeEmpty())
		})
	})

	Describe("live lookup", func() {
		BeforeEach(func() {
			fetcher.tables["USD"] = map[string]decimal.Decimal{"EUR": d("0.92"), "ZAR": d("18.40")}
		})

		It("returns the live rate and caches the table", func() {
			res := resolver.Resolve(ctx, "USD", "EUR")
			Expect(res.Source).To(Equal(exchangerate.SourceLiveAPI))
			Expect(res.Provider).To(Equal("mock"))
			Expect(res.Rate.Equal(d("0.92"))).To(BeTrue())

			resolver.Resolve(ctx, "USD", "ZAR")
			Expect(fetcher.calls["USD"]).To(Equal(1))
		})

		It("refetches once the cached entry is older than the TTL", func() {
			resolver.Resolve(ctx, "USD", "EUR")
			now = now.Add(59 * time.Minute)
			resolver.Resolve(ctx, "USD", "EUR")
			Expect(fetcher.calls["USD"]).To(Equal(1))

			now = now.Add(2 * time.Minute)
			fetcher.tables["USD"] = map[string]decimal.Decimal{"EUR": d("0.95")}
			res := resolver.Resolve(ctx, "USD", "EUR")
			Expect(fetcher.calls["USD"]).To(Equal(2))
			Expect(res.Rate.Equal(d("0.95"))).To(BeTrue())
		})

		It("replaces the cached table instead of merging it", func() {
			resolver.Resolve(ctx, "USD", "EUR")
			now = now.Add(2 * time.Hour)
			fetcher.tables["USD"] = map[string]decimal.Decimal{"ZAR": d("18.50")}
			resolver.Resolve(ctx, "USD", "ZAR")

			entry, ok := cache.Get("USD")
			Expect(ok).To(BeTrue())
			Expect(entry.Rates).To(HaveLen(1))
			Expect(entry.Rates).To(HaveKey("ZAR"))
		})
	})

	Describe("cross conversion", func() {
		It("chains a live leg with a pegged leg through an intermediary", func() {
			fetcher.tables["USD"] = map[string]decimal.Decimal{"ZAR": d("18.40")}

			res := resolver.Resolve(ctx, "USD", "LSL")
			Expect(res.Source).To(Equal(exchangerate.SourceCrossConversion))
			Expect(res.Rate.Equal(d("18.40"))).To(BeTrue())
		})

		It("chains two live legs when no static leg exists", func() {
			resolver = exchangerate.NewResolver(cache, fetcher, store, logger,
				exchangerate.WithStaticTable(exchangerate.NewStaticTable(nil)),
				exchangerate.WithIntermediaries("EUR"))
			fetcher.tables["GBP"] = map[string]decimal.Decimal{"EUR": d("1.15")}
			fetcher.tables["EUR"] = map[string]decimal.Decimal{"XAF": d("655.957")}

			res := resolver.Resolve(ctx, "GBP", "XAF")
			Expect(res.Source).To(Equal(exchangerate.SourceCrossConversion))
			Expect(res.Rate.Equal(d("1.15").Mul(d("655.957")))).To(BeTrue())
		})

		Context("when the live table for the base currency is unavailable", func() {
			It("chains static and pegged legs while the live service is down", func() {
				fetcher.err = errors.New("timeout")
				inv := func(s string) decimal.Decimal { return decimal.NewFromInt(1).Div(d(s)) }

				lslKes := resolver.Resolve(ctx, "LSL", "KES")
				Expect(lslKes.Source).To(Equal(exchangerate.SourceCrossConversion))
				Expect(lslKes.Rate.Equal(inv("18.50").Mul(d("129.50")))).To(BeTrue())
				Expect(lslKes.Provider).To(BeEmpty())
				Expect(lslKes.Degraded).To(BeFalse())

				lslBwp := resolver.Resolve(ctx, "LSL", "BWP")
				Expect(lslBwp.Source).To(Equal(exchangerate.SourceCrossConversion))
				Expect(lslBwp.Rate.Equal(d("0.735"))).To(BeTrue())

				bwpKes := resolver.Resolve(ctx, "BWP", "KES")
				Expect(bwpKes.Source).To(Equal(exchangerate.SourceCrossConversion))
				Expect(bwpKes.Rate.Equal(inv("13.60").Mul(d("129.50")))).To(BeTrue())
			})

			It("uses the peg anchor's live table when the provider does not quote the base", func() {
				fetcher.tables["ZAR"] = map[string]decimal.Decimal{"EUR": d("0.05")}
				fetcher.tables["USD"] = map[string]decimal.Decimal{"EUR": d("0.92")}

				res := resolver.Resolve(ctx, "LSL", "EUR")
				Expect(fetcher.calls["LSL"]).To(Equal(1))
				Expect(res.Source).To(Equal(exchangerate.SourceCrossConversion))
				Expect(res.Provider).To(Equal("mock"))
				Expect(res.Rate.Equal(d("0.05"))).To(BeTrue())
				Expect(res.Degraded).To(BeFalse())
			})
		})
	})

	Describe("static fallback", func() {
		BeforeEach(func() {
			fetcher.err = errors.New("timeout")
		})

		It("uses the direct static rate when the live service fails", func() {
			res := resolver.Resolve(ctx, "USD", "KES")
			Expect(res.Source).To(Equal(exchangerate.SourceFallbackStatic))
			Expect(res.Rate.Equal(d("129.50"))).To(BeTrue())
		})

		It("produces multiplicative inverses for opposite directions", func() {
			pairs := [][2]string{{"USD", "KES"}, {"USD", "MWK"}, {"ZAR", "BWP"}, {"USD", "LSL"}}
			for _, p := range pairs {
				forward := resolver.Resolve(ctx, p[0], p[1])
				backward := resolver.Resolve(ctx, p[1], p[0])
				if forward.Source == exchangerate.SourcePegged {
					continue
				}
				Expect(forward.Source).To(Equal(exchangerate.SourceFallbackStatic))
				Expect(backward.Source).To(Equal(exchangerate.SourceFallbackStatic))
				product := forward.Rate.Mul(backward.Rate)
				Expect(product.Sub(decimal.NewFromInt(1)).Abs().LessThan(d("0.000000001"))).To(BeTrue(), p[0]+"/"+p[1])
			}
		})
	})

	Describe("persisted store", func() {
		BeforeEach(func() {
			fetcher.err = errors.New("timeout")
		})

		It("returns a direct persisted rate", func() {
			store.rates[[2]string{"CHF", "XOF"}] = d("690")
			res := resolver.Resolve(ctx, "CHF", "XOF")
			Expect(res.Source).To(Equal(exchangerate.SourcePersisted))
			Expect(res.Rate.Equal(d("690"))).To(BeTrue())
		})

		It("inverts a persisted rate stored the other way round", func() {
			store.rates[[2]string{"XOF", "CHF"}] = d("0.0016")
			res := resolver.Resolve(ctx, "CHF", "XOF")
			Expect(res.Source).To(Equal(exchangerate.SourcePersisted))
			Expect(res.Rate.Equal(d("625"))).To(BeTrue())
		})
	})

	Describe("all tiers failing", func() {
		It("degrades to the identity rate and flags it", func() {
			fetcher.err = errors.New("timeout")
			store.err = errors.New("db down")

			res := resolver.Resolve(ctx, "CHF", "XOF")
			Expect(res.Rate.Equal(decimal.NewFromInt(1))).To(BeTrue())
			Expect(res.Source).To(Equal(exchangerate.SourceSameCurrency))
			Expect(res.Degraded).To(BeTrue())
		})

		It("works without fetcher or store", func() {
			bare := exchangerate.NewResolver(nil, nil, nil, logger)
			res := bare.Resolve(ctx, "CHF", "XOF")
			Expect(res.Degraded).To(BeTrue())
		})
	})

	Describe("Convert", func() {
		It("applies the resolved rate", func() {
			fetcher.tables["EUR"] = map[string]decimal.Decimal{"USD": d("1.10")}
			amount, res := resolver.Convert(ctx, d("100"), "EUR", "USD")
			Expect(res.Source).To(Equal(exchangerate.SourceLiveAPI))
			Expect(amount.Equal(d("110"))).To(BeTrue())
		})
	})
})
