package exchangerate

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

const providerPersisted = "exchange_rates"

// Resolver resolves a rate between two currency codes. It always returns a
// usable rate; callers inspect Source and Degraded to learn how it was found.
type Resolver struct {
	cache          *Cache
	fetcher        RateFetcher
	store          RateStore
	static         *StaticTable
	intermediaries []string
	logger         *slog.Logger
}

type Option func(*Resolver)

func WithStaticTable(t *StaticTable) Option {
	return func(r *Resolver) { r.static = t }
}

func WithIntermediaries(codes ...string) Option {
	return func(r *Resolver) { r.intermediaries = codes }
}

// NewResolver wires the tiers together. fetcher and store may be nil, which
// disables the live and persisted tiers respectively.
func NewResolver(cache *Cache, fetcher RateFetcher, store RateStore, logger *slog.Logger, opts ...Option) *Resolver {
	if cache == nil {
		cache = NewCache(DefaultCacheTTL, nil)
	}
	r := &Resolver{
		cache:          cache,
		fetcher:        fetcher,
		store:          store,
		static:         DefaultStaticTable(),
		intermediaries: defaultIntermediaries,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(ctx context.Context, from, to string) Resolution {
	from, to = normalizeCode(from), normalizeCode(to)
	res := Resolution{From: from, To: to, Rate: one, Source: SourceSameCurrency}

	if from == to {
		return res
	}
	if from == "" || to == "" {
		r.logger.Warn("rate requested with empty currency code", "from", from, "to", to)
		res.Degraded = true
		return res
	}

	if IsPegged(from, to) {
		res.Source = SourcePegged
		return res
	}

	table, live := r.liveTable(ctx, from)
	if live {
		if rate, found := table[to]; found && rate.IsPositive() {
			res.Rate, res.Source, res.Provider = rate, SourceLiveAPI, r.fetcher.Name()
			return res
		}
	}

	// A missing from table only removes the live first leg; static, pegged
	// and live second legs are still tried.
	if rate, usedLive, found := r.crossConvert(ctx, from, to, table); found {
		res.Rate, res.Source = rate, SourceCrossConversion
		if usedLive {
			res.Provider = r.fetcher.Name()
		}
		return res
	}

	if rate, ok := r.static.Lookup(from, to); ok {
		res.Rate, res.Source = rate, SourceFallbackStatic
		return res
	}

	if rate, ok := r.persisted(ctx, from, to); ok {
		res.Rate, res.Source, res.Provider = rate, SourcePersisted, providerPersisted
		return res
	}

	r.logger.Warn("no exchange rate tier resolved pair, using identity rate",
		"from", from,
		"to", to)
	res.Degraded = true
	return res
}

// Convert resolves the rate and applies it to amount in one step.
func (r *Resolver) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, Resolution) {
	res := r.Resolve(ctx, from, to)
	return res.Convert(amount), res
}

func (r *Resolver) liveTable(ctx context.Context, base string) (map[string]decimal.Decimal, bool) {
	if r.fetcher == nil {
		return nil, false
	}
	if entry, ok := r.cache.Get(base); ok {
		return entry.Rates, true
	}

	rates, err := r.fetcher.FetchRates(ctx, base)
	if err != nil {
		r.logger.Warn("live rate lookup failed", "base", base, "provider", r.fetcher.Name(), "error", err)
		return nil, false
	}
	entry := r.cache.Set(base, rates)
	return entry.Rates, true
}

// crossConvert multiplies from->via and via->to legs, preferring static or
// pegged legs over live ones. fromTable may be nil when the live table for
// from is unavailable. usedLive reports whether either leg came from the
// live provider.
func (r *Resolver) crossConvert(ctx context.Context, from, to string, fromTable map[string]decimal.Decimal) (rate decimal.Decimal, usedLive bool, found bool) {
	for _, via := range r.viaOrder(from) {
		if via == from || via == to {
			continue
		}

		liveLeg := false
		first, ok := r.staticLeg(from, via)
		if !ok {
			first, ok = fromTable[via]
			ok = ok && first.IsPositive()
			liveLeg = ok
		}
		if !ok {
			continue
		}

		second, ok := r.staticLeg(via, to)
		if !ok {
			if viaTable, live := r.liveTable(ctx, via); live {
				second, ok = viaTable[to]
				ok = ok && second.IsPositive()
				liveLeg = liveLeg || ok
			}
		}
		if !ok {
			continue
		}

		r.logger.Debug("cross conversion resolved", "from", from, "to", to, "via", via, "live", liveLeg)
		return first.Mul(second), liveLeg, true
	}
	return decimal.Zero, false, false
}

// viaOrder lists the intermediaries with those pegged to from first, since
// their first leg is exact.
func (r *Resolver) viaOrder(from string) []string {
	pegged := make([]string, 0, len(r.intermediaries))
	rest := make([]string, 0, len(r.intermediaries))
	for _, via := range r.intermediaries {
		via = normalizeCode(via)
		if IsPegged(from, via) {
			pegged = append(pegged, via)
		} else {
			rest = append(rest, via)
		}
	}
	return append(pegged, rest...)
}

func (r *Resolver) staticLeg(from, to string) (decimal.Decimal, bool) {
	if IsPegged(from, to) {
		return one, true
	}
	return r.static.Lookup(from, to)
}

func (r *Resolver) persisted(ctx context.Context, from, to string) (decimal.Decimal, bool) {
	if r.store == nil {
		return decimal.Zero, false
	}
	rate, found, err := r.store.FindRate(ctx, from, to)
	if err != nil {
		r.logger.Warn("persisted rate lookup failed", "from", from, "to", to, "error", err)
	} else if found && rate.IsPositive() {
		return rate, true
	}

	rate, found, err = r.store.FindRate(ctx, to, from)
	if err != nil {
		r.logger.Warn("persisted rate lookup failed", "from", to, "to", from, "error", err)
		return decimal.Zero, false
	}
	if found && rate.IsPositive() {
		return one.Div(rate), true
	}
	return decimal.Zero, false
}
