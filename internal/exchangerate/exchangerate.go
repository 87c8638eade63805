package exchangerate

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Source records which tier produced a rate.
type Source string

const (
	SourceSameCurrency    Source = "same_currency"
	SourcePegged          Source = "pegged"
	SourceLiveAPI         Source = "live_api"
	SourceCrossConversion Source = "cross_conversion"
	SourceFallbackStatic  Source = "fallback_static"
	SourcePersisted       Source = "persisted_store"
)

// Resolution is the outcome of a rate lookup. Degraded is set when every tier
// failed and the identity rate was substituted.
type Resolution struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Rate     decimal.Decimal `json:"rate"`
	Source   Source          `json:"source"`
	Provider string          `json:"provider,omitempty"`
	Degraded bool            `json:"degraded"`
}

// Convert applies the resolved rate to an amount.
func (r Resolution) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.Rate)
}

// RateFetcher pulls the full table of rates for a base currency from a live
// provider.
type RateFetcher interface {
	Name() string
	FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// RateStore looks up a persisted direct rate. found is false when no record
// exists for the pair.
type RateStore interface {
	FindRate(ctx context.Context, from, to string) (rate decimal.Decimal, found bool, err error)
}

var (
	ErrRateLimited      = errors.New("rate service request throttled")
	ErrUnexpectedStatus = errors.New("rate service returned unexpected status")
)

var one = decimal.NewFromInt(1)

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
