package purchaserequest

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/procurement/internal"
)

// ValidationResult is the outcome of an approval check. Business-rule
// failures are reported in Errors, never as a Go error.
type ValidationResult struct {
	IsValid              bool            `json:"is_valid"`
	Errors               []string        `json:"errors"`
	RequiresDualApproval bool            `json:"requires_dual_approval"`
	NormalizedAmount     decimal.Decimal `json:"normalized_amount"`
	NormalizedCurrency   string          `json:"normalized_currency,omitempty"`
	RateDegraded         bool            `json:"rate_degraded"`
}

type Validator interface {
	Validate(ctx context.Context, pr *PurchaseRequest, actor *internal.Actor, target Status) ValidationResult
}
