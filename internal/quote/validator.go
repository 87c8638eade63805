package quote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/procurement/internal/exchangerate"
	"github.com/frahmantamala/procurement/internal/rule"
)

type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, exchangerate.Resolution)
}

type Item struct {
	ID          string
	VendorID    string
	Amount      decimal.Decimal
	Currency    string
	Attachments int
}

type Input struct {
	EstimatedAmount   decimal.Decimal
	Currency          string
	Quotes            []Item
	Thresholds        rule.Thresholds
	VendorApproved    bool
	PreferredVendorID string
}

// Normalized carries the comparison amount and both thresholds expressed in
// one currency, so later checks need no further conversion.
type Normalized struct {
	Amount    decimal.Decimal     `json:"amount"`
	Currency  string              `json:"currency"`
	Rule1     decimal.NullDecimal `json:"rule1"`
	HighValue decimal.NullDecimal `json:"high_value"`
	FromQuote bool                `json:"from_quote"`
}

type Evaluation struct {
	Requirement  Requirement               `json:"requirement"`
	Normalized   Normalized                `json:"normalized"`
	ValidQuotes  int                       `json:"valid_quotes"`
	Errors       []string                  `json:"errors,omitempty"`
	RateSources  []exchangerate.Resolution `json:"rate_sources,omitempty"`
	RateDegraded bool                      `json:"rate_degraded"`
}

func (e Evaluation) Satisfied() bool {
	return len(e.Errors) == 0
}

type Validator struct {
	converter Converter
	logger    *slog.Logger
}

func NewValidator(converter Converter, logger *slog.Logger) *Validator {
	return &Validator{converter: converter, logger: logger}
}

// Evaluate normalizes every amount into the Rule 1 currency (or the
// high-value rule's currency when Rule 1 is absent) and checks the quote
// count against the requirement.
func (v *Validator) Evaluate(ctx context.Context, in Input) Evaluation {
	var ev Evaluation

	target := comparisonCurrency(in.Thresholds)
	ev.Normalized.Currency = target

	if t := in.Thresholds.Rule1; t != nil {
		ev.Normalized.Rule1 = decimal.NewNullDecimal(v.convert(ctx, &ev, t.Amount, t.Currency, target))
	}
	if t := in.Thresholds.HighValue; t != nil {
		ev.Normalized.HighValue = decimal.NewNullDecimal(v.convert(ctx, &ev, t.Amount, t.Currency, target))
	}

	var lowest *decimal.Decimal
	for _, q := range in.Quotes {
		amount := v.convert(ctx, &ev, q.Amount, q.Currency, target)
		if IsValidQuote(amount, ev.Normalized.Rule1, q.Attachments) {
			ev.ValidQuotes++
		}
		if lowest == nil || amount.LessThan(*lowest) {
			a := amount
			lowest = &a
		}
	}

	if lowest != nil {
		ev.Normalized.Amount = *lowest
		ev.Normalized.FromQuote = true
	} else {
		ev.Normalized.Amount = v.convert(ctx, &ev, in.EstimatedAmount, in.Currency, target)
	}

	ev.Requirement = RequiredQuotes(ev.Normalized.Amount, ev.Normalized.Rule1, ev.Normalized.HighValue, in.VendorApproved)

	if ev.ValidQuotes < ev.Requirement.MinimumCount {
		ev.Errors = append(ev.Errors, shortfallMessage(ev, in))
	}

	if ev.RateDegraded {
		v.logger.Warn("quote check ran on a degraded exchange rate",
			"currency", in.Currency,
			"comparison_currency", target)
	}
	return ev
}

func (v *Validator) convert(ctx context.Context, ev *Evaluation, amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == "" || to == "" || from == to {
		return amount
	}
	converted, res := v.converter.Convert(ctx, amount, from, to)
	ev.RateSources = append(ev.RateSources, res)
	if res.Degraded {
		ev.RateDegraded = true
	}
	return converted
}

func comparisonCurrency(t rule.Thresholds) string {
	if t.Rule1 != nil {
		return t.Rule1.Currency
	}
	if t.HighValue != nil {
		return t.HighValue.Currency
	}
	return ""
}

func shortfallMessage(ev Evaluation, in Input) string {
	n := ev.Normalized
	var msg string
	switch ev.Requirement.Reason {
	case ReasonHighValue:
		msg = fmt.Sprintf("three quotes required above %s %s (high-value threshold), each with an attachment",
			formatAmount(n.HighValue.Decimal), n.Currency)
	case ReasonMultipleOfRule1:
		msg = fmt.Sprintf("three quotes required above %s %s (four times the Rule 1 threshold), each with an attachment",
			formatAmount(n.Rule1.Decimal.Mul(highValueMultiple)), n.Currency)
	case ReasonApprovedVendor:
		msg = fmt.Sprintf("one quote with an attachment required above %s %s for an approved vendor",
			formatAmount(n.Rule1.Decimal), n.Currency)
	default:
		msg = fmt.Sprintf("three quotes required above %s %s, each with an attachment",
			formatAmount(n.Rule1.Decimal), n.Currency)
		if in.PreferredVendorID != "" {
			msg += fmt.Sprintf("; preferred vendor %s is not approved", in.PreferredVendorID)
		}
	}
	return fmt.Sprintf("%s (%d valid quote(s) provided)", msg, ev.ValidQuotes)
}

func formatAmount(d decimal.Decimal) string {
	return d.Round(2).String()
}
