package quote

import "github.com/shopspring/decimal"

const (
	countOptional = 0
	countSingle   = 1
	countTriple   = 3
)

// highValueMultiple is how many times Rule 1 an amount may reach before three
// quotes are needed even for an approved vendor.
var highValueMultiple = decimal.NewFromInt(4)

type Requirement struct {
	MinimumCount        int    `json:"minimum_count"`
	AttachmentsRequired bool   `json:"attachments_required"`
	Reason              Reason `json:"reason"`
}

type Reason string

const (
	ReasonBelowRule1       Reason = "below_rule1"
	ReasonHighValue        Reason = "high_value"
	ReasonMultipleOfRule1  Reason = "multiple_of_rule1"
	ReasonApprovedVendor   Reason = "approved_vendor"
	ReasonUnapprovedVendor Reason = "unapproved_vendor"
	ReasonNoRule1          Reason = "rule1_not_configured"
)

// RequiredQuotes decides how many quotes an amount needs. The amount and both
// thresholds must already be in the same currency. An invalid rule2 means the
// organization has no high-value rule.
func RequiredQuotes(amount decimal.Decimal, rule1, rule2 decimal.NullDecimal, vendorApproved bool) Requirement {
	if rule2.Valid && amount.GreaterThanOrEqual(rule2.Decimal) {
		return Requirement{MinimumCount: countTriple, AttachmentsRequired: true, Reason: ReasonHighValue}
	}
	if !rule1.Valid {
		return Requirement{MinimumCount: countOptional, Reason: ReasonNoRule1}
	}
	if amount.LessThan(rule1.Decimal) {
		return Requirement{MinimumCount: countOptional, Reason: ReasonBelowRule1}
	}
	if amount.GreaterThanOrEqual(rule1.Decimal.Mul(highValueMultiple)) {
		return Requirement{MinimumCount: countTriple, AttachmentsRequired: true, Reason: ReasonMultipleOfRule1}
	}
	if vendorApproved {
		return Requirement{MinimumCount: countSingle, AttachmentsRequired: true, Reason: ReasonApprovedVendor}
	}
	return Requirement{MinimumCount: countTriple, AttachmentsRequired: true, Reason: ReasonUnapprovedVendor}
}

// IsValidQuote reports whether a quote counts toward the requirement. Quotes
// under Rule 1 count without an attachment.
func IsValidQuote(amount decimal.Decimal, rule1 decimal.NullDecimal, attachments int) bool {
	if rule1.Valid && amount.LessThan(rule1.Decimal) {
		return true
	}
	return attachments > 0
}
