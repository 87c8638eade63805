package rule

import (
	"strings"

	"github.com/shopspring/decimal"

	ruleDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/rule"
)

const (
	NumberLowValue    = "1"
	NumberHighValue   = "2"
	NumberHighValueV3 = "3"

	defaultCurrency = "USD"
)

type Rule struct {
	ID                        string          `json:"id"`
	OrganizationID            string          `json:"organization_id"`
	Number                    string          `json:"number"`
	Description               string          `json:"description"`
	Threshold                 decimal.Decimal `json:"threshold"`
	Currency                  string          `json:"currency"`
	UOM                       string          `json:"uom"`
	Active                    bool            `json:"active"`
	UpwardVarianceThreshold   decimal.Decimal `json:"upward_variance_threshold"`
	DownwardVarianceThreshold decimal.Decimal `json:"downward_variance_threshold"`
}

// ThresholdCurrency is the currency amounts are normalized into before the
// rule is compared. Older records only carry the code in uom.
func (r Rule) ThresholdCurrency() string {
	if c := strings.ToUpper(strings.TrimSpace(r.Currency)); c != "" {
		return c
	}
	if u := strings.ToUpper(strings.TrimSpace(r.UOM)); len(u) == 3 {
		return u
	}
	return defaultCurrency
}

type Threshold struct {
	RuleNumber string          `json:"rule_number"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// Thresholds is the pair of limits the approval checks run against. Either
// side may be nil when the organization has not configured it.
type Thresholds struct {
	Rule1     *Threshold `json:"rule1,omitempty"`
	HighValue *Threshold `json:"high_value,omitempty"`
}

func (t Thresholds) Configured() bool {
	return t.Rule1 != nil || t.HighValue != nil
}

// Resolve picks active Rule 1 and the high-value rule from an organization's
// rule set. Rule 2 wins over Rule 3 when both exist.
func Resolve(rules []Rule) Thresholds {
	var out Thresholds
	var rule3 *Threshold

	for _, r := range rules {
		if !r.Active {
			continue
		}
		t := &Threshold{
			RuleNumber: r.Number,
			Amount:     r.Threshold,
			Currency:   r.ThresholdCurrency(),
		}
		switch normalizeNumber(r.Number) {
		case NumberLowValue:
			if out.Rule1 == nil {
				out.Rule1 = t
			}
		case NumberHighValue:
			if out.HighValue == nil {
				out.HighValue = t
			}
		case NumberHighValueV3:
			if rule3 == nil {
				rule3 = t
			}
		}
	}

	if out.HighValue == nil {
		out.HighValue = rule3
	}
	return out
}

// normalizeNumber accepts "1", "Rule 1" and "rule1".
func normalizeNumber(n string) string {
	n = strings.ToLower(strings.TrimSpace(n))
	n = strings.TrimPrefix(n, "rule")
	return strings.TrimSpace(n)
}

func FromDataModel(r *ruleDatamodel.Rule) Rule {
	return Rule{
		ID:                        r.ID,
		OrganizationID:            r.OrganizationID,
		Number:                    r.Number,
		Description:               r.Description,
		Threshold:                 r.Threshold,
		Currency:                  r.Currency,
		UOM:                       r.UOM,
		Active:                    r.Active,
		UpwardVarianceThreshold:   r.UpwardVarianceThreshold,
		DownwardVarianceThreshold: r.DownwardVarianceThreshold,
	}
}

func ToDataModel(r Rule) *ruleDatamodel.Rule {
	return &ruleDatamodel.Rule{
		ID:                        r.ID,
		OrganizationID:            r.OrganizationID,
		Number:                    r.Number,
		Description:               r.Description,
		Threshold:                 r.Threshold,
		Currency:                  r.Currency,
		UOM:                       r.UOM,
		Active:                    r.Active,
		UpwardVarianceThreshold:   r.UpwardVarianceThreshold,
		DownwardVarianceThreshold: r.DownwardVarianceThreshold,
	}
}
