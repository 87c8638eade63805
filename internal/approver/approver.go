package approver

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/procurement/internal/user"
)

// Ceiling is the largest amount a permission level may approve, expressed as
// a reference to one of the organization's thresholds.
type Ceiling int

const (
	CeilingNone Ceiling = iota
	CeilingRule1
	CeilingHighValue
	CeilingUnlimited
)

func (c Ceiling) String() string {
	switch c {
	case CeilingRule1:
		return "rule1"
	case CeilingHighValue:
		return "high_value"
	case CeilingUnlimited:
		return "unlimited"
	default:
		return "none"
	}
}

var eligibility = map[user.PermissionLevel]Ceiling{
	user.LevelAdmin:              CeilingUnlimited,
	user.LevelSeniorApprover:     CeilingUnlimited,
	user.LevelProcurement:        CeilingNone,
	user.LevelFinanceApprover:    CeilingHighValue,
	user.LevelRequester:          CeilingNone,
	user.LevelDepartmentApprover: CeilingRule1,
}

// CeilingFor returns the ceiling of a level. Unknown levels cannot approve.
func CeilingFor(level user.PermissionLevel) Ceiling {
	return eligibility[level]
}

type Approver struct {
	ID    string
	Name  string
	Level user.PermissionLevel
	Known bool
}

// Limits are the organization thresholds in the same currency as Amount.
type Limits struct {
	Amount    decimal.Decimal
	Currency  string
	Rule1     decimal.NullDecimal
	HighValue decimal.NullDecimal
}

// CanApprove applies the ceiling table. A Rule 1 ceiling with no Rule 1
// configured is not eligible; a high-value ceiling with no high-value rule
// has nothing above it and is eligible.
func CanApprove(level user.PermissionLevel, l Limits) bool {
	switch CeilingFor(level) {
	case CeilingUnlimited:
		return true
	case CeilingHighValue:
		if !l.HighValue.Valid {
			return true
		}
		return l.Amount.LessThanOrEqual(l.HighValue.Decimal)
	case CeilingRule1:
		if !l.Rule1.Valid {
			return false
		}
		return l.Amount.LessThanOrEqual(l.Rule1.Decimal)
	default:
		return false
	}
}

// Check returns one message per assigned approver who may not approve the
// amount.
func Check(approvers []Approver, l Limits) []string {
	var errs []string
	for _, a := range approvers {
		if !a.Known {
			errs = append(errs, fmt.Sprintf("approver %s could not be found; approval authority cannot be verified", a.ID))
			continue
		}
		if CanApprove(a.Level, l) {
			continue
		}
		errs = append(errs, message(a, l))
	}
	return errs
}

func message(a Approver, l Limits) string {
	amount := fmt.Sprintf("%s %s", l.Amount.Round(2).String(), l.Currency)
	switch CeilingFor(a.Level) {
	case CeilingRule1:
		if !l.Rule1.Valid {
			return fmt.Sprintf("%s (%s) cannot approve: no Rule 1 threshold is configured", a.Name, a.Level)
		}
		return fmt.Sprintf("%s (%s) may only approve up to %s %s; this request is %s and needs a Finance Approver or higher",
			a.Name, a.Level, l.Rule1.Decimal.Round(2).String(), l.Currency, amount)
	case CeilingHighValue:
		return fmt.Sprintf("%s (%s) may only approve up to %s %s; this request is %s and needs a Senior Approver or Admin",
			a.Name, a.Level, l.HighValue.Decimal.Round(2).String(), l.Currency, amount)
	default:
		return fmt.Sprintf("%s (%s) is not permitted to approve purchase requests", a.Name, a.Level)
	}
}
