package approval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/approver"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
	"github.com/frahmantamala/procurement/internal/quote"
	"github.com/frahmantamala/procurement/internal/rule"
	"github.com/frahmantamala/procurement/internal/user"
)

type RuleRepository interface {
	ListByOrganization(ctx context.Context, organizationID string) ([]rule.Rule, error)
}

type VendorChecker interface {
	IsApproved(ctx context.Context, vendorID string) bool
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type QuoteEvaluator interface {
	Evaluate(ctx context.Context, in quote.Input) quote.Evaluation
}

// Validator runs every approval check for a PR and a target status and
// collects the failures as messages.
type Validator struct {
	rules   RuleRepository
	vendors VendorChecker
	users   UserRepository
	quotes  QuoteEvaluator
	logger  *slog.Logger
}

func NewValidator(rules RuleRepository, vendors VendorChecker, users UserRepository, quotes QuoteEvaluator, logger *slog.Logger) *Validator {
	return &Validator{
		rules:   rules,
		vendors: vendors,
		users:   users,
		quotes:  quotes,
		logger:  logger,
	}
}

// Validate loads the organization's rules and delegates to ValidateWithRules.
// A failed rule lookup fails closed.
func (v *Validator) Validate(ctx context.Context, pr *purchaserequest.PurchaseRequest, actor *internal.Actor, target purchaserequest.Status) purchaserequest.ValidationResult {
	rules, err := v.rules.ListByOrganization(ctx, pr.OrganizationID)
	if err != nil {
		v.logger.Error("failed to load approval rules", "organization_id", pr.OrganizationID, "error", err)
		rules = nil
	}
	return v.ValidateWithRules(ctx, pr, rules, actor, target)
}

func (v *Validator) ValidateWithRules(ctx context.Context, pr *purchaserequest.PurchaseRequest, rules []rule.Rule, actor *internal.Actor, target purchaserequest.Status) purchaserequest.ValidationResult {
	log := v.logger.With("pr_id", pr.ID, "organization_id", pr.OrganizationID, "target_status", target)
	var errs []string

	errs = append(errs, checkPermission(pr, actor, target)...)

	thresholds := rule.Resolve(rules)
	if !thresholds.Configured() {
		log.Warn("no approval rules configured, failing closed")
		errs = append(errs, fmt.Sprintf(
			"approval rules are not configured for organization %s: no active Rule 1 or Rule 2 found, so the request cannot be validated",
			pr.OrganizationID))
		return result(errs, purchaserequest.ValidationResult{})
	}

	vendorApproved := false
	if pr.PreferredVendorID != "" {
		vendorApproved = v.vendors.IsApproved(ctx, pr.PreferredVendorID)
	}

	ev := v.quotes.Evaluate(ctx, quote.Input{
		EstimatedAmount:   pr.EstimatedAmount,
		Currency:          pr.Currency,
		Quotes:            quoteItems(pr.Quotes),
		Thresholds:        thresholds,
		VendorApproved:    vendorApproved,
		PreferredVendorID: pr.PreferredVendorID,
	})
	errs = append(errs, ev.Errors...)

	n := ev.Normalized
	out := purchaserequest.ValidationResult{
		NormalizedAmount:   n.Amount,
		NormalizedCurrency: n.Currency,
		RateDegraded:       ev.RateDegraded,
	}
	highValue := n.HighValue.Valid && n.Amount.GreaterThanOrEqual(n.HighValue.Decimal)
	out.RequiresDualApproval = highValue

	if target == purchaserequest.StatusPendingApproval || target == purchaserequest.StatusApproved {
		errs = append(errs, v.checkApprovers(ctx, pr, n, highValue)...)
	}

	if target == purchaserequest.StatusApproved && n.HighValue.Valid && n.Amount.GreaterThan(n.HighValue.Decimal) &&
		strings.TrimSpace(pr.AdjudicationNotes) == "" {
		errs = append(errs, fmt.Sprintf("adjudication notes are required to approve requests above %s %s",
			n.HighValue.Decimal.Round(2).String(), n.Currency))
	}

	res := result(errs, out)
	if !res.IsValid {
		log.Info("approval validation failed", "errors", len(res.Errors), "rate_degraded", ev.RateDegraded)
	}
	return res
}

func (v *Validator) checkApprovers(ctx context.Context, pr *purchaserequest.PurchaseRequest, n quote.Normalized, highValue bool) []string {
	ids := pr.ApproverIDs()
	if len(ids) == 0 {
		return []string{"at least one approver must be assigned"}
	}

	var errs []string
	if highValue && len(ids) < 2 {
		errs = append(errs, fmt.Sprintf("two approvers are required at or above %s %s",
			n.HighValue.Decimal.Round(2).String(), n.Currency))
	}

	approvers := make([]approver.Approver, 0, len(ids))
	for _, id := range ids {
		u, err := v.users.GetByID(ctx, id)
		if err != nil || u == nil {
			v.logger.Warn("assigned approver could not be loaded", "pr_id", pr.ID, "user_id", id, "error", err)
			approvers = append(approvers, approver.Approver{ID: id, Name: id})
			continue
		}
		name := u.FullName()
		if name == "" {
			name = user.NameFromEmail(u.Email)
		}
		approvers = append(approvers, approver.Approver{ID: u.ID, Name: name, Level: u.PermissionLevel, Known: true})
	}

	return append(errs, approver.Check(approvers, approver.Limits{
		Amount:    n.Amount,
		Currency:  n.Currency,
		Rule1:     n.Rule1,
		HighValue: n.HighValue,
	})...)
}

// checkPermission enforces who may push a PR into the approval states.
func checkPermission(pr *purchaserequest.PurchaseRequest, actor *internal.Actor, target purchaserequest.Status) []string {
	if actor == nil {
		return []string{"an authenticated user is required to change the status of a purchase request"}
	}
	level := user.PermissionLevel(actor.PermissionLevel)
	manager := level == user.LevelAdmin || level == user.LevelProcurement

	switch target {
	case purchaserequest.StatusPendingApproval:
		if !manager {
			return []string{fmt.Sprintf("%s users cannot send a purchase request for approval; Admin or Procurement is required", level)}
		}
	case purchaserequest.StatusApproved:
		if !manager && !pr.IsAssignedApprover(actor.ID) {
			return []string{"only an assigned approver, Admin or Procurement may approve this purchase request"}
		}
	}
	return nil
}

func quoteItems(quotes []purchaserequest.Quote) []quote.Item {
	items := make([]quote.Item, 0, len(quotes))
	for _, q := range quotes {
		items = append(items, quote.Item{
			ID:          q.ID,
			VendorID:    q.VendorID,
			Amount:      q.Amount,
			Currency:    q.Currency,
			Attachments: len(q.Attachments),
		})
	}
	return items
}

func result(errs []string, out purchaserequest.ValidationResult) purchaserequest.ValidationResult {
	if errs == nil {
		errs = []string{}
	}
	out.Errors = errs
	out.IsValid = len(errs) == 0
	return out
}
