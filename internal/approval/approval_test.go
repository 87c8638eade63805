package approval_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/procurement/internal"
	"github.com/frahmantamala/procurement/internal/approval"
	"github.com/frahmantamala/procurement/internal/exchangerate"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
	"github.com/frahmantamala/procurement/internal/quote"
	"github.com/frahmantamala/procurement/internal/rule"
	"github.com/frahmantamala/procurement/internal/user"
)

func TestApproval(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Approval Suite")
}

type mockRuleRepository struct {
	rules []rule.Rule
	err   error
}

func (m *mockRuleRepository) ListByOrganization(ctx context.Context, organizationID string) ([]rule.Rule, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []rule.Rule
	for _, r := range m.rules {
		if r.OrganizationID == organizationID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockVendorChecker struct {
	approved map[string]bool
}

func (m *mockVendorChecker) IsApproved(ctx context.Context, vendorID string) bool {
	return m.approved[vendorID]
}

type mockUserRepository struct {
	users map[string]*user.User
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func attachedQuote(id, amount string) purchaserequest.Quote {
	return purchaserequest.Quote{
		ID:          id,
		VendorID:    "VEND-" + id,
		Amount:      dec(amount),
		Currency:    "USD",
		Attachments: []purchaserequest.Attachment{{ID: "att-" + id, Name: id + ".pdf"}},
	}
}

var _ = Describe("Validator", func() {
	var (
		rules     *mockRuleRepository
		vendors   *mockVendorChecker
		users     *mockUserRepository
		validator *approval.Validator
		ctx       context.Context
		pr        *purchaserequest.PurchaseRequest
		procure   *internal.Actor
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		rules = &mockRuleRepository{rules: []rule.Rule{
			{ID: "r1", OrganizationID: "ORG1", Number: "1", Threshold: dec("1000"), Currency: "USD", Active: true},
			{ID: "r2", OrganizationID: "ORG1", Number: "2", Threshold: dec("10000"), Currency: "USD", Active: true},
		}}
		vendors = &mockVendorChecker{approved: map[string]bool{"VEND-OK": true}}
		users = &mockUserRepository{users: map[string]*user.User{
			"admin":   {ID: "admin", FirstName: "Ada", LastName: "Admin", PermissionLevel: user.LevelAdmin},
			"senior":  {ID: "senior", FirstName: "Sam", PermissionLevel: user.LevelSeniorApprover},
			"finance": {ID: "finance", FirstName: "Fiona", PermissionLevel: user.LevelFinanceApprover},
			"dept":    {ID: "dept", FirstName: "Dan", PermissionLevel: user.LevelDepartmentApprover},
		}}
		resolver := exchangerate.NewResolver(nil, nil, nil, logger)
		validator = approval.NewValidator(rules, vendors, users, quote.NewValidator(resolver, logger), logger)
		ctx = context.Background()

		pr = &purchaserequest.PurchaseRequest{
			ID:              "pr-1",
			OrganizationID:  "ORG1",
			EstimatedAmount: dec("1500"),
			Currency:        "USD",
			Status:          purchaserequest.StatusInQueue,
			RequestorID:     "req",
			ApproverID:      "admin",
		}
		procure = &internal.Actor{ID: "proc", OrganizationID: "ORG1", PermissionLevel: int(user.LevelProcurement)}
	})

	Describe("end-to-end example", func() {
		It("rejects 1500 USD with no quotes", func() {
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusPendingApproval)
			Expect(res.IsValid).To(BeFalse())
			Expect(res.Errors).To(ContainElement(ContainSubstring("three quotes required above 1000 USD")))
		})

		It("accepts the same PR with three attached quotes", func() {
			pr.Quotes = []purchaserequest.Quote{
				attachedQuote("q1", "1100"),
				attachedQuote("q2", "1200"),
				attachedQuote("q3", "1300"),
			}
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusPendingApproval)
			Expect(res.Errors).To(BeEmpty())
			Expect(res.IsValid).To(BeTrue())
			Expect(res.RequiresDualApproval).To(BeFalse())
			Expect(res.NormalizedAmount.Equal(dec("1100"))).To(BeTrue())
		})
	})

	Describe("configuration", func() {
		It("fails closed when the organization has no rules", func() {
			pr.OrganizationID = "ORG-EMPTY"
			res := validator.Validate(ctx, pr, &internal.Actor{ID: "proc", PermissionLevel: int(user.LevelProcurement)}, purchaserequest.StatusPendingApproval)
			Expect(res.IsValid).To(BeFalse())
			Expect(res.Errors).To(ContainElement(ContainSubstring("approval rules are not configured for organization ORG-EMPTY")))
		})

		It("fails closed when the rules cannot be loaded", func() {
			rules.err = errors.New("db down")
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusPendingApproval)
			Expect(res.IsValid).To(BeFalse())
			Expect(res.Errors).To(ContainElement(ContainSubstring("approval rules are not configured")))
		})

		It("accepts an explicit rule set", func() {
			res := validator.ValidateWithRules(ctx, pr, []rule.Rule{
				{OrganizationID: "ORG1", Number: "3", Threshold: dec("50000"), Currency: "USD", Active: true},
			}, procure, purchaserequest.StatusPendingApproval)
			Expect(res.IsValid).To(BeTrue())
		})
	})

	Describe("permissions", func() {
		BeforeEach(func() {
			pr.Quotes = []purchaserequest.Quote{attachedQuote("q1", "1100"), attachedQuote("q2", "1200"), attachedQuote("q3", "1300")}
		})

		It("blocks a requester from sending for approval", func() {
			actor := &internal.Actor{ID: "req", PermissionLevel: int(user.LevelRequester)}
			res := validator.Validate(ctx, pr, actor, purchaserequest.StatusPendingApproval)
			Expect(res.Errors).To(ContainElement(ContainSubstring("Requester users cannot send a purchase request for approval")))
		})

		It("lets an assigned approver approve", func() {
			actor := &internal.Actor{ID: "admin", PermissionLevel: int(user.LevelAdmin)}
			res := validator.Validate(ctx, pr, actor, purchaserequest.StatusApproved)
			Expect(res.IsValid).To(BeTrue())
		})

		It("blocks an unassigned non-manager from approving", func() {
			actor := &internal.Actor{ID: "senior", PermissionLevel: int(user.LevelSeniorApprover)}
			res := validator.Validate(ctx, pr, actor, purchaserequest.StatusApproved)
			Expect(res.Errors).To(ContainElement(ContainSubstring("only an assigned approver")))
		})

		It("requires an actor", func() {
			res := validator.Validate(ctx, pr, nil, purchaserequest.StatusApproved)
			Expect(res.IsValid).To(BeFalse())
		})
	})

	Describe("approver eligibility", func() {
		BeforeEach(func() {
			pr.Quotes = []purchaserequest.Quote{attachedQuote("q1", "1100"), attachedQuote("q2", "1200"), attachedQuote("q3", "1300")}
		})

		It("flags a department approver above Rule 1", func() {
			pr.ApproverID = "dept"
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusPendingApproval)
			Expect(res.Errors).To(ContainElement(ContainSubstring("Dan (Department Approver) may only approve up to 1000 USD")))
		})

		It("flags a missing approver record", func() {
			pr.ApproverID = "ghost"
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusPendingApproval)
			Expect(res.Errors).To(ContainElement(ContainSubstring("approver ghost could not be found")))
		})

		It("requires an approver to be assigned", func() {
			pr.ApproverID = ""
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusPendingApproval)
			Expect(res.Errors).To(ContainElement("at least one approver must be assigned"))
		})
	})

	Describe("high-value requests", func() {
		BeforeEach(func() {
			pr.EstimatedAmount = dec("15000")
			pr.Quotes = []purchaserequest.Quote{
				attachedQuote("q1", "12000"),
				attachedQuote("q2", "12500"),
				attachedQuote("q3", "13000"),
			}
			pr.ApproverID = "admin"
			pr.SecondApproverID = "senior"
		})

		It("marks the request for dual approval", func() {
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusPendingApproval)
			Expect(res.IsValid).To(BeTrue())
			Expect(res.RequiresDualApproval).To(BeTrue())
		})

		It("needs two approvers", func() {
			pr.SecondApproverID = ""
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusPendingApproval)
			Expect(res.Errors).To(ContainElement(ContainSubstring("two approvers are required at or above 10000 USD")))
		})

		It("rejects a finance approver above the high-value threshold", func() {
			pr.SecondApproverID = "finance"
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusPendingApproval)
			Expect(res.Errors).To(ContainElement(ContainSubstring("Fiona (Finance Approver) may only approve up to 10000 USD")))
		})

		It("requires adjudication notes to approve", func() {
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusApproved)
			Expect(res.Errors).To(ContainElement(ContainSubstring("adjudication notes are required")))

			pr.AdjudicationNotes = "Lowest compliant bid; vendor references checked."
			res = validator.Validate(ctx, pr, procure, purchaserequest.StatusApproved)
			Expect(res.IsValid).To(BeTrue())
		})
	})

	Describe("vendor approval", func() {
		It("accepts one attached quote for an approved preferred vendor", func() {
			pr.PreferredVendorID = "VEND-OK"
			pr.Quotes = []purchaserequest.Quote{attachedQuote("q1", "1100")}
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusPendingApproval)
			Expect(res.IsValid).To(BeTrue())
		})

		It("requires three quotes for an unapproved preferred vendor", func() {
			pr.PreferredVendorID = "VEND-NEW"
			pr.Quotes = []purchaserequest.Quote{attachedQuote("q1", "1100")}
			res := validator.Validate(ctx, pr, procure, purchaserequest.StatusPendingApproval)
			Expect(res.Errors).To(ContainElement(ContainSubstring("preferred vendor VEND-NEW is not approved")))
		})
	})
})
