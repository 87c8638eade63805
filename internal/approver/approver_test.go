package approver_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/procurement/internal/approver"
	"github.com/frahmantamala/procurement/internal/user"
)

func TestApprover(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Approver Suite")
}

func limits(amount string) approver.Limits {
	return approver.Limits{
		Amount:    decimal.RequireFromString(amount),
		Currency:  "USD",
		Rule1:     decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		HighValue: decimal.NewNullDecimal(decimal.NewFromInt(10000)),
	}
}

var _ = Describe("eligibility table", func() {
	DescribeTable("CanApprove",
		func(level user.PermissionLevel, amount string, expected bool) {
			Expect(approver.CanApprove(level, limits(amount))).To(Equal(expected))
		},
		Entry("admin, huge amount", user.LevelAdmin, "1000000", true),
		Entry("senior approver, above high value", user.LevelSeniorApprover, "25000", true),
		Entry("finance approver, at high value", user.LevelFinanceApprover, "10000", true),
		Entry("finance approver, above high value", user.LevelFinanceApprover, "10000.01", false),
		Entry("department approver, at rule 1", user.LevelDepartmentApprover, "1000", true),
		Entry("department approver, above rule 1", user.LevelDepartmentApprover, "1500", false),
		Entry("procurement, small amount", user.LevelProcurement, "10", false),
		Entry("requester, small amount", user.LevelRequester, "10", false),
		Entry("unknown level", user.PermissionLevel(42), "10", false),
	)

	It("lets a finance approver approve anything when no high-value rule exists", func() {
		l := limits("50000")
		l.HighValue = decimal.NullDecimal{}
		Expect(approver.CanApprove(user.LevelFinanceApprover, l)).To(BeTrue())
	})

	It("blocks a department approver when no Rule 1 exists", func() {
		l := limits("10")
		l.Rule1 = decimal.NullDecimal{}
		Expect(approver.CanApprove(user.LevelDepartmentApprover, l)).To(BeFalse())
	})
})

var _ = Describe("Check", func() {
	It("returns nothing when every approver is eligible", func() {
		errs := approver.Check([]approver.Approver{
			{ID: "a1", Name: "Ann", Level: user.LevelAdmin, Known: true},
			{ID: "a2", Name: "Ben", Level: user.LevelFinanceApprover, Known: true},
		}, limits("9000"))
		Expect(errs).To(BeEmpty())
	})

	It("produces tier-specific messages", func() {
		errs := approver.Check([]approver.Approver{
			{ID: "a1", Name: "Dee", Level: user.LevelDepartmentApprover, Known: true},
			{ID: "a2", Name: "Fin", Level: user.LevelFinanceApprover, Known: true},
			{ID: "a3", Name: "Req", Level: user.LevelRequester, Known: true},
		}, limits("12000"))
		Expect(errs).To(HaveLen(3))
		Expect(errs[0]).To(ContainSubstring("Dee (Department Approver) may only approve up to 1000 USD"))
		Expect(errs[1]).To(ContainSubstring("Fin (Finance Approver) may only approve up to 10000 USD"))
		Expect(errs[2]).To(ContainSubstring("Req (Requester) is not permitted"))
	})

	It("flags approvers whose records could not be found", func() {
		errs := approver.Check([]approver.Approver{{ID: "ghost"}}, limits("10"))
		Expect(errs).To(ConsistOf(ContainSubstring("approver ghost could not be found")))
	})
})
