package postgres

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	ruleDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/rule"
	"github.com/frahmantamala/procurement/internal/rule"
)

func TestRuleRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rule Repository Suite")
}

var _ = Describe("RuleRepository", func() {
	var (
		db   *gorm.DB
		repo *RuleRepository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).ToNot(HaveOccurred())
		Expect(db.AutoMigrate(&ruleDatamodel.Rule{})).To(Succeed())
		repo = NewRuleRepository(db)
		ctx = context.Background()
	})

	It("lists only the organization's rules", func() {
		Expect(repo.Create(ctx, rule.Rule{ID: "r1", OrganizationID: "ORG1", Number: "1", Threshold: decimal.NewFromInt(1000), Currency: "USD", Active: true})).To(Succeed())
		Expect(repo.Create(ctx, rule.Rule{ID: "r2", OrganizationID: "ORG1", Number: "2", Threshold: decimal.NewFromInt(10000), Currency: "USD", Active: true})).To(Succeed())
		Expect(repo.Create(ctx, rule.Rule{ID: "r3", OrganizationID: "ORG2", Number: "1", Threshold: decimal.NewFromInt(50), Currency: "EUR", Active: true})).To(Succeed())

		rules, err := repo.ListByOrganization(ctx, "ORG1")
		Expect(err).ToNot(HaveOccurred())
		Expect(rules).To(HaveLen(2))
		Expect(rules[0].Number).To(Equal("1"))
		Expect(rules[0].Threshold.Equal(decimal.NewFromInt(1000))).To(BeTrue())
	})

	It("returns an empty list for an unknown organization", func() {
		rules, err := repo.ListByOrganization(ctx, "NOPE")
		Expect(err).ToNot(HaveOccurred())
		Expect(rules).To(BeEmpty())
	})
})
