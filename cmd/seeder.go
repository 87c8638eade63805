package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	exchangeratePostgres "github.com/frahmantamala/procurement/internal/exchangerate/postgres"
	"github.com/frahmantamala/procurement/internal/organization"
	organizationPostgres "github.com/frahmantamala/procurement/internal/organization/postgres"
	"github.com/frahmantamala/procurement/internal/rule"
	rulePostgres "github.com/frahmantamala/procurement/internal/rule/postgres"
	"github.com/frahmantamala/procurement/internal/user"
	userPostgres "github.com/frahmantamala/procurement/internal/user/postgres"
	vendor "github.com/frahmantamala/procurement/internal/vendors"
	vendorPostgres "github.com/frahmantamala/procurement/internal/vendors/postgres"
)

const demoOrganizationID = "org-demo"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed a demo organization with approval rules, users at every permission level, vendors and fallback exchange rates.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlxDB.Close()

		db, err := openGorm(sqlxDB)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		ctx := context.Background()
		if clearData {
			clearSeedData(db)
		}

		seedOrganization(ctx, db)
		seedRules(ctx, db)
		seedUsers(ctx, db)
		seedVendors(ctx, db)
		seedRates(ctx, db)

		fmt.Println("Seed data loaded for organization:", demoOrganizationID)
	},
}

func exists(db *gorm.DB, table, id string) bool {
	var found int
	err := db.Raw("SELECT 1 FROM "+table+" WHERE id = ?", id).Row().Scan(&found)
	return err == nil
}

func clearSeedData(db *gorm.DB) {
	tables := []string{
		"purchase_request_notifications",
		"notifications",
		"notification_logs",
		"quotes",
		"purchase_requests",
		"reference_data_vendors",
		"reference_data_rules",
		"users",
	}
	for _, t := range tables {
		if err := db.Exec("DELETE FROM " + t).Error; err != nil {
			log.Fatalf("failed to clear %s: %v", t, err)
		}
	}
	if err := db.Exec("DELETE FROM reference_data_organizations WHERE id = ?", demoOrganizationID).Error; err != nil {
		log.Fatalf("failed to clear organization: %v", err)
	}
	fmt.Println("Cleared existing seed data")
}

func seedOrganization(ctx context.Context, db *gorm.DB) {
	if exists(db, "reference_data_organizations", demoOrganizationID) {
		fmt.Println("organization already exists:", demoOrganizationID)
		return
	}
	repo := organizationPostgres.NewOrganizationRepository(db)
	if err := repo.Create(ctx, &organization.Organization{
		ID:               demoOrganizationID,
		Name:             "Demo Trading Co",
		ProcurementEmail: "procurement@demo.example.com",
		Timezone:         "UTC",
		BaseCurrency:     "USD",
		Active:           true,
	}); err != nil {
		log.Fatalf("failed to insert organization: %v", err)
	}
	fmt.Println("Seeded organization:", demoOrganizationID)
}

func seedRules(ctx context.Context, db *gorm.DB) {
	repo := rulePostgres.NewRuleRepository(db)
	rules := []rule.Rule{
		{
			ID:             "rule-demo-1",
			OrganizationID: demoOrganizationID,
			Number:         rule.NumberLowValue,
			Description:    "Below this amount a single quote from an approved vendor is enough",
			Threshold:      decimal.NewFromInt(1000),
			Currency:       "USD",
			Active:         true,
		},
		{
			ID:             "rule-demo-2",
			OrganizationID: demoOrganizationID,
			Number:         rule.NumberHighValue,
			Description:    "At or above this amount two approvers are required",
			Threshold:      decimal.NewFromInt(10000),
			Currency:       "USD",
			Active:         true,
		},
	}
	for _, r := range rules {
		if exists(db, "reference_data_rules", r.ID) {
			continue
		}
		if err := repo.Create(ctx, r); err != nil {
			log.Fatalf("failed to insert rule %s: %v", r.Number, err)
		}
		fmt.Printf("Seeded rule %s: %s %s\n", r.Number, r.Threshold.StringFixed(2), r.Currency)
	}
}

func seedUsers(ctx context.Context, db *gorm.DB) {
	repo := userPostgres.NewUserRepository(db)
	users := []*user.User{
		{ID: "user-admin", Email: "admin@demo.example.com", FirstName: "Ada", LastName: "Admin", PermissionLevel: user.LevelAdmin},
		{ID: "user-senior", Email: "senior@demo.example.com", FirstName: "Sam", LastName: "Senior", PermissionLevel: user.LevelSeniorApprover},
		{ID: "user-procurement", Email: "procurement@demo.example.com", FirstName: "Pat", LastName: "Buyer", PermissionLevel: user.LevelProcurement},
		{ID: "user-finance", Email: "finance@demo.example.com", FirstName: "Fay", LastName: "Finance", PermissionLevel: user.LevelFinanceApprover},
		{ID: "user-requester", Email: "requester@demo.example.com", FirstName: "Rick", LastName: "Requester", PermissionLevel: user.LevelRequester},
		{ID: "user-department", Email: "department@demo.example.com", FirstName: "Dan", LastName: "Department", PermissionLevel: user.LevelDepartmentApprover},
	}
	for _, u := range users {
		if exists(db, "users", u.ID) {
			continue
		}
		u.OrganizationID = demoOrganizationID
		u.Department = "Operations"
		u.IsActive = true
		if err := repo.Create(ctx, u); err != nil {
			log.Fatalf("failed to insert user %s: %v", u.Email, err)
		}
		fmt.Printf("Seeded user %s (%s)\n", u.Email, u.PermissionLevel)
	}
}

func seedVendors(ctx context.Context, db *gorm.DB) {
	repo := vendorPostgres.NewVendorRepository(db)
	vendors := []*vendor.Vendor{
		{ID: "VEND-ACME", Name: "Acme Supplies", Approved: true, Active: true},
		{ID: "VEND-GLOBEX", Name: "Globex Office", Approved: true, Active: true},
		{ID: "VEND-NEW", Name: "Initech Startups", Approved: false, Active: true},
	}
	for _, v := range vendors {
		if exists(db, "reference_data_vendors", v.ID) {
			continue
		}
		v.OrganizationID = demoOrganizationID
		if err := repo.Create(ctx, v); err != nil {
			log.Fatalf("failed to insert vendor %s: %v", v.ID, err)
		}
		fmt.Println("Seeded vendor:", v.Name)
	}
}

// seedRates stores the last-known rates used when the live service is down.
func seedRates(ctx context.Context, db *gorm.DB) {
	repo := exchangeratePostgres.NewRateRepository(db)
	rates := []struct {
		From, To string
		Rate     string
	}{
		{"EUR", "USD", "1.08"},
		{"GBP", "USD", "1.27"},
		{"IDR", "USD", "0.000064"},
		{"ZAR", "USD", "0.055"},
	}
	for _, r := range rates {
		if err := repo.Upsert(ctx, r.From, r.To, decimal.RequireFromString(r.Rate)); err != nil {
			log.Fatalf("failed to upsert rate %s/%s: %v", r.From, r.To, err)
		}
	}
	fmt.Println("Seeded fallback exchange rates")
}
