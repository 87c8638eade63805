package postgres

import (
	"context"

	ruleDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/rule"
	"github.com/frahmantamala/procurement/internal/rule"
	"gorm.io/gorm"
)

type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListByOrganization returns every rule of the organization, active or not.
func (r *RuleRepository) ListByOrganization(ctx context.Context, organizationID string) ([]rule.Rule, error) {
	var models []ruleDatamodel.Rule
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("number ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	rules := make([]rule.Rule, 0, len(models))
	for i := range models {
		rules = append(rules, rule.FromDataModel(&models[i]))
	}
	return rules, nil
}

func (r *RuleRepository) Create(ctx context.Context, rl rule.Rule) error {
	return r.db.WithContext(ctx).Create(rule.ToDataModel(rl)).Error
}
