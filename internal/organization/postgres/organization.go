package postgres

import (
	"context"
	"errors"

	orgDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/organization"
	"github.com/frahmantamala/procurement/internal/organization"
	"gorm.io/gorm"
)

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*organization.Organization, error) {
	var model orgDatamodel.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, organization.ErrOrganizationNotFound
		}
		return nil, err
	}
	return organization.FromDataModel(&model), nil
}

func (r *OrganizationRepository) Create(ctx context.Context, o *organization.Organization) error {
	return r.db.WithContext(ctx).Create(organization.ToDataModel(o)).Error
}
