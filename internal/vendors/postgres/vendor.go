package postgres

import (
	"context"
	"errors"

	vendorDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/vendor"
	vendor "github.com/frahmantamala/procurement/internal/vendors"
	"gorm.io/gorm"
)

type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// GetByID matches the id case-insensitively; vendor ids were entered by hand
// and casing varies between records and PRs.
func (r *VendorRepository) GetByID(ctx context.Context, id string) (*vendor.Vendor, error) {
	var model vendorDatamodel.Vendor
	err := r.db.WithContext(ctx).
		Where("LOWER(id) = LOWER(?)", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, vendor.ErrVendorNotFound
		}
		return nil, err
	}
	return vendor.FromDataModel(&model), nil
}

func (r *VendorRepository) Create(ctx context.Context, v *vendor.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor.ToDataModel(v)).Error
}
