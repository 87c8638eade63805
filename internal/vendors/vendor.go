package vendor

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	vendorDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/vendor"
)

var ErrVendorNotFound = errors.New("vendor not found")

type Vendor struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Approved       bool   `json:"approved"`
	Active         bool   `json:"active"`
}

type Repository interface {
	GetByID(ctx context.Context, id string) (*Vendor, error)
}

// ApprovalChecker answers whether a vendor may be used on the reduced quote
// path. Anything it cannot confirm counts as not approved.
type ApprovalChecker struct {
	repo   Repository
	logger *slog.Logger
}

func NewApprovalChecker(repo Repository, logger *slog.Logger) *ApprovalChecker {
	return &ApprovalChecker{repo: repo, logger: logger}
}

func (c *ApprovalChecker) IsApproved(ctx context.Context, vendorID string) bool {
	id := strings.TrimSpace(vendorID)
	if id == "" {
		return false
	}

	v, err := c.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrVendorNotFound) {
			c.logger.Warn("vendor not found, treating as not approved", "vendor_id", id)
		} else {
			c.logger.Warn("vendor lookup failed, treating as not approved", "vendor_id", id, "error", err)
		}
		return false
	}
	if v == nil {
		return false
	}
	return v.Approved
}

func FromDataModel(v *vendorDatamodel.Vendor) *Vendor {
	return &Vendor{
		ID:             v.ID,
		OrganizationID: v.OrganizationID,
		Name:           v.Name,
		Approved:       v.Approved,
		Active:         v.Active,
	}
}

func ToDataModel(v *Vendor) *vendorDatamodel.Vendor {
	return &vendorDatamodel.Vendor{
		ID:             v.ID,
		OrganizationID: v.OrganizationID,
		Name:           v.Name,
		Approved:       v.Approved,
		Active:         v.Active,
	}
}
