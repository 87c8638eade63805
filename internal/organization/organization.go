package organization

import (
	"context"
	"errors"

	orgDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/organization"
)

var ErrOrganizationNotFound = errors.New("organization not found")

type Organization struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ProcurementEmail string `json:"procurement_email"`
	Timezone         string `json:"timezone"`
	BaseCurrency     string `json:"base_currency"`
	Active           bool   `json:"active"`
}

type Repository interface {
	GetByID(ctx context.Context, id string) (*Organization, error)
}

func FromDataModel(o *orgDatamodel.Organization) *Organization {
	return &Organization{
		ID:               o.ID,
		Name:             o.Name,
		ProcurementEmail: o.ProcurementEmail,
		Timezone:         o.Timezone,
		BaseCurrency:     o.BaseCurrency,
		Active:           o.Active,
	}
}

func ToDataModel(o *Organization) *orgDatamodel.Organization {
	return &orgDatamodel.Organization{
		ID:               o.ID,
		Name:             o.Name,
		ProcurementEmail: o.ProcurementEmail,
		Timezone:         o.Timezone,
		BaseCurrency:     o.BaseCurrency,
		Active:           o.Active,
	}
}
