package postgres

import (
	"context"
	"errors"

	prDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/purchaserequest"
	"github.com/frahmantamala/procurement/internal/purchaserequest"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRequestRepository struct {
	db *gorm.DB
}

func NewPurchaseRequestRepository(db *gorm.DB) *PurchaseRequestRepository {
	return &PurchaseRequestRepository{db: db}
}

// Create inserts the PR and its initial quotes in one transaction.
func (r *PurchaseRequestRepository) Create(ctx context.Context, pr *purchaserequest.PurchaseRequest) error {
	model := purchaserequest.ToDataModel(pr)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if len(model.Quotes) > 0 {
			if err := tx.Create(&model.Quotes).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PurchaseRequestRepository) GetByID(ctx context.Context, id string) (*purchaserequest.PurchaseRequest, error) {
	var model prDatamodel.PurchaseRequest
	err := r.db.WithContext(ctx).
		Preload("Quotes", func(db *gorm.DB) *gorm.DB {
			return db.Order("submitted_at ASC")
		}).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, purchaserequest.ErrNotFound
		}
		return nil, err
	}
	return purchaserequest.FromDataModel(&model), nil
}

// Update saves the PR row only. Quotes are immutable once attached and are
// written through AddQuote.
func (r *PurchaseRequestRepository) Update(ctx context.Context, pr *purchaserequest.PurchaseRequest) error {
	model := purchaserequest.ToDataModel(pr)
	result := r.db.WithContext(ctx).
		Model(&prDatamodel.PurchaseRequest{}).
		Where("id = ?", pr.ID).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return purchaserequest.ErrNotFound
	}
	return nil
}

func (r *PurchaseRequestRepository) AddQuote(ctx context.Context, prID string, q *purchaserequest.Quote) error {
	return r.db.WithContext(ctx).Create(purchaserequest.QuoteToDataModel(prID, q)).Error
}

func (r *PurchaseRequestRepository) ListQuoteConflicts(ctx context.Context, organizationID string) ([]*purchaserequest.PurchaseRequest, error) {
	query := r.db.WithContext(ctx).
		Preload("Quotes").
		Where("status = ? AND workflow_quote_conflict = ?", string(purchaserequest.StatusPendingApproval), true)
	if organizationID != "" {
		query = query.Where("organization_id = ?", organizationID)
	}

	var models []prDatamodel.PurchaseRequest
	if err := query.Order("updated_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	prs := make([]*purchaserequest.PurchaseRequest, 0, len(models))
	for i := range models {
		prs = append(prs, purchaserequest.FromDataModel(&models[i]))
	}
	return prs, nil
}
