package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	datamodel "github.com/frahmantamala/procurement/internal/core/datamodel/exchangerate"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RateRepository reads and writes persisted fallback rates.
type RateRepository struct {
	db *gorm.DB
}

func NewRateRepository(db *gorm.DB) *RateRepository {
	return &RateRepository{db: db}
}

func (r *RateRepository) FindRate(ctx context.Context, from, to string) (decimal.Decimal, bool, error) {
	var rec datamodel.RateRecord
	err := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ?", strings.ToUpper(from), strings.ToUpper(to)).
		Order("updated_at DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	return rec.Rate, true, nil
}

// Upsert stores the latest rate for a pair.
func (r *RateRepository) Upsert(ctx context.Context, from, to string, rate decimal.Decimal) error {
	rec := datamodel.RateRecord{
		From:      strings.ToUpper(from),
		To:        strings.ToUpper(to),
		Rate:      rate,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_currency"}, {Name: "to_currency"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "updated_at"}),
	}).Create(&rec).Error
}
