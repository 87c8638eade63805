package exchangerate

import (
	"time"

	"github.com/shopspring/decimal"
)

type RateRecord struct {
	ID        int64           `gorm:"primaryKey"`
	From      string          `gorm:"column:from_currency;type:varchar(3);not null;uniqueIndex:idx_exchange_rates_pair"`
	To        string          `gorm:"column:to_currency;type:varchar(3);not null;uniqueIndex:idx_exchange_rates_pair"`
	Rate      decimal.Decimal `gorm:"column:rate;type:numeric(24,10);not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (RateRecord) TableName() string {
	return "exchange_rates"
}
