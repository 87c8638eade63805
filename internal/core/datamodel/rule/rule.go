package rule

import (
	"time"

	"github.com/shopspring/decimal"
)

type Rule struct {
	ID                        string          `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID            string          `gorm:"column:organization_id;index;not null"`
	Number                    string          `gorm:"column:number;not null"`
	Description               string          `gorm:"column:description"`
	Threshold                 decimal.Decimal `gorm:"column:threshold;type:numeric(20,4);not null"`
	Currency                  string          `gorm:"column:currency"`
	UOM                       string          `gorm:"column:uom"`
	Active                    bool            `gorm:"column:active;default:true"`
	UpwardVarianceThreshold   decimal.Decimal `gorm:"column:upward_variance_threshold;type:numeric(10,4)"`
	DownwardVarianceThreshold decimal.Decimal `gorm:"column:downward_variance_threshold;type:numeric(10,4)"`
	CreatedAt                 time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                 time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Rule) TableName() string {
	return "reference_data_rules"
}
