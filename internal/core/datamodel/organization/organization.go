package organization

import "time"

type Organization struct {
	ID               string    `gorm:"primaryKey;type:varchar(64)"`
	Name             string    `gorm:"column:name;not null"`
	ProcurementEmail string    `gorm:"column:procurement_email"`
	Timezone         string    `gorm:"column:timezone"`
	BaseCurrency     string    `gorm:"column:base_currency;type:varchar(3)"`
	Active           bool      `gorm:"column:active;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Organization) TableName() string {
	return "reference_data_organizations"
}
