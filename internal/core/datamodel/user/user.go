package user

import "time"

type User struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)"`
	Email           string    `gorm:"column:email;uniqueIndex;not null"`
	FirstName       string    `gorm:"column:first_name"`
	LastName        string    `gorm:"column:last_name"`
	OrganizationID  string    `gorm:"column:organization_id;index"`
	Department      string    `gorm:"column:department"`
	PermissionLevel int       `gorm:"column:permission_level;not null"`
	IsActive        bool      `gorm:"column:is_active;default:true"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
