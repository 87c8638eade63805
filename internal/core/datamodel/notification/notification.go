package notification

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationLog is the canonical duplicate-guard store. The unique index on
// (pr_id, type) is what makes insert-if-absent atomic.
type NotificationLog struct {
	ID         string                      `gorm:"primaryKey;type:varchar(64)"`
	PRID       string                      `gorm:"column:pr_id;not null;uniqueIndex:idx_notification_logs_pr_type"`
	Type       string                      `gorm:"column:type;not null;uniqueIndex:idx_notification_logs_pr_type"`
	Recipients datatypes.JSONSlice[string] `gorm:"column:recipients"`
	CC         datatypes.JSONSlice[string] `gorm:"column:cc"`
	Subject    string                      `gorm:"column:subject"`
	Status     string                      `gorm:"column:status;not null"`
	Error      *string                     `gorm:"column:error"`
	SentAt     *time.Time                  `gorm:"column:sent_at"`
	CreatedAt  time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

func (NotificationLog) TableName() string {
	return "notification_logs"
}

// Notification is the older general-purpose audit store, read only for
// duplicate checks.
type Notification struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	PRID      string    `gorm:"column:pr_id;index"`
	Type      string    `gorm:"column:type"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// PurchaseRequestNotification is the per-PR reporting read model.
type PurchaseRequestNotification struct {
	ID             string                      `gorm:"primaryKey;type:varchar(64)"`
	PRID           string                      `gorm:"column:pr_id;index"`
	Type           string                      `gorm:"column:type"`
	NotificationID string                      `gorm:"column:notification_id"`
	Recipients     datatypes.JSONSlice[string] `gorm:"column:recipients"`
	CreatedAt      time.Time                   `gorm:"column:created_at;index"`
}

func (PurchaseRequestNotification) TableName() string {
	return "purchase_request_notifications"
}
