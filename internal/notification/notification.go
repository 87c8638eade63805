package notification

import (
	"context"
	"time"

	notificationDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/notification"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// recentWindow bounds the per-PR read model check.
const recentWindow = time.Hour

type Log struct {
	ID         string     `json:"id"`
	PRID       string     `json:"pr_id"`
	Type       string     `json:"type"`
	Recipients []string   `json:"recipients"`
	CC         []string   `json:"cc"`
	Subject    string     `json:"subject"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Result is what a notification attempt reports. It never carries an error:
// a failed notification must not undo the status change behind it.
type Result struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	NotificationID string `json:"notification_id,omitempty"`
	Duplicate      bool   `json:"duplicate"`
}

type Store interface {
	// FindLegacy checks the older notification stores. The per-PR store only
	// counts entries created after since.
	FindLegacy(ctx context.Context, prID, notificationType string, since time.Time) (string, bool, error)
	// CreateIfAbsent inserts into the canonical log unless (pr_id, type)
	// already exists, returning the id of whichever record won.
	CreateIfAbsent(ctx context.Context, log *Log) (string, bool, error)
	// Reclaim moves a FAILED record back to PENDING. Only one caller can
	// reclaim a given record.
	Reclaim(ctx context.Context, id string) (bool, error)
	Mirror(ctx context.Context, log *Log) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
}

func ToDataModel(l *Log) *notificationDatamodel.NotificationLog {
	m := &notificationDatamodel.NotificationLog{
		ID:         l.ID,
		PRID:       l.PRID,
		Type:       l.Type,
		Recipients: l.Recipients,
		CC:         l.CC,
		Subject:    l.Subject,
		Status:     string(l.Status),
		SentAt:     l.SentAt,
		CreatedAt:  l.CreatedAt,
	}
	if l.Error != "" {
		m.Error = &l.Error
	}
	return m
}

func FromDataModel(m *notificationDatamodel.NotificationLog) *Log {
	l := &Log{
		ID:         m.ID,
		PRID:       m.PRID,
		Type:       m.Type,
		Recipients: m.Recipients,
		CC:         m.CC,
		Subject:    m.Subject,
		Status:     Status(m.Status),
		SentAt:     m.SentAt,
		CreatedAt:  m.CreatedAt,
	}
	if m.Error != nil {
		l.Error = *m.Error
	}
	return l
}
