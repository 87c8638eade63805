package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	notificationDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/notification"
	"github.com/frahmantamala/procurement/internal/notification"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) FindLegacy(ctx context.Context, prID, notificationType string, since time.Time) (string, bool, error) {
	var legacy notificationDatamodel.Notification
	err := r.db.WithContext(ctx).
		Where("pr_id = ? AND type = ?", prID, notificationType).
		Take(&legacy).Error
	if err == nil {
		return legacy.ID, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, err
	}

	var recent notificationDatamodel.PurchaseRequestNotification
	err = r.db.WithContext(ctx).
		Where("pr_id = ? AND type = ? AND created_at >= ?", prID, notificationType, since).
		Order("created_at DESC").
		Take(&recent).Error
	if err == nil {
		return recent.NotificationID, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, err
	}
	return "", false, nil
}

// CreateIfAbsent relies on the unique (pr_id, type) index. A skipped insert
// reads back the record that is already there.
func (r *NotificationRepository) CreateIfAbsent(ctx context.Context, log *notification.Log) (string, bool, error) {
	model := notification.ToDataModel(log)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pr_id"}, {Name: "type"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return "", false, result.Error
	}
	if result.RowsAffected == 1 {
		return model.ID, true, nil
	}

	var existing notificationDatamodel.NotificationLog
	if err := r.db.WithContext(ctx).
		Where("pr_id = ? AND type = ?", log.PRID, log.Type).
		Take(&existing).Error; err != nil {
		return "", false, err
	}
	return existing.ID, false, nil
}

// Reclaim is a conditional update, so concurrent retries of the same failed
// record cannot both win.
func (r *NotificationRepository) Reclaim(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&notificationDatamodel.NotificationLog{}).
		Where("id = ? AND status = ?", id, string(notification.StatusFailed)).
		Updates(map[string]interface{}{
			"status": string(notification.StatusPending),
			"error":  nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *NotificationRepository) Mirror(ctx context.Context, log *notification.Log) error {
	return r.db.WithContext(ctx).Create(&notificationDatamodel.PurchaseRequestNotification{
		ID:             uuid.NewString(),
		PRID:           log.PRID,
		Type:           log.Type,
		NotificationID: log.ID,
		Recipients:     append(append([]string{}, log.Recipients...), log.CC...),
		CreatedAt:      log.CreatedAt,
	}).Error
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&notificationDatamodel.NotificationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  string(notification.StatusSent),
			"sent_at": at,
			"error":   nil,
		}).Error
}

func (r *NotificationRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return r.db.WithContext(ctx).
		Model(&notificationDatamodel.NotificationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": string(notification.StatusFailed),
			"error":  reason,
		}).Error
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*notification.Log, error) {
	var model notificationDatamodel.NotificationLog
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, err
	}
	return notification.FromDataModel(&model), nil
}

func (r *NotificationRepository) ListByPurchaseRequest(ctx context.Context, prID string) ([]*notification.Log, error) {
	var models []notificationDatamodel.NotificationLog
	if err := r.db.WithContext(ctx).Where("pr_id = ?", prID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	logs := make([]*notification.Log, 0, len(models))
	for i := range models {
		logs = append(logs, notification.FromDataModel(&models[i]))
	}
	return logs, nil
}
