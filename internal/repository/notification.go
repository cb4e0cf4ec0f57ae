package repository

import (
	"context"

	"pictogram/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository stores user mailboxes.
type NotificationRepository interface {
	Append(ctx context.Context, n *models.Notification) error
	ListFor(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	CountFor(ctx context.Context, userID uint, message string) (int64, error)
	MarkSeen(ctx context.Context, userID uint) (int64, error)
	DeleteFor(ctx context.Context, userID uint) (int64, error)
}

type notificationRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db, read: readDB(db)}
}

func (r *notificationRepository) Append(ctx context.Context, n *models.Notification) error {
	n.New = true
	return internal(r.db.WithContext(ctx).Create(n).Error)
}

// ListFor returns the newest entries of userID's mailbox first. A limit <= 0 returns all.
func (r *notificationRepository) ListFor(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	notifications := []models.Notification{}
	q := r.db.WithContext(ctx).
		Where("notified_to = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&notifications).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return notifications, nil
}

// CountFor counts entries in userID's mailbox, optionally narrowed to one message.
func (r *notificationRepository) CountFor(ctx context.Context, userID uint, message string) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("notified_to = ?", userID)
	if message != "" {
		q = q.Where("message = ?", message)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *notificationRepository) MarkSeen(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("notified_to = ? AND is_new = ?", userID, true).
		Update("is_new", false)
	return res.RowsAffected, internal(res.Error)
}

// DeleteFor removes entries sent to or by userID.
func (r *notificationRepository) DeleteFor(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("notified_to = ? OR notified_by = ?", userID, userID).
		Delete(&models.Notification{})
	return res.RowsAffected, internal(res.Error)
}
