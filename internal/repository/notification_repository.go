package repository

import (
	"context"
	"fincra-wisdom/internal/model"

	"gorm.io/gorm"
)

// NotificationRepository persists in-app notifications. Every read and write other
// than Create is scoped to a recipient email.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	FindByRecipient(ctx context.Context, email string, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, email string) (int64, error)
	FindForRecipient(ctx context.Context, id uint, email string) (*model.Notification, error)
	MarkRead(ctx context.Context, id uint, email string) error
	MarkAllRead(ctx context.Context, email string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) FindByRecipient(ctx context.Context, email string, limit int) ([]model.Notification, error) {
	var out []model.Notification
	err := r.db.WithContext(ctx).
		Where("recipient_email = ?", email).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_email = ? AND is_read = ?", email, false).
		Count(&count).Error
	return count, err
}

// FindForRecipient returns gorm.ErrRecordNotFound both for a missing id and for an
// id owned by someone else.
func (r *notificationRepository) FindForRecipient(ctx context.Context, id uint, email string) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).Where("id = ? AND recipient_email = ?", id, email).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint, email string) error {
	return r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND recipient_email = ?", id, email).
		Update("is_read", true).Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, email string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_email = ? AND is_read = ?", email, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
