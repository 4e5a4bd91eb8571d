package repository

import (
	"skillplan_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

const notificationBatchSize = 100

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: tx}
}

func (r *NotificationRepository) CreateBatch(notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.DB.CreateInBatches(notifications, notificationBatchSize).Error
}

// FindByUser 可按未读或创建时间下限过滤
func (r *NotificationRepository) FindByUser(userID uint, unreadOnly bool, since *time.Time) ([]model.Notification, error) {
	var notifications []model.Notification
	query := r.DB.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if since != nil {
		query = query.Where("created_at >= ?", since.UTC())
	}
	err := query.Order("created_at DESC").Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepository) FindByIDAndUser(id string, userID uint) (*model.Notification, error) {
	var n model.Notification
	err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) MarkRead(n *model.Notification) error {
	n.IsRead = true
	return r.DB.Model(n).Update("is_read", true).Error
}

func (r *NotificationRepository) MarkAllRead(userID uint) (int64, error) {
	res := r.DB.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) Delete(n *model.Notification) error {
	return r.DB.Delete(n).Error
}

// CountByTypeSince 统计某用户自 since 起某类通知条数
func (r *NotificationRepository) CountByTypeSince(userID uint, typ model.NotificationType, since time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Notification{}).
		Where("user_id = ? AND type = ? AND created_at >= ?", userID, typ, since.UTC()).
		Count(&count).Error
	return count, err
}
