package postgres

import (
	"gorm.io/gorm"

	notificationmodel "storage-marketplace/internal/core/datamodel/notification"
	notificationpkg "storage-marketplace/internal/notification"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notificationpkg.Repository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *notificationmodel.Notification) error {
	return r.db.Create(n).Error
}

func (r *NotificationRepository) GetByID(id int64) (*notificationmodel.Notification, error) {
	var n notificationmodel.Notification
	err := r.db.First(&n, id).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) GetByRecipient(recipientID int64, limit int) ([]*notificationmodel.Notification, error) {
	var notifications []*notificationmodel.Notification
	err := r.db.Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// MarkActionCompleted is a conditional update so concurrent attempts cannot
// both win: only the row still carrying action_completed = false is flipped.
func (r *NotificationRepository) MarkActionCompleted(id int64) (bool, error) {
	result := r.db.Model(&notificationmodel.Notification{}).
		Where("id = ? AND action_completed = ?", id, false).
		UpdateColumn("action_completed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
