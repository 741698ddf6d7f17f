package handlers

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/equiprocure/backend/models"
)

// NotificationService is the read/ack side of the notification store.
// Writing happens in the automation dispatcher; actual delivery (email,
// SMS, push) is an external concern.
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a new notification service instance
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// ListNotifications retrieves the organization's notifications, newest
// first, optionally only unread ones.
func (ns *NotificationService) ListNotifications(organizationID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := ns.db.Model(&models.Notification{}).Where("organization_id = ?", organizationID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkRead marks one notification as read.
func (ns *NotificationService) MarkRead(organizationID, notificationID uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := ns.db.First(&notification, "id = ? AND organization_id = ?", notificationID, organizationID).Error; err != nil {
		return nil, notFoundErr("notification not found: %v", err)
	}

	if notification.ReadAt == nil {
		notification.MarkAsRead()
		if err := ns.db.Save(&notification).Error; err != nil {
			return nil, err
		}
	}
	return &notification, nil
}

// GetUnreadCount gets the count of unread notifications for an organization
func (ns *NotificationService) GetUnreadCount(organizationID uuid.UUID) (int64, error) {
	var count int64
	if err := ns.db.Model(&models.Notification{}).
		Where("organization_id = ? AND read_at IS NULL", organizationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
