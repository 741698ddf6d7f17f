package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationPriority defines the priority level
type NotificationPriority string

const (
	NotificationPriorityLow      NotificationPriority = "low"
	NotificationPriorityNormal   NotificationPriority = "normal"
	NotificationPriorityHigh     NotificationPriority = "high"
	NotificationPriorityCritical NotificationPriority = "critical"
)

// Notification is an alert row written for later display by the read API.
// This core never sends email/SMS/push; delivery is an external concern.
//
// DedupeKey carries a unique index: a second insert with the same key is
// suppressed at write time rather than being counted or erroring, which is
// what keeps repeated scan cycles from double-alerting within a day.
type Notification struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organizationId"`
	UserID         *uuid.UUID `gorm:"type:uuid;index" json:"userId,omitempty"`

	Priority NotificationPriority `gorm:"size:20;default:'normal'" json:"priority"`
	Title    string               `gorm:"size:500;not null" json:"title"`
	Message  string               `gorm:"type:text;not null" json:"message"`
	Metadata JSONMap              `gorm:"type:jsonb" json:"metadata,omitempty"`

	DedupeKey string `gorm:"size:200;not null;uniqueIndex" json:"dedupeKey"`

	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

// MarkAsRead marks the notification as read
func (n *Notification) MarkAsRead() {
	now := time.Now()
	n.ReadAt = &now
}
