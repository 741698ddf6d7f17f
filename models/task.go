package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskPriority orders remediation work items.
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "LOW"
	TaskPriorityMedium   TaskPriority = "MEDIUM"
	TaskPriorityHigh     TaskPriority = "HIGH"
	TaskPriorityCritical TaskPriority = "CRITICAL"
)

// TaskStatus is the lifecycle state of an ops task.
type TaskStatus string

const (
	TaskStatusOpen         TaskStatus = "OPEN"
	TaskStatusAcknowledged TaskStatus = "ACKNOWLEDGED"
	TaskStatusResolved     TaskStatus = "RESOLVED"
)

// OpsTask is a remediation work item, optionally linked to an RFQ.
// For a given (organization, rfq, source) at most one task may be OPEN or
// ACKNOWLEDGED at a time; a partial unique index enforces this at the store
// so concurrent scan cycles cannot double-insert.
type OpsTask struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organizationId"`
	RFQID          *uuid.UUID `gorm:"type:uuid;index" json:"rfqId,omitempty"`

	Title   string `gorm:"size:300;not null" json:"title"`
	Details string `gorm:"type:text" json:"details,omitempty"`

	Priority TaskPriority `gorm:"size:10;not null;default:'MEDIUM'" json:"priority"`
	// Source is a short machine-readable signature, e.g. "sla_escalation:critical".
	Source string     `gorm:"size:100;not null;index" json:"source"`
	Status TaskStatus `gorm:"size:15;not null;default:'OPEN';index" json:"status"`

	AssigneeID *uuid.UUID `gorm:"type:uuid" json:"assigneeId,omitempty"`
	DueAt      *time.Time `json:"dueAt,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (OpsTask) TableName() string {
	return "ops_tasks"
}

func (t *OpsTask) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

// IsOpen reports whether the task still needs operator attention.
func (t *OpsTask) IsOpen() bool {
	return t.Status == TaskStatusOpen || t.Status == TaskStatusAcknowledged
}
