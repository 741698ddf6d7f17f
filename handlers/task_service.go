package handlers

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/equiprocure/backend/models"
)

// TaskService manages the back-office remediation queue.
type TaskService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTaskService creates a new task service instance
func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (ts *TaskService) WithClock(now func() time.Time) *TaskService {
	ts.now = now
	return ts
}

// ListTasks retrieves the organization's ops tasks, optionally filtered by
// status, most urgent due date first.
func (ts *TaskService) ListTasks(organizationID uuid.UUID, status models.TaskStatus, limit, offset int) ([]models.OpsTask, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := ts.db.Model(&models.OpsTask{}).Where("organization_id = ?", organizationID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []models.OpsTask
	if err := query.Order("due_at ASC NULLS LAST, created_at DESC").Limit(limit).Offset(offset).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// AcknowledgeTask moves an open task to acknowledged and records the assignee.
func (ts *TaskService) AcknowledgeTask(organizationID, taskID, assigneeID uuid.UUID) (*models.OpsTask, error) {
	var task models.OpsTask
	if err := ts.db.First(&task, "id = ? AND organization_id = ?", taskID, organizationID).Error; err != nil {
		return nil, notFoundErr("task not found: %v", err)
	}
	if task.Status != models.TaskStatusOpen {
		return nil, conflictErr("task cannot be acknowledged (status: %s)", task.Status)
	}

	task.Status = models.TaskStatusAcknowledged
	task.AssigneeID = &assigneeID
	if err := ts.db.Save(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ResolveTask closes a task and stamps the resolution time.
func (ts *TaskService) ResolveTask(organizationID, taskID uuid.UUID) (*models.OpsTask, error) {
	var task models.OpsTask
	if err := ts.db.First(&task, "id = ? AND organization_id = ?", taskID, organizationID).Error; err != nil {
		return nil, notFoundErr("task not found: %v", err)
	}
	if task.Status == models.TaskStatusResolved {
		return nil, conflictErr("task is already resolved")
	}

	now := ts.now()
	task.Status = models.TaskStatusResolved
	task.ResolvedAt = &now
	if err := ts.db.Save(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}
