package handlers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/equiprocure/backend/models"
)

func seedTask(t *testing.T, db *gorm.DB, orgID uuid.UUID, status models.TaskStatus, dueAt *time.Time) *models.OpsTask {
	t.Helper()
	task := &models.OpsTask{
		OrganizationID: orgID,
		Title:          "Follow up on overdue RFQ",
		Priority:       models.TaskPriorityHigh,
		Source:         "manual",
		Status:         status,
		DueAt:          dueAt,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func TestTaskLifecycle(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	adminID := seedUser(t, db, orgID, models.UserRoleAdmin)
	service := NewTaskService(db).WithClock(clockAt(baseTime))

	task := seedTask(t, db, orgID, models.TaskStatusOpen, nil)

	acked, err := service.AcknowledgeTask(orgID, task.ID, adminID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusAcknowledged, acked.Status)
	require.Equal(t, adminID, *acked.AssigneeID)

	// Acknowledging twice conflicts.
	_, err = service.AcknowledgeTask(orgID, task.ID, adminID)
	require.Equal(t, ErrKindConflict, KindOf(err))

	resolved, err := service.ResolveTask(orgID, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	require.True(t, resolved.ResolvedAt.Equal(baseTime))

	_, err = service.ResolveTask(orgID, task.ID)
	require.Equal(t, ErrKindConflict, KindOf(err))
}

func TestResolveSkipsAcknowledge(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	service := NewTaskService(db).WithClock(clockAt(baseTime))

	task := seedTask(t, db, orgID, models.TaskStatusOpen, nil)

	// Open tasks may be resolved directly.
	resolved, err := service.ResolveTask(orgID, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusResolved, resolved.Status)
}

func TestListTasksOrderingAndFilter(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	service := NewTaskService(db)

	soon := baseTime.Add(time.Hour)
	later := baseTime.Add(4 * time.Hour)
	urgent := seedTask(t, db, orgID, models.TaskStatusOpen, &soon)
	relaxed := seedTask(t, db, orgID, models.TaskStatusOpen, &later)
	undated := seedTask(t, db, orgID, models.TaskStatusResolved, nil)

	tasks, total, err := service.ListTasks(orgID, "", 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Equal(t, urgent.ID, tasks[0].ID)
	require.Equal(t, relaxed.ID, tasks[1].ID)
	require.Equal(t, undated.ID, tasks[2].ID)

	open, total, err := service.ListTasks(orgID, models.TaskStatusOpen, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, open, 2)
}

func TestTaskOrgScoping(t *testing.T) {
	db := newTestDB(t)
	orgA := seedOrg(t, db)
	orgB := seedOrg(t, db)
	adminID := seedUser(t, db, orgA, models.UserRoleAdmin)
	service := NewTaskService(db)

	task := seedTask(t, db, orgA, models.TaskStatusOpen, nil)

	_, err := service.AcknowledgeTask(orgB, task.ID, adminID)
	require.Equal(t, ErrKindNotFound, KindOf(err))
	_, err = service.ResolveTask(orgB, task.ID)
	require.Equal(t, ErrKindNotFound, KindOf(err))
}
