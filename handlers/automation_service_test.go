package handlers

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/equiprocure/backend/models"
)

func TestRunEscalationsDefaultPath(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	userID := seedUser(t, db, orgID, models.UserRoleMember)
	now := baseTime
	service := NewAutomationService(db).WithClock(clockAt(now))

	warn := seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusReceived, now.Add(-9*time.Hour))
	crit := seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusInProgress, now.Add(-13*time.Hour))

	entry, err := service.RunEscalations(orgID, "manual")
	require.NoError(t, err)

	require.Equal(t, models.RunStatusSuccess, entry.Status)
	require.Equal(t, "manual", entry.Source)
	require.Equal(t, 2, entry.MatchedItems)
	require.Equal(t, 0, entry.ActiveRules)
	require.Equal(t, 2, entry.NotificationsSent)
	require.Equal(t, 2, entry.TasksCreated)
	require.Zero(t, entry.Deduped)
	require.Zero(t, entry.Retries)

	var notifications []models.Notification
	require.NoError(t, db.Order("created_at").Find(&notifications).Error)
	require.Len(t, notifications, 2)

	day := now.UTC().Format("2006-01-02")
	keys := map[string]bool{}
	for _, n := range notifications {
		keys[n.DedupeKey] = true
	}
	require.True(t, keys[fmt.Sprintf("escalation:%s:%s:warning", day, warn.ID)])
	require.True(t, keys[fmt.Sprintf("escalation:%s:%s:critical", day, crit.ID)])

	var tasks []models.OpsTask
	require.NoError(t, db.Order("created_at").Find(&tasks).Error)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		require.Equal(t, models.TaskStatusOpen, task.Status)
		require.NotNil(t, task.DueAt)
		switch task.Source {
		case "sla_escalation:critical":
			require.Equal(t, models.TaskPriorityCritical, task.Priority)
			require.True(t, task.DueAt.Equal(now.Add(60*time.Minute)))
		case "sla_escalation:warning":
			require.Equal(t, models.TaskPriorityHigh, task.Priority)
			require.True(t, task.DueAt.Equal(now.Add(240*time.Minute)))
		default:
			t.Fatalf("unexpected task source %q", task.Source)
		}
	}
}

func TestRunEscalationsSameDayDedupe(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	userID := seedUser(t, db, orgID, models.UserRoleMember)
	now := baseTime
	service := NewAutomationService(db).WithClock(clockAt(now))

	seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusReceived, now.Add(-9*time.Hour))

	first, err := service.RunEscalations(orgID, "manual")
	require.NoError(t, err)
	require.Equal(t, 1, first.NotificationsSent)
	require.Equal(t, 1, first.TasksCreated)

	// A second cycle minutes later must not double-alert or double-task.
	service.WithClock(clockAt(now.Add(30 * time.Minute)))
	second, err := service.RunEscalations(orgID, "manual")
	require.NoError(t, err)
	require.Equal(t, 1, second.MatchedItems)
	require.Zero(t, second.NotificationsSent)
	require.Zero(t, second.TasksCreated)

	var notifications int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
	require.EqualValues(t, 1, notifications)

	var tasks int64
	require.NoError(t, db.Model(&models.OpsTask{}).Count(&tasks).Error)
	require.EqualValues(t, 1, tasks)

	// Every cycle lands in the run log regardless of what it sent.
	logs, err := service.ListRunLogs(orgID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestRunEscalationsNextDayAlertsAgain(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	userID := seedUser(t, db, orgID, models.UserRoleMember)
	now := baseTime
	service := NewAutomationService(db).WithClock(clockAt(now))

	// Deep into critical so the level stays put across the day boundary.
	seedRFQ(t, db, orgID, userID, models.ServiceTierStandard, models.RFQStatusReceived, now.Add(-150*time.Hour))

	first, err := service.RunEscalations(orgID, "scheduled")
	require.NoError(t, err)
	require.Equal(t, 1, first.NotificationsSent)

	// The UTC day stamp changes, so the same RFQ and level alert again.
	service.WithClock(clockAt(now.Add(24 * time.Hour)))
	second, err := service.RunEscalations(orgID, "scheduled")
	require.NoError(t, err)
	require.Equal(t, 1, second.NotificationsSent)
	// The task from yesterday is still open, so no new one.
	require.Zero(t, second.TasksCreated)
}

func TestRunEscalationsLevelChangeAlertsAgain(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	userID := seedUser(t, db, orgID, models.UserRoleMember)
	now := baseTime
	service := NewAutomationService(db).WithClock(clockAt(now))

	// 9h against 8h: warning now, critical three hours later.
	seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusReceived, now.Add(-9*time.Hour))

	first, err := service.RunEscalations(orgID, "manual")
	require.NoError(t, err)
	require.Equal(t, 1, first.NotificationsSent)

	service.WithClock(clockAt(now.Add(3 * time.Hour)))
	second, err := service.RunEscalations(orgID, "manual")
	require.NoError(t, err)
	// Same day but a different level makes a different dedupe key.
	require.Equal(t, 1, second.NotificationsSent)
	// The critical level also carries its own task signature.
	require.Equal(t, 1, second.TasksCreated)

	var sources []string
	require.NoError(t, db.Model(&models.OpsTask{}).Order("created_at").Pluck("source", &sources).Error)
	require.Equal(t, []string{"sla_escalation:warning", "sla_escalation:critical"}, sources)
}

func TestRunEscalationsRulesNoneMatchingStaysSilent(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	userID := seedUser(t, db, orgID, models.UserRoleMember)
	now := baseTime
	service := NewAutomationService(db).WithClock(clockAt(now))

	// Warning-level item, but the only active rule wants critical.
	seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusReceived, now.Add(-9*time.Hour))

	critOnly := models.EscalationCritical
	_, err := NewRuleService(db).CreateRule(orgID, CreateRuleInput{
		Name:      "Critical pager",
		Condition: models.RuleCondition{EscalationLevel: &critOnly},
	})
	require.NoError(t, err)

	entry, err := service.RunEscalations(orgID, "manual")
	require.NoError(t, err)

	// When rules exist the default path is off: no rule match, no alert.
	require.Equal(t, models.RunStatusSuccess, entry.Status)
	require.Equal(t, 1, entry.MatchedItems)
	require.Equal(t, 1, entry.ActiveRules)
	require.Zero(t, entry.NotificationsSent)
	// Task creation is independent of notification dispatch.
	require.Equal(t, 1, entry.TasksCreated)

	var notifications int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
	require.Zero(t, notifications)

	// The rule was still evaluated, so its lastRunAt is touched.
	var rule models.AutomationRule
	require.NoError(t, db.First(&rule, "organization_id = ?", orgID).Error)
	require.NotNil(t, rule.LastRunAt)
}

func TestRunEscalationsMatchingRules(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	userID := seedUser(t, db, orgID, models.UserRoleMember)
	now := baseTime
	service := NewAutomationService(db).WithClock(clockAt(now))

	rfq := seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusReceived, now.Add(-13*time.Hour))

	ruleService := NewRuleService(db)
	critOnly := models.EscalationCritical
	pager, err := ruleService.CreateRule(orgID, CreateRuleInput{
		Name:      "Critical pager",
		Condition: models.RuleCondition{EscalationLevel: &critOnly},
		ActionConfig: models.RuleActionConfig{
			TitlePrefix:   "[PAGER]",
			MessageSuffix: "Escalate to the sourcing desk lead.",
		},
	})
	require.NoError(t, err)

	enterprise := models.ServiceTierEnterprise
	watcher, err := ruleService.CreateRule(orgID, CreateRuleInput{
		Name:      "Enterprise watcher",
		Condition: models.RuleCondition{ServiceTier: &enterprise},
	})
	require.NoError(t, err)

	// Inactive rules never fire.
	minAge := 1
	muted, err := ruleService.CreateRule(orgID, CreateRuleInput{
		Name:      "Muted rule",
		Condition: models.RuleCondition{MinAgeHours: &minAge},
	})
	require.NoError(t, err)
	_, err = ruleService.SetRuleActive(orgID, muted.ID, false)
	require.NoError(t, err)

	entry, err := service.RunEscalations(orgID, "manual")
	require.NoError(t, err)

	// One item, two matching rules, two independent notifications.
	require.Equal(t, 2, entry.ActiveRules)
	require.Equal(t, 2, entry.NotificationsSent)
	require.Equal(t, 1, entry.TasksCreated)

	day := now.UTC().Format("2006-01-02")
	var notifications []models.Notification
	require.NoError(t, db.Order("created_at").Find(&notifications).Error)
	require.Len(t, notifications, 2)

	byKey := map[string]models.Notification{}
	for _, n := range notifications {
		byKey[n.DedupeKey] = n
	}

	pagerNote, ok := byKey[fmt.Sprintf("escalation:%s:%s:%s:critical", day, pager.ID, rfq.ID)]
	require.True(t, ok)
	require.True(t, strings.HasPrefix(pagerNote.Title, "[PAGER] "))
	require.True(t, strings.HasSuffix(pagerNote.Message, "Escalate to the sourcing desk lead."))
	require.Equal(t, models.NotificationPriorityCritical, pagerNote.Priority)

	_, ok = byKey[fmt.Sprintf("escalation:%s:%s:%s:critical", day, watcher.ID, rfq.ID)]
	require.True(t, ok)
}

func TestRunEscalationsTaskReopensAfterResolve(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	userID := seedUser(t, db, orgID, models.UserRoleMember)
	adminID := seedUser(t, db, orgID, models.UserRoleAdmin)
	now := baseTime
	service := NewAutomationService(db).WithClock(clockAt(now))

	seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusReceived, now.Add(-9*time.Hour))

	_, err := service.RunEscalations(orgID, "manual")
	require.NoError(t, err)

	var task models.OpsTask
	require.NoError(t, db.First(&task, "organization_id = ?", orgID).Error)

	taskService := NewTaskService(db).WithClock(clockAt(now))

	// Acknowledged still blocks a new task for the same signature.
	_, err = taskService.AcknowledgeTask(orgID, task.ID, adminID)
	require.NoError(t, err)
	entry, err := service.RunEscalations(orgID, "manual")
	require.NoError(t, err)
	require.Zero(t, entry.TasksCreated)

	// Once resolved, the persisting breach opens a fresh task.
	_, err = taskService.ResolveTask(orgID, task.ID)
	require.NoError(t, err)
	entry, err = service.RunEscalations(orgID, "manual")
	require.NoError(t, err)
	require.Equal(t, 1, entry.TasksCreated)
}

func TestRunEscalationsQuietCycleStillLogged(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	service := NewAutomationService(db).WithClock(clockAt(baseTime))

	entry, err := service.RunEscalations(orgID, "")
	require.NoError(t, err)

	require.Equal(t, models.RunStatusSuccess, entry.Status)
	require.Equal(t, "manual", entry.Source)
	require.Zero(t, entry.MatchedItems)
	require.Zero(t, entry.NotificationsSent)
	require.Zero(t, entry.TasksCreated)
	require.Nil(t, entry.ErrorMessage)

	logs, err := service.ListRunLogs(orgID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
}
