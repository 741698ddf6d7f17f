package handlers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/equiprocure/backend/models"
)

// AutomationService runs escalation-scan cycles: it matches automation rules
// against escalated RFQs, dispatches deduplicated notifications, opens
// idempotent ops tasks, and records every cycle in the append-only run log.
type AutomationService struct {
	db         *gorm.DB
	escalation *EscalationService
	now        func() time.Time
}

// NewAutomationService creates a new automation service instance
func NewAutomationService(db *gorm.DB) *AutomationService {
	return &AutomationService{
		db:         db,
		escalation: NewEscalationService(db),
		now:        time.Now,
	}
}

// WithClock overrides the time source for the service and its scorer.
func (as *AutomationService) WithClock(now func() time.Time) *AutomationService {
	as.now = now
	as.escalation.WithClock(now)
	return as
}

// Notification templates per escalation level.
func baseNotification(item EscalationItem) (title, message string) {
	switch item.Level {
	case models.EscalationCritical:
		title = "SLA breach: RFQ overdue"
	default:
		title = "SLA warning: RFQ approaching breach"
	}
	message = fmt.Sprintf("RFQ %s (%s tier, %s) is %dh old against a %dh SLA target.",
		shortID(item.RFQID), item.ServiceTier, item.Status, item.AgeHours, item.SLATargetHours)
	return title, message
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

// dayStamp is the UTC calendar day used in dedupe keys; one alert per key
// per day, distinct the next day.
func (as *AutomationService) dayStamp() string {
	return as.now().UTC().Format("2006-01-02")
}

// cycleCounts accumulates side-effect totals; on failure the partial counts
// reached so far are written to the run log as-is.
type cycleCounts struct {
	matchedItems      int
	activeRules       int
	notificationsSent int
	tasksCreated      int
}

// RunEscalations executes one scan cycle for the organization. Source labels
// who triggered it ("manual", "scheduled"). Side effects committed before a
// failure are not rolled back; the run log entry records the partial counts
// and the FAILED status, and re-triggering is a manual decision.
func (as *AutomationService) RunEscalations(organizationID uuid.UUID, source string) (*models.AutomationRunLog, error) {
	if source == "" {
		source = "manual"
	}

	counts := cycleCounts{}
	runErr := as.runCycle(organizationID, &counts)

	entry := &models.AutomationRunLog{
		OrganizationID:    organizationID,
		TriggerType:       models.TriggerSLAEscalation,
		Source:            source,
		Status:            models.RunStatusSuccess,
		MatchedItems:      counts.matchedItems,
		ActiveRules:       counts.activeRules,
		NotificationsSent: counts.notificationsSent,
		TasksCreated:      counts.tasksCreated,
		// Dedupe suppresses at write time, and there is no retry loop:
		// both counters stay at zero by construction.
		Deduped:   0,
		Retries:   0,
		CreatedAt: as.now(),
	}
	if runErr != nil {
		entry.Status = models.RunStatusFailed
		msg := runErr.Error()
		entry.ErrorMessage = &msg
	}

	if err := as.db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to record run log: %w", err)
	}

	if runErr != nil {
		log.Printf("❌ Escalation cycle failed for org %s: %v", organizationID, runErr)
		return entry, &ServiceError{Kind: ErrKindInternal, Err: fmt.Errorf("escalation scan failed")}
	}

	log.Printf("✅ Escalation cycle for org %s: %d matched, %d notified, %d tasks",
		organizationID, counts.matchedItems, counts.notificationsSent, counts.tasksCreated)
	return entry, nil
}

func (as *AutomationService) runCycle(organizationID uuid.UUID, counts *cycleCounts) error {
	items, _, err := as.escalation.Scan(organizationID)
	if err != nil {
		return fmt.Errorf("escalation scan: %w", err)
	}
	counts.matchedItems = len(items)

	var rules []models.AutomationRule
	if err := as.db.
		Where("organization_id = ? AND trigger_type = ? AND is_active = ?", organizationID, models.TriggerSLAEscalation, true).
		Find(&rules).Error; err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	counts.activeRules = len(rules)

	day := as.dayStamp()
	for _, item := range items {
		if len(rules) == 0 {
			// Default path: one alert per RFQ per level per day. When rules
			// exist this path never runs, even for items no rule matches —
			// rule sets are treated as exhaustive.
			key := fmt.Sprintf("escalation:%s:%s:%s", day, item.RFQID, item.Level)
			title, message := baseNotification(item)
			sent, err := as.emitNotification(organizationID, item, title, message, key)
			if err != nil {
				return fmt.Errorf("default notification: %w", err)
			}
			if sent {
				counts.notificationsSent++
			}
		} else {
			// Every active rule is evaluated independently; an item may
			// trigger several rules and therefore several notifications.
			for _, rule := range rules {
				if !rule.Matches(item.ServiceTier, item.Level, item.AgeHours) {
					continue
				}
				title, message := baseNotification(item)
				if rule.ActionConfig.TitlePrefix != "" {
					title = strings.TrimSpace(rule.ActionConfig.TitlePrefix + " " + title)
				}
				if rule.ActionConfig.MessageSuffix != "" {
					message = strings.TrimSpace(message + " " + rule.ActionConfig.MessageSuffix)
				}
				key := fmt.Sprintf("escalation:%s:%s:%s:%s", day, rule.ID, item.RFQID, item.Level)
				sent, err := as.emitNotification(organizationID, item, title, message, key)
				if err != nil {
					return fmt.Errorf("rule %s notification: %w", rule.ID, err)
				}
				if sent {
					counts.notificationsSent++
				}
			}
		}

		// Task creation runs independently of notification dispatch.
		created, err := as.ensureOpsTask(organizationID, item)
		if err != nil {
			return fmt.Errorf("ops task for rfq %s: %w", item.RFQID, err)
		}
		if created {
			counts.tasksCreated++
		}
	}

	// lastRunAt is touched on every evaluated rule, matches or not.
	if len(rules) > 0 {
		ids := make([]uuid.UUID, len(rules))
		for i, r := range rules {
			ids[i] = r.ID
		}
		if err := as.db.Model(&models.AutomationRule{}).
			Where("id IN ?", ids).
			Update("last_run_at", as.now()).Error; err != nil {
			return fmt.Errorf("update lastRunAt: %w", err)
		}
	}

	return nil
}

// emitNotification writes one notification row. A duplicate dedupe key is
// suppressed by the store's unique index via ON CONFLICT DO NOTHING, so
// repeated scans the same day do not double-alert. Returns whether a row
// was actually inserted.
func (as *AutomationService) emitNotification(organizationID uuid.UUID, item EscalationItem, title, message, dedupeKey string) (bool, error) {
	priority := models.NotificationPriorityHigh
	if item.Level == models.EscalationCritical {
		priority = models.NotificationPriorityCritical
	}

	notification := models.Notification{
		OrganizationID: organizationID,
		Priority:       priority,
		Title:          title,
		Message:        message,
		DedupeKey:      dedupeKey,
		Metadata: models.JSONMap{
			"rfqId":           item.RFQID.String(),
			"escalationLevel": string(item.Level),
			"ageHours":        item.AgeHours,
			"slaTargetHours":  item.SLATargetHours,
			"serviceTier":     string(item.ServiceTier),
		},
		CreatedAt: as.now(),
	}

	result := as.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&notification)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ensureOpsTask opens a remediation task for the item unless an OPEN or
// ACKNOWLEDGED task with the same source signature already exists. The
// partial unique index on (organization, rfq, source, open statuses) closes
// the read-then-write race between overlapping scan cycles.
func (as *AutomationService) ensureOpsTask(organizationID uuid.UUID, item EscalationItem) (bool, error) {
	taskSource := fmt.Sprintf("sla_escalation:%s", item.Level)

	var existing int64
	if err := as.db.Model(&models.OpsTask{}).
		Where("organization_id = ? AND rfq_id = ? AND source = ? AND status IN ?",
			organizationID, item.RFQID, taskSource,
			[]models.TaskStatus{models.TaskStatusOpen, models.TaskStatusAcknowledged}).
		Count(&existing).Error; err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	priority := models.TaskPriorityHigh
	dueIn := 240 * time.Minute
	if item.Level == models.EscalationCritical {
		priority = models.TaskPriorityCritical
		dueIn = 60 * time.Minute
	}
	dueAt := as.now().Add(dueIn)

	rfqID := item.RFQID
	task := models.OpsTask{
		OrganizationID: organizationID,
		RFQID:          &rfqID,
		Title:          fmt.Sprintf("Clear %s SLA escalation on RFQ %s", item.Level, shortID(item.RFQID)),
		Details: fmt.Sprintf("RFQ %s is %dh old against a %dh target (%s tier, status %s).",
			shortID(item.RFQID), item.AgeHours, item.SLATargetHours, item.ServiceTier, item.Status),
		Priority:  priority,
		Source:    taskSource,
		Status:    models.TaskStatusOpen,
		DueAt:     &dueAt,
		CreatedAt: as.now(),
	}

	result := as.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&task)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListRunLogs retrieves recent scan cycles, newest first.
func (as *AutomationService) ListRunLogs(organizationID uuid.UUID, limit int) ([]models.AutomationRunLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []models.AutomationRunLog
	if err := as.db.
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
