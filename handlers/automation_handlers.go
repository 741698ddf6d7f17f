package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/equiprocure/backend/config"
	"github.com/equiprocure/backend/middleware"
	"github.com/equiprocure/backend/models"
)

// CreateAutomationRule handles POST /admin/automation/rules
func CreateAutomationRule(w http.ResponseWriter, r *http.Request) {
	var in CreateRuleInput
	if !decodeBody(w, r, &in) {
		return
	}

	service := NewRuleService(config.DB)
	rule, err := service.CreateRule(middleware.GetOrganizationID(r), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// ListAutomationRules handles GET /admin/automation/rules
func ListAutomationRules(w http.ResponseWriter, r *http.Request) {
	service := NewRuleService(config.DB)
	rules, err := service.ListRules(middleware.GetOrganizationID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// ToggleAutomationRule handles PUT /admin/automation/rules/{id}/active
func ToggleAutomationRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid rule ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	service := NewRuleService(config.DB)
	rule, err := service.SetRuleActive(middleware.GetOrganizationID(r), ruleID, req.Active)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// RunEscalations handles POST /admin/automation/run-escalations
func RunEscalations(w http.ResponseWriter, r *http.Request) {
	service := NewAutomationService(config.DB)
	entry, err := service.RunEscalations(middleware.GetOrganizationID(r), "manual")
	if err != nil {
		// The run log entry is already written; the caller gets the
		// generic failure signal.
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ListRunLogs handles GET /admin/automation/runs
func ListRunLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	service := NewAutomationService(config.DB)
	logs, err := service.ListRunLogs(middleware.GetOrganizationID(r), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// GetEscalationQueue handles GET /admin/escalations
func GetEscalationQueue(w http.ResponseWriter, r *http.Request) {
	service := NewEscalationService(config.DB)
	items, summary, err := service.Scan(middleware.GetOrganizationID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":   items,
		"summary": summary,
	})
}

// ListOpsTasks handles GET /admin/tasks
func ListOpsTasks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	status := models.TaskStatus(r.URL.Query().Get("status"))

	service := NewTaskService(config.DB)
	tasks, total, err := service.ListTasks(middleware.GetOrganizationID(r), status, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":  tasks,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// AcknowledgeOpsTask handles POST /admin/tasks/{id}/acknowledge
func AcknowledgeOpsTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid task ID", http.StatusBadRequest)
		return
	}

	service := NewTaskService(config.DB)
	task, err := service.AcknowledgeTask(middleware.GetOrganizationID(r), taskID, middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ResolveOpsTask handles POST /admin/tasks/{id}/resolve
func ResolveOpsTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid task ID", http.StatusBadRequest)
		return
	}

	service := NewTaskService(config.DB)
	task, err := service.ResolveTask(middleware.GetOrganizationID(r), taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ListNotifications handles GET /admin/notifications
func ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	unreadOnly := r.URL.Query().Get("unread") == "true"

	service := NewNotificationService(config.DB)
	notifications, total, err := service.ListNotifications(middleware.GetOrganizationID(r), unreadOnly, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"total":         total,
		"limit":         limit,
		"offset":        offset,
	})
}

// MarkNotificationRead handles POST /admin/notifications/{id}/read
func MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid notification ID", http.StatusBadRequest)
		return
	}

	service := NewNotificationService(config.DB)
	notification, err := service.MarkRead(middleware.GetOrganizationID(r), notificationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notification)
}

// GetUnreadNotificationCount handles GET /admin/notifications/unread-count
func GetUnreadNotificationCount(w http.ResponseWriter, r *http.Request) {
	service := NewNotificationService(config.DB)
	count, err := service.GetUnreadCount(middleware.GetOrganizationID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}
