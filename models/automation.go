package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TriggerType identifies the event class an automation rule reacts to.
type TriggerType string

const (
	TriggerSLAEscalation TriggerType = "sla_escalation"
)

// ActionType identifies what a matched rule does.
type ActionType string

const (
	ActionNotifyAdmin ActionType = "notify_admin"
)

// EscalationLevel classifies how far past its SLA budget an RFQ is.
type EscalationLevel string

const (
	EscalationWarning  EscalationLevel = "warning"
	EscalationCritical EscalationLevel = "critical"
)

// RuleCondition is the closed condition structure evaluated against an
// escalation item. A nil field means "any".
type RuleCondition struct {
	ServiceTier     *ServiceTier     `json:"serviceTier,omitempty"`
	EscalationLevel *EscalationLevel `json:"escalationLevel,omitempty"`
	MinAgeHours     *int             `json:"minAgeHours,omitempty"`
}

// Scan implements sql.Scanner for RuleCondition
func (c *RuleCondition) Scan(value interface{}) error {
	if value == nil {
		*c = RuleCondition{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, c)
}

// Value implements driver.Valuer for RuleCondition
func (c RuleCondition) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// GormDataType defines the data type for GORM
func (RuleCondition) GormDataType() string {
	return "jsonb"
}

// RuleActionConfig customizes the notification a matched rule produces.
type RuleActionConfig struct {
	TitlePrefix   string `json:"titlePrefix,omitempty"`
	MessageSuffix string `json:"messageSuffix,omitempty"`
}

// Scan implements sql.Scanner for RuleActionConfig
func (a *RuleActionConfig) Scan(value interface{}) error {
	if value == nil {
		*a = RuleActionConfig{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// Value implements driver.Valuer for RuleActionConfig
func (a RuleActionConfig) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// GormDataType defines the data type for GORM
func (RuleActionConfig) GormDataType() string {
	return "jsonb"
}

// AutomationRule is an organization-scoped trigger/action binding evaluated
// on every escalation scan cycle.
type AutomationRule struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organizationId"`

	Name        string      `gorm:"size:200;not null" json:"name"`
	TriggerType TriggerType `gorm:"size:30;not null;default:'sla_escalation'" json:"triggerType"`
	ActionType  ActionType  `gorm:"size:30;not null;default:'notify_admin'" json:"actionType"`

	Condition    RuleCondition    `gorm:"type:jsonb;default:'{}'" json:"condition"`
	ActionConfig RuleActionConfig `gorm:"type:jsonb;default:'{}'" json:"actionConfig"`

	IsActive bool `gorm:"default:true" json:"isActive"`
	// LastRunAt is touched every scan cycle that evaluates the rule,
	// whether or not it matched anything.
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (AutomationRule) TableName() string {
	return "automation_rules"
}

func (r *AutomationRule) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// Matches reports whether the rule condition covers the given escalation item.
func (r *AutomationRule) Matches(tier ServiceTier, level EscalationLevel, ageHours int) bool {
	if r.Condition.ServiceTier != nil && *r.Condition.ServiceTier != tier {
		return false
	}
	if r.Condition.EscalationLevel != nil && *r.Condition.EscalationLevel != level {
		return false
	}
	if r.Condition.MinAgeHours != nil && ageHours < *r.Condition.MinAgeHours {
		return false
	}
	return true
}

// RunStatus is the outcome of one scan cycle.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// AutomationRunLog is the append-only record of one escalation-scan
// execution. Rows are never updated after creation.
type AutomationRunLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organizationId"`

	TriggerType TriggerType `gorm:"size:30;not null" json:"triggerType"`
	Source      string      `gorm:"size:50;not null" json:"source"`
	Status      RunStatus   `gorm:"size:10;not null" json:"status"`

	MatchedItems      int `gorm:"not null;default:0" json:"matchedItems"`
	ActiveRules       int `gorm:"not null;default:0" json:"activeRules"`
	NotificationsSent int `gorm:"not null;default:0" json:"notificationsSent"`
	TasksCreated      int `gorm:"not null;default:0" json:"tasksCreated"`
	Deduped           int `gorm:"not null;default:0" json:"deduped"`
	Retries           int `gorm:"not null;default:0" json:"retries"`

	ErrorMessage *string   `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (AutomationRunLog) TableName() string {
	return "automation_run_logs"
}

func (l *AutomationRunLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return
}
