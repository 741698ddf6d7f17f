package handlers

import (
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/equiprocure/backend/models"
)

// RuleService manages the organization's automation rules.
type RuleService struct {
	db *gorm.DB
}

// NewRuleService creates a new rule service instance
func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{db: db}
}

// CreateRuleInput carries the admin-supplied fields for a new rule.
type CreateRuleInput struct {
	Name         string                  `json:"name"`
	TriggerType  models.TriggerType      `json:"triggerType"`
	ActionType   models.ActionType       `json:"actionType"`
	Condition    models.RuleCondition    `json:"condition"`
	ActionConfig models.RuleActionConfig `json:"actionConfig"`
}

// CreateRule validates and persists a new automation rule, active by default.
func (rs *RuleService) CreateRule(organizationID uuid.UUID, in CreateRuleInput) (*models.AutomationRule, error) {
	if in.Name == "" {
		return nil, validationErr("rule name is required")
	}
	if in.TriggerType == "" {
		in.TriggerType = models.TriggerSLAEscalation
	}
	if in.TriggerType != models.TriggerSLAEscalation {
		return nil, validationErr("unsupported trigger type %q", in.TriggerType)
	}
	if in.ActionType == "" {
		in.ActionType = models.ActionNotifyAdmin
	}
	if in.ActionType != models.ActionNotifyAdmin {
		return nil, validationErr("unsupported action type %q", in.ActionType)
	}
	if in.Condition.ServiceTier != nil && !in.Condition.ServiceTier.Valid() {
		return nil, validationErr("unknown service tier %q in condition", *in.Condition.ServiceTier)
	}
	if in.Condition.EscalationLevel != nil &&
		*in.Condition.EscalationLevel != models.EscalationWarning &&
		*in.Condition.EscalationLevel != models.EscalationCritical {
		return nil, validationErr("unknown escalation level %q in condition", *in.Condition.EscalationLevel)
	}
	if in.Condition.MinAgeHours != nil && *in.Condition.MinAgeHours < 0 {
		return nil, validationErr("minAgeHours must not be negative")
	}

	rule := &models.AutomationRule{
		OrganizationID: organizationID,
		Name:           in.Name,
		TriggerType:    in.TriggerType,
		ActionType:     in.ActionType,
		Condition:      in.Condition,
		ActionConfig:   in.ActionConfig,
		IsActive:       true,
	}
	if err := rs.db.Create(rule).Error; err != nil {
		return nil, err
	}

	log.Printf("✅ Created automation rule %q for org %s", rule.Name, organizationID)
	return rule, nil
}

// SetRuleActive toggles a rule on or off.
func (rs *RuleService) SetRuleActive(organizationID, ruleID uuid.UUID, active bool) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	if err := rs.db.First(&rule, "id = ? AND organization_id = ?", ruleID, organizationID).Error; err != nil {
		return nil, notFoundErr("rule not found: %v", err)
	}

	rule.IsActive = active
	if err := rs.db.Save(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRules retrieves the organization's rules, newest first.
func (rs *RuleService) ListRules(organizationID uuid.UUID) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	if err := rs.db.
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
