package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/equiprocure/backend/models"
)

func TestCreateRuleDefaults(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	service := NewRuleService(db)

	rule, err := service.CreateRule(orgID, CreateRuleInput{Name: "Notify on any escalation"})
	require.NoError(t, err)

	require.Equal(t, models.TriggerSLAEscalation, rule.TriggerType)
	require.Equal(t, models.ActionNotifyAdmin, rule.ActionType)
	require.True(t, rule.IsActive)
	require.Nil(t, rule.LastRunAt)

	// An empty condition matches everything.
	require.True(t, rule.Matches(models.ServiceTierStandard, models.EscalationWarning, 80))
	require.True(t, rule.Matches(models.ServiceTierEnterprise, models.EscalationCritical, 9))
}

func TestCreateRuleValidation(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	service := NewRuleService(db)

	_, err := service.CreateRule(orgID, CreateRuleInput{})
	require.Equal(t, ErrKindValidation, KindOf(err))

	_, err = service.CreateRule(orgID, CreateRuleInput{Name: "R", TriggerType: "offer_created"})
	require.Equal(t, ErrKindValidation, KindOf(err))

	_, err = service.CreateRule(orgID, CreateRuleInput{Name: "R", ActionType: "send_webhook"})
	require.Equal(t, ErrKindValidation, KindOf(err))

	badTier := models.ServiceTier("gold")
	_, err = service.CreateRule(orgID, CreateRuleInput{Name: "R", Condition: models.RuleCondition{ServiceTier: &badTier}})
	require.Equal(t, ErrKindValidation, KindOf(err))

	badLevel := models.EscalationLevel("severe")
	_, err = service.CreateRule(orgID, CreateRuleInput{Name: "R", Condition: models.RuleCondition{EscalationLevel: &badLevel}})
	require.Equal(t, ErrKindValidation, KindOf(err))

	negative := -1
	_, err = service.CreateRule(orgID, CreateRuleInput{Name: "R", Condition: models.RuleCondition{MinAgeHours: &negative}})
	require.Equal(t, ErrKindValidation, KindOf(err))
}

func TestRuleConditionMatching(t *testing.T) {
	enterprise := models.ServiceTierEnterprise
	warning := models.EscalationWarning
	minAge := 12

	rule := models.AutomationRule{Condition: models.RuleCondition{
		ServiceTier:     &enterprise,
		EscalationLevel: &warning,
		MinAgeHours:     &minAge,
	}}

	require.True(t, rule.Matches(models.ServiceTierEnterprise, models.EscalationWarning, 12))
	require.True(t, rule.Matches(models.ServiceTierEnterprise, models.EscalationWarning, 40))
	require.False(t, rule.Matches(models.ServiceTierEnterprise, models.EscalationWarning, 11))
	require.False(t, rule.Matches(models.ServiceTierStandard, models.EscalationWarning, 12))
	require.False(t, rule.Matches(models.ServiceTierEnterprise, models.EscalationCritical, 12))
}

func TestSetRuleActive(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	otherOrg := seedOrg(t, db)
	service := NewRuleService(db)

	rule, err := service.CreateRule(orgID, CreateRuleInput{Name: "Toggle me"})
	require.NoError(t, err)

	toggled, err := service.SetRuleActive(orgID, rule.ID, false)
	require.NoError(t, err)
	require.False(t, toggled.IsActive)

	// Rules are invisible across organizations.
	_, err = service.SetRuleActive(otherOrg, rule.ID, true)
	require.Equal(t, ErrKindNotFound, KindOf(err))
}
