package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/equiprocure/backend/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestGetPoliciesDefaults(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	service := NewPolicyService(db)

	policies, err := service.GetPolicies(orgID)
	require.NoError(t, err)
	require.Len(t, policies, 3)

	byTier := map[models.ServiceTier]models.ApprovalPolicy{}
	for _, p := range policies {
		byTier[p.ServiceTier] = p
	}

	require.Equal(t, 2, byTier[models.ServiceTierEnterprise].RequiredApprovals)
	require.Equal(t, models.ApproverRoleOwner, byTier[models.ServiceTierEnterprise].ApproverTeamRole)
	require.Equal(t, 1, byTier[models.ServiceTierPriority].RequiredApprovals)
	require.Equal(t, models.ApproverRoleManager, byTier[models.ServiceTierPriority].ApproverTeamRole)
	require.Equal(t, 1, byTier[models.ServiceTierStandard].RequiredApprovals)
	require.Equal(t, models.ApproverRoleApprover, byTier[models.ServiceTierStandard].ApproverTeamRole)

	for _, p := range policies {
		require.Equal(t, 1.0, p.WarningThresholdRatio)
		require.Equal(t, 1.5, p.CriticalThresholdRatio)
	}
}

func TestUpsertPolicyMergesPartialUpdates(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	service := NewPolicyService(db)

	created, err := service.UpsertPolicy(orgID, models.ServiceTierPriority, UpsertPolicyInput{
		WarningThresholdRatio: floatPtr(1.2),
	})
	require.NoError(t, err)
	require.Equal(t, 1.2, created.WarningThresholdRatio)
	// Untouched fields keep their tier defaults.
	require.Equal(t, 1.5, created.CriticalThresholdRatio)
	require.Equal(t, 1, created.RequiredApprovals)

	updated, err := service.UpsertPolicy(orgID, models.ServiceTierPriority, UpsertPolicyInput{
		RequiredApprovals: intPtr(3),
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, 3, updated.RequiredApprovals)
	// The earlier override survives the second partial update.
	require.Equal(t, 1.2, updated.WarningThresholdRatio)

	var count int64
	require.NoError(t, db.Model(&models.ApprovalPolicy{}).Where("organization_id = ?", orgID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestUpsertPolicyValidation(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	service := NewPolicyService(db)

	cases := []UpsertPolicyInput{
		{RequiredApprovals: intPtr(0)},
		{RequiredApprovals: intPtr(6)},
		{WarningThresholdRatio: floatPtr(0.4)},
		{WarningThresholdRatio: floatPtr(3.1)},
		{CriticalThresholdRatio: floatPtr(0.9)},
		{CriticalThresholdRatio: floatPtr(4.5)},
	}
	for _, in := range cases {
		_, err := service.UpsertPolicy(orgID, models.ServiceTierStandard, in)
		require.Equal(t, ErrKindValidation, KindOf(err))
	}

	_, err := service.UpsertPolicy(orgID, "gold", UpsertPolicyInput{})
	require.Equal(t, ErrKindValidation, KindOf(err))
}

func TestUpsertPolicyDeactivation(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	service := NewPolicyService(db)

	_, err := service.UpsertPolicy(orgID, models.ServiceTierStandard, UpsertPolicyInput{
		WarningThresholdRatio: floatPtr(2.0),
		IsActive:              boolPtr(false),
	})
	require.NoError(t, err)

	// The row persists but is inactive; the scanner falls back to defaults.
	var stored models.ApprovalPolicy
	require.NoError(t, db.First(&stored, "organization_id = ? AND service_tier = ?", orgID, models.ServiceTierStandard).Error)
	require.False(t, stored.IsActive)
}

func TestPreviewImpact(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	userID := seedUser(t, db, orgID, models.UserRoleMember)
	now := baseTime
	service := NewPolicyService(db).WithClock(clockAt(now))

	// enterprise: 4h, 9h, 13h old against an 8h target
	seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusReceived, now.Add(-4*time.Hour))
	seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusReceived, now.Add(-9*time.Hour))
	seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusInProgress, now.Add(-13*time.Hour))
	// other tiers are out of scope for the preview
	seedRFQ(t, db, orgID, userID, models.ServiceTierStandard, models.RFQStatusReceived, now.Add(-200*time.Hour))

	counts, err := service.PreviewImpact(orgID, models.ServiceTierEnterprise, 1.0, 1.5)
	require.NoError(t, err)
	require.Equal(t, 3, counts.TotalActive)
	require.Equal(t, 1, counts.Warning)
	require.Equal(t, 1, counts.Critical)

	// Stricter candidate ratios pull more of the population in.
	counts, err = service.PreviewImpact(orgID, models.ServiceTierEnterprise, 0.5, 1.0)
	require.NoError(t, err)
	require.Equal(t, 1, counts.Warning)
	require.Equal(t, 2, counts.Critical)

	// Preview never writes.
	var policyCount int64
	require.NoError(t, db.Model(&models.ApprovalPolicy{}).Count(&policyCount).Error)
	require.Zero(t, policyCount)

	_, err = service.PreviewImpact(orgID, models.ServiceTierEnterprise, 0, 1.5)
	require.Equal(t, ErrKindValidation, KindOf(err))
}

func TestSimulateReportsDeltas(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	userID := seedUser(t, db, orgID, models.UserRoleMember)
	now := baseTime
	service := NewPolicyService(db).WithClock(clockAt(now))

	seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusReceived, now.Add(-9*time.Hour))
	seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusReceived, now.Add(-13*time.Hour))

	// Current = defaults (1.0/1.5): one warning, one critical.
	// Candidate 2.0/3.0: nothing escalates.
	result, err := service.Simulate(orgID, models.ServiceTierEnterprise, 2.0, 3.0)
	require.NoError(t, err)

	require.Equal(t, models.ServiceTierEnterprise, result.Tier)
	require.Equal(t, ImpactCounts{Warning: 1, Critical: 1, TotalActive: 2}, result.Current)
	require.Equal(t, ImpactCounts{Warning: 0, Critical: 0, TotalActive: 2}, result.Candidate)
	require.Equal(t, -1, result.WarningDelta)
	require.Equal(t, -1, result.CriticalDelta)
}

func TestSimulateUsesStoredPolicyAsBaseline(t *testing.T) {
	db := newTestDB(t)
	orgID := seedOrg(t, db)
	userID := seedUser(t, db, orgID, models.UserRoleMember)
	now := baseTime
	service := NewPolicyService(db).WithClock(clockAt(now))

	seedRFQ(t, db, orgID, userID, models.ServiceTierEnterprise, models.RFQStatusReceived, now.Add(-9*time.Hour))

	// With a lax stored policy the baseline sees nothing.
	_, err := service.UpsertPolicy(orgID, models.ServiceTierEnterprise, UpsertPolicyInput{
		WarningThresholdRatio:  floatPtr(2.0),
		CriticalThresholdRatio: floatPtr(3.0),
	})
	require.NoError(t, err)

	result, err := service.Simulate(orgID, models.ServiceTierEnterprise, 1.0, 1.5)
	require.NoError(t, err)
	require.Equal(t, ImpactCounts{TotalActive: 1}, result.Current)
	require.Equal(t, ImpactCounts{Warning: 1, TotalActive: 1}, result.Candidate)
	require.Equal(t, 1, result.WarningDelta)
	require.Zero(t, result.CriticalDelta)
}
