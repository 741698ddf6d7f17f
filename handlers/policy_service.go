package handlers

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/equiprocure/backend/models"
)

// PolicyService owns per-tier approval policies and the what-if simulators.
type PolicyService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPolicyService creates a new policy service instance
func NewPolicyService(db *gorm.DB) *PolicyService {
	return &PolicyService{db: db, now: time.Now}
}

// WithClock overrides the time source, used by tests to simulate ages.
func (ps *PolicyService) WithClock(now func() time.Time) *PolicyService {
	ps.now = now
	return ps
}

// UpsertPolicyInput carries partial policy fields; nil means "keep current".
type UpsertPolicyInput struct {
	RequiredApprovals      *int                 `json:"requiredApprovals"`
	ApproverTeamRole       *models.ApproverRole `json:"approverTeamRole"`
	AutoAssignEnabled      *bool                `json:"autoAssignEnabled"`
	WarningThresholdRatio  *float64             `json:"warningThresholdRatio"`
	CriticalThresholdRatio *float64             `json:"criticalThresholdRatio"`
	IsActive               *bool                `json:"isActive"`
}

// UpsertPolicy merges partial updates onto the existing row, or onto
// tier-appropriate defaults when no row exists yet. Policies are never
// deleted, only deactivated.
func (ps *PolicyService) UpsertPolicy(organizationID uuid.UUID, tier models.ServiceTier, in UpsertPolicyInput) (*models.ApprovalPolicy, error) {
	if !tier.Valid() {
		return nil, validationErr("unknown service tier %q", tier)
	}

	var policy models.ApprovalPolicy
	err := ps.db.Where("organization_id = ? AND service_tier = ?", organizationID, tier).First(&policy).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		policy = models.DefaultApprovalPolicy(organizationID, tier)
	}

	if in.RequiredApprovals != nil {
		policy.RequiredApprovals = *in.RequiredApprovals
	}
	if in.ApproverTeamRole != nil {
		policy.ApproverTeamRole = *in.ApproverTeamRole
	}
	if in.AutoAssignEnabled != nil {
		policy.AutoAssignEnabled = *in.AutoAssignEnabled
	}
	if in.WarningThresholdRatio != nil {
		policy.WarningThresholdRatio = *in.WarningThresholdRatio
	}
	if in.CriticalThresholdRatio != nil {
		policy.CriticalThresholdRatio = *in.CriticalThresholdRatio
	}
	if in.IsActive != nil {
		policy.IsActive = *in.IsActive
	}

	if policy.RequiredApprovals < 1 || policy.RequiredApprovals > 5 {
		return nil, validationErr("requiredApprovals must be between 1 and 5, got %d", policy.RequiredApprovals)
	}
	if policy.WarningThresholdRatio < 0.5 || policy.WarningThresholdRatio > 3.0 {
		return nil, validationErr("warningThresholdRatio must be between 0.5 and 3.0, got %g", policy.WarningThresholdRatio)
	}
	if policy.CriticalThresholdRatio < 1.0 || policy.CriticalThresholdRatio > 4.0 {
		return nil, validationErr("criticalThresholdRatio must be between 1.0 and 4.0, got %g", policy.CriticalThresholdRatio)
	}

	if err := ps.db.Save(&policy).Error; err != nil {
		return nil, err
	}

	log.Printf("✅ Upserted %s policy for org %s (warn: %g, crit: %g)", tier, organizationID, policy.WarningThresholdRatio, policy.CriticalThresholdRatio)
	return &policy, nil
}

// GetPolicies returns the effective policy per tier: stored rows where they
// exist and are active, defaults elsewhere.
func (ps *PolicyService) GetPolicies(organizationID uuid.UUID) ([]models.ApprovalPolicy, error) {
	var stored []models.ApprovalPolicy
	if err := ps.db.Where("organization_id = ?", organizationID).Find(&stored).Error; err != nil {
		return nil, err
	}

	byTier := make(map[models.ServiceTier]models.ApprovalPolicy, len(stored))
	for _, p := range stored {
		byTier[p.ServiceTier] = p
	}

	out := make([]models.ApprovalPolicy, 0, 3)
	for _, tier := range []models.ServiceTier{models.ServiceTierStandard, models.ServiceTierPriority, models.ServiceTierEnterprise} {
		if p, ok := byTier[tier]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, models.DefaultApprovalPolicy(organizationID, tier))
	}
	return out, nil
}

// ImpactCounts is the classification outcome of one ratio pair over the
// live open population of a tier.
type ImpactCounts struct {
	Warning     int `json:"warning"`
	Critical    int `json:"critical"`
	TotalActive int `json:"totalActive"`
}

// PreviewImpact re-runs the production classification with candidate ratios
// over the tier's live open RFQs, persisting nothing.
func (ps *PolicyService) PreviewImpact(organizationID uuid.UUID, tier models.ServiceTier, warningRatio, criticalRatio float64) (*ImpactCounts, error) {
	if !tier.Valid() {
		return nil, validationErr("unknown service tier %q", tier)
	}
	if warningRatio <= 0 || criticalRatio <= 0 {
		return nil, validationErr("threshold ratios must be positive")
	}

	var rfqs []models.RFQ
	if err := ps.db.
		Select("id", "created_at", "sla_target_hours").
		Where("organization_id = ? AND service_tier = ? AND status IN ?", organizationID, tier, openStatuses).
		Find(&rfqs).Error; err != nil {
		return nil, err
	}

	counts := &ImpactCounts{TotalActive: len(rfqs)}
	now := ps.now()
	for _, rfq := range rfqs {
		age := now.Sub(rfq.CreatedAt).Hours()
		level, escalated := Classify(age, rfq.SLATargetHours, warningRatio, criticalRatio)
		if !escalated {
			continue
		}
		if level == models.EscalationCritical {
			counts.Critical++
		} else {
			counts.Warning++
		}
	}
	return counts, nil
}

// SimulationResult reports stored-policy and candidate classifications
// side-by-side over the same fixed sample.
type SimulationResult struct {
	Tier          models.ServiceTier `json:"tier"`
	Current       ImpactCounts       `json:"current"`
	Candidate     ImpactCounts       `json:"candidate"`
	WarningDelta  int                `json:"warningDelta"`
	CriticalDelta int                `json:"criticalDelta"`
}

// Simulate runs PreviewImpact for both the stored policy and the candidate
// ratios so an operator can compare before/after without committing.
func (ps *PolicyService) Simulate(organizationID uuid.UUID, tier models.ServiceTier, warningRatio, criticalRatio float64) (*SimulationResult, error) {
	if !tier.Valid() {
		return nil, validationErr("unknown service tier %q", tier)
	}

	current := models.DefaultApprovalPolicy(organizationID, tier)
	var stored models.ApprovalPolicy
	if err := ps.db.Where("organization_id = ? AND service_tier = ? AND is_active = ?", organizationID, tier, true).First(&stored).Error; err == nil {
		current = stored
	}

	currentCounts, err := ps.PreviewImpact(organizationID, tier, current.WarningThresholdRatio, current.CriticalThresholdRatio)
	if err != nil {
		return nil, err
	}
	candidateCounts, err := ps.PreviewImpact(organizationID, tier, warningRatio, criticalRatio)
	if err != nil {
		return nil, err
	}

	return &SimulationResult{
		Tier:          tier,
		Current:       *currentCounts,
		Candidate:     *candidateCounts,
		WarningDelta:  candidateCounts.Warning - currentCounts.Warning,
		CriticalDelta: candidateCounts.Critical - currentCounts.Critical,
	}, nil
}
