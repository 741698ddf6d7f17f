package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApproverRole is the team role expected to clear escalations for a tier.
type ApproverRole string

const (
	ApproverRoleApprover ApproverRole = "approver"
	ApproverRoleManager  ApproverRole = "manager"
	ApproverRoleOwner    ApproverRole = "owner"
)

// DefaultApproverRole returns the conventional approver role for a tier.
// Admins may override it on the stored policy.
func DefaultApproverRole(tier ServiceTier) ApproverRole {
	switch tier {
	case ServiceTierEnterprise:
		return ApproverRoleOwner
	case ServiceTierPriority:
		return ApproverRoleManager
	default:
		return ApproverRoleApprover
	}
}

// ApprovalPolicy configures escalation thresholds and approval depth per
// organization and service tier. At most one policy exists per
// (organization, tier); rows are deactivated, never deleted.
type ApprovalPolicy struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_policies_org_tier" json:"organizationId"`
	ServiceTier    ServiceTier `gorm:"size:20;not null;uniqueIndex:idx_policies_org_tier" json:"serviceTier"`

	RequiredApprovals int          `gorm:"not null;default:1" json:"requiredApprovals"`
	ApproverTeamRole  ApproverRole `gorm:"size:20;not null;default:'approver'" json:"approverTeamRole"`
	AutoAssignEnabled bool         `gorm:"default:false" json:"autoAssignEnabled"`

	WarningThresholdRatio  float64 `gorm:"not null;default:1.0" json:"warningThresholdRatio"`
	CriticalThresholdRatio float64 `gorm:"not null;default:1.5" json:"criticalThresholdRatio"`

	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (ApprovalPolicy) TableName() string {
	return "approval_policies"
}

func (p *ApprovalPolicy) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// DefaultApprovalPolicy returns the hard-coded fallback applied when no
// active policy row exists for the tier.
func DefaultApprovalPolicy(organizationID uuid.UUID, tier ServiceTier) ApprovalPolicy {
	required := 1
	if tier == ServiceTierEnterprise {
		required = 2
	}
	return ApprovalPolicy{
		OrganizationID:         organizationID,
		ServiceTier:            tier,
		RequiredApprovals:      required,
		ApproverTeamRole:       DefaultApproverRole(tier),
		WarningThresholdRatio:  1.0,
		CriticalThresholdRatio: 1.5,
		IsActive:               true,
	}
}
