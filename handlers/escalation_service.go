package handlers

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/equiprocure/backend/models"
)

// EscalationQueueCap bounds the actionable queue; the per-tier summary is
// always computed over the full open population, never the capped list.
const EscalationQueueCap = 20

// EscalationItem is one overdue RFQ in the ranked escalation queue.
type EscalationItem struct {
	RFQID          uuid.UUID              `json:"rfqId"`
	ServiceTier    models.ServiceTier     `json:"serviceTier"`
	Status         models.RFQStatus       `json:"status"`
	AgeHours       int                    `json:"ageHours"`
	SLATargetHours int                    `json:"slaTargetHours"`
	Level          models.EscalationLevel `json:"escalationLevel"`
	HasOffer       bool                   `json:"hasOffer"`
}

// TierSummary aggregates escalation counts for one service tier.
type TierSummary struct {
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
}

// EscalationSummary is the org-wide escalation picture.
type EscalationSummary struct {
	TotalActive int                                `json:"totalActive"`
	Escalated   int                                `json:"escalated"`
	ByTier      map[models.ServiceTier]TierSummary `json:"byTier"`
}

// Classify maps an age/target pair onto an escalation level using the given
// threshold ratios. The second return is false when the RFQ is inside its
// warning threshold. Pure function so preview/simulate share the exact same
// logic as production scans.
func Classify(ageHours float64, slaTargetHours int, warningRatio, criticalRatio float64) (models.EscalationLevel, bool) {
	target := slaTargetHours
	if target < 1 {
		target = 1
	}
	ratio := ageHours / float64(target)
	switch {
	case ratio >= criticalRatio:
		return models.EscalationCritical, true
	case ratio >= warningRatio:
		return models.EscalationWarning, true
	default:
		return "", false
	}
}

// EscalationService computes per-RFQ SLA escalation scores. It is read-only:
// scans perform no writes and may be invoked repeatedly without side effects.
type EscalationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEscalationService creates a new escalation service instance
func NewEscalationService(db *gorm.DB) *EscalationService {
	return &EscalationService{db: db, now: time.Now}
}

// WithClock overrides the time source, used by tests to simulate ages.
func (es *EscalationService) WithClock(now func() time.Time) *EscalationService {
	es.now = now
	return es
}

var openStatuses = []models.RFQStatus{
	models.RFQStatusReceived,
	models.RFQStatusInProgress,
	models.RFQStatusOfferSent,
	models.RFQStatusPendingExecution,
}

// policyRatios resolves the active thresholds per tier, falling back to the
// hard-coded defaults where no active policy row exists.
func (es *EscalationService) policyRatios(organizationID uuid.UUID) (map[models.ServiceTier][2]float64, error) {
	ratios := map[models.ServiceTier][2]float64{}
	for _, tier := range []models.ServiceTier{models.ServiceTierStandard, models.ServiceTierPriority, models.ServiceTierEnterprise} {
		def := models.DefaultApprovalPolicy(organizationID, tier)
		ratios[tier] = [2]float64{def.WarningThresholdRatio, def.CriticalThresholdRatio}
	}

	var policies []models.ApprovalPolicy
	if err := es.db.Where("organization_id = ? AND is_active = ?", organizationID, true).Find(&policies).Error; err != nil {
		return nil, err
	}
	for _, p := range policies {
		ratios[p.ServiceTier] = [2]float64{p.WarningThresholdRatio, p.CriticalThresholdRatio}
	}
	return ratios, nil
}

// Scan classifies every open RFQ in the organization and returns the ranked
// queue (descending by age, capped) plus the full-population summary.
func (es *EscalationService) Scan(organizationID uuid.UUID) ([]EscalationItem, *EscalationSummary, error) {
	ratios, err := es.policyRatios(organizationID)
	if err != nil {
		return nil, nil, err
	}

	var rfqs []models.RFQ
	if err := es.db.
		Where("organization_id = ? AND status IN ?", organizationID, openStatuses).
		Find(&rfqs).Error; err != nil {
		return nil, nil, err
	}

	// One query for offer existence instead of N point lookups.
	var offerRFQIDs []uuid.UUID
	if err := es.db.Model(&models.Offer{}).
		Distinct("rfq_id").
		Where("rfq_id IN (?)", es.db.Model(&models.RFQ{}).Select("id").Where("organization_id = ? AND status IN ?", organizationID, openStatuses)).
		Pluck("rfq_id", &offerRFQIDs).Error; err != nil {
		return nil, nil, err
	}
	hasOffer := make(map[uuid.UUID]bool, len(offerRFQIDs))
	for _, id := range offerRFQIDs {
		hasOffer[id] = true
	}

	now := es.now()
	summary := &EscalationSummary{
		TotalActive: len(rfqs),
		ByTier:      map[models.ServiceTier]TierSummary{},
	}

	var items []EscalationItem
	for _, rfq := range rfqs {
		age := now.Sub(rfq.CreatedAt).Hours()
		r := ratios[rfq.ServiceTier]
		level, escalated := Classify(age, rfq.SLATargetHours, r[0], r[1])
		if !escalated {
			continue
		}

		summary.Escalated++
		ts := summary.ByTier[rfq.ServiceTier]
		if level == models.EscalationCritical {
			ts.Critical++
		} else {
			ts.Warning++
		}
		summary.ByTier[rfq.ServiceTier] = ts

		items = append(items, EscalationItem{
			RFQID:          rfq.ID,
			ServiceTier:    rfq.ServiceTier,
			Status:         rfq.Status,
			AgeHours:       int(age),
			SLATargetHours: rfq.SLATargetHours,
			Level:          level,
			HasOffer:       hasOffer[rfq.ID],
		})
	}

	// Oldest and most overdue first.
	sort.Slice(items, func(i, j int) bool {
		return items[i].AgeHours > items[j].AgeHours
	})
	if len(items) > EscalationQueueCap {
		items = items[:EscalationQueueCap]
	}

	return items, summary, nil
}
