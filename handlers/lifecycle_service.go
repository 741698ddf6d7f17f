package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/equiprocure/backend/models"
	"github.com/equiprocure/backend/utils"
)

// LifecycleService owns the RFQ status state machine and its append-only
// event log.
type LifecycleService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLifecycleService creates a new lifecycle service instance
func NewLifecycleService(db *gorm.DB) *LifecycleService {
	return &LifecycleService{db: db, now: time.Now}
}

// WithClock overrides the time source, used by tests to simulate ages.
func (ls *LifecycleService) WithClock(now func() time.Time) *LifecycleService {
	ls.now = now
	return ls
}

// legalTransitions maps each open status to the statuses an explicit admin
// update may move it to. Offer-driven transitions (offer_sent,
// pending_execution) also arrive here, fired by the offer service.
var legalTransitions = map[models.RFQStatus][]models.RFQStatus{
	models.RFQStatusReceived:         {models.RFQStatusInProgress, models.RFQStatusOfferSent, models.RFQStatusWon, models.RFQStatusLost},
	models.RFQStatusInProgress:       {models.RFQStatusOfferSent, models.RFQStatusWon, models.RFQStatusLost},
	models.RFQStatusOfferSent:        {models.RFQStatusPendingExecution, models.RFQStatusWon, models.RFQStatusLost},
	models.RFQStatusPendingExecution: {models.RFQStatusWon, models.RFQStatusLost},
}

func transitionAllowed(from, to models.RFQStatus) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CreateRFQInput carries the buyer-supplied fields for a new sourcing request.
type CreateRFQInput struct {
	UserID         uuid.UUID             `json:"userId"`
	ListingID      *uuid.UUID            `json:"listingId,omitempty"`
	Category       string                `json:"category"`
	ServiceTier    models.ServiceTier    `json:"serviceTier"`
	ServicePackage models.ServicePackage `json:"servicePackage"`
	AddOns         []string              `json:"addOns"`

	KeySpecs           string     `json:"keySpecs"`
	BrandPreference    string     `json:"brandPreference"`
	YearFrom           *int       `json:"yearFrom"`
	YearTo             *int       `json:"yearTo"`
	BudgetMin          *float64   `json:"budgetMin"`
	BudgetMax          *float64   `json:"budgetMax"`
	DeliveryCountry    string     `json:"deliveryCountry"`
	PickupDeadline     *time.Time `json:"pickupDeadline"`
	Urgency            models.Urgency `json:"urgency"`
	ConditionTolerance string     `json:"conditionTolerance"`
	RequiredDocuments  []string   `json:"requiredDocuments"`
	BusinessGoal       string     `json:"businessGoal"`
	RiskTolerance      string     `json:"riskTolerance"`
	BudgetConfidence   string     `json:"budgetConfidence"`
}

// CreateRFQ validates the payload, derives the immutable SLA target from the
// tier, computes the creation-time mandate score, and appends the first
// status_change event in the same transaction.
func (ls *LifecycleService) CreateRFQ(organizationID uuid.UUID, in CreateRFQInput) (*models.RFQ, error) {
	if !in.ServiceTier.Valid() {
		return nil, validationErr("unknown service tier %q", in.ServiceTier)
	}
	if in.Category == "" {
		return nil, validationErr("category is required")
	}
	if in.UserID == uuid.Nil {
		return nil, validationErr("userId is required")
	}
	if in.ServicePackage == "" {
		in.ServicePackage = models.ServicePackageCore
	}
	if in.Urgency == "" {
		in.Urgency = models.UrgencyNormal
	}

	score := utils.MandateScore(utils.MandateInput{
		KeySpecs:           in.KeySpecs,
		DeliveryCountry:    in.DeliveryCountry,
		ConditionTolerance: in.ConditionTolerance,
		BusinessGoal:       in.BusinessGoal,
		RiskTolerance:      in.RiskTolerance,
		BudgetConfidence:   in.BudgetConfidence,
	})

	rfq := &models.RFQ{
		UserID:             in.UserID,
		OrganizationID:     organizationID,
		ListingID:          in.ListingID,
		Category:           in.Category,
		ServiceTier:        in.ServiceTier,
		ServicePackage:     in.ServicePackage,
		AddOns:             in.AddOns,
		KeySpecs:           in.KeySpecs,
		BrandPreference:    in.BrandPreference,
		YearFrom:           in.YearFrom,
		YearTo:             in.YearTo,
		BudgetMin:          in.BudgetMin,
		BudgetMax:          in.BudgetMax,
		DeliveryCountry:    in.DeliveryCountry,
		PickupDeadline:     in.PickupDeadline,
		Urgency:            in.Urgency,
		ConditionTolerance: in.ConditionTolerance,
		RequiredDocuments:  in.RequiredDocuments,
		BusinessGoal:       in.BusinessGoal,
		RiskTolerance:      in.RiskTolerance,
		BudgetConfidence:   in.BudgetConfidence,
		MandateScore:       score,
		Status:             models.RFQStatusReceived,
		SLATargetHours:     in.ServiceTier.SLATargetHours(),
		CreatedAt:          ls.now(),
	}

	err := ls.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rfq).Error; err != nil {
			return err
		}
		return appendEvent(tx, rfq.ID, models.RFQEventStatusChange, map[string]interface{}{
			"status":       string(models.RFQStatusReceived),
			"mandateScore": score,
		}, ls.now())
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Created RFQ %s (tier: %s, sla: %dh, mandate: %d)", rfq.ID, rfq.ServiceTier, rfq.SLATargetHours, score)
	return rfq, nil
}

// UpdateStatus performs an explicit admin status update. Re-setting the
// current status is a no-op: no event is appended and nothing re-fires.
// Closing (won/lost) requires a non-empty reason.
func (ls *LifecycleService) UpdateStatus(organizationID, rfqID uuid.UUID, target models.RFQStatus, closeReason string) (*models.RFQ, error) {
	var rfq models.RFQ
	if err := ls.db.First(&rfq, "id = ? AND organization_id = ?", rfqID, organizationID).Error; err != nil {
		return nil, notFoundErr("rfq not found: %v", err)
	}

	if rfq.Status == target {
		return &rfq, nil
	}
	if rfq.Status.IsClosed() {
		return nil, conflictErr("rfq is closed (status: %s)", rfq.Status)
	}
	if !transitionAllowed(rfq.Status, target) {
		return nil, conflictErr("transition %s -> %s is not allowed", rfq.Status, target)
	}

	closing := target.IsClosed()
	if closing && closeReason == "" {
		return nil, validationErr("close reason is required when closing an rfq")
	}

	previous := rfq.Status
	rfq.Status = target
	if closing {
		rfq.CloseReason = &closeReason
	}

	err := ls.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&rfq).Error; err != nil {
			return err
		}
		if closing {
			return appendEvent(tx, rfq.ID, models.RFQEventRFQClosed, map[string]interface{}{
				"status": string(target),
				"reason": closeReason,
			}, ls.now())
		}
		return appendEvent(tx, rfq.ID, models.RFQEventStatusChange, map[string]interface{}{
			"from": string(previous),
			"to":   string(target),
		}, ls.now())
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ RFQ %s: %s -> %s", rfq.ID, previous, target)
	return &rfq, nil
}

// CloseRFQ closes the RFQ as won or lost with a mandatory reason.
func (ls *LifecycleService) CloseRFQ(organizationID, rfqID uuid.UUID, outcome models.RFQStatus, reason string) (*models.RFQ, error) {
	if outcome != models.RFQStatusWon && outcome != models.RFQStatusLost {
		return nil, validationErr("close outcome must be won or lost, got %q", outcome)
	}
	return ls.UpdateStatus(organizationID, rfqID, outcome, reason)
}

// AddMessage appends a message event to the RFQ thread.
func (ls *LifecycleService) AddMessage(organizationID, rfqID, authorID uuid.UUID, message string) error {
	if message == "" {
		return validationErr("message must not be empty")
	}
	var rfq models.RFQ
	if err := ls.db.First(&rfq, "id = ? AND organization_id = ?", rfqID, organizationID).Error; err != nil {
		return notFoundErr("rfq not found: %v", err)
	}
	return appendEvent(ls.db, rfq.ID, models.RFQEventMessage, map[string]interface{}{
		"authorId": authorID.String(),
		"message":  message,
	}, ls.now())
}

// GetRFQ retrieves an RFQ with its event log, newest events first.
func (ls *LifecycleService) GetRFQ(organizationID, rfqID uuid.UUID) (*models.RFQ, error) {
	var rfq models.RFQ
	if err := ls.db.
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Offers", func(db *gorm.DB) *gorm.DB {
			return db.Order("version_number DESC")
		}).
		First(&rfq, "id = ? AND organization_id = ?", rfqID, organizationID).Error; err != nil {
		return nil, notFoundErr("rfq not found: %v", err)
	}
	return &rfq, nil
}

// ListRFQs retrieves the organization's RFQs with optional status/tier filters.
func (ls *LifecycleService) ListRFQs(organizationID uuid.UUID, status models.RFQStatus, tier models.ServiceTier, limit, offset int) ([]models.RFQ, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := ls.db.Model(&models.RFQ{}).Where("organization_id = ?", organizationID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if tier != "" {
		query = query.Where("service_tier = ?", tier)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rfqs []models.RFQ
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rfqs).Error; err != nil {
		return nil, 0, err
	}
	return rfqs, total, nil
}

// GetEventLog retrieves the full ordered event history for an RFQ.
func (ls *LifecycleService) GetEventLog(organizationID, rfqID uuid.UUID) ([]models.RFQEvent, error) {
	var rfq models.RFQ
	if err := ls.db.Select("id").First(&rfq, "id = ? AND organization_id = ?", rfqID, organizationID).Error; err != nil {
		return nil, notFoundErr("rfq not found: %v", err)
	}

	var events []models.RFQEvent
	if err := ls.db.Where("rfq_id = ?", rfqID).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// appendEvent writes one row to the append-only event log.
func appendEvent(tx *gorm.DB, rfqID uuid.UUID, eventType models.RFQEventType, payload map[string]interface{}, at time.Time) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := models.RFQEvent{
		RFQID:     rfqID,
		Type:      eventType,
		Payload:   datatypes.JSON(raw),
		CreatedAt: at,
	}
	return tx.Create(&event).Error
}
