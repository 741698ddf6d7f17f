package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ServiceTier determines the SLA budget and policy defaults for an RFQ.
type ServiceTier string

const (
	ServiceTierStandard   ServiceTier = "standard"
	ServiceTierPriority   ServiceTier = "priority"
	ServiceTierEnterprise ServiceTier = "enterprise"
)

// SLATargetHours returns the first-response hour budget for a tier.
func (t ServiceTier) SLATargetHours() int {
	switch t {
	case ServiceTierEnterprise:
		return 8
	case ServiceTierPriority:
		return 24
	default:
		return 72
	}
}

// Valid reports whether the tier is one of the known values.
func (t ServiceTier) Valid() bool {
	switch t {
	case ServiceTierStandard, ServiceTierPriority, ServiceTierEnterprise:
		return true
	}
	return false
}

// ServicePackage is the commercial bundle the buyer purchased.
type ServicePackage string

const (
	ServicePackageCore      ServicePackage = "core"
	ServicePackageConcierge ServicePackage = "concierge"
	ServicePackageCommand   ServicePackage = "command"
)

// RFQStatus is the lifecycle state of a sourcing request.
type RFQStatus string

const (
	RFQStatusReceived         RFQStatus = "received"
	RFQStatusInProgress       RFQStatus = "in_progress"
	RFQStatusOfferSent        RFQStatus = "offer_sent"
	RFQStatusPendingExecution RFQStatus = "pending_execution"
	RFQStatusWon              RFQStatus = "won"
	RFQStatusLost             RFQStatus = "lost"
)

// IsClosed reports whether the status is terminal.
func (s RFQStatus) IsClosed() bool {
	return s == RFQStatusWon || s == RFQStatusLost
}

// Urgency flags how quickly the buyer needs the equipment.
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
)

// RFQ is a buyer's sourcing request driving the whole lifecycle.
type RFQ struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organizationId"`
	ListingID      *uuid.UUID `gorm:"type:uuid" json:"listingId,omitempty"`

	Category       string         `gorm:"size:100;not null" json:"category"`
	ServiceTier    ServiceTier    `gorm:"size:20;not null;index" json:"serviceTier"`
	ServicePackage ServicePackage `gorm:"size:20;not null;default:'core'" json:"servicePackage"`
	AddOns         StringArray    `gorm:"type:jsonb;default:'[]'" json:"addOns"`

	// Requirement payload
	KeySpecs          string      `gorm:"type:text" json:"keySpecs"`
	BrandPreference   string      `gorm:"size:200" json:"brandPreference,omitempty"`
	YearFrom          *int        `json:"yearFrom,omitempty"`
	YearTo            *int        `json:"yearTo,omitempty"`
	BudgetMin         *float64    `json:"budgetMin,omitempty"`
	BudgetMax         *float64    `json:"budgetMax,omitempty"`
	DeliveryCountry   string      `gorm:"size:100" json:"deliveryCountry"`
	PickupDeadline    *time.Time  `json:"pickupDeadline,omitempty"`
	Urgency           Urgency     `gorm:"size:20;not null;default:'normal'" json:"urgency"`
	ConditionTolerance string     `gorm:"size:200" json:"conditionTolerance"`
	RequiredDocuments StringArray `gorm:"type:jsonb;default:'[]'" json:"requiredDocuments"`
	BusinessGoal      string      `gorm:"type:text" json:"businessGoal"`
	RiskTolerance     string      `gorm:"size:50" json:"riskTolerance,omitempty"`
	BudgetConfidence  string      `gorm:"size:50" json:"budgetConfidence,omitempty"`

	// MandateScore is computed once at creation and never recomputed on edits.
	MandateScore int `gorm:"not null;default:0" json:"mandateScore"`

	Status RFQStatus `gorm:"size:30;not null;default:'received';index" json:"status"`
	// SLATargetHours is derived from the tier at creation and immutable afterwards.
	SLATargetHours int     `gorm:"not null" json:"slaTargetHours"`
	CloseReason    *string `gorm:"type:text" json:"closeReason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Events []RFQEvent `gorm:"foreignKey:RFQID" json:"events,omitempty"`
	Offers []Offer    `gorm:"foreignKey:RFQID" json:"offers,omitempty"`
}

func (RFQ) TableName() string {
	return "rfqs"
}

func (r *RFQ) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// RFQEventType classifies entries on an RFQ's append-only event log.
type RFQEventType string

const (
	RFQEventStatusChange  RFQEventType = "status_change"
	RFQEventMessage       RFQEventType = "message"
	RFQEventOfferSent     RFQEventType = "offer_sent"
	RFQEventOfferAccepted RFQEventType = "offer_accepted"
	RFQEventOfferDeclined RFQEventType = "offer_declined"
	RFQEventRFQClosed     RFQEventType = "rfq_closed"
)

// RFQEvent is one entry on the append-only event log. Rows are never
// updated or reordered; the log is the audit source of truth.
type RFQEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RFQID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"rfqId"`
	Type      RFQEventType   `gorm:"size:30;not null;index" json:"type"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (RFQEvent) TableName() string {
	return "rfq_events"
}

func (e *RFQEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}
