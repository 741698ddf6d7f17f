package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OfferStatus is the lifecycle state of a quote.
type OfferStatus string

const (
	OfferStatusDraft    OfferStatus = "draft"
	OfferStatusSent     OfferStatus = "sent"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusDeclined OfferStatus = "declined"
	OfferStatusExpired  OfferStatus = "expired"
)

// DefaultCurrency is applied when an offer carries a price without a currency.
const DefaultCurrency = "EUR"

// DeclineReasonSuperseded is attached to sibling offers when another offer is accepted.
const DeclineReasonSuperseded = "Another offer was accepted."

// Offer is a versioned quote against one RFQ. VersionNumber is strictly
// increasing per RFQ and never reused, even after deletion.
type Offer struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RFQID uuid.UUID `gorm:"type:uuid;not null;index" json:"rfqId"`

	Title        string   `gorm:"size:200;not null" json:"title"`
	Price        *float64 `json:"price,omitempty"`
	Currency     string   `gorm:"size:3" json:"currency,omitempty"`
	Terms        string   `gorm:"type:text" json:"terms,omitempty"`
	Location     string   `gorm:"size:200" json:"location,omitempty"`
	Availability string   `gorm:"size:200" json:"availability,omitempty"`

	ValidUntil       *time.Time `json:"validUntil,omitempty"`
	IncludedServices JSONMap    `gorm:"type:jsonb;default:'{}'" json:"includedServices"`
	Notes            string     `gorm:"type:text" json:"notes,omitempty"`

	Status        OfferStatus `gorm:"size:20;not null;default:'sent';index" json:"status"`
	VersionNumber int         `gorm:"not null" json:"versionNumber"`
	DeclineReason *string     `gorm:"type:text" json:"declineReason,omitempty"`

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"-"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
}

func (Offer) TableName() string {
	return "offers"
}

func (o *Offer) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return
}

// IsExpired reports whether the offer's validity window has passed.
func (o *Offer) IsExpired(now time.Time) bool {
	return o.ValidUntil != nil && o.ValidUntil.Before(now)
}
