package handlers

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/equiprocure/backend/models"
)

// OfferService owns the versioned offer ledger and the acceptance cascade.
type OfferService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewOfferService creates a new offer service instance
func NewOfferService(db *gorm.DB) *OfferService {
	return &OfferService{db: db, now: time.Now}
}

// WithClock overrides the time source, used by tests to simulate ages.
func (svc *OfferService) WithClock(now func() time.Time) *OfferService {
	svc.now = now
	return svc
}

// CreateOfferInput carries the admin-supplied fields for a new quote.
type CreateOfferInput struct {
	Title            string                 `json:"title"`
	Price            *float64               `json:"price"`
	Currency         string                 `json:"currency"`
	Terms            string                 `json:"terms"`
	Location         string                 `json:"location"`
	Availability     string                 `json:"availability"`
	ValidUntil       *time.Time             `json:"validUntil"`
	IncludedServices map[string]interface{} `json:"includedServices"`
	Notes            string                 `json:"notes"`
}

// CreateOffer persists a new quote as Sent, assigns the next version number
// for the RFQ, appends an offer_sent event, and moves the RFQ to offer_sent.
// Creating an offer against a closed RFQ is rejected.
func (svc *OfferService) CreateOffer(organizationID, rfqID uuid.UUID, in CreateOfferInput) (*models.Offer, error) {
	if in.Title == "" {
		return nil, validationErr("offer title is required")
	}

	var rfq models.RFQ
	if err := svc.db.First(&rfq, "id = ? AND organization_id = ?", rfqID, organizationID).Error; err != nil {
		return nil, notFoundErr("rfq not found: %v", err)
	}
	if rfq.Status.IsClosed() {
		return nil, conflictErr("cannot create an offer on a closed rfq (status: %s)", rfq.Status)
	}

	currency := in.Currency
	if in.Price != nil && currency == "" {
		currency = models.DefaultCurrency
	}

	now := svc.now()
	offer := &models.Offer{
		RFQID:            rfqID,
		Title:            in.Title,
		Price:            in.Price,
		Currency:         currency,
		Terms:            in.Terms,
		Location:         in.Location,
		Availability:     in.Availability,
		ValidUntil:       in.ValidUntil,
		IncludedServices: in.IncludedServices,
		Notes:            in.Notes,
		Status:           models.OfferStatusSent,
		SentAt:           &now,
	}

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		// Version numbers are max+1 per RFQ and never reused even after
		// deletion, so gaps from deletes stay gaps.
		var maxVersion int
		if err := tx.Model(&models.Offer{}).
			Where("rfq_id = ?", rfqID).
			Select("COALESCE(MAX(version_number), 0)").
			Scan(&maxVersion).Error; err != nil {
			return err
		}
		offer.VersionNumber = maxVersion + 1

		if err := tx.Create(offer).Error; err != nil {
			return err
		}

		if err := appendEvent(tx, rfqID, models.RFQEventOfferSent, map[string]interface{}{
			"offerId": offer.ID.String(),
			"version": offer.VersionNumber,
		}, now); err != nil {
			return err
		}

		// The RFQ always carries the status of its most recent offer action.
		if rfq.Status != models.RFQStatusOfferSent {
			if err := tx.Model(&models.RFQ{}).
				Where("id = ?", rfqID).
				Update("status", models.RFQStatusOfferSent).Error; err != nil {
				return err
			}
			if err := appendEvent(tx, rfqID, models.RFQEventStatusChange, map[string]interface{}{
				"from": string(rfq.Status),
				"to":   string(models.RFQStatusOfferSent),
			}, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Created offer v%d on RFQ %s", offer.VersionNumber, rfqID)
	return offer, nil
}

// AcceptOffer accepts a sent, unexpired offer. In one transaction it marks
// this offer accepted, declines every sibling still in sent, moves the RFQ
// to pending_execution, and appends the offer_accepted event. A partial
// cascade would violate the single-accepted-offer invariant, so any step
// failing rolls back the whole operation.
func (svc *OfferService) AcceptOffer(organizationID, offerID uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := svc.db.First(&offer, "id = ?", offerID).Error; err != nil {
		return nil, notFoundErr("offer not found: %v", err)
	}

	var rfq models.RFQ
	if err := svc.db.First(&rfq, "id = ? AND organization_id = ?", offer.RFQID, organizationID).Error; err != nil {
		return nil, notFoundErr("rfq not found for offer: %v", err)
	}
	if rfq.Status.IsClosed() {
		return nil, conflictErr("rfq is closed (status: %s)", rfq.Status)
	}

	now := svc.now()
	if offer.Status != models.OfferStatusSent {
		return nil, conflictErr("offer is not open for acceptance (status: %s)", offer.Status)
	}
	if offer.IsExpired(now) {
		return nil, conflictErr("offer validity expired at %s", offer.ValidUntil.Format(time.RFC3339))
	}

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Offer{}).
			Where("id = ?", offer.ID).
			Update("status", models.OfferStatusAccepted).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Offer{}).
			Where("rfq_id = ? AND id <> ? AND status = ?", offer.RFQID, offer.ID, models.OfferStatusSent).
			Updates(map[string]interface{}{
				"status":         models.OfferStatusDeclined,
				"decline_reason": models.DeclineReasonSuperseded,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.RFQ{}).
			Where("id = ?", offer.RFQID).
			Update("status", models.RFQStatusPendingExecution).Error; err != nil {
			return err
		}

		return appendEvent(tx, offer.RFQID, models.RFQEventOfferAccepted, map[string]interface{}{
			"offerId": offer.ID.String(),
			"version": offer.VersionNumber,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	offer.Status = models.OfferStatusAccepted
	log.Printf("✅ Accepted offer v%d on RFQ %s, siblings declined", offer.VersionNumber, offer.RFQID)
	return &offer, nil
}

// DeclineOffer declines a sent offer with an optional reason. The RFQ status
// is left untouched: other offers may still be pending.
func (svc *OfferService) DeclineOffer(organizationID, offerID uuid.UUID, reason string) (*models.Offer, error) {
	var offer models.Offer
	if err := svc.db.First(&offer, "id = ?", offerID).Error; err != nil {
		return nil, notFoundErr("offer not found: %v", err)
	}

	var rfq models.RFQ
	if err := svc.db.First(&rfq, "id = ? AND organization_id = ?", offer.RFQID, organizationID).Error; err != nil {
		return nil, notFoundErr("rfq not found for offer: %v", err)
	}
	if rfq.Status.IsClosed() {
		return nil, conflictErr("rfq is closed (status: %s)", rfq.Status)
	}
	if offer.Status != models.OfferStatusSent {
		return nil, conflictErr("offer cannot be declined (status: %s)", offer.Status)
	}

	offer.Status = models.OfferStatusDeclined
	if reason != "" {
		offer.DeclineReason = &reason
	}

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&offer).Error; err != nil {
			return err
		}
		return appendEvent(tx, offer.RFQID, models.RFQEventOfferDeclined, map[string]interface{}{
			"offerId": offer.ID.String(),
			"version": offer.VersionNumber,
			"reason":  reason,
		}, svc.now())
	})
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// ExpireOffers marks sent offers whose validity window has passed as
// expired. Returns the number of offers touched.
func (svc *OfferService) ExpireOffers(organizationID uuid.UUID) (int64, error) {
	result := svc.db.Model(&models.Offer{}).
		Where("status = ? AND valid_until IS NOT NULL AND valid_until < ?", models.OfferStatusSent, svc.now()).
		Where("rfq_id IN (?)", svc.db.Model(&models.RFQ{}).Select("id").Where("organization_id = ?", organizationID)).
		Update("status", models.OfferStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("⏰ Expired %d stale offers", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// ListOffers retrieves all offers for an RFQ, newest version first.
func (svc *OfferService) ListOffers(organizationID, rfqID uuid.UUID) ([]models.Offer, error) {
	var rfq models.RFQ
	if err := svc.db.Select("id").First(&rfq, "id = ? AND organization_id = ?", rfqID, organizationID).Error; err != nil {
		return nil, notFoundErr("rfq not found: %v", err)
	}

	var offers []models.Offer
	if err := svc.db.Where("rfq_id = ?", rfqID).Order("version_number DESC").Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}
