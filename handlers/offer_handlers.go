package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/equiprocure/backend/config"
	"github.com/equiprocure/backend/middleware"
)

// CreateOffer handles POST /admin/rfqs/{id}/offers
func CreateOffer(w http.ResponseWriter, r *http.Request) {
	rfqID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid RFQ ID", http.StatusBadRequest)
		return
	}

	var in CreateOfferInput
	if !decodeBody(w, r, &in) {
		return
	}

	service := NewOfferService(config.DB)
	offer, err := service.CreateOffer(middleware.GetOrganizationID(r), rfqID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

// ListOffers handles GET /rfqs/{id}/offers
func ListOffers(w http.ResponseWriter, r *http.Request) {
	rfqID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid RFQ ID", http.StatusBadRequest)
		return
	}

	service := NewOfferService(config.DB)
	offers, err := service.ListOffers(middleware.GetOrganizationID(r), rfqID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

// AcceptOffer handles POST /offers/{id}/accept
func AcceptOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid offer ID", http.StatusBadRequest)
		return
	}

	service := NewOfferService(config.DB)
	offer, err := service.AcceptOffer(middleware.GetOrganizationID(r), offerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

// DeclineOffer handles POST /offers/{id}/decline
func DeclineOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid offer ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	service := NewOfferService(config.DB)
	offer, err := service.DeclineOffer(middleware.GetOrganizationID(r), offerID, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

// ExpireOffers handles POST /admin/offers/expire
func ExpireOffers(w http.ResponseWriter, r *http.Request) {
	service := NewOfferService(config.DB)
	expired, err := service.ExpireOffers(middleware.GetOrganizationID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"expired": expired})
}
