package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/equiprocure/backend/config"
	"github.com/equiprocure/backend/middleware"
	"github.com/equiprocure/backend/models"
)

// CreateRFQ handles POST /rfqs
func CreateRFQ(w http.ResponseWriter, r *http.Request) {
	var in CreateRFQInput
	if !decodeBody(w, r, &in) {
		return
	}
	if in.UserID == uuid.Nil {
		in.UserID = middleware.GetUserID(r)
	}

	service := NewLifecycleService(config.DB)
	rfq, err := service.CreateRFQ(middleware.GetOrganizationID(r), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rfq)
}

// GetRFQ handles GET /rfqs/{id}
func GetRFQ(w http.ResponseWriter, r *http.Request) {
	rfqID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid RFQ ID", http.StatusBadRequest)
		return
	}

	service := NewLifecycleService(config.DB)
	rfq, err := service.GetRFQ(middleware.GetOrganizationID(r), rfqID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rfq)
}

// ListRFQs handles GET /rfqs
func ListRFQs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	status := models.RFQStatus(r.URL.Query().Get("status"))
	tier := models.ServiceTier(r.URL.Query().Get("tier"))

	service := NewLifecycleService(config.DB)
	rfqs, total, err := service.ListRFQs(middleware.GetOrganizationID(r), status, tier, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rfqs":   rfqs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetRFQEvents handles GET /rfqs/{id}/events
func GetRFQEvents(w http.ResponseWriter, r *http.Request) {
	rfqID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid RFQ ID", http.StatusBadRequest)
		return
	}

	service := NewLifecycleService(config.DB)
	events, err := service.GetEventLog(middleware.GetOrganizationID(r), rfqID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// AddRFQMessage handles POST /rfqs/{id}/messages
func AddRFQMessage(w http.ResponseWriter, r *http.Request) {
	rfqID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid RFQ ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	service := NewLifecycleService(config.DB)
	if err := service.AddMessage(middleware.GetOrganizationID(r), rfqID, middleware.GetUserID(r), req.Message); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// UpdateRFQStatus handles PUT /admin/rfqs/{id}/status
func UpdateRFQStatus(w http.ResponseWriter, r *http.Request) {
	rfqID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid RFQ ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Status      models.RFQStatus `json:"status"`
		CloseReason string           `json:"closeReason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	service := NewLifecycleService(config.DB)
	rfq, err := service.UpdateStatus(middleware.GetOrganizationID(r), rfqID, req.Status, req.CloseReason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rfq)
}

// CloseRFQ handles POST /admin/rfqs/{id}/close
func CloseRFQ(w http.ResponseWriter, r *http.Request) {
	rfqID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid RFQ ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Outcome models.RFQStatus `json:"outcome"`
		Reason  string           `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	service := NewLifecycleService(config.DB)
	rfq, err := service.CloseRFQ(middleware.GetOrganizationID(r), rfqID, req.Outcome, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rfq)
}
