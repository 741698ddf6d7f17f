package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/equiprocure/backend/config"
	"github.com/equiprocure/backend/middleware"
	"github.com/equiprocure/backend/models"
)

// GetPolicies handles GET /admin/policies
func GetPolicies(w http.ResponseWriter, r *http.Request) {
	service := NewPolicyService(config.DB)
	policies, err := service.GetPolicies(middleware.GetOrganizationID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policies)
}

// UpsertPolicy handles PUT /admin/policies/{tier}
func UpsertPolicy(w http.ResponseWriter, r *http.Request) {
	tier := models.ServiceTier(mux.Vars(r)["tier"])

	var in UpsertPolicyInput
	if !decodeBody(w, r, &in) {
		return
	}

	service := NewPolicyService(config.DB)
	policy, err := service.UpsertPolicy(middleware.GetOrganizationID(r), tier, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

type thresholdRequest struct {
	WarningThresholdRatio  float64 `json:"warningThresholdRatio"`
	CriticalThresholdRatio float64 `json:"criticalThresholdRatio"`
}

// PreviewPolicyImpact handles POST /admin/policies/{tier}/preview
func PreviewPolicyImpact(w http.ResponseWriter, r *http.Request) {
	tier := models.ServiceTier(mux.Vars(r)["tier"])

	var req thresholdRequest
	if !decodeBody(w, r, &req) {
		return
	}

	service := NewPolicyService(config.DB)
	counts, err := service.PreviewImpact(middleware.GetOrganizationID(r), tier, req.WarningThresholdRatio, req.CriticalThresholdRatio)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// SimulatePolicy handles POST /admin/policies/{tier}/simulate
func SimulatePolicy(w http.ResponseWriter, r *http.Request) {
	tier := models.ServiceTier(mux.Vars(r)["tier"])

	var req thresholdRequest
	if !decodeBody(w, r, &req) {
		return
	}

	service := NewPolicyService(config.DB)
	result, err := service.Simulate(middleware.GetOrganizationID(r), tier, req.WarningThresholdRatio, req.CriticalThresholdRatio)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
