package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/equiprocure/backend/handlers"
	"github.com/equiprocure/backend/middleware"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/healthz", handlers.Healthz).Methods("GET")
	r.HandleFunc("/login", handlers.Login).Methods("POST")

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	registerRFQRoutes(api)
	registerOfferRoutes(api)

	// =====================================================
	// Admin Routes (require admin role)
	// =====================================================
	admin := api.PathPrefix("/admin").Subrouter()
	registerAdminRoutes(admin)

	return r
}

// registerRFQRoutes registers the sourcing request lifecycle endpoints
func registerRFQRoutes(api *mux.Router) {
	api.HandleFunc("/rfqs", handlers.CreateRFQ).Methods("POST")
	api.HandleFunc("/rfqs", handlers.ListRFQs).Methods("GET")
	api.HandleFunc("/rfqs/{id}", handlers.GetRFQ).Methods("GET")
	api.HandleFunc("/rfqs/{id}/events", handlers.GetRFQEvents).Methods("GET")
	api.HandleFunc("/rfqs/{id}/messages", handlers.AddRFQMessage).Methods("POST")
}

// registerOfferRoutes registers the buyer-facing offer endpoints. Buyers
// view and answer offers; creating them is back-office work.
func registerOfferRoutes(api *mux.Router) {
	api.HandleFunc("/rfqs/{id}/offers", handlers.ListOffers).Methods("GET")
	api.HandleFunc("/offers/{id}/accept", handlers.AcceptOffer).Methods("POST")
	api.HandleFunc("/offers/{id}/decline", handlers.DeclineOffer).Methods("POST")
}

// registerAdminRoutes registers admin-only routes
func registerAdminRoutes(admin *mux.Router) {
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAdmin(h)
	}

	// RFQ lifecycle controls
	admin.Handle("/rfqs/{id}/status", adminOnly(handlers.UpdateRFQStatus)).Methods("PUT")
	admin.Handle("/rfqs/{id}/close", adminOnly(handlers.CloseRFQ)).Methods("POST")

	// Offers
	admin.Handle("/rfqs/{id}/offers", adminOnly(handlers.CreateOffer)).Methods("POST")
	admin.Handle("/offers/expire", adminOnly(handlers.ExpireOffers)).Methods("POST")

	// Approval policies
	admin.Handle("/policies", adminOnly(handlers.GetPolicies)).Methods("GET")
	admin.Handle("/policies/{tier}", adminOnly(handlers.UpsertPolicy)).Methods("PUT")
	admin.Handle("/policies/{tier}/preview", adminOnly(handlers.PreviewPolicyImpact)).Methods("POST")
	admin.Handle("/policies/{tier}/simulate", adminOnly(handlers.SimulatePolicy)).Methods("POST")

	// Escalation queue
	admin.Handle("/escalations", adminOnly(handlers.GetEscalationQueue)).Methods("GET")

	// Automation rules and runs
	admin.Handle("/automation/rules", adminOnly(handlers.CreateAutomationRule)).Methods("POST")
	admin.Handle("/automation/rules", adminOnly(handlers.ListAutomationRules)).Methods("GET")
	admin.Handle("/automation/rules/{id}/active", adminOnly(handlers.ToggleAutomationRule)).Methods("PUT")
	admin.Handle("/automation/run-escalations", adminOnly(handlers.RunEscalations)).Methods("POST")
	admin.Handle("/automation/runs", adminOnly(handlers.ListRunLogs)).Methods("GET")

	// Ops tasks
	admin.Handle("/tasks", adminOnly(handlers.ListOpsTasks)).Methods("GET")
	admin.Handle("/tasks/{id}/acknowledge", adminOnly(handlers.AcknowledgeOpsTask)).Methods("POST")
	admin.Handle("/tasks/{id}/resolve", adminOnly(handlers.ResolveOpsTask)).Methods("POST")

	// Notifications
	admin.Handle("/notifications", adminOnly(handlers.ListNotifications)).Methods("GET")
	admin.Handle("/notifications/unread-count", adminOnly(handlers.GetUnreadNotificationCount)).Methods("GET")
	admin.Handle("/notifications/{id}/read", adminOnly(handlers.MarkNotificationRead)).Methods("POST")
}
