package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/equiprocure/backend/config"
	"github.com/equiprocure/backend/middleware"
	"github.com/equiprocure/backend/models"
)

type loginRequest struct {
	Email string `json:"email"`
}

// Login handles POST /login. Authentication is email-only for demo
// purposes; a real deployment would sit behind an identity provider.
func Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := config.DB.Where("LOWER(email) = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	token, err := middleware.GenerateToken(user.ID.String(), user.OrganizationID.String(), user.Name, string(user.Role))
	if err != nil {
		http.Error(w, "Could not generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":             user.ID,
			"name":           user.Name,
			"email":          user.Email,
			"role":           user.Role,
			"organizationId": user.OrganizationID,
		},
	})
}

// Healthz handles GET /healthz
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
