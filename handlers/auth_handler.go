package handlers

import (
	"net/http"

	"github.com/Dosada05/arena-engine/middleware"
	"github.com/Dosada05/arena-engine/services"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler exchanges the operator password for an admin bearer token.
type AuthHandler struct {
	auth              *middleware.Auth
	adminPasswordHash string
}

func NewAuthHandler(auth *middleware.Auth, adminPasswordHash string) *AuthHandler {
	return &AuthHandler{auth: auth, adminPasswordHash: adminPasswordHash}
}

// LoginHandler handles POST /auth/login
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.adminPasswordHash), []byte(input.Password)); err != nil {
		mapServiceErrorToHTTP(w, r, services.ErrInvalidCredentials)
		return
	}

	token, err := h.auth.IssueAdminToken()
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"token": token}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
