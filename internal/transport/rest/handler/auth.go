package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"waveband/internal/logging"
	"waveband/internal/model"
	"waveband/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "username is required")
		return
	}

	resp, err := h.authSvc.Login(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}

// writeDomainError maps a typed domain error onto the wire taxonomy,
// falling back to a generic 500 for anything untyped.
func writeDomainError(w http.ResponseWriter, err error) {
	if domainErr, ok := model.AsError(err); ok {
		writeError(w, domainErr.Status, domainErr.Code, domainErr.Message)
		return
	}
	logging.Log.Errorf("API: unhandled error: %v", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
}
