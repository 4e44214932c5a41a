package handler

import (
	"encoding/json"
	"net/http"

	"waveband/internal/model"
	"waveband/internal/service"
	"waveband/internal/transport/rest/middleware"
)

// DraftHandler handles draft endpoints
type DraftHandler struct {
	lifecycle *service.LifecycleService
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(lifecycle *service.LifecycleService) *DraftHandler {
	return &DraftHandler{lifecycle: lifecycle}
}

// CreateDraftRequest is the request body for creating a draft
type CreateDraftRequest struct {
	Context    string `json:"context,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// CreateDraftResponse is returned to the host; the draft always reveals
// its secret target to the host
type CreateDraftResponse struct {
	DraftID      string         `json:"draftId"`
	Spectrum     model.Spectrum `json:"spectrum"`
	SecretTarget int            `json:"secretTarget"`
	ExpiresAt    string         `json:"expiresAt"`
}

// Create handles POST /v1/drafts
func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetUserID(r.Context())
	if hostID == "" {
		writeDomainError(w, model.ErrUnauthorized)
		return
	}

	var req CreateDraftRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			return
		}
	}

	draft, spectrum, err := h.lifecycle.CreateDraft(r.Context(), hostID, req.Context, req.Difficulty)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateDraftResponse{
		DraftID:      draft.ID,
		Spectrum:     *spectrum,
		SecretTarget: draft.SecretTarget,
		ExpiresAt:    draft.ExpiresAt.Format(timeFormat),
	})
}
