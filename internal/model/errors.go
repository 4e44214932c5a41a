package model

import (
	"errors"
	"net/http"
)

// Error is a typed domain error carrying a stable code for API clients.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

var (
	ErrDraftNotFound        = &Error{Code: "DRAFT_NOT_FOUND", Message: "draft not found or expired", Status: http.StatusNotFound}
	ErrDraftConsumed        = &Error{Code: "DRAFT_CONSUMED", Message: "draft has already been published", Status: http.StatusConflict}
	ErrDraftOwnership       = &Error{Code: "DRAFT_OWNERSHIP_MISMATCH", Message: "draft belongs to a different host", Status: http.StatusForbidden}
	ErrClueInvalid          = &Error{Code: "CLUE_INVALID", Message: "clue must be non-empty and at most 256 characters", Status: http.StatusBadRequest}
	ErrDurationInvalid      = &Error{Code: "DURATION_INVALID", Message: "duration must be between 1 and 1440 minutes", Status: http.StatusBadRequest}
	ErrGuessOutOfRange      = &Error{Code: "GUESS_OUT_OF_RANGE", Message: "guess value must be between 0 and 100", Status: http.StatusBadRequest}
	ErrJustificationTooLong = &Error{Code: "JUSTIFICATION_INVALID", Message: "justification must be at most 512 characters", Status: http.StatusBadRequest}
	ErrDuplicateGuess       = &Error{Code: "DUPLICATE_GUESS", Message: "user has already guessed on this game", Status: http.StatusConflict}
	ErrPhaseInvalid         = &Error{Code: "PHASE_INVALID", Message: "operation not allowed in the game's current phase", Status: http.StatusConflict}
	ErrGameExpired          = &Error{Code: "GAME_EXPIRED", Message: "guessing window has closed", Status: http.StatusConflict}
	ErrGameNotFound         = &Error{Code: "GAME_NOT_FOUND", Message: "game not found", Status: http.StatusNotFound}
	ErrUnauthorized         = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid identity", Status: http.StatusUnauthorized}

	// Integrity and external failures (5xx).
	ErrSpectrumMissing = &Error{Code: "SPECTRUM_MISSING", Message: "referenced spectrum no longer exists in the catalog", Status: http.StatusInternalServerError}
	ErrRecordCorrupt   = &Error{Code: "RECORD_CORRUPT", Message: "stored record failed schema validation", Status: http.StatusInternalServerError}
	ErrPostPublish     = &Error{Code: "POST_PUBLISH_FAILED", Message: "external post creation failed", Status: http.StatusBadGateway}
)

// AsError unwraps err into a typed domain error, if it carries one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
