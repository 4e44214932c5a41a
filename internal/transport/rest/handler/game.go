package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"waveband/internal/model"
	"waveband/internal/scoring"
	"waveband/internal/service"
	"waveband/internal/transport/rest/middleware"
)

const timeFormat = time.RFC3339

// GameHandler handles game and guess endpoints
type GameHandler struct {
	lifecycle *service.LifecycleService
	guesses   *service.GuessService
	engine    *scoring.Engine
}

// NewGameHandler creates a new game handler
func NewGameHandler(lifecycle *service.LifecycleService, guesses *service.GuessService, engine *scoring.Engine) *GameHandler {
	return &GameHandler{
		lifecycle: lifecycle,
		guesses:   guesses,
		engine:    engine,
	}
}

// PublishRequest is the request body for publishing a draft
type PublishRequest struct {
	DraftID         string `json:"draftId"`
	Clue            string `json:"clue"`
	DurationMinutes int    `json:"durationMinutes"`
}

// Publish handles POST /v1/games
func (h *GameHandler) Publish(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetUserID(r.Context())
	hostUsername := middleware.GetUsername(r.Context())
	if hostID == "" {
		writeDomainError(w, model.ErrUnauthorized)
		return
	}

	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	game, err := h.lifecycle.Publish(r.Context(), req.DraftID, hostID, hostUsername, req.Clue, req.DurationMinutes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The publish response never carries the target or median, not even
	// for the host; the draft response is where the host sees the target.
	writeJSON(w, http.StatusCreated, gameResponse{
		Game:    game.View(""),
		Guesses: []*model.Guess{},
	})
}

type gameResponse struct {
	Game    *model.GameView `json:"game"`
	Guesses []*model.Guess  `json:"guesses"`
}

// Get handles GET /v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]
	viewerID := middleware.GetUserID(r.Context())

	game, err := h.lifecycle.GetByID(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if game == nil {
		writeDomainError(w, model.ErrGameNotFound)
		return
	}

	guesses, err := h.guesses.ListByGame(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gameResponse{
		Game:    game.View(viewerID),
		Guesses: guesses,
	})
}

// SubmitGuessRequest is the request body for submitting a guess
type SubmitGuessRequest struct {
	Value         int    `json:"value"`
	Justification string `json:"justification,omitempty"`
}

// SubmitGuess handles POST /v1/games/{id}/guesses
func (h *GameHandler) SubmitGuess(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]
	userID := middleware.GetUserID(r.Context())
	username := middleware.GetUsername(r.Context())
	if userID == "" {
		writeDomainError(w, model.ErrUnauthorized)
		return
	}

	var req SubmitGuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	guess, err := h.guesses.Submit(r.Context(), gameID, userID, username, req.Value, req.Justification, "api")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, guess)
}

// Results handles GET /v1/games/{id}/results
func (h *GameHandler) Results(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	game, err := h.lifecycle.GetByID(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if game == nil {
		writeDomainError(w, model.ErrGameNotFound)
		return
	}

	guesses, err := h.guesses.ListByGame(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summary, err := h.engine.Results(game, guesses)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Feed handles GET /v1/feed
func (h *GameHandler) Feed(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r.Context())

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	games, err := h.lifecycle.ActiveFeed(r.Context(), page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]*model.GameView, len(games))
	for i, game := range games {
		views[i] = game.View(viewerID)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": views,
		"page":  page,
		"limit": limit,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
