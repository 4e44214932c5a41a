package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"waveband/internal/logging"
	"waveband/internal/model"
	"waveband/internal/repository"
)

const (
	maxJustificationLength = 512

	MsgGuessSubmitted = "guess_submitted"
)

// GuessService validates and ingests guesses and keeps the median
// snapshot and participant count in step with the guess set.
type GuessService struct {
	gameRepo    repository.GameRepo
	guessRepo   repository.GuessRepo
	broadcaster Broadcaster

	medianTTL time.Duration
}

func NewGuessService(gameRepo repository.GameRepo, guessRepo repository.GuessRepo, medianTTL time.Duration) *GuessService {
	return &GuessService{
		gameRepo:  gameRepo,
		guessRepo: guessRepo,
		medianTTL: medianTTL,
	}
}

// SetBroadcaster sets the broadcaster for live guess events.
func (s *GuessService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Submit ingests one guess for (gameID, userID). Validation happens
// before any store access; the duplicate gate is the repo's conditional
// write, not a read-then-write.
func (s *GuessService) Submit(ctx context.Context, gameID, userID, username string, value int, justification, source string) (*model.Guess, error) {
	if value < model.MinGuessValue || value > model.MaxGuessValue {
		return nil, model.ErrGuessOutOfRange
	}
	if len(justification) > maxJustificationLength {
		return nil, model.ErrJustificationTooLong
	}

	game, err := s.gameRepo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, model.ErrGameNotFound
	}
	if game.Phase != model.PhaseActive {
		return nil, model.ErrPhaseInvalid
	}
	now := time.Now().UTC()
	// The scheduler may not have advanced the phase yet; the wall clock
	// still closes the window.
	if now.After(game.Timing.EndTime) {
		return nil, model.ErrGameExpired
	}

	guess := &model.Guess{
		ID:            uuid.New().String(),
		GameID:        gameID,
		UserID:        userID,
		Username:      username,
		Value:         value,
		Justification: justification,
		CreatedAt:     now,
		Source:        source,
	}
	if err := s.guessRepo.Insert(ctx, guess); err != nil {
		return nil, err
	}

	count, err := s.guessRepo.Count(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := s.gameRepo.SetParticipants(ctx, gameID, count, now); err != nil {
		return nil, err
	}

	snapshot, err := s.recomputeMedian(ctx, gameID)
	if err != nil {
		// The median is derivable from the guess set at any time, so a
		// failed recompute does not fail the submission.
		logging.Log.Warnf("GUESS: median recompute failed for game %s: %v", gameID, err)
	}

	if s.broadcaster != nil {
		payload := map[string]interface{}{
			"gameId":            gameID,
			"totalParticipants": count,
		}
		if snapshot != nil {
			payload["medianGuess"] = snapshot.Median
		}
		s.broadcaster.BroadcastToGame(gameID, MsgGuessSubmitted, payload)
	}

	return guess, nil
}

// LiveMedian returns the current median snapshot, serving the cached
// copy when fresh and recomputing from the guess set otherwise.
func (s *GuessService) LiveMedian(ctx context.Context, gameID string) (*model.MedianSnapshot, error) {
	cached, err := s.guessRepo.GetMedianSnapshot(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		cached.Freshness = model.FreshnessCached
		return cached, nil
	}
	return s.recomputeMedian(ctx, gameID)
}

// ListByGame returns all guesses for a game ordered by value.
func (s *GuessService) ListByGame(ctx context.Context, gameID string) ([]*model.Guess, error) {
	return s.guessRepo.ListByGame(ctx, gameID)
}

func (s *GuessService) recomputeMedian(ctx context.Context, gameID string) (*model.MedianSnapshot, error) {
	values, err := s.guessRepo.Values(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	median, err := medianOf(values)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	snapshot := &model.MedianSnapshot{
		GameID:       gameID,
		Median:       median,
		CalculatedAt: now,
		SampleSize:   len(values),
		Freshness:    model.FreshnessLive,
	}
	if err := s.guessRepo.SetMedianSnapshot(ctx, snapshot, s.medianTTL); err != nil {
		return nil, err
	}
	if err := s.gameRepo.SetMedian(ctx, gameID, median, now); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// medianOf takes the middle guess value, averaging the two middle
// elements for even counts and rounding to the nearest integer.
func medianOf(values []int) (int, error) {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	median, err := stats.Median(data)
	if err != nil {
		return 0, fmt.Errorf("median computation: %w", err)
	}
	return int(math.Round(median)), nil
}
