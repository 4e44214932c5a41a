package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"waveband/internal/catalog"
	"waveband/internal/logging"
	"waveband/internal/model"
	"waveband/internal/repository"
)

const (
	maxClueLength  = 256
	minDurationMin = 1
	maxDurationMin = 1440

	MsgPhaseChanged = "phase_changed"
)

// LifecycleService owns draft issuance, publish, state transitions and
// the active feed.
type LifecycleService struct {
	draftRepo   repository.DraftRepo
	gameRepo    repository.GameRepo
	catalog     catalog.Catalog
	publisher   PostPublisher
	broadcaster Broadcaster

	draftTTL     time.Duration
	revealWindow time.Duration
}

func NewLifecycleService(
	draftRepo repository.DraftRepo,
	gameRepo repository.GameRepo,
	cat catalog.Catalog,
	publisher PostPublisher,
	draftTTL, revealWindow time.Duration,
) *LifecycleService {
	return &LifecycleService{
		draftRepo:    draftRepo,
		gameRepo:     gameRepo,
		catalog:      cat,
		publisher:    publisher,
		draftTTL:     draftTTL,
		revealWindow: revealWindow,
	}
}

// SetBroadcaster sets the broadcaster for live phase events.
func (s *LifecycleService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateDraft picks a spectrum, rolls a secret target and persists a
// TTL-bounded draft. The draft always reveals the target to its host.
func (s *LifecycleService) CreateDraft(ctx context.Context, hostUserID, contextFilter, difficulty string) (*model.Draft, *model.Spectrum, error) {
	spectrum, err := s.catalog.PickFiltered(ctx, contextFilter, difficulty)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pick spectrum: %w", err)
	}

	now := time.Now().UTC()
	draft := &model.Draft{
		ID:           uuid.New().String(),
		HostUserID:   hostUserID,
		SpectrumID:   spectrum.ID,
		SecretTarget: model.MinGuessValue + rand.Intn(model.MaxGuessValue-model.MinGuessValue+1),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.draftTTL),
	}

	if err := s.draftRepo.Save(ctx, draft, s.draftTTL); err != nil {
		return nil, nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, spectrum, nil
}

// Publish turns a draft into an Active game. The store offers no
// cross-key transactions, so writes are ordered with compensating
// deletes: post creation happens before any persistence, and the draft
// is deleted only after everything else succeeded, leaving it intact
// for a retry whenever possible.
func (s *LifecycleService) Publish(ctx context.Context, draftID, hostUserID, hostUsername, clue string, durationMinutes int) (*model.Game, error) {
	draft, err := s.draftRepo.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, model.ErrDraftNotFound
	}
	now := time.Now().UTC()
	if draft.Expired(now) {
		return nil, model.ErrDraftConsumed
	}
	if draft.HostUserID != hostUserID {
		return nil, model.ErrDraftOwnership
	}
	if err := validateClue(clue); err != nil {
		return nil, err
	}
	if durationMinutes < minDurationMin || durationMinutes > maxDurationMin {
		return nil, model.ErrDurationInvalid
	}

	spectrum, err := s.catalog.ByID(ctx, draft.SpectrumID)
	if err != nil {
		return nil, err
	}
	if spectrum == nil {
		return nil, fmt.Errorf("%w: draft %s references spectrum %q", model.ErrSpectrumMissing, draftID, draft.SpectrumID)
	}

	endTime := now.Add(time.Duration(durationMinutes) * time.Minute)
	game := &model.Game{
		ID:           uuid.New().String(),
		HostUserID:   hostUserID,
		HostUsername: hostUsername,
		Clue:         clue,
		Phase:        model.PhaseActive,
		Spectrum:     *spectrum,
		SecretTarget: draft.SecretTarget,
		Timing: model.Timing{
			StartTime: now,
			EndTime:   endTime,
			RevealAt:  endTime.Add(s.revealWindow),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PublishedAt: now,
	}

	// External post creation first: a failure here must leave no trace.
	postRef, err := s.publisher.CreatePost(ctx, game)
	if err != nil {
		return nil, err
	}
	game.PostRef = postRef

	if err := s.gameRepo.Save(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to persist game: %w", err)
	}
	if err := s.gameRepo.AddToPhaseSet(ctx, game.ID, model.PhaseActive); err != nil {
		s.compensatePublish(ctx, game.ID, false)
		return nil, fmt.Errorf("failed to index game: %w", err)
	}
	if err := s.gameRepo.Schedule(ctx, game.ID, game.Timing.EndTime); err != nil {
		s.compensatePublish(ctx, game.ID, true)
		return nil, fmt.Errorf("failed to schedule game: %w", err)
	}

	// The draft is consumed last. A failed delete is logged and left to
	// the TTL; publishing the same draft again is caught by the caller
	// seeing the already-created game or the next Get returning nothing.
	if err := s.draftRepo.Delete(ctx, draftID); err != nil {
		logging.Log.Warnf("PUBLISH: failed to delete draft %s: %v", draftID, err)
	}

	return game, nil
}

// compensatePublish undoes the persisted parts of a failed publish.
// Best effort: each delete is independent and a leftover is harmless to
// correctness since the game never reached the schedule.
func (s *LifecycleService) compensatePublish(ctx context.Context, gameID string, inPhaseSet bool) {
	if inPhaseSet {
		if err := s.gameRepo.RemoveFromPhaseSet(ctx, gameID, model.PhaseActive); err != nil {
			logging.Log.Errorf("PUBLISH: compensation failed to unindex game %s: %v", gameID, err)
		}
	}
	if err := s.gameRepo.Unschedule(ctx, gameID); err != nil {
		logging.Log.Errorf("PUBLISH: compensation failed to unschedule game %s: %v", gameID, err)
	}
	if err := s.gameRepo.Delete(ctx, gameID); err != nil {
		logging.Log.Errorf("PUBLISH: compensation failed to delete game %s: %v", gameID, err)
	}
}

// Transition advances the game to next, enforcing the forward-only
// state machine. Transitioning to the current state is an error.
func (s *LifecycleService) Transition(ctx context.Context, game *model.Game, next model.Phase) error {
	if !game.Phase.CanAdvanceTo(next) {
		return fmt.Errorf("%w: cannot move %s from %s to %s", model.ErrPhaseInvalid, game.ID, game.Phase, next)
	}

	now := time.Now().UTC()
	if err := s.gameRepo.SetPhase(ctx, game.ID, game.Phase, next, now); err != nil {
		return err
	}
	game.Phase = next
	game.Timing.UpdatedAt = now

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToGame(game.ID, MsgPhaseChanged, map[string]interface{}{
			"gameId": game.ID,
			"state":  string(next),
		})
	}
	return nil
}

// GetByID fetches and hydrates a game. Absence is a nil result, not an
// error.
func (s *LifecycleService) GetByID(ctx context.Context, gameID string) (*model.Game, error) {
	return s.gameRepo.Get(ctx, gameID)
}

// ActiveFeed lists Active games, newest first. Individual malformed
// entries are skipped with a warning rather than failing the feed.
func (s *LifecycleService) ActiveFeed(ctx context.Context, page, limit int) ([]*model.Game, error) {
	ids, err := s.gameRepo.IDsByPhase(ctx, model.PhaseActive)
	if err != nil {
		return nil, err
	}

	games := make([]*model.Game, 0, len(ids))
	for _, id := range ids {
		game, getErr := s.gameRepo.Get(ctx, id)
		if getErr != nil {
			logging.Log.Warnf("FEED: skipping game %s: %v", id, getErr)
			continue
		}
		if game == nil {
			continue
		}
		games = append(games, game)
	}

	sort.Slice(games, func(i, j int) bool {
		return games[i].PublishedAt.After(games[j].PublishedAt)
	})

	if limit <= 0 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(games) {
		return []*model.Game{}, nil
	}
	end := start + limit
	if end > len(games) {
		end = len(games)
	}
	return games[start:end], nil
}

func validateClue(clue string) error {
	if strings.TrimSpace(clue) == "" || len(clue) > maxClueLength {
		return model.ErrClueInvalid
	}
	return nil
}
