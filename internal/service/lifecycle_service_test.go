package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waveband/internal/logging"
	"waveband/internal/model"
	"waveband/internal/repository"
)

// stubCatalog serves a fixed spectrum without a remote source.
type stubCatalog struct {
	spectra []model.Spectrum
}

func (s *stubCatalog) Ensure(_ context.Context) ([]model.Spectrum, error) {
	return s.spectra, nil
}

func (s *stubCatalog) ByID(_ context.Context, id string) (*model.Spectrum, error) {
	for i := range s.spectra {
		if s.spectra[i].ID == id {
			return &s.spectra[i], nil
		}
	}
	return nil, nil
}

func (s *stubCatalog) PickFiltered(_ context.Context, _, _ string) (*model.Spectrum, error) {
	return &s.spectra[0], nil
}

// stubPublisher records calls and can be told to fail.
type stubPublisher struct {
	fail  bool
	calls int
}

func (p *stubPublisher) CreatePost(_ context.Context, game *model.Game) (*model.PostRef, error) {
	p.calls++
	if p.fail {
		return nil, model.ErrPostPublish
	}
	return &model.PostRef{PostID: "post-" + game.ID, Permalink: "/p/" + game.ID, URL: "https://example.com/p/" + game.ID}, nil
}

type lifecycleFixture struct {
	svc       *LifecycleService
	draftRepo repository.DraftRepo
	gameRepo  repository.GameRepo
	publisher *stubPublisher
}

func setupLifecycle(t *testing.T) *lifecycleFixture {
	t.Helper()
	logging.Log = logrus.New()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cat := &stubCatalog{spectra: []model.Spectrum{
		{ID: "coffee-tea", LeftLabel: "Coffee", RightLabel: "Tea"},
	}}
	draftRepo := repository.NewDraftRepo(client)
	gameRepo := repository.NewGameRepo(client, cat)
	publisher := &stubPublisher{}

	svc := NewLifecycleService(draftRepo, gameRepo, cat, publisher, 15*time.Minute, time.Hour)
	return &lifecycleFixture{
		svc:       svc,
		draftRepo: draftRepo,
		gameRepo:  gameRepo,
		publisher: publisher,
	}
}

func TestCreateDraft(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()

	draft, spectrum, err := f.svc.CreateDraft(ctx, "host", "", "")
	require.NoError(t, err)
	require.NotNil(t, draft)
	require.NotNil(t, spectrum)

	assert.NotEmpty(t, draft.ID)
	assert.Equal(t, "host", draft.HostUserID)
	assert.Equal(t, "coffee-tea", draft.SpectrumID)
	assert.GreaterOrEqual(t, draft.SecretTarget, model.MinGuessValue)
	assert.LessOrEqual(t, draft.SecretTarget, model.MaxGuessValue)
	assert.True(t, draft.ExpiresAt.After(draft.CreatedAt))

	stored, err := f.draftRepo.Get(ctx, draft.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, draft.SecretTarget, stored.SecretTarget)
}

func TestPublishHappyPath(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()

	draft, _, err := f.svc.CreateDraft(ctx, "host", "", "")
	require.NoError(t, err)

	game, err := f.svc.Publish(ctx, draft.ID, "host", "maya", "A spicy clue", 60)
	require.NoError(t, err)
	require.NotNil(t, game)

	assert.Equal(t, model.PhaseActive, game.Phase)
	assert.Equal(t, draft.SecretTarget, game.SecretTarget)
	assert.Equal(t, "A spicy clue", game.Clue)
	assert.WithinDuration(t, game.Timing.StartTime.Add(60*time.Minute), game.Timing.EndTime, time.Second)
	assert.WithinDuration(t, game.Timing.EndTime.Add(time.Hour), game.Timing.RevealAt, time.Second)
	require.NotNil(t, game.PostRef)
	assert.Equal(t, 1, f.publisher.calls)

	// Indexed and scheduled.
	active, err := f.gameRepo.IDsByPhase(ctx, model.PhaseActive)
	require.NoError(t, err)
	assert.Equal(t, []string{game.ID}, active)
	due, err := f.gameRepo.DueGameIDs(ctx, game.Timing.EndTime.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{game.ID}, due)

	// The draft is consumed.
	gone, err := f.draftRepo.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = f.svc.Publish(ctx, draft.ID, "host", "maya", "again", 60)
	assert.ErrorIs(t, err, model.ErrDraftNotFound)
}

func TestPublishValidation(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()

	draft, _, err := f.svc.CreateDraft(ctx, "host", "", "")
	require.NoError(t, err)

	tests := []struct {
		name     string
		host     string
		clue     string
		duration int
		want     error
	}{
		{"unknown draft handled separately", "host", "clue", 60, nil},
		{"ownership mismatch", "intruder", "clue", 60, model.ErrDraftOwnership},
		{"empty clue", "host", "   ", 60, model.ErrClueInvalid},
		{"duration too short", "host", "clue", 0, model.ErrDurationInvalid},
		{"duration too long", "host", "clue", 2000, model.ErrDurationInvalid},
	}

	for _, tt := range tests {
		if tt.want == nil {
			continue
		}
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Publish(ctx, draft.ID, tt.host, "maya", tt.clue, tt.duration)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = f.svc.Publish(ctx, "no-such-draft", "host", "maya", "clue", 60)
	assert.ErrorIs(t, err, model.ErrDraftNotFound)

	// Failed publishes must leave the draft intact.
	stored, err := f.draftRepo.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestPublishAbortsBeforePersistenceWhenPostFails(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()

	draft, _, err := f.svc.CreateDraft(ctx, "host", "", "")
	require.NoError(t, err)

	f.publisher.fail = true
	_, err = f.svc.Publish(ctx, draft.ID, "host", "maya", "clue", 60)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPostPublish)

	// No partial game anywhere.
	active, err := f.gameRepo.IDsByPhase(ctx, model.PhaseActive)
	require.NoError(t, err)
	assert.Empty(t, active)
	due, err := f.gameRepo.DueGameIDs(ctx, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	// Draft survives for a retry.
	stored, err := f.draftRepo.Get(ctx, draft.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	f.publisher.fail = false
	game, err := f.svc.Publish(ctx, draft.ID, "host", "maya", "clue", 60)
	require.NoError(t, err)
	assert.NotNil(t, game)
}

func TestTransitionForwardOnly(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()

	draft, _, err := f.svc.CreateDraft(ctx, "host", "", "")
	require.NoError(t, err)
	game, err := f.svc.Publish(ctx, draft.ID, "host", "maya", "clue", 60)
	require.NoError(t, err)

	// Same-state and skipping transitions are rejected.
	err = f.svc.Transition(ctx, game, model.PhaseActive)
	assert.ErrorIs(t, err, model.ErrPhaseInvalid)
	err = f.svc.Transition(ctx, game, model.PhaseArchived)
	assert.ErrorIs(t, err, model.ErrPhaseInvalid)

	require.NoError(t, f.svc.Transition(ctx, game, model.PhaseReveal))
	assert.Equal(t, model.PhaseReveal, game.Phase)

	// Backward is rejected.
	err = f.svc.Transition(ctx, game, model.PhaseActive)
	assert.ErrorIs(t, err, model.ErrPhaseInvalid)

	require.NoError(t, f.svc.Transition(ctx, game, model.PhaseArchived))

	loaded, err := f.gameRepo.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseArchived, loaded.Phase)

	archived, err := f.gameRepo.IDsByPhase(ctx, model.PhaseArchived)
	require.NoError(t, err)
	assert.Equal(t, []string{game.ID}, archived)
}

func TestGetByIDNotFoundIsNil(t *testing.T) {
	f := setupLifecycle(t)

	game, err := f.svc.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, game)
}

func TestActiveFeedSkipsBrokenEntries(t *testing.T) {
	f := setupLifecycle(t)
	ctx := context.Background()

	for _, username := range []string{"a", "b"} {
		draft, _, err := f.svc.CreateDraft(ctx, "host-"+username, "", "")
		require.NoError(t, err)
		_, err = f.svc.Publish(ctx, draft.ID, "host-"+username, username, "clue "+username, 60)
		require.NoError(t, err)
	}

	// Index an id with no backing record; the feed must skip it.
	require.NoError(t, f.gameRepo.AddToPhaseSet(ctx, "ghost", model.PhaseActive))

	games, err := f.svc.ActiveFeed(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, games, 2)

	paged, err := f.svc.ActiveFeed(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, paged, 1)

	empty, err := f.svc.ActiveFeed(ctx, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAuthTokenRoundTrip(t *testing.T) {
	svc := NewAuthService("test-secret")

	resp, err := svc.Login("maya")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "maya", resp.Username)
	assert.NotEmpty(t, resp.UserID)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
	assert.Equal(t, "maya", claims.Username)

	_, err = svc.ValidateToken("garbage")
	assert.True(t, errors.Is(err, ErrInvalidToken))

	other := NewAuthService("different-secret")
	_, err = other.ValidateToken(resp.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
