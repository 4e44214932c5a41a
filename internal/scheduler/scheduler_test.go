package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waveband/internal/catalog"
	"waveband/internal/logging"
	"waveband/internal/model"
	"waveband/internal/repository"
	"waveband/internal/service"
)

type fixedCatalog struct {
	spectrum model.Spectrum
}

func (c *fixedCatalog) Ensure(_ context.Context) ([]model.Spectrum, error) {
	return []model.Spectrum{c.spectrum}, nil
}

func (c *fixedCatalog) ByID(_ context.Context, id string) (*model.Spectrum, error) {
	if id == c.spectrum.ID {
		s := c.spectrum
		return &s, nil
	}
	return nil, nil
}

func (c *fixedCatalog) PickFiltered(_ context.Context, _, _ string) (*model.Spectrum, error) {
	s := c.spectrum
	return &s, nil
}

var _ catalog.Catalog = (*fixedCatalog)(nil)

type schedulerFixture struct {
	sched    *Scheduler
	gameRepo repository.GameRepo
	jobRepo  repository.JobRepo
}

func setup(t *testing.T) *schedulerFixture {
	t.Helper()
	logging.Log = logrus.New()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cat := &fixedCatalog{spectrum: model.Spectrum{ID: "coffee-tea", LeftLabel: "Coffee", RightLabel: "Tea"}}
	draftRepo := repository.NewDraftRepo(client)
	gameRepo := repository.NewGameRepo(client, cat)
	jobRepo := repository.NewJobRepo(client)
	lifecycle := service.NewLifecycleService(draftRepo, gameRepo, cat, service.NoopPublisher{}, 15*time.Minute, time.Hour)

	return &schedulerFixture{
		sched:    New(gameRepo, jobRepo, lifecycle),
		gameRepo: gameRepo,
		jobRepo:  jobRepo,
	}
}

// seedScheduledGame persists an Active game, indexes it and puts it on
// the schedule, with its end and reveal times shifted by the given
// offsets from now.
func (f *schedulerFixture) seedScheduledGame(t *testing.T, endsIn, revealsIn time.Duration) *model.Game {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	game := &model.Game{
		ID:           uuid.New().String(),
		HostUserID:   "host",
		HostUsername: "maya",
		Clue:         "room temperature",
		Phase:        model.PhaseActive,
		Spectrum:     model.Spectrum{ID: "coffee-tea", LeftLabel: "Coffee", RightLabel: "Tea"},
		SecretTarget: 64,
		Timing: model.Timing{
			StartTime: now.Add(-2 * time.Hour),
			EndTime:   now.Add(endsIn),
			RevealAt:  now.Add(revealsIn),
			CreatedAt: now.Add(-2 * time.Hour),
			UpdatedAt: now,
		},
		PublishedAt: now.Add(-2 * time.Hour),
	}
	require.NoError(t, f.gameRepo.Save(ctx, game))
	require.NoError(t, f.gameRepo.AddToPhaseSet(ctx, game.ID, model.PhaseActive))
	require.NoError(t, f.gameRepo.Schedule(ctx, game.ID, game.Timing.EndTime))
	return game
}

func TestTickAdvancesExpiredGames(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	expired := f.seedScheduledGame(t, -time.Minute, time.Hour)
	running := f.seedScheduledGame(t, time.Hour, 2*time.Hour)

	result, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DueGames)
	assert.Equal(t, 1, result.Transitioned)
	assert.Equal(t, 1, result.JobsEnqueued)

	loaded, err := f.gameRepo.Get(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseReveal, loaded.Phase)

	untouched, err := f.gameRepo.Get(ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseActive, untouched.Phase)

	// Phase index moved along with the record.
	reveal, err := f.gameRepo.IDsByPhase(ctx, model.PhaseReveal)
	require.NoError(t, err)
	assert.Equal(t, []string{expired.ID}, reveal)
	active, err := f.gameRepo.IDsByPhase(ctx, model.PhaseActive)
	require.NoError(t, err)
	assert.Equal(t, []string{running.ID}, active)

	jobs, err := f.jobRepo.DueJobs(ctx, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, expired.ID, jobs[0].GameID)
}

func TestTickIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.seedScheduledGame(t, -time.Minute, time.Hour)

	first, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Transitioned)

	// The claim consumed the schedule entry; a second tick sees nothing.
	second, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.DueGames)
	assert.Equal(t, 0, second.Transitioned)
	assert.Equal(t, 0, second.JobsEnqueued)
}

func TestFullLifecycleChain(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Ended and already past its reveal time: one tick plus one job run
	// walks it all the way to Archived.
	game := f.seedScheduledGame(t, -2*time.Hour, -time.Minute)

	tick, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tick.Transitioned)

	run, err := f.sched.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.DueJobs)
	assert.Equal(t, 1, run.Finalized)
	assert.Equal(t, 0, run.Skipped)

	loaded, err := f.gameRepo.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseArchived, loaded.Phase)

	archived, err := f.gameRepo.IDsByPhase(ctx, model.PhaseArchived)
	require.NoError(t, err)
	assert.Equal(t, []string{game.ID}, archived)

	// The job was claimed; nothing left to run.
	again, err := f.sched.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.DueJobs)
}

func TestFinalizeSkipsGamesNotInReveal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	game := f.seedScheduledGame(t, -2*time.Hour, -time.Minute)

	// A finalize job that fires before any tick finds the game still
	// Active and counts it as skipped rather than forcing the phase.
	require.NoError(t, f.jobRepo.EnqueueFinalize(ctx, game.ID, game.Timing.RevealAt))
	run, err := f.sched.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.DueJobs)
	assert.Equal(t, 0, run.Finalized)
	assert.Equal(t, 1, run.Skipped)

	loaded, err := f.gameRepo.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseActive, loaded.Phase)

	// Missing games are also a skip, not an error.
	require.NoError(t, f.jobRepo.EnqueueFinalize(ctx, "ghost", time.Now().Add(-time.Minute)))
	run, err = f.sched.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Skipped)
}

func TestJobsNotDueStayQueued(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	game := f.seedScheduledGame(t, -time.Minute, time.Hour)

	tick, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, tick.JobsEnqueued)

	// Reveal window still open: the finalize job must not fire yet.
	run, err := f.sched.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, run.DueJobs)

	loaded, err := f.gameRepo.Get(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseReveal, loaded.Phase)
}
