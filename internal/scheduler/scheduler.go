package scheduler

import (
	"context"
	"time"

	"waveband/internal/logging"
	"waveband/internal/model"
	"waveband/internal/repository"
	"waveband/internal/service"
)

// TickResult reports what one tick accomplished.
type TickResult struct {
	DueGames     int `json:"dueGames"`
	Transitioned int `json:"transitioned"`
	JobsEnqueued int `json:"jobsEnqueued"`
}

// JobRunResult reports what one job-runner pass accomplished.
type JobRunResult struct {
	DueJobs   int `json:"dueJobs"`
	Finalized int `json:"finalized"`
	Skipped   int `json:"skipped"`
}

// Scheduler advances expired Active games to Reveal on tick and
// archives Reveal games when their finalize job fires. Both paths are
// idempotent under duplicate delivery: the schedule/queue removal is a
// claim, and the handlers re-check current state before acting.
type Scheduler struct {
	gameRepo  repository.GameRepo
	jobRepo   repository.JobRepo
	lifecycle *service.LifecycleService
}

func New(gameRepo repository.GameRepo, jobRepo repository.JobRepo, lifecycle *service.LifecycleService) *Scheduler {
	return &Scheduler{
		gameRepo:  gameRepo,
		jobRepo:   jobRepo,
		lifecycle: lifecycle,
	}
}

// Tick selects all games whose end time has passed, claims each from
// the schedule and moves it into Reveal with a finalize job at its
// reveal time. A concurrent tick that loses a claim skips that game.
func (s *Scheduler) Tick(ctx context.Context) (*TickResult, error) {
	now := time.Now().UTC()
	result := &TickResult{}

	due, err := s.gameRepo.DueGameIDs(ctx, now)
	if err != nil {
		return nil, err
	}
	result.DueGames = len(due)

	for _, gameID := range due {
		claimed, err := s.gameRepo.ClaimScheduled(ctx, gameID)
		if err != nil {
			logging.Log.Errorf("TICK: claim failed for game %s: %v", gameID, err)
			continue
		}
		if !claimed {
			continue
		}

		game, err := s.gameRepo.Get(ctx, gameID)
		if err != nil {
			logging.Log.Errorf("TICK: failed to load game %s: %v", gameID, err)
			continue
		}
		if game == nil {
			logging.Log.Warnf("TICK: scheduled game %s no longer exists", gameID)
			continue
		}
		if game.Phase != model.PhaseActive {
			// Already advanced by an earlier delivery.
			continue
		}

		if err := s.lifecycle.Transition(ctx, game, model.PhaseReveal); err != nil {
			logging.Log.Errorf("TICK: transition failed for game %s: %v", gameID, err)
			continue
		}
		result.Transitioned++

		if err := s.jobRepo.EnqueueFinalize(ctx, gameID, game.Timing.RevealAt); err != nil {
			logging.Log.Errorf("TICK: failed to enqueue finalize for game %s: %v", gameID, err)
			continue
		}
		result.JobsEnqueued++
	}

	return result, nil
}

// RunDueJobs claims and executes every finalize job whose run time has
// passed.
func (s *Scheduler) RunDueJobs(ctx context.Context) (*JobRunResult, error) {
	now := time.Now().UTC()
	result := &JobRunResult{}

	jobs, err := s.jobRepo.DueJobs(ctx, now)
	if err != nil {
		return nil, err
	}
	result.DueJobs = len(jobs)

	for _, job := range jobs {
		claimed, err := s.jobRepo.Claim(ctx, job)
		if err != nil {
			logging.Log.Errorf("FINALIZE: claim failed for game %s: %v", job.GameID, err)
			continue
		}
		if !claimed {
			continue
		}

		finalized, err := s.Finalize(ctx, job.GameID)
		if err != nil {
			logging.Log.Errorf("FINALIZE: failed for game %s: %v", job.GameID, err)
			continue
		}
		if finalized {
			result.Finalized++
		} else {
			result.Skipped++
		}
	}

	return result, nil
}

// Finalize archives a Reveal game. Delivery is at least once, so a game
// that is not currently in Reveal counts as already processed and the
// call is a successful no-op.
func (s *Scheduler) Finalize(ctx context.Context, gameID string) (bool, error) {
	game, err := s.gameRepo.Get(ctx, gameID)
	if err != nil {
		return false, err
	}
	if game == nil {
		logging.Log.Warnf("FINALIZE: game %s no longer exists", gameID)
		return false, nil
	}
	if game.Phase != model.PhaseReveal {
		return false, nil
	}

	if err := s.lifecycle.Transition(ctx, game, model.PhaseArchived); err != nil {
		return false, err
	}
	return true, nil
}

// Run drives Tick and RunDueJobs on a fixed interval until ctx ends.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if result, err := s.Tick(ctx); err != nil {
				logging.Log.Errorf("TICK: %v", err)
			} else if result.Transitioned > 0 {
				logging.Log.Infof("TICK: advanced %d game(s) to reveal", result.Transitioned)
			}

			if result, err := s.RunDueJobs(ctx); err != nil {
				logging.Log.Errorf("FINALIZE: %v", err)
			} else if result.Finalized > 0 {
				logging.Log.Infof("FINALIZE: archived %d game(s)", result.Finalized)
			}
		}
	}
}
