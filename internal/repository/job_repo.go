package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"waveband/internal/model"
)

// FinalizeJob is one scheduled finalization, keyed by (gameId, runAt) so
// that duplicate enqueues collapse into the same member.
type FinalizeJob struct {
	GameID string
	RunAt  time.Time
}

func (j FinalizeJob) member() string {
	return fmt.Sprintf("%s@%d", j.GameID, j.RunAt.Unix())
}

// JobRepo is the finalize-job queue: a sorted set scored by run time.
type JobRepo interface {
	EnqueueFinalize(ctx context.Context, gameID string, runAt time.Time) error
	DueJobs(ctx context.Context, now time.Time) ([]FinalizeJob, error)
	Claim(ctx context.Context, job FinalizeJob) (bool, error)
}

type jobRepo struct {
	client *redis.Client
}

func NewJobRepo(client *redis.Client) JobRepo {
	return &jobRepo{client: client}
}

// EnqueueFinalize is idempotent: the member is deterministic for a given
// (gameId, runAt), so a duplicate enqueue overwrites itself.
func (r *jobRepo) EnqueueFinalize(ctx context.Context, gameID string, runAt time.Time) error {
	job := FinalizeJob{GameID: gameID, RunAt: runAt}
	return r.client.ZAdd(ctx, finalizeJobsKey, redis.Z{
		Score:  float64(runAt.Unix()),
		Member: job.member(),
	}).Err()
}

func (r *jobRepo) DueJobs(ctx context.Context, now time.Time) ([]FinalizeJob, error) {
	members, err := r.client.ZRangeByScore(ctx, finalizeJobsKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]FinalizeJob, 0, len(members))
	for _, member := range members {
		job, parseErr := parseJobMember(member)
		if parseErr != nil {
			return nil, parseErr
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Claim removes the job and reports whether this caller won it. A
// concurrent runner that lost the race gets false.
func (r *jobRepo) Claim(ctx context.Context, job FinalizeJob) (bool, error) {
	removed, err := r.client.ZRem(ctx, finalizeJobsKey, job.member()).Result()
	if err != nil {
		return false, err
	}
	return removed == 1, nil
}

func parseJobMember(member string) (FinalizeJob, error) {
	idx := strings.LastIndex(member, "@")
	if idx <= 0 || idx == len(member)-1 {
		return FinalizeJob{}, fmt.Errorf("%w: finalize job member %q", model.ErrRecordCorrupt, member)
	}
	unix, err := strconv.ParseInt(member[idx+1:], 10, 64)
	if err != nil {
		return FinalizeJob{}, fmt.Errorf("%w: finalize job member %q: %v", model.ErrRecordCorrupt, member, err)
	}
	return FinalizeJob{
		GameID: member[:idx],
		RunAt:  time.Unix(unix, 0).UTC(),
	}, nil
}
