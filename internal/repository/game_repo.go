package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"waveband/internal/catalog"
	"waveband/internal/model"
)

// GameRepo persists game metadata hashes and maintains the phase
// membership sets and the end-time schedule. Every read re-resolves the
// embedded spectrum against the catalog; a vanished spectrum is an
// integrity error, not a not-found.
type GameRepo interface {
	Save(ctx context.Context, game *model.Game) error
	Get(ctx context.Context, id string) (*model.Game, error)
	Delete(ctx context.Context, id string) error

	SetPhase(ctx context.Context, id string, from, to model.Phase, updatedAt time.Time) error
	AddToPhaseSet(ctx context.Context, id string, phase model.Phase) error
	RemoveFromPhaseSet(ctx context.Context, id string, phase model.Phase) error
	IDsByPhase(ctx context.Context, phase model.Phase) ([]string, error)

	Schedule(ctx context.Context, id string, endTime time.Time) error
	Unschedule(ctx context.Context, id string) error
	DueGameIDs(ctx context.Context, now time.Time) ([]string, error)
	ClaimScheduled(ctx context.Context, id string) (bool, error)

	SetParticipants(ctx context.Context, id string, count int, updatedAt time.Time) error
	SetMedian(ctx context.Context, id string, median int, updatedAt time.Time) error
}

type gameRepo struct {
	client  *redis.Client
	catalog catalog.Catalog
}

func NewGameRepo(client *redis.Client, cat catalog.Catalog) GameRepo {
	return &gameRepo{client: client, catalog: cat}
}

func (r *gameRepo) Save(ctx context.Context, game *model.Game) error {
	fields := map[string]string{
		"id":                game.ID,
		"hostUserId":        game.HostUserID,
		"hostUsername":      game.HostUsername,
		"clue":              game.Clue,
		"phase":             string(game.Phase),
		"spectrumId":        game.Spectrum.ID,
		"secretTarget":      strconv.Itoa(game.SecretTarget),
		"startTime":         game.Timing.StartTime.Format(time.RFC3339Nano),
		"endTime":           game.Timing.EndTime.Format(time.RFC3339Nano),
		"revealAt":          game.Timing.RevealAt.Format(time.RFC3339Nano),
		"createdAt":         game.Timing.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt":         game.Timing.UpdatedAt.Format(time.RFC3339Nano),
		"totalParticipants": strconv.Itoa(game.TotalParticipants),
		"publishedAt":       game.PublishedAt.Format(time.RFC3339Nano),
	}
	if game.MedianGuess != nil {
		fields["medianGuess"] = strconv.Itoa(*game.MedianGuess)
	}
	if game.PostRef != nil {
		fields["postId"] = game.PostRef.PostID
		fields["postPermalink"] = game.PostRef.Permalink
		fields["postUrl"] = game.PostRef.URL
	}
	return r.client.HSet(ctx, gameKey(game.ID), fields).Err()
}

func (r *gameRepo) Get(ctx context.Context, id string) (*model.Game, error) {
	fields, err := r.client.HGetAll(ctx, gameKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	game, err := parseGame(fields)
	if err != nil {
		return nil, err
	}

	spectrum, err := r.catalog.ByID(ctx, fields["spectrumId"])
	if err != nil {
		return nil, err
	}
	if spectrum == nil {
		return nil, fmt.Errorf("%w: game %s references spectrum %q", model.ErrSpectrumMissing, id, fields["spectrumId"])
	}
	game.Spectrum = *spectrum

	return game, nil
}

func (r *gameRepo) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, gameKey(id)).Err()
}

func (r *gameRepo) SetPhase(ctx context.Context, id string, from, to model.Phase, updatedAt time.Time) error {
	if err := r.client.HSet(ctx, gameKey(id), map[string]string{
		"phase":     string(to),
		"updatedAt": updatedAt.Format(time.RFC3339Nano),
	}).Err(); err != nil {
		return err
	}
	if err := r.client.SRem(ctx, phaseSetKey(string(from)), id).Err(); err != nil {
		return err
	}
	return r.client.SAdd(ctx, phaseSetKey(string(to)), id).Err()
}

func (r *gameRepo) AddToPhaseSet(ctx context.Context, id string, phase model.Phase) error {
	return r.client.SAdd(ctx, phaseSetKey(string(phase)), id).Err()
}

func (r *gameRepo) RemoveFromPhaseSet(ctx context.Context, id string, phase model.Phase) error {
	return r.client.SRem(ctx, phaseSetKey(string(phase)), id).Err()
}

func (r *gameRepo) IDsByPhase(ctx context.Context, phase model.Phase) ([]string, error) {
	return r.client.SMembers(ctx, phaseSetKey(string(phase))).Result()
}

func (r *gameRepo) Schedule(ctx context.Context, id string, endTime time.Time) error {
	return r.client.ZAdd(ctx, scheduleKey, redis.Z{
		Score:  float64(endTime.Unix()),
		Member: id,
	}).Err()
}

func (r *gameRepo) Unschedule(ctx context.Context, id string) error {
	return r.client.ZRem(ctx, scheduleKey, id).Err()
}

func (r *gameRepo) DueGameIDs(ctx context.Context, now time.Time) ([]string, error) {
	return r.client.ZRangeByScore(ctx, scheduleKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
}

// ClaimScheduled removes id from the schedule and reports whether this
// caller performed the removal. A concurrent tick that lost the race
// gets false and must not process the game.
func (r *gameRepo) ClaimScheduled(ctx context.Context, id string) (bool, error) {
	removed, err := r.client.ZRem(ctx, scheduleKey, id).Result()
	if err != nil {
		return false, err
	}
	return removed == 1, nil
}

func (r *gameRepo) SetParticipants(ctx context.Context, id string, count int, updatedAt time.Time) error {
	return r.client.HSet(ctx, gameKey(id), map[string]string{
		"totalParticipants": strconv.Itoa(count),
		"updatedAt":         updatedAt.Format(time.RFC3339Nano),
	}).Err()
}

func (r *gameRepo) SetMedian(ctx context.Context, id string, median int, updatedAt time.Time) error {
	return r.client.HSet(ctx, gameKey(id), map[string]string{
		"medianGuess": strconv.Itoa(median),
		"updatedAt":   updatedAt.Format(time.RFC3339Nano),
	}).Err()
}

func parseGame(fields map[string]string) (*model.Game, error) {
	for _, required := range []string{"id", "hostUserId", "clue", "phase", "spectrumId", "secretTarget", "startTime", "endTime", "revealAt", "createdAt", "updatedAt"} {
		if fields[required] == "" {
			return nil, fmt.Errorf("%w: game missing field %q", model.ErrRecordCorrupt, required)
		}
	}

	phase := model.Phase(fields["phase"])
	if !phase.Valid() {
		return nil, fmt.Errorf("%w: game phase %q", model.ErrRecordCorrupt, fields["phase"])
	}
	target, err := strconv.Atoi(fields["secretTarget"])
	if err != nil {
		return nil, fmt.Errorf("%w: game secretTarget: %v", model.ErrRecordCorrupt, err)
	}

	timing := model.Timing{}
	for name, dst := range map[string]*time.Time{
		"startTime": &timing.StartTime,
		"endTime":   &timing.EndTime,
		"revealAt":  &timing.RevealAt,
		"createdAt": &timing.CreatedAt,
		"updatedAt": &timing.UpdatedAt,
	} {
		parsed, timeErr := time.Parse(time.RFC3339Nano, fields[name])
		if timeErr != nil {
			return nil, fmt.Errorf("%w: game %s: %v", model.ErrRecordCorrupt, name, timeErr)
		}
		*dst = parsed
	}

	game := &model.Game{
		ID:           fields["id"],
		HostUserID:   fields["hostUserId"],
		HostUsername: fields["hostUsername"],
		Clue:         fields["clue"],
		Phase:        phase,
		SecretTarget: target,
		Timing:       timing,
	}

	if raw := fields["totalParticipants"]; raw != "" {
		count, countErr := strconv.Atoi(raw)
		if countErr != nil {
			return nil, fmt.Errorf("%w: game totalParticipants: %v", model.ErrRecordCorrupt, countErr)
		}
		game.TotalParticipants = count
	}
	if raw := fields["medianGuess"]; raw != "" {
		median, medianErr := strconv.Atoi(raw)
		if medianErr != nil {
			return nil, fmt.Errorf("%w: game medianGuess: %v", model.ErrRecordCorrupt, medianErr)
		}
		game.MedianGuess = &median
	}
	if raw := fields["publishedAt"]; raw != "" {
		publishedAt, pubErr := time.Parse(time.RFC3339Nano, raw)
		if pubErr != nil {
			return nil, fmt.Errorf("%w: game publishedAt: %v", model.ErrRecordCorrupt, pubErr)
		}
		game.PublishedAt = publishedAt
	}
	if fields["postId"] != "" {
		game.PostRef = &model.PostRef{
			PostID:    fields["postId"],
			Permalink: fields["postPermalink"],
			URL:       fields["postUrl"],
		}
	}

	return game, nil
}
