package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"waveband/internal/model"
)

// GuessRepo persists guess hashes and maintains the two per-game
// indices: a value-sorted set of guess ids and a userId→guessId map.
// The map doubles as the duplicate gate via HSetNX.
type GuessRepo interface {
	Insert(ctx context.Context, guess *model.Guess) error
	Get(ctx context.Context, id string) (*model.Guess, error)
	ListByGame(ctx context.Context, gameID string) ([]*model.Guess, error)
	Values(ctx context.Context, gameID string) ([]int, error)
	Count(ctx context.Context, gameID string) (int, error)
	HasGuessed(ctx context.Context, gameID, userID string) (bool, error)
	SetUpvotes(ctx context.Context, guessID string, upvotes float64) error

	SetMedianSnapshot(ctx context.Context, snapshot *model.MedianSnapshot, ttl time.Duration) error
	GetMedianSnapshot(ctx context.Context, gameID string) (*model.MedianSnapshot, error)
}

type guessRepo struct {
	client *redis.Client
}

func NewGuessRepo(client *redis.Client) GuessRepo {
	return &guessRepo{client: client}
}

// Insert claims the (gameId, userId) slot before writing anything else.
// HSetNX is the conditional primitive that closes the race between two
// concurrent submissions from the same user.
func (r *guessRepo) Insert(ctx context.Context, guess *model.Guess) error {
	claimed, err := r.client.HSetNX(ctx, guessersKey(guess.GameID), guess.UserID, guess.ID).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrDuplicateGuess
	}

	fields := map[string]string{
		"id":        guess.ID,
		"gameId":    guess.GameID,
		"userId":    guess.UserID,
		"username":  guess.Username,
		"value":     strconv.Itoa(guess.Value),
		"createdAt": guess.CreatedAt.Format(time.RFC3339Nano),
		"upvotes":   strconv.FormatFloat(guess.Upvotes, 'f', -1, 64),
	}
	if guess.Justification != "" {
		fields["justification"] = guess.Justification
	}
	if guess.Source != "" {
		fields["source"] = guess.Source
	}
	if guess.CommentRef != "" {
		fields["commentRef"] = guess.CommentRef
	}
	if err := r.client.HSet(ctx, guessKey(guess.ID), fields).Err(); err != nil {
		return err
	}

	// Re-adding an existing member is a no-op, so a retried insert after
	// a partial failure is harmless.
	return r.client.ZAdd(ctx, guessSetKey(guess.GameID), redis.Z{
		Score:  float64(guess.Value),
		Member: guess.ID,
	}).Err()
}

func (r *guessRepo) Get(ctx context.Context, id string) (*model.Guess, error) {
	fields, err := r.client.HGetAll(ctx, guessKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseGuess(fields)
}

func (r *guessRepo) ListByGame(ctx context.Context, gameID string) ([]*model.Guess, error) {
	ids, err := r.client.ZRange(ctx, guessSetKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	guesses := make([]*model.Guess, 0, len(ids))
	for _, id := range ids {
		guess, getErr := r.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if guess == nil {
			return nil, fmt.Errorf("%w: guess %s indexed but missing", model.ErrRecordCorrupt, id)
		}
		guesses = append(guesses, guess)
	}
	return guesses, nil
}

// Values returns all guess values for a game in ascending order,
// straight from the sorted-set scores.
func (r *guessRepo) Values(ctx context.Context, gameID string) ([]int, error) {
	entries, err := r.client.ZRangeWithScores(ctx, guessSetKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	values := make([]int, len(entries))
	for i, z := range entries {
		values[i] = int(z.Score)
	}
	return values, nil
}

func (r *guessRepo) Count(ctx context.Context, gameID string) (int, error) {
	n, err := r.client.ZCard(ctx, guessSetKey(gameID)).Result()
	return int(n), err
}

func (r *guessRepo) HasGuessed(ctx context.Context, gameID, userID string) (bool, error) {
	err := r.client.HGet(ctx, guessersKey(gameID), userID).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *guessRepo) SetUpvotes(ctx context.Context, guessID string, upvotes float64) error {
	return r.client.HSet(ctx, guessKey(guessID), "upvotes", strconv.FormatFloat(upvotes, 'f', -1, 64)).Err()
}

func (r *guessRepo) SetMedianSnapshot(ctx context.Context, snapshot *model.MedianSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, medianKey(snapshot.GameID), data, ttl).Err()
}

func (r *guessRepo) GetMedianSnapshot(ctx context.Context, gameID string) (*model.MedianSnapshot, error) {
	data, err := r.client.Get(ctx, medianKey(gameID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot model.MedianSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func parseGuess(fields map[string]string) (*model.Guess, error) {
	for _, required := range []string{"id", "gameId", "userId", "value", "createdAt"} {
		if fields[required] == "" {
			return nil, fmt.Errorf("%w: guess missing field %q", model.ErrRecordCorrupt, required)
		}
	}

	value, err := strconv.Atoi(fields["value"])
	if err != nil {
		return nil, fmt.Errorf("%w: guess value: %v", model.ErrRecordCorrupt, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["createdAt"])
	if err != nil {
		return nil, fmt.Errorf("%w: guess createdAt: %v", model.ErrRecordCorrupt, err)
	}

	guess := &model.Guess{
		ID:            fields["id"],
		GameID:        fields["gameId"],
		UserID:        fields["userId"],
		Username:      fields["username"],
		Value:         value,
		Justification: fields["justification"],
		CreatedAt:     createdAt,
		Source:        fields["source"],
		CommentRef:    fields["commentRef"],
	}
	if raw := fields["upvotes"]; raw != "" {
		upvotes, upErr := strconv.ParseFloat(raw, 64)
		if upErr != nil {
			return nil, fmt.Errorf("%w: guess upvotes: %v", model.ErrRecordCorrupt, upErr)
		}
		guess.Upvotes = upvotes
	}
	return guess, nil
}
