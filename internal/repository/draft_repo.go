package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"waveband/internal/model"
)

// DraftRepo persists drafts as TTL-bounded hashes. A draft is consumed
// exactly once by publish; the TTL cleans up drafts that expire unread.
type DraftRepo interface {
	Save(ctx context.Context, draft *model.Draft, ttl time.Duration) error
	Get(ctx context.Context, id string) (*model.Draft, error)
	Delete(ctx context.Context, id string) error
}

type draftRepo struct {
	client *redis.Client
}

func NewDraftRepo(client *redis.Client) DraftRepo {
	return &draftRepo{client: client}
}

func (r *draftRepo) Save(ctx context.Context, draft *model.Draft, ttl time.Duration) error {
	key := draftKey(draft.ID)
	fields := map[string]string{
		"id":           draft.ID,
		"hostUserId":   draft.HostUserID,
		"spectrumId":   draft.SpectrumID,
		"secretTarget": strconv.Itoa(draft.SecretTarget),
		"createdAt":    draft.CreatedAt.Format(time.RFC3339Nano),
		"expiresAt":    draft.ExpiresAt.Format(time.RFC3339Nano),
	}
	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *draftRepo) Get(ctx context.Context, id string) (*model.Draft, error) {
	fields, err := r.client.HGetAll(ctx, draftKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseDraft(fields)
}

func (r *draftRepo) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, draftKey(id)).Err()
}

func parseDraft(fields map[string]string) (*model.Draft, error) {
	for _, required := range []string{"id", "hostUserId", "spectrumId", "secretTarget", "createdAt", "expiresAt"} {
		if fields[required] == "" {
			return nil, fmt.Errorf("%w: draft missing field %q", model.ErrRecordCorrupt, required)
		}
	}

	target, err := strconv.Atoi(fields["secretTarget"])
	if err != nil {
		return nil, fmt.Errorf("%w: draft secretTarget: %v", model.ErrRecordCorrupt, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["createdAt"])
	if err != nil {
		return nil, fmt.Errorf("%w: draft createdAt: %v", model.ErrRecordCorrupt, err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expiresAt"])
	if err != nil {
		return nil, fmt.Errorf("%w: draft expiresAt: %v", model.ErrRecordCorrupt, err)
	}

	return &model.Draft{
		ID:           fields["id"],
		HostUserID:   fields["hostUserId"],
		SpectrumID:   fields["spectrumId"],
		SecretTarget: target,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
	}, nil
}
