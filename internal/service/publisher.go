package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"waveband/internal/logging"
	"waveband/internal/model"
)

// PostPublisher creates the public post representing a published game.
// Publish treats a failure here as fatal before any persistence.
type PostPublisher interface {
	CreatePost(ctx context.Context, game *model.Game) (*model.PostRef, error)
}

// HTTPPublisher posts game metadata to a configured webhook and expects
// {postId, permalink, url} back.
type HTTPPublisher struct {
	url        string
	httpClient *http.Client
}

func NewHTTPPublisher(url string) *HTTPPublisher {
	return &HTTPPublisher{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *HTTPPublisher) CreatePost(ctx context.Context, game *model.Game) (*model.PostRef, error) {
	body, err := json.Marshal(map[string]interface{}{
		"gameId":   game.ID,
		"clue":     game.Clue,
		"spectrum": game.Spectrum,
		"endTime":  game.Timing.EndTime,
		"host":     game.HostUsername,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrPostPublish, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: publisher returned %d", model.ErrPostPublish, resp.StatusCode)
	}

	var ref model.PostRef
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		return nil, fmt.Errorf("%w: bad publisher response: %v", model.ErrPostPublish, err)
	}
	if ref.PostID == "" {
		return nil, fmt.Errorf("%w: publisher response missing postId", model.ErrPostPublish)
	}
	return &ref, nil
}

// NoopPublisher stands in when no publisher endpoint is configured.
type NoopPublisher struct{}

func (NoopPublisher) CreatePost(_ context.Context, game *model.Game) (*model.PostRef, error) {
	logging.Log.Debugf("PUBLISH: no publisher configured, skipping post for game %s", game.ID)
	return &model.PostRef{PostID: "local-" + game.ID}, nil
}
