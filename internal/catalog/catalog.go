package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"waveband/internal/logging"
	"waveband/internal/model"
)

const cacheKey = "catalog:spectra"

// Catalog supplies spectra to the rest of the system. Ensure never
// returns an empty list: when the remote sheet is unreachable the
// embedded defaults are served instead.
type Catalog interface {
	Ensure(ctx context.Context) ([]model.Spectrum, error)
	ByID(ctx context.Context, id string) (*model.Spectrum, error)
	PickFiltered(ctx context.Context, contextFilter, difficulty string) (*model.Spectrum, error)
}

type catalog struct {
	client     *redis.Client
	url        string
	ttl        time.Duration
	httpClient *http.Client
}

// New creates a catalog backed by the given Redis cache. url may be
// empty, in which case only the embedded spectra are served.
func New(client *redis.Client, url string, ttl time.Duration) Catalog {
	return &catalog{
		client: client,
		url:    url,
		ttl:    ttl,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *catalog) Ensure(ctx context.Context) ([]model.Spectrum, error) {
	data, err := c.client.Get(ctx, cacheKey).Result()
	if err == nil {
		var spectra []model.Spectrum
		if jsonErr := json.Unmarshal([]byte(data), &spectra); jsonErr == nil && len(spectra) > 0 {
			return spectra, nil
		}
		logging.Log.Warn("CATALOG: cached spectra unreadable, refreshing")
	} else if err != redis.Nil {
		return nil, err
	}

	spectra := c.fetchRemote(ctx)
	if len(spectra) == 0 {
		spectra = defaultSpectra()
	}

	if encoded, jsonErr := json.Marshal(spectra); jsonErr == nil {
		if setErr := c.client.Set(ctx, cacheKey, encoded, c.ttl).Err(); setErr != nil {
			logging.Log.Warnf("CATALOG: failed to cache spectra: %v", setErr)
		}
	}
	return spectra, nil
}

func (c *catalog) ByID(ctx context.Context, id string) (*model.Spectrum, error) {
	spectra, err := c.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	for i := range spectra {
		if spectra[i].ID == id {
			return &spectra[i], nil
		}
	}
	return nil, nil
}

func (c *catalog) PickFiltered(ctx context.Context, contextFilter, difficulty string) (*model.Spectrum, error) {
	spectra, err := c.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	var matches []model.Spectrum
	for _, s := range spectra {
		if contextFilter != "" && s.Context != contextFilter {
			continue
		}
		if difficulty != "" && s.Difficulty != difficulty {
			continue
		}
		matches = append(matches, s)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no spectrum matches context=%q difficulty=%q", contextFilter, difficulty)
	}

	picked := matches[rand.Intn(len(matches))]
	return &picked, nil
}

// fetchRemote loads the remote CSV sheet (id,leftLabel,rightLabel,
// difficulty,context). Any failure returns nil so the caller falls back.
func (c *catalog) fetchRemote(ctx context.Context) []model.Spectrum {
	if c.url == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		logging.Log.Warnf("CATALOG: bad catalog URL: %v", err)
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Log.Warnf("CATALOG: remote fetch failed, using fallback: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Log.Warnf("CATALOG: remote fetch returned %d, using fallback", resp.StatusCode)
		return nil
	}
	return parseCSV(resp.Body)
}

func parseCSV(r io.Reader) []model.Spectrum {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var spectra []model.Spectrum
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logging.Log.Warnf("CATALOG: skipping malformed CSV row: %v", err)
			continue
		}
		if len(record) < 3 || record[0] == "id" {
			continue
		}
		s := model.Spectrum{
			ID:         record[0],
			LeftLabel:  record[1],
			RightLabel: record[2],
		}
		if len(record) > 3 {
			s.Difficulty = record[3]
		}
		if len(record) > 4 {
			s.Context = record[4]
		}
		if s.ID == "" || s.LeftLabel == "" || s.RightLabel == "" {
			continue
		}
		spectra = append(spectra, s)
	}
	return spectra
}

func defaultSpectra() []model.Spectrum {
	return []model.Spectrum{
		{ID: "hot-cold", LeftLabel: "Freezing", RightLabel: "Scorching", Difficulty: "easy", Context: "general"},
		{ID: "coffee-tea", LeftLabel: "Coffee", RightLabel: "Tea", Difficulty: "easy", Context: "food"},
		{ID: "underrated-overrated", LeftLabel: "Underrated", RightLabel: "Overrated", Difficulty: "medium", Context: "general"},
		{ID: "guilty-pleasure", LeftLabel: "Guilty pleasure", RightLabel: "Openly proud", Difficulty: "medium", Context: "general"},
		{ID: "morning-night", LeftLabel: "Morning person", RightLabel: "Night owl", Difficulty: "easy", Context: "lifestyle"},
		{ID: "spicy-mild", LeftLabel: "Mild", RightLabel: "Dangerously spicy", Difficulty: "easy", Context: "food"},
		{ID: "retro-futuristic", LeftLabel: "Retro", RightLabel: "Futuristic", Difficulty: "medium", Context: "culture"},
		{ID: "introvert-extrovert", LeftLabel: "Introvert", RightLabel: "Extrovert", Difficulty: "easy", Context: "lifestyle"},
		{ID: "risky-safe", LeftLabel: "Reckless", RightLabel: "Overly cautious", Difficulty: "hard", Context: "general"},
		{ID: "art-science", LeftLabel: "Pure art", RightLabel: "Pure science", Difficulty: "hard", Context: "culture"},
		{ID: "chaos-order", LeftLabel: "Total chaos", RightLabel: "Perfect order", Difficulty: "medium", Context: "general"},
		{ID: "sweet-savory", LeftLabel: "Sweet", RightLabel: "Savory", Difficulty: "easy", Context: "food"},
	}
}
