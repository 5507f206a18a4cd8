package publicpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"persodash/internal/domain"
	"persodash/internal/observability"
)

// ErrUpstreamUnavailable marks the pool API as unreachable or
// returning a non-success status. There is no retry; callers decide
// how to degrade.
var ErrUpstreamUnavailable = errors.New("public pool unavailable")

const DefaultBaseURL = "https://public-pool.io:40557/api"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type clientResponse struct {
	Workers []workerPayload `json:"workers"`
}

// workerPayload tolerates the upstream's loose typing: hashRate and
// bestDifficulty arrive as number, string, or not at all.
type workerPayload struct {
	SessionID      string          `json:"sessionId"`
	Name           string          `json:"name"`
	HashRate       json.RawMessage `json:"hashRate"`
	BestDifficulty json.RawMessage `json:"bestDifficulty"`
	StartTime      time.Time       `json:"startTime"`
	LastSeen       time.Time       `json:"lastSeen"`
}

func (c *Client) Workers(ctx context.Context, address string) ([]domain.Worker, error) {
	var payload clientResponse
	if err := c.get(ctx, fmt.Sprintf("%s/client/%s", c.baseURL, address), &payload); err != nil {
		return nil, err
	}

	workers := make([]domain.Worker, 0, len(payload.Workers))
	for _, w := range payload.Workers {
		workers = append(workers, domain.Worker{
			SessionID:      w.SessionID,
			Name:           w.Name,
			HashRateHS:     coerceNumber(w.HashRate),
			BestDifficulty: coerceNumber(w.BestDifficulty),
			StartTime:      w.StartTime,
			LastSeen:       w.LastSeen,
		})
	}
	return workers, nil
}

type poolResponse struct {
	TotalHashRate float64 `json:"totalHashRate"`
	BlockHeight   int64   `json:"blockHeight"`
	TotalMiners   int64   `json:"totalMiners"`
	BlocksFound   int64   `json:"blocksFound"`
}

func (c *Client) PoolStats(ctx context.Context) (domain.PoolStats, error) {
	var payload poolResponse
	if err := c.get(ctx, c.baseURL+"/pool", &payload); err != nil {
		return domain.PoolStats{}, err
	}
	return domain.PoolStats{
		TotalHashRate: payload.TotalHashRate,
		BlockHeight:   payload.BlockHeight,
		TotalMiners:   payload.TotalMiners,
		BlocksFound:   payload.BlocksFound,
	}, nil
}

func (c *Client) get(ctx context.Context, url string, out interface{}) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		observability.CaptureError(err, map[string]string{
			"component": "publicpool",
			"operation": "get",
		}, map[string]interface{}{"url": url})
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, response.StatusCode)
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

// coerceNumber mirrors the pool UI's Number(x) || 0 behavior: missing,
// null, or non-numeric values become 0.
func coerceNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		return asFloat
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if parsed, err := strconv.ParseFloat(asString, 64); err == nil {
			return parsed
		}
	}
	return 0
}
