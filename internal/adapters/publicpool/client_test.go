package publicpool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkersCoercesLooseNumerics(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/client/bc1qtest", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"workers": [
				{"sessionId": "a", "name": "bitaxe", "hashRate": 512000.5, "bestDifficulty": 12.5,
				 "startTime": "2026-03-14T08:00:00Z", "lastSeen": "2026-03-14T11:59:00Z"},
				{"sessionId": "b", "name": "stringy", "hashRate": "250000", "bestDifficulty": "7"},
				{"sessionId": "c", "name": "broken", "hashRate": "not-a-number"},
				{"sessionId": "d", "name": "empty"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	workers, err := client.Workers(context.Background(), "bc1qtest")
	req.NoError(err)
	req.Len(workers, 4)

	req.Equal(512000.5, workers[0].HashRateHS)
	req.Equal(12.5, workers[0].BestDifficulty)
	req.Equal(2026, workers[0].StartTime.Year())

	req.Equal(250000.0, workers[1].HashRateHS)
	req.Equal(7.0, workers[1].BestDifficulty)

	req.Zero(workers[2].HashRateHS)
	req.Zero(workers[3].HashRateHS)
	req.Zero(workers[3].BestDifficulty)
}

func TestWorkersEmptyWorkersArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	workers, err := client.Workers(context.Background(), "bc1qtest")
	require.NoError(t, err)
	require.Empty(t, workers)
}

func TestWorkersNonSuccessStatusIsUpstreamUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	_, err := client.Workers(context.Background(), "bc1qtest")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestWorkersTransportErrorIsUpstreamUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(server.URL, nil)
	_, err := client.Workers(context.Background(), "bc1qtest")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestPoolStats(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/pool", r.URL.Path)
		_, _ = w.Write([]byte(`{"totalHashRate": 12.5, "blockHeight": 880000, "totalMiners": 4200, "blocksFound": 3}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	stats, err := client.PoolStats(context.Background())
	req.NoError(err)
	req.Equal(12.5, stats.TotalHashRate)
	req.Equal(int64(880000), stats.BlockHeight)
	req.Equal(int64(4200), stats.TotalMiners)
	req.Equal(int64(3), stats.BlocksFound)
}
