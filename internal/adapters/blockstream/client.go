package blockstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"persodash/internal/domain"
	"persodash/internal/observability"
)

const DefaultBaseURL = "https://blockstream.info/api"

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
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type txoStats struct {
	FundedTxoSum int64 `json:"funded_txo_sum"`
	SpentTxoSum  int64 `json:"spent_txo_sum"`
}

type addressResponse struct {
	ChainStats   txoStats `json:"chain_stats"`
	MempoolStats txoStats `json:"mempool_stats"`
}

// AddressBalance sums confirmed and mempool UTXOs for an address.
func (c *Client) AddressBalance(ctx context.Context, address string) (domain.BtcBalance, error) {
	url := fmt.Sprintf("%s/address/%s", c.baseURL, address)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.BtcBalance{}, err
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		observability.CaptureError(err, map[string]string{
			"component": "blockstream",
			"operation": "address_balance",
		}, nil)
		return domain.BtcBalance{}, fmt.Errorf("blockstream: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return domain.BtcBalance{}, fmt.Errorf("blockstream: status %d", response.StatusCode)
	}

	var payload addressResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return domain.BtcBalance{}, fmt.Errorf("blockstream: decode: %w", err)
	}

	funded := payload.ChainStats.FundedTxoSum + payload.MempoolStats.FundedTxoSum
	spent := payload.ChainStats.SpentTxoSum + payload.MempoolStats.SpentTxoSum
	sats := funded - spent

	return domain.BtcBalance{
		Address: address,
		Sats:    sats,
		BTC:     float64(sats) / 1e8,
	}, nil
}
