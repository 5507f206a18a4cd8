package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"persodash/internal/domain"
	"persodash/internal/observability"
)

const DefaultRPCURL = "https://api.mainnet-beta.solana.com"

const lamportsPerSOL = 1_000_000_000

// Client speaks the minimum of the Solana JSON-RPC protocol this
// dashboard needs: getBalance for one account.
type Client struct {
	rpcURL     string
	httpClient *http.Client
}

func NewClient(rpcURL string, httpClient *http.Client) *Client {
	if rpcURL == "" {
		rpcURL = DefaultRPCURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{rpcURL: rpcURL, httpClient: httpClient}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type balanceResponse struct {
	Result struct {
		Value uint64 `json:"value"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

func (c *Client) Balance(ctx context.Context, address string) (domain.SolBalance, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getBalance",
		Params:  []interface{}{address},
	})
	if err != nil {
		return domain.SolBalance{}, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return domain.SolBalance{}, err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		observability.CaptureError(err, map[string]string{
			"component": "solana",
			"operation": "get_balance",
		}, nil)
		return domain.SolBalance{}, fmt.Errorf("solana rpc: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return domain.SolBalance{}, fmt.Errorf("solana rpc: status %d", response.StatusCode)
	}

	var payload balanceResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return domain.SolBalance{}, fmt.Errorf("solana rpc: decode: %w", err)
	}
	if payload.Error != nil {
		return domain.SolBalance{}, fmt.Errorf("solana rpc: %d %s", payload.Error.Code, payload.Error.Message)
	}

	return domain.SolBalance{
		Address:  address,
		Lamports: payload.Result.Value,
		SOL:      float64(payload.Result.Value) / lamportsPerSOL,
	}, nil
}
