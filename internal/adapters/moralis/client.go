package moralis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/samber/lo"

	"persodash/internal/domain"
	"persodash/internal/observability"
)

const DefaultBaseURL = "https://solana-gateway.moralis.io/account/mainnet"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("moralis api key not configured")

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// looseNumber tolerates Moralis returning amounts as strings.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	var asFloat float64
	if err := json.Unmarshal(data, &asFloat); err == nil {
		*n = looseNumber(asFloat)
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		*n = 0
		return nil
	}
	parsed, err := strconv.ParseFloat(asString, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = looseNumber(parsed)
	return nil
}

type tokenPayload struct {
	Symbol       string      `json:"symbol"`
	Name         string      `json:"name"`
	Balance      looseNumber `json:"balance"`
	Decimals     looseNumber `json:"decimals"`
	USDValue     looseNumber `json:"usd_value"`
	TokenAddress string      `json:"token_address"`
	Mint         string      `json:"mint"`
}

type portfolioResponse struct {
	NativeBalance struct {
		Solana   looseNumber `json:"solana"`
		USDValue looseNumber `json:"usd_value"`
	} `json:"nativeBalance"`
	Tokens []tokenPayload `json:"tokens"`
}

// Portfolio fetches the wallet portfolio: native SOL plus SPL tokens
// with decimals applied, sorted by USD value, spam excluded upstream.
func (c *Client) Portfolio(ctx context.Context, address string) (domain.Portfolio, error) {
	if !c.Configured() {
		return domain.Portfolio{}, ErrNotConfigured
	}

	url := fmt.Sprintf("%s/%s/portfolio?nftMetadata=false&mediaItems=false&excludeSpam=true", c.baseURL, address)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Portfolio{}, err
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("X-API-Key", c.apiKey)

	response, err := c.httpClient.Do(request)
	if err != nil {
		observability.CaptureError(err, map[string]string{
			"component": "moralis",
			"operation": "portfolio",
		}, nil)
		return domain.Portfolio{}, fmt.Errorf("moralis: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return domain.Portfolio{}, fmt.Errorf("moralis: status %d", response.StatusCode)
	}

	var payload portfolioResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return domain.Portfolio{}, fmt.Errorf("moralis: decode: %w", err)
	}

	tokens := lo.Map(payload.Tokens, func(t tokenPayload, _ int) domain.PortfolioToken {
		amount := float64(t.Balance)
		if t.Decimals > 0 {
			divisor := 1.0
			for i := 0; i < int(t.Decimals); i++ {
				divisor *= 10
			}
			amount = float64(t.Balance) / divisor
		}
		tokenAddress := t.TokenAddress
		if tokenAddress == "" {
			tokenAddress = t.Mint
		}
		return domain.PortfolioToken{
			Symbol:       t.Symbol,
			Name:         t.Name,
			Amount:       amount,
			USDValue:     float64(t.USDValue),
			TokenAddress: tokenAddress,
		}
	})
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].USDValue > tokens[j].USDValue
	})

	totalUSD := lo.SumBy(tokens, func(t domain.PortfolioToken) float64 {
		return t.USDValue
	}) + float64(payload.NativeBalance.USDValue)

	return domain.Portfolio{
		Address:   address,
		TotalUSD:  totalUSD,
		NativeSOL: float64(payload.NativeBalance.Solana),
		NativeUSD: float64(payload.NativeBalance.USDValue),
		Tokens:    tokens,
	}, nil
}
