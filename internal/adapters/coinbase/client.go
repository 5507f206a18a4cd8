package coinbase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"persodash/internal/domain"
	"persodash/internal/observability"
)

const (
	apiHost      = "api.coinbase.com"
	accountsPath = "/v2/accounts"
	jwtLifetime  = 2 * time.Minute
)

// ErrNotConfigured is returned when the CDP key id or secret is absent.
var ErrNotConfigured = errors.New("coinbase credentials not configured")

// Client calls the Coinbase v2 account API, minting a short-lived CDP
// JWT per request.
type Client struct {
	apiKeyID     string
	apiKeySecret string
	baseURL      string
	httpClient   *http.Client
}

func NewClient(apiKeyID, apiKeySecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		apiKeyID:     apiKeyID,
		apiKeySecret: apiKeySecret,
		baseURL:      "https://" + apiHost,
		httpClient:   httpClient,
	}
}

func (c *Client) Configured() bool {
	return c.apiKeyID != "" && c.apiKeySecret != ""
}

type accountPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Primary  bool   `json:"primary"`
	Type     string `json:"type"`
	Currency struct {
		Code string `json:"code"`
	} `json:"currency"`
	Balance struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"balance"`
}

type accountsResponse struct {
	Data []accountPayload `json:"data"`
}

func (c *Client) Accounts(ctx context.Context) ([]domain.CoinbaseAccount, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	token, err := c.requestJWT(http.MethodGet, accountsPath)
	if err != nil {
		return nil, fmt.Errorf("coinbase jwt: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+accountsPath, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		observability.CaptureError(err, map[string]string{
			"component": "coinbase",
			"operation": "accounts",
		}, nil)
		return nil, fmt.Errorf("coinbase: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("coinbase: status %d", response.StatusCode)
	}

	var payload accountsResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("coinbase: decode: %w", err)
	}

	accounts := make([]domain.CoinbaseAccount, 0, len(payload.Data))
	for _, a := range payload.Data {
		accounts = append(accounts, domain.CoinbaseAccount{
			ID:       a.ID,
			Name:     a.Name,
			Primary:  a.Primary,
			Type:     a.Type,
			Currency: a.Currency.Code,
			Balance: domain.CoinbaseMoney{
				Amount:   a.Balance.Amount,
				Currency: a.Balance.Currency,
			},
		})
	}
	return accounts, nil
}

// requestJWT builds the ES256 request token the CDP API expects: the
// key id as subject, "cdp" issuer, a two minute lifetime, and a uri
// claim binding method, host, and path.
func (c *Client) requestJWT(method, path string) (string, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(normalizePEM(c.apiKeySecret)))
	if err != nil {
		return "", fmt.Errorf("parse EC key: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"sub": c.apiKeyID,
		"iss": "cdp",
		"nbf": now.Unix(),
		"exp": now.Add(jwtLifetime).Unix(),
		"uri": fmt.Sprintf("%s %s%s", method, apiHost, path),
	})
	token.Header["kid"] = c.apiKeyID

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	token.Header["nonce"] = hex.EncodeToString(nonce)

	return token.SignedString(key)
}

// normalizePEM restores literal newlines in keys pasted into env vars
// with "\n" escapes.
func normalizePEM(secret string) string {
	return strings.ReplaceAll(secret, `\n`, "\n")
}
