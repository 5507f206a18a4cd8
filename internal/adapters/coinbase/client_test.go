package coinbase

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testECKeyPEM(t *testing.T) (string, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	block := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	return string(block), key
}

func TestAccountsSendsSignedJWT(t *testing.T) {
	req := require.New(t)
	keyPEM, key := testECKeyPEM(t)

	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/v2/accounts", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data": [
			{"id": "acc1", "name": "BTC Wallet", "primary": true, "type": "wallet",
			 "currency": {"code": "BTC"}, "balance": {"amount": "0.5", "currency": "BTC"}}
		]}`))
	}))
	defer server.Close()

	client := NewClient("organizations/org/apiKeys/key1", keyPEM, server.Client())
	client.baseURL = server.URL

	accounts, err := client.Accounts(context.Background())
	req.NoError(err)
	req.Len(accounts, 1)
	req.Equal("BTC Wallet", accounts[0].Name)
	req.Equal("BTC", accounts[0].Currency)
	req.Equal("0.5", accounts[0].Balance.Amount)

	req.True(strings.HasPrefix(authHeader, "Bearer "))
	raw := strings.TrimPrefix(authHeader, "Bearer ")
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	req.NoError(err)
	req.True(parsed.Valid)

	claims := parsed.Claims.(jwt.MapClaims)
	req.Equal("organizations/org/apiKeys/key1", claims["sub"])
	req.Equal("cdp", claims["iss"])
	req.Equal("GET api.coinbase.com/v2/accounts", claims["uri"])
	req.Equal("organizations/org/apiKeys/key1", parsed.Header["kid"])
	req.NotEmpty(parsed.Header["nonce"])
}

func TestAccountsNotConfigured(t *testing.T) {
	client := NewClient("", "", nil)
	_, err := client.Accounts(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestAccountsEscapedNewlinesInKey(t *testing.T) {
	keyPEM, _ := testECKeyPEM(t)
	escaped := strings.ReplaceAll(keyPEM, "\n", `\n`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewClient("key1", escaped, server.Client())
	client.baseURL = server.URL

	accounts, err := client.Accounts(context.Background())
	require.NoError(t, err)
	require.Empty(t, accounts)
}
