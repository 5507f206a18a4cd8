package http

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"persodash/internal/app"
	"persodash/internal/domain"
	"persodash/internal/store"
)

type fakeFetcher struct {
	workers []domain.Worker
	err     error
}

func (f *fakeFetcher) Workers(context.Context, string) ([]domain.Worker, error) {
	return f.workers, f.err
}

type noopChat struct{}

func (noopChat) Send(context.Context, string) error { return nil }
func (noopChat) Enabled() bool                      { return false }

func newTestServer(t *testing.T, fetcher *fakeFetcher) (*echo.Echo, *Server) {
	t.Helper()
	service := app.NewService(app.Options{
		Fetcher: fetcher,
		Store:   store.NewMemory(),
		Chat:    noopChat{},
		Address: "bc1qtest",
	})
	server := NewServer(service, nil, AuthConfig{Username: "admin", Password: "secret"}, nil)
	e := echo.New()
	server.Register(e)
	return e, server
}

func doJSON(e *echo.Echo, method, path, body string, cookie *nethttp.Cookie) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if cookie != nil {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	e.ServeHTTP(recorder, request)
	return recorder
}

func sessionCookie() *nethttp.Cookie {
	return &nethttp.Cookie{Name: sessionCookieName, Value: "1"}
}

func TestHealthIsPublic(t *testing.T) {
	e, _ := newTestServer(t, &fakeFetcher{})
	recorder := doJSON(e, nethttp.MethodGet, "/api/health", "", nil)
	require.Equal(t, nethttp.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"status":"ok"`)
}

func TestLogin(t *testing.T) {
	req := require.New(t)
	e, _ := newTestServer(t, &fakeFetcher{})

	recorder := doJSON(e, nethttp.MethodPost, "/api/login", `{"username": "admin", "password": "wrong"}`, nil)
	req.Equal(nethttp.StatusUnauthorized, recorder.Code)

	recorder = doJSON(e, nethttp.MethodPost, "/api/login", `{"username": "admin", "password": "secret"}`, nil)
	req.Equal(nethttp.StatusOK, recorder.Code)

	cookies := recorder.Result().Cookies()
	req.Len(cookies, 1)
	req.Equal(sessionCookieName, cookies[0].Name)
	req.True(cookies[0].HttpOnly)
}

func TestLoginNotConfigured(t *testing.T) {
	service := app.NewService(app.Options{
		Fetcher: &fakeFetcher{},
		Store:   store.NewMemory(),
		Chat:    noopChat{},
	})
	server := NewServer(service, nil, AuthConfig{}, nil)
	e := echo.New()
	server.Register(e)

	recorder := doJSON(e, nethttp.MethodPost, "/api/login", `{"username": "a", "password": "b"}`, nil)
	require.Equal(t, nethttp.StatusInternalServerError, recorder.Code)
}

func TestSessionGate(t *testing.T) {
	req := require.New(t)
	e, _ := newTestServer(t, &fakeFetcher{})

	recorder := doJSON(e, nethttp.MethodGet, "/api/notifications", "", nil)
	req.Equal(nethttp.StatusUnauthorized, recorder.Code)

	recorder = doJSON(e, nethttp.MethodGet, "/api/notifications", "", sessionCookie())
	req.Equal(nethttp.StatusOK, recorder.Code)
}

func TestCreateAndListNotifications(t *testing.T) {
	req := require.New(t)
	e, _ := newTestServer(t, &fakeFetcher{})

	recorder := doJSON(e, nethttp.MethodPost, "/api/notifications",
		`{"type": "website", "source": "vercel:prj1", "severity": "error", "title": "Down", "message": "prod down"}`,
		sessionCookie())
	req.Equal(nethttp.StatusCreated, recorder.Code)

	recorder = doJSON(e, nethttp.MethodGet, "/api/notifications", "", sessionCookie())
	req.Equal(nethttp.StatusOK, recorder.Code)

	var response notificationListResponse
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	req.Len(response.Data, 1)
	req.Equal("Down", response.Data[0].Title)
	req.NotEmpty(response.Data[0].ID)
}

func TestCreateNotificationValidation(t *testing.T) {
	req := require.New(t)
	e, _ := newTestServer(t, &fakeFetcher{})

	for name, body := range map[string]string{
		"missing fields":   `{"type": "website"}`,
		"invalid type":     `{"type": "nope", "source": "s", "severity": "error", "title": "t", "message": "m"}`,
		"invalid severity": `{"type": "miner", "source": "s", "severity": "fatal", "title": "t", "message": "m"}`,
	} {
		recorder := doJSON(e, nethttp.MethodPost, "/api/notifications", body, sessionCookie())
		req.Equalf(nethttp.StatusBadRequest, recorder.Code, "case %s", name)
	}
}

func TestMonitorMinersRunsPass(t *testing.T) {
	req := require.New(t)
	e, _ := newTestServer(t, &fakeFetcher{workers: []domain.Worker{
		{SessionID: "dead", HashRateHS: 0},
	}})

	recorder := doJSON(e, nethttp.MethodGet, "/api/monitor/miners", "", sessionCookie())
	req.Equal(nethttp.StatusOK, recorder.Code)

	var response monitorResponse
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	req.True(response.OK)
	req.Equal(1, response.WorkersCount)
	req.Equal(1, response.AlertsSent)

	// The pass recorded its notification.
	recorder = doJSON(e, nethttp.MethodGet, "/api/notifications", "", sessionCookie())
	var list notificationListResponse
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &list))
	req.Len(list.Data, 1)
	req.Equal("miner:bc1qtest:dead", list.Data[0].Source)
}

func TestMonitorMinersUpstreamFailure(t *testing.T) {
	req := require.New(t)
	e, _ := newTestServer(t, &fakeFetcher{err: errors.New("pool down")})

	recorder := doJSON(e, nethttp.MethodGet, "/api/monitor/miners", "", sessionCookie())
	req.Equal(nethttp.StatusBadGateway, recorder.Code)

	// Exactly one system-level notification, source without session id.
	recorder = doJSON(e, nethttp.MethodGet, "/api/notifications", "", sessionCookie())
	var list notificationListResponse
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &list))
	req.Len(list.Data, 1)
	req.Equal("miner:bc1qtest", list.Data[0].Source)
	req.Equal("error", list.Data[0].Severity)
}

func TestMonitorStatusWithoutRunner(t *testing.T) {
	e, _ := newTestServer(t, &fakeFetcher{})
	recorder := doJSON(e, nethttp.MethodGet, "/api/monitor/status", "", sessionCookie())
	require.Equal(t, nethttp.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"running":false`)
}

func TestBtcBalanceRequiresAddress(t *testing.T) {
	e, _ := newTestServer(t, &fakeFetcher{})
	recorder := doJSON(e, nethttp.MethodGet, "/api/btc/balance", "", sessionCookie())
	require.Equal(t, nethttp.StatusBadRequest, recorder.Code)
}
