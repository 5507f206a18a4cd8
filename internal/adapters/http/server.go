package http

import (
	"errors"
	"log"
	"time"

	nethttp "net/http"

	"github.com/labstack/echo/v4"

	"persodash/internal/adapters/coinbase"
	"persodash/internal/adapters/moralis"
	"persodash/internal/adapters/publicpool"
	"persodash/internal/adapters/vercel"
	"persodash/internal/app"
	"persodash/internal/domain"
	"persodash/internal/observability"
)

const (
	sessionCookieName = "dashboard_session"
	sessionMaxAge     = 7 * 24 * time.Hour
)

// StatusProvider exposes the background runner's state to the API.
type StatusProvider interface {
	Status() domain.MonitorStatus
}

type AuthConfig struct {
	Username string
	Password string
}

type Server struct {
	service *app.Service
	monitor StatusProvider
	auth    AuthConfig
	logger  *log.Logger
}

func NewServer(service *app.Service, monitor StatusProvider, auth AuthConfig, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		service: service,
		monitor: monitor,
		auth:    auth,
		logger:  logger,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/api/health", s.GetHealth)
	e.POST("/api/login", s.PostLogin)

	api := e.Group("/api", s.requireSession)
	api.GET("/notifications", s.GetNotifications)
	api.POST("/notifications", s.PostNotification)
	api.POST("/notifications/daily-summary", s.PostDailySummary)
	api.GET("/monitor/miners", s.GetMonitorMiners)
	api.GET("/monitor/status", s.GetMonitorStatus)
	api.GET("/public-pool/worker/:address", s.GetPoolWorkers)
	api.GET("/public-pool/pool", s.GetPoolStats)
	api.GET("/btc/balance", s.GetBtcBalance)
	api.GET("/solana/balance", s.GetSolBalance)
	api.GET("/coinbase/accounts", s.GetCoinbaseAccounts)
	api.GET("/phantom/portfolio", s.GetPhantomPortfolio)
	api.GET("/vercel/projects", s.GetVercelProjects)
}

// requireSession gates dashboard endpoints behind the shared-secret
// session cookie set by login.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := c.Cookie(sessionCookieName); err != nil {
			return c.JSON(nethttp.StatusUnauthorized, errorResponse{Error: "not logged in"})
		}
		return next(c)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func (s *Server) GetHealth(c echo.Context) error {
	health := s.service.Health()
	return c.JSON(nethttp.StatusOK, healthResponse{
		Status: health.Status,
		Time:   health.Time,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) PostLogin(c echo.Context) error {
	var body loginRequest
	_ = c.Bind(&body)

	if s.auth.Username == "" || s.auth.Password == "" {
		return c.JSON(nethttp.StatusInternalServerError, errorResponse{Error: "server login not configured"})
	}
	// Deliberately vague on which field was wrong.
	if body.Username != s.auth.Username || body.Password != s.auth.Password {
		return c.JSON(nethttp.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	}

	c.SetCookie(&nethttp.Cookie{
		Name:     sessionCookieName,
		Value:    "1",
		Path:     "/",
		HttpOnly: true,
		SameSite: nethttp.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge.Seconds()),
	})
	return c.JSON(nethttp.StatusOK, map[string]bool{"ok": true})
}

type notificationJSON struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNotificationJSON(n domain.Notification) notificationJSON {
	return notificationJSON{
		ID:        n.ID,
		Type:      string(n.Type),
		Source:    n.Source,
		Severity:  string(n.Severity),
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}

type notificationListResponse struct {
	Data []notificationJSON `json:"data"`
}

func (s *Server) GetNotifications(c echo.Context) error {
	notifications, err := s.service.Notifications(c.Request().Context())
	if err != nil {
		return s.internalError(c, "notifications", err)
	}
	data := make([]notificationJSON, 0, len(notifications))
	for _, n := range notifications {
		data = append(data, toNotificationJSON(n))
	}
	return c.JSON(nethttp.StatusOK, notificationListResponse{Data: data})
}

type createNotificationRequest struct {
	Type     string `json:"type"`
	Source   string `json:"source"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

var (
	validTypes = map[string]bool{
		string(domain.NotificationWebsite): true,
		string(domain.NotificationMiner):   true,
		string(domain.NotificationWallet):  true,
		string(domain.NotificationSystem):  true,
	}
	validSeverities = map[string]bool{
		string(domain.SeverityInfo):    true,
		string(domain.SeverityWarning): true,
		string(domain.SeverityError):   true,
	}
)

func (s *Server) PostNotification(c echo.Context) error {
	var body createNotificationRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(nethttp.StatusBadRequest, errorResponse{Error: "invalid body"})
	}
	if body.Type == "" || body.Source == "" || body.Severity == "" || body.Title == "" || body.Message == "" {
		return c.JSON(nethttp.StatusBadRequest, errorResponse{Error: "missing fields"})
	}
	if !validTypes[body.Type] || !validSeverities[body.Severity] {
		return c.JSON(nethttp.StatusBadRequest, errorResponse{Error: "invalid type or severity"})
	}

	notification, err := s.service.CreateNotification(c.Request().Context(), domain.NotificationInput{
		Type:     domain.NotificationType(body.Type),
		Source:   body.Source,
		Severity: domain.NotificationSeverity(body.Severity),
		Title:    body.Title,
		Message:  body.Message,
	})
	if err != nil {
		return s.internalError(c, "create_notification", err)
	}
	return c.JSON(nethttp.StatusCreated, map[string]notificationJSON{"data": toNotificationJSON(notification)})
}

func (s *Server) PostDailySummary(c echo.Context) error {
	if err := s.service.DailySummary(c.Request().Context()); err != nil {
		return s.internalError(c, "daily_summary", err)
	}
	return c.JSON(nethttp.StatusOK, map[string]bool{"ok": true})
}

type monitorResponse struct {
	OK           bool `json:"ok"`
	WorkersCount int  `json:"workersCount"`
	AlertsSent   int  `json:"alertsSent"`
}

func (s *Server) GetMonitorMiners(c echo.Context) error {
	result, err := s.service.RunMinerPass(c.Request().Context())
	if err != nil {
		// The system notification is already recorded by the pass.
		s.logger.Printf("monitor pass: %v", err)
		return c.JSON(nethttp.StatusBadGateway, errorResponse{Error: "monitor failed"})
	}
	return c.JSON(nethttp.StatusOK, monitorResponse{
		OK:           true,
		WorkersCount: result.WorkersCount,
		AlertsSent:   result.AlertsSent,
	})
}

type monitorStatusResponse struct {
	Running     bool       `json:"running"`
	LastRunTime *time.Time `json:"lastRunTime,omitempty"`
	LastWorkers int        `json:"lastWorkers"`
	LastAlerts  int        `json:"lastAlerts"`
	LastError   string     `json:"lastError,omitempty"`
}

func (s *Server) GetMonitorStatus(c echo.Context) error {
	var status domain.MonitorStatus
	if s.monitor != nil {
		status = s.monitor.Status()
	}
	return c.JSON(nethttp.StatusOK, monitorStatusResponse{
		Running:     status.Running,
		LastRunTime: status.LastRunTime,
		LastWorkers: status.LastWorkers,
		LastAlerts:  status.LastAlerts,
		LastError:   status.LastError,
	})
}

type workerJSON struct {
	SessionID      string    `json:"sessionId"`
	Name           string    `json:"name"`
	HashRate       float64   `json:"hashRate"`
	BestDifficulty float64   `json:"bestDifficulty"`
	StartTime      time.Time `json:"startTime"`
	LastSeen       time.Time `json:"lastSeen"`
}

func (s *Server) GetPoolWorkers(c echo.Context) error {
	address := c.Param("address")
	if address == "" {
		return c.JSON(nethttp.StatusBadRequest, errorResponse{Error: "missing BTC address"})
	}

	workers, err := s.service.Workers(c.Request().Context(), address)
	if err != nil {
		if errors.Is(err, publicpool.ErrUpstreamUnavailable) {
			return c.JSON(nethttp.StatusBadGateway, errorResponse{Error: "failed to fetch from Public Pool"})
		}
		return s.internalError(c, "pool_workers", err)
	}

	data := make([]workerJSON, 0, len(workers))
	for _, w := range workers {
		data = append(data, workerJSON{
			SessionID:      w.SessionID,
			Name:           w.Name,
			HashRate:       w.HashRateHS,
			BestDifficulty: w.BestDifficulty,
			StartTime:      w.StartTime,
			LastSeen:       w.LastSeen,
		})
	}
	return c.JSON(nethttp.StatusOK, map[string][]workerJSON{"workers": data})
}

type poolStatsResponse struct {
	TotalHashRate float64 `json:"totalHashRate"`
	BlockHeight   int64   `json:"blockHeight"`
	TotalMiners   int64   `json:"totalMiners"`
	BlocksFound   int64   `json:"blocksFound"`
}

func (s *Server) GetPoolStats(c echo.Context) error {
	stats, err := s.service.PoolStats(c.Request().Context())
	if err != nil {
		if errors.Is(err, publicpool.ErrUpstreamUnavailable) {
			return c.JSON(nethttp.StatusBadGateway, errorResponse{Error: "failed to fetch pool stats from Public Pool"})
		}
		return s.internalError(c, "pool_stats", err)
	}
	return c.JSON(nethttp.StatusOK, poolStatsResponse{
		TotalHashRate: stats.TotalHashRate,
		BlockHeight:   stats.BlockHeight,
		TotalMiners:   stats.TotalMiners,
		BlocksFound:   stats.BlocksFound,
	})
}

type btcBalanceResponse struct {
	Address string  `json:"address"`
	Sats    int64   `json:"sats"`
	BTC     float64 `json:"btc"`
}

func (s *Server) GetBtcBalance(c echo.Context) error {
	address := c.QueryParam("address")
	if address == "" {
		return c.JSON(nethttp.StatusBadRequest, errorResponse{Error: "missing address query param"})
	}

	balance, err := s.service.BtcBalance(c.Request().Context(), address)
	if err != nil {
		s.logger.Printf("btc balance: %v", err)
		return c.JSON(nethttp.StatusBadGateway, errorResponse{Error: "failed to fetch BTC balance"})
	}
	return c.JSON(nethttp.StatusOK, btcBalanceResponse{
		Address: balance.Address,
		Sats:    balance.Sats,
		BTC:     balance.BTC,
	})
}

type solBalanceResponse struct {
	Address string  `json:"address"`
	SOL     float64 `json:"sol"`
}

func (s *Server) GetSolBalance(c echo.Context) error {
	address := c.QueryParam("address")
	if address == "" {
		return c.JSON(nethttp.StatusBadRequest, errorResponse{Error: "missing address parameter"})
	}

	balance, err := s.service.SolBalance(c.Request().Context(), address)
	if err != nil {
		s.logger.Printf("sol balance: %v", err)
		return c.JSON(nethttp.StatusBadGateway, errorResponse{Error: "failed to get balance"})
	}
	return c.JSON(nethttp.StatusOK, solBalanceResponse{
		Address: balance.Address,
		SOL:     balance.SOL,
	})
}

type coinbaseAccountJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Primary  bool   `json:"primary"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
	Balance  struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"balance"`
}

func (s *Server) GetCoinbaseAccounts(c echo.Context) error {
	accounts, err := s.service.Accounts(c.Request().Context())
	if err != nil {
		if errors.Is(err, coinbase.ErrNotConfigured) {
			return c.JSON(nethttp.StatusInternalServerError, errorResponse{Error: "coinbase credentials not configured"})
		}
		s.logger.Printf("coinbase accounts: %v", err)
		return c.JSON(nethttp.StatusBadGateway, errorResponse{Error: "coinbase API error"})
	}

	data := make([]coinbaseAccountJSON, 0, len(accounts))
	for _, account := range accounts {
		item := coinbaseAccountJSON{
			ID:       account.ID,
			Name:     account.Name,
			Primary:  account.Primary,
			Type:     account.Type,
			Currency: account.Currency,
		}
		item.Balance.Amount = account.Balance.Amount
		item.Balance.Currency = account.Balance.Currency
		data = append(data, item)
	}
	return c.JSON(nethttp.StatusOK, map[string][]coinbaseAccountJSON{"data": data})
}

type portfolioTokenJSON struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	USDValue     float64 `json:"usdValue"`
	TokenAddress string  `json:"tokenAddress"`
}

type portfolioResponse struct {
	Address   string               `json:"address"`
	TotalUSD  float64              `json:"totalUsd"`
	NativeSOL float64              `json:"nativeSol"`
	NativeUSD float64              `json:"nativeUsd"`
	Tokens    []portfolioTokenJSON `json:"tokens"`
}

func (s *Server) GetPhantomPortfolio(c echo.Context) error {
	address := c.QueryParam("solAddress")
	if address == "" {
		return c.JSON(nethttp.StatusBadRequest, errorResponse{Error: "missing solAddress query param"})
	}

	portfolio, err := s.service.Portfolio(c.Request().Context(), address)
	if err != nil {
		if errors.Is(err, moralis.ErrNotConfigured) {
			return c.JSON(nethttp.StatusInternalServerError, errorResponse{Error: "moralis api key not configured"})
		}
		s.logger.Printf("phantom portfolio: %v", err)
		return c.JSON(nethttp.StatusBadGateway, errorResponse{Error: "failed to fetch portfolio"})
	}

	tokens := make([]portfolioTokenJSON, 0, len(portfolio.Tokens))
	for _, token := range portfolio.Tokens {
		tokens = append(tokens, portfolioTokenJSON{
			Symbol:       token.Symbol,
			Name:         token.Name,
			Amount:       token.Amount,
			USDValue:     token.USDValue,
			TokenAddress: token.TokenAddress,
		})
	}
	return c.JSON(nethttp.StatusOK, portfolioResponse{
		Address:   portfolio.Address,
		TotalUSD:  portfolio.TotalUSD,
		NativeSOL: portfolio.NativeSOL,
		NativeUSD: portfolio.NativeUSD,
		Tokens:    tokens,
	})
}

type websiteJSON struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ProjectID  string     `json:"projectId"`
	URL        string     `json:"url,omitempty"`
	Status     string     `json:"status"`
	LastDeploy *time.Time `json:"lastDeploy,omitempty"`
	Domains    []string   `json:"domains"`
}

func (s *Server) GetVercelProjects(c echo.Context) error {
	websites, err := s.service.Websites(c.Request().Context())
	if err != nil {
		if errors.Is(err, vercel.ErrNotConfigured) {
			return c.JSON(nethttp.StatusInternalServerError, errorResponse{Error: "vercel token not configured"})
		}
		s.logger.Printf("vercel projects: %v", err)
		return c.JSON(nethttp.StatusBadGateway, errorResponse{Error: "failed to fetch projects from Vercel"})
	}

	data := make([]websiteJSON, 0, len(websites))
	for _, site := range websites {
		data = append(data, websiteJSON{
			ID:         site.ID,
			Name:       site.Name,
			ProjectID:  site.ProjectID,
			URL:        site.URL,
			Status:     string(site.Status),
			LastDeploy: site.LastDeploy,
			Domains:    site.Domains,
		})
	}
	return c.JSON(nethttp.StatusOK, map[string][]websiteJSON{"websites": data})
}

func (s *Server) internalError(c echo.Context, handler string, err error) error {
	observability.CaptureError(err, map[string]string{
		"component": "http",
		"handler":   handler,
	}, nil)
	return c.JSON(nethttp.StatusInternalServerError, errorResponse{Error: err.Error()})
}
