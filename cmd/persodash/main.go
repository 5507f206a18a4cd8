package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"persodash/internal/adapters/blockstream"
	"persodash/internal/adapters/coinbase"
	httpadapter "persodash/internal/adapters/http"
	"persodash/internal/adapters/moralis"
	"persodash/internal/adapters/publicpool"
	"persodash/internal/adapters/solana"
	"persodash/internal/adapters/telegram"
	"persodash/internal/adapters/vercel"
	"persodash/internal/alert"
	"persodash/internal/app"
	"persodash/internal/config"
	"persodash/internal/monitor"
	"persodash/internal/observability"
	"persodash/internal/ports"
	"persodash/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env-file", "", "optional .env file to load before reading configuration")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return err
		}
	} else {
		// Best-effort default, same as not having a .env at all.
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := log.Default()
	flushSentry, sentryEnabled, sentryErr := observability.Init(observability.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
	})
	if sentryErr != nil {
		return sentryErr
	}
	defer flushSentry()

	var notificationStore ports.NotificationStore
	if cfg.BadgerPath != "" {
		db, err := badger.Open(badger.DefaultOptions(cfg.BadgerPath).WithLogger(nil))
		if err != nil {
			return err
		}
		defer func() {
			logger.Printf("closing notification store")
			_ = db.Close()
		}()
		notificationStore, err = store.NewBadger(db)
		if err != nil {
			return err
		}
	} else {
		logger.Printf("BADGER_PATH not set, notification history will not survive restarts")
		notificationStore = store.NewMemory()
	}

	chat := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, nil, logger)
	pool := publicpool.NewClient(cfg.PublicPoolURL, nil)

	service := app.NewService(app.Options{
		Fetcher:   pool,
		PoolStats: pool,
		Store:     notificationStore,
		Chat:      chat,
		Btc:       blockstream.NewClient("", nil),
		Sol:       solana.NewClient(cfg.SolanaRPCURL, nil),
		Portfolio: moralis.NewClient(cfg.MoralisAPIKey, nil),
		Accounts:  coinbase.NewClient(cfg.CoinbaseAPIKeyID, cfg.CoinbaseAPIKeySecret, nil),
		Websites:  vercel.NewClient(cfg.VercelAPIToken, cfg.VercelTeamID, nil, logger),
		Address:   cfg.BTCAddress,
		Thresholds: alert.Thresholds{
			InactiveAfter:   cfg.InactiveAfter(),
			HashrateFloorHS: cfg.HashrateFloorHS,
		},
		Logger: logger,
	})

	runner := monitor.NewRunner(service, monitor.Config{
		Interval:    cfg.MonitorInterval,
		SummaryHour: cfg.SummaryHour,
	}, logger)

	httpServer := httpadapter.NewServer(service, runner, httpadapter.AuthConfig{
		Username: cfg.DashboardUsername,
		Password: cfg.DashboardPassword,
	}, logger)

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		TargetHeader: echo.HeaderXRequestID,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Request().Header.Set(echo.HeaderXRequestID, id)
		},
	}))
	if sentryEnabled {
		echoServer.Use(sentryecho.New(sentryecho.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}
	echoServer.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","request_id":"${header:X-Request-ID}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","status":${status},"latency":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out},"user_agent":"${user_agent}","error":"${error}"}` + "\n",
	}))
	echoServer.Use(middleware.Recover())
	echoServer.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				observability.CaptureError(err, map[string]string{
					"component": "http",
					"route":     c.Path(),
				}, map[string]interface{}{
					"method": c.Request().Method,
					"uri":    c.Request().RequestURI,
				})
			}
			return err
		}
	})
	httpServer.Register(echoServer)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           echoServer,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go runner.Start(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}()

	logger.Printf("persodash http server listening on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
