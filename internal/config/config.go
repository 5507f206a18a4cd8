package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

// Config is the single explicit configuration struct; adapters receive
// the fields they need through their constructors and never read the
// process environment themselves.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR,default=:8080"`

	BTCAddress      string        `env:"BTC_ADDRESS"`
	InactiveMinutes float64       `env:"INACTIVE_MINUTES,default=10"`
	HashrateFloorHS float64       `env:"HASHRATE_FLOOR_HS,default=1000000"`
	MonitorInterval time.Duration `env:"MONITOR_INTERVAL,default=5m"`
	SummaryHour     int           `env:"SUMMARY_HOUR,default=20"`

	PublicPoolURL string `env:"PUBLIC_POOL_URL,default=https://public-pool.io:40557/api"`
	SolanaRPCURL  string `env:"SOLANA_RPC_URL,default=https://api.mainnet-beta.solana.com"`
	SolAddress    string `env:"SOL_ADDRESS"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`

	VercelAPIToken       string `env:"VERCEL_API_TOKEN"`
	VercelTeamID         string `env:"VERCEL_TEAM_ID"`
	MoralisAPIKey        string `env:"MORALIS_API_KEY"`
	CoinbaseAPIKeyID     string `env:"COINBASE_API_KEY_ID"`
	CoinbaseAPIKeySecret string `env:"COINBASE_API_KEY_SECRET"`

	DashboardUsername string `env:"DASHBOARD_USERNAME"`
	DashboardPassword string `env:"DASHBOARD_PASSWORD"`

	// BadgerPath selects the persistent notification store; empty keeps
	// the in-memory store.
	BadgerPath string `env:"BADGER_PATH"`

	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT"`
	SentryRelease     string `env:"SENTRY_RELEASE"`
}

func Load() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if cfg.InactiveMinutes <= 0 {
		cfg.InactiveMinutes = 10
	}
	if cfg.HashrateFloorHS <= 0 {
		cfg.HashrateFloorHS = 1_000_000
	}
	if cfg.SummaryHour < 0 || cfg.SummaryHour > 23 {
		return Config{}, fmt.Errorf("SUMMARY_HOUR must be 0..23, got %d", cfg.SummaryHour)
	}
	return cfg, nil
}

func (c Config) InactiveAfter() time.Duration {
	return time.Duration(c.InactiveMinutes * float64(time.Minute))
}
