package domain

import "time"

type Health struct {
	Status string
	Time   time.Time
}

// Worker is one mining client session as reported by the pool.
type Worker struct {
	SessionID      string
	Name           string
	HashRateHS     float64
	BestDifficulty float64
	StartTime      time.Time
	LastSeen       time.Time
}

type PoolStats struct {
	TotalHashRate float64
	BlockHeight   int64
	TotalMiners   int64
	BlocksFound   int64
}

type AlertSeverity string

const (
	AlertWarning AlertSeverity = "warning"
	AlertError   AlertSeverity = "error"
)

// AlertRecord collects the triggered rules for one worker within a
// single evaluation pass. Reasons keep rule-evaluation order.
type AlertRecord struct {
	Worker   Worker
	Reasons  []string
	Severity AlertSeverity
}

type NotificationType string

const (
	NotificationWebsite NotificationType = "website"
	NotificationMiner   NotificationType = "miner"
	NotificationWallet  NotificationType = "wallet"
	NotificationSystem  NotificationType = "system"
)

type NotificationSeverity string

const (
	SeverityInfo    NotificationSeverity = "info"
	SeverityWarning NotificationSeverity = "warning"
	SeverityError   NotificationSeverity = "error"
)

// NotificationInput is what callers hand to the store; id and
// createdAt are assigned on append.
type NotificationInput struct {
	Type     NotificationType
	Source   string
	Severity NotificationSeverity
	Title    string
	Message  string
}

type Notification struct {
	ID        string
	Type      NotificationType
	Source    string
	Severity  NotificationSeverity
	Title     string
	Message   string
	CreatedAt time.Time
}

// MonitorResult summarizes one fetch→evaluate→dispatch pass.
type MonitorResult struct {
	WorkersCount int
	AlertsSent   int
}

type MonitorStatus struct {
	Running     bool
	LastRunTime *time.Time
	LastWorkers int
	LastAlerts  int
	LastError   string
}

type BtcBalance struct {
	Address string
	Sats    int64
	BTC     float64
}

type SolBalance struct {
	Address  string
	Lamports uint64
	SOL      float64
}

type WebsiteStatus string

const (
	WebsiteOnline   WebsiteStatus = "online"
	WebsiteOffline  WebsiteStatus = "offline"
	WebsiteBuilding WebsiteStatus = "building"
	WebsiteUnknown  WebsiteStatus = "unknown"
)

type Website struct {
	ID         string
	Name       string
	ProjectID  string
	URL        string
	Status     WebsiteStatus
	LastDeploy *time.Time
	Domains    []string
}

type CoinbaseMoney struct {
	Amount   string
	Currency string
}

type CoinbaseAccount struct {
	ID       string
	Name     string
	Primary  bool
	Type     string
	Currency string
	Balance  CoinbaseMoney
}

type PortfolioToken struct {
	Symbol       string
	Name         string
	Amount       float64
	USDValue     float64
	TokenAddress string
}

type Portfolio struct {
	Address   string
	TotalUSD  float64
	NativeSOL float64
	NativeUSD float64
	Tokens    []PortfolioToken
}
