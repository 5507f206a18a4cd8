package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"persodash/internal/alert"
	"persodash/internal/domain"
	"persodash/internal/hashrate"
	"persodash/internal/observability"
	"persodash/internal/ports"
)

type Service struct {
	fetcher    ports.WorkerFetcher
	poolStats  ports.PoolStatsFetcher
	store      ports.NotificationStore
	chat       ports.ChatSender
	btc        ports.BtcBalanceReader
	sol        ports.SolBalanceReader
	portfolio  ports.PortfolioReader
	accounts   ports.AccountLister
	websites   ports.WebsiteLister
	address    string
	thresholds alert.Thresholds
	logger     *log.Logger
	now        func() time.Time
}

type Options struct {
	Fetcher    ports.WorkerFetcher
	PoolStats  ports.PoolStatsFetcher
	Store      ports.NotificationStore
	Chat       ports.ChatSender
	Btc        ports.BtcBalanceReader
	Sol        ports.SolBalanceReader
	Portfolio  ports.PortfolioReader
	Accounts   ports.AccountLister
	Websites   ports.WebsiteLister
	Address    string
	Thresholds alert.Thresholds
	Logger     *log.Logger
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		fetcher:    opts.Fetcher,
		poolStats:  opts.PoolStats,
		store:      opts.Store,
		chat:       opts.Chat,
		btc:        opts.Btc,
		sol:        opts.Sol,
		portfolio:  opts.Portfolio,
		accounts:   opts.Accounts,
		websites:   opts.Websites,
		address:    opts.Address,
		thresholds: opts.Thresholds,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) Health() domain.Health {
	return domain.Health{
		Status: "ok",
		Time:   time.Now().UTC(),
	}
}

// RunMinerPass executes one fetch→evaluate→dispatch cycle for the
// monitored address. An unreachable pool produces a single system
// notification instead of per-worker alerts and the upstream error is
// returned after it is recorded.
func (s *Service) RunMinerPass(ctx context.Context) (domain.MonitorResult, error) {
	workers, err := s.fetcher.Workers(ctx, s.address)
	if err != nil {
		text := fmt.Sprintf("*Miner monitor error*\n\nPublic Pool API not reachable: %v", err)
		s.recordNotification(ctx, domain.NotificationInput{
			Type:     domain.NotificationMiner,
			Source:   fmt.Sprintf("miner:%s", s.address),
			Severity: domain.SeverityError,
			Title:    "Miner Monitor Error",
			Message:  text,
		})
		s.sendChat(ctx, text)
		return domain.MonitorResult{}, err
	}

	records := alert.Evaluate(workers, s.now(), s.thresholds)
	sent := s.Dispatch(ctx, records)

	return domain.MonitorResult{
		WorkersCount: len(workers),
		AlertsSent:   sent,
	}, nil
}

// Dispatch turns evaluated alert records into notifications and chat
// messages, store append first so a delivery failure never loses the
// record. Returns the count of notifications created.
func (s *Service) Dispatch(ctx context.Context, records map[string]domain.AlertRecord) int {
	sessionIDs := lo.Keys(records)
	sort.Strings(sessionIDs)

	count := 0
	for _, sessionID := range sessionIDs {
		record := records[sessionID]

		title := "Miner-Worker Warning"
		severity := domain.SeverityWarning
		if record.Severity == domain.AlertError {
			title = "Miner-Worker PROBLEM"
			severity = domain.SeverityError
		}

		message := formatAlertMessage(title, record, s.now())

		s.recordNotification(ctx, domain.NotificationInput{
			Type:     domain.NotificationMiner,
			Source:   fmt.Sprintf("miner:%s:%s", s.address, sessionID),
			Severity: severity,
			Title:    title,
			Message:  message,
		})
		count++

		s.sendChat(ctx, message)
	}
	return count
}

func formatAlertMessage(title string, record domain.AlertRecord, now time.Time) string {
	lines := []string{
		fmt.Sprintf("*%s*", title),
		"",
		fmt.Sprintf("Worker: %s", record.Worker.SessionID),
		fmt.Sprintf("Hashrate: %.2f H/s", record.Worker.HashRateHS),
		"",
		"Reasons:",
	}
	for _, reason := range record.Reasons {
		lines = append(lines, "- "+reason)
	}
	lines = append(lines, "", "Time: "+hashrate.FormatDateTime(now))
	return strings.Join(lines, "\n")
}

// DailySummary folds today's notifications and current miner stats
// into one chat message.
func (s *Service) DailySummary(ctx context.Context) error {
	if s.chat == nil || !s.chat.Enabled() {
		s.logger.Printf("daily summary skipped, chat delivery disabled")
		return nil
	}

	todays, err := s.store.ListForDay(ctx, s.now())
	if err != nil {
		return fmt.Errorf("list today's notifications: %w", err)
	}

	websiteOutages := lo.CountBy(todays, func(n domain.Notification) bool {
		return n.Type == domain.NotificationWebsite && n.Severity == domain.SeverityError
	})
	websitesOK := "Yes"
	if websiteOutages > 0 {
		websitesOK = "Partly"
	}

	workers, err := s.fetcher.Workers(ctx, s.address)
	if err != nil {
		return fmt.Errorf("fetch workers for summary: %w", err)
	}
	bestDifficulty := lo.Reduce(workers, func(max float64, w domain.Worker, _ int) float64 {
		if w.BestDifficulty > max {
			return w.BestDifficulty
		}
		return max
	}, 0)
	totalHashrate := lo.SumBy(workers, func(w domain.Worker) float64 {
		return w.HashRateHS
	})

	lines := []string{
		fmt.Sprintf("*PersoDash Daily Summary* - %s", s.now().Local().Format("02.01.2006")),
		"",
		fmt.Sprintf("Websites online: %s", websitesOK),
		fmt.Sprintf("   - Outages today: %d", websiteOutages),
		"",
		"Miner:",
		fmt.Sprintf("   - Workers: %d", len(workers)),
		fmt.Sprintf("   - Total hashrate: %s", hashrate.Format(totalHashrate)),
		fmt.Sprintf("   - Best difficulty: %.2f", bestDifficulty),
		"",
		fmt.Sprintf("Notifications today: %d", len(todays)),
	}
	s.sendChat(ctx, strings.Join(lines, "\n"))
	return nil
}

// CreateNotification stores an externally submitted notification and
// pushes it to chat best-effort.
func (s *Service) CreateNotification(ctx context.Context, input domain.NotificationInput) (domain.Notification, error) {
	notification, err := s.store.Append(ctx, input)
	if err != nil {
		return domain.Notification{}, err
	}

	text := strings.Join([]string{
		fmt.Sprintf("*%s*", notification.Title),
		"",
		fmt.Sprintf("Type: %s", notification.Type),
		fmt.Sprintf("Source: %s", notification.Source),
		fmt.Sprintf("Level: %s", strings.ToUpper(string(notification.Severity))),
		"",
		notification.Message,
		"",
		"Time: " + hashrate.FormatDateTime(notification.CreatedAt),
	}, "\n")
	s.sendChat(ctx, text)

	return notification, nil
}

func (s *Service) Notifications(ctx context.Context) ([]domain.Notification, error) {
	return s.store.ListAll(ctx)
}

func (s *Service) Workers(ctx context.Context, address string) ([]domain.Worker, error) {
	return s.fetcher.Workers(ctx, address)
}

func (s *Service) PoolStats(ctx context.Context) (domain.PoolStats, error) {
	return s.poolStats.PoolStats(ctx)
}

func (s *Service) BtcBalance(ctx context.Context, address string) (domain.BtcBalance, error) {
	return s.btc.AddressBalance(ctx, address)
}

func (s *Service) SolBalance(ctx context.Context, address string) (domain.SolBalance, error) {
	return s.sol.Balance(ctx, address)
}

func (s *Service) Portfolio(ctx context.Context, address string) (domain.Portfolio, error) {
	return s.portfolio.Portfolio(ctx, address)
}

func (s *Service) Accounts(ctx context.Context) ([]domain.CoinbaseAccount, error) {
	return s.accounts.Accounts(ctx)
}

func (s *Service) Websites(ctx context.Context) ([]domain.Website, error) {
	return s.websites.Websites(ctx)
}

// recordNotification appends to the store; a failing append is logged
// and captured but never interrupts a pass.
func (s *Service) recordNotification(ctx context.Context, input domain.NotificationInput) {
	if _, err := s.store.Append(ctx, input); err != nil {
		s.logger.Printf("append notification: %v", err)
		observability.CaptureError(err, map[string]string{
			"component": "dispatcher",
			"operation": "append_notification",
		}, nil)
	}
}

// sendChat is fire-and-forget: failures are logged, never raised.
func (s *Service) sendChat(ctx context.Context, text string) {
	if s.chat == nil {
		return
	}
	if err := s.chat.Send(ctx, text); err != nil {
		s.logger.Printf("chat delivery: %v", err)
		observability.CaptureError(err, map[string]string{
			"component": "dispatcher",
			"operation": "chat_send",
		}, nil)
	}
}
