package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"persodash/internal/domain"
	"persodash/internal/observability"
)

// PassService is what the runner drives on every tick.
type PassService interface {
	RunMinerPass(ctx context.Context) (domain.MonitorResult, error)
	DailySummary(ctx context.Context) error
}

type Config struct {
	Interval    time.Duration
	SummaryHour int
}

// Runner periodically executes miner passes and fires the daily
// summary once per calendar day at or after the configured hour.
type Runner struct {
	service PassService
	config  Config
	logger  *log.Logger
	state   *state
	now     func() time.Time

	lastSummaryDay string
}

func NewRunner(service PassService, config Config, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		service: service,
		config:  config,
		logger:  logger,
		state:   &state{},
		now:     time.Now,
	}
}

// Start blocks until the context is canceled. An interval of zero or
// less disables scheduled passes entirely.
func (r *Runner) Start(ctx context.Context) {
	if r.config.Interval <= 0 {
		r.logger.Printf("monitor disabled (no interval configured)")
		return
	}

	r.state.setRunning(true)
	defer r.state.setRunning(false)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		r.runOnce(ctx)
		r.maybeRunSummary(ctx)
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	result, err := r.service.RunMinerPass(ctx)
	r.state.recordRun(r.now(), result, err)
	if err != nil {
		r.logger.Printf("miner pass: %v", err)
		observability.CaptureError(err, map[string]string{
			"component": "monitor",
			"operation": "miner_pass",
		}, nil)
	}
}

func (r *Runner) maybeRunSummary(ctx context.Context) {
	now := r.now().Local()
	if now.Hour() < r.config.SummaryHour {
		return
	}
	day := now.Format("2006-01-02")
	if day == r.lastSummaryDay {
		return
	}
	r.lastSummaryDay = day

	if err := r.service.DailySummary(ctx); err != nil {
		r.logger.Printf("daily summary: %v", err)
		observability.CaptureError(err, map[string]string{
			"component": "monitor",
			"operation": "daily_summary",
		}, nil)
	}
}

func (r *Runner) Status() domain.MonitorStatus {
	return r.state.snapshot()
}

type state struct {
	mu          sync.RWMutex
	running     bool
	lastRun     time.Time
	lastWorkers int
	lastAlerts  int
	lastError   string
}

func (s *state) setRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

func (s *state) recordRun(at time.Time, result domain.MonitorResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = at
	s.lastWorkers = result.WorkersCount
	s.lastAlerts = result.AlertsSent
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
}

func (s *state) snapshot() domain.MonitorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := domain.MonitorStatus{
		Running:     s.running,
		LastWorkers: s.lastWorkers,
		LastAlerts:  s.lastAlerts,
		LastError:   s.lastError,
	}
	if !s.lastRun.IsZero() {
		timestamp := s.lastRun
		status.LastRunTime = &timestamp
	}
	return status
}
