package alert

import (
	"fmt"
	"time"

	"persodash/internal/domain"
)

type Thresholds struct {
	InactiveAfter   time.Duration
	HashrateFloorHS float64
}

const (
	DefaultInactiveAfter   = 10 * time.Minute
	DefaultHashrateFloorHS = 1_000_000
)

func (t Thresholds) withDefaults() Thresholds {
	if t.InactiveAfter <= 0 {
		t.InactiveAfter = DefaultInactiveAfter
	}
	if t.HashrateFloorHS <= 0 {
		t.HashrateFloorHS = DefaultHashrateFloorHS
	}
	return t
}

// Evaluate applies the alert rules to a worker snapshot at a fixed
// instant. Each rule scans the list once; reasons accumulate per
// session id in rule order and error severity never downgrades.
// Workers that trigger nothing are absent from the result.
func Evaluate(workers []domain.Worker, now time.Time, thresholds Thresholds) map[string]domain.AlertRecord {
	thresholds = thresholds.withDefaults()
	records := make(map[string]domain.AlertRecord)

	for _, w := range workers {
		since := now.Sub(w.LastSeen)
		if since > thresholds.InactiveAfter {
			addReason(records, w,
				fmt.Sprintf("inactive since %.1f minutes", since.Minutes()),
				domain.AlertWarning)
		}
	}

	for _, w := range workers {
		if w.HashRateHS == 0 {
			addReason(records, w, "hashrate is 0 H/s", domain.AlertError)
		}
	}

	for _, w := range workers {
		if w.HashRateHS > 0 && w.HashRateHS < thresholds.HashrateFloorHS {
			addReason(records, w,
				fmt.Sprintf("hashrate only %.2f H/s (threshold: %.0f)",
					w.HashRateHS, thresholds.HashrateFloorHS),
				domain.AlertWarning)
		}
	}

	return records
}

func addReason(records map[string]domain.AlertRecord, w domain.Worker, reason string, severity domain.AlertSeverity) {
	record, ok := records[w.SessionID]
	if !ok {
		records[w.SessionID] = domain.AlertRecord{
			Worker:   w,
			Reasons:  []string{reason},
			Severity: severity,
		}
		return
	}
	record.Reasons = append(record.Reasons, reason)
	if severity == domain.AlertError {
		record.Severity = domain.AlertError
	}
	records[w.SessionID] = record
}
