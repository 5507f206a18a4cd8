package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"persodash/internal/domain"
)

// Memory keeps the notification ledger in process memory, newest first.
// It is the default store and the one tests run against.
type Memory struct {
	now func() time.Time

	mu      sync.Mutex
	entries []domain.Notification
}

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Append(_ context.Context, input domain.NotificationInput) (domain.Notification, error) {
	notification := domain.Notification{
		ID:        uuid.New().String(),
		Type:      input.Type,
		Source:    input.Source,
		Severity:  input.Severity,
		Title:     input.Title,
		Message:   input.Message,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]domain.Notification{notification}, m.entries...)
	return notification, nil
}

func (m *Memory) ListAll(_ context.Context) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make([]domain.Notification, len(m.entries))
	copy(snapshot, m.entries)
	return snapshot, nil
}

func (m *Memory) ListForDay(_ context.Context, day time.Time) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := make([]domain.Notification, 0)
	for _, n := range m.entries {
		if sameCalendarDay(n.CreatedAt, day) {
			matches = append(matches, n)
		}
	}
	return matches, nil
}

// sameCalendarDay compares calendar dates in the server's local zone,
// not a 24h sliding window.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
