package ports

import (
	"context"
	"time"

	"persodash/internal/domain"
)

// ChatSender delivers an opaque text payload to the configured chat
// channel. Implementations must treat missing credentials as a no-op.
type ChatSender interface {
	Send(ctx context.Context, text string) error
	Enabled() bool
}

// NotificationStore owns the notification ledger. Append assigns id and
// createdAt; entries are immutable afterwards.
type NotificationStore interface {
	Append(ctx context.Context, input domain.NotificationInput) (domain.Notification, error)
	ListAll(ctx context.Context) ([]domain.Notification, error)
	ListForDay(ctx context.Context, day time.Time) ([]domain.Notification, error)
}
