package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"persodash/internal/domain"
)

const notificationPrefix = "notif:"

// Badger persists the notification ledger in BadgerDB so alert history
// survives restarts. Keys carry a mutex-serialized sequence number, so
// reverse iteration yields entries newest first in arrival order even
// under concurrent appends.
type Badger struct {
	db  *badger.DB
	now func() time.Time

	mu      sync.Mutex
	lastSeq uint64
}

type storedNotification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func NewBadger(db *badger.DB) (*Badger, error) {
	store := &Badger{db: db, now: time.Now}
	if err := store.loadLastSeq(); err != nil {
		return nil, fmt.Errorf("load notification sequence: %w", err)
	}
	return store, nil
}

func (b *Badger) loadLastSeq() error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(notificationPrefix)
		it.Seek(append(prefix, 0xff))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		key := string(it.Item().Key())
		seq, err := strconv.ParseUint(key[len(notificationPrefix):], 10, 64)
		if err != nil {
			return fmt.Errorf("malformed notification key %q: %w", key, err)
		}
		b.lastSeq = seq
		return nil
	})
}

func (b *Badger) Append(_ context.Context, input domain.NotificationInput) (domain.Notification, error) {
	notification := domain.Notification{
		ID:        uuid.New().String(),
		Type:      input.Type,
		Source:    input.Source,
		Severity:  input.Severity,
		Title:     input.Title,
		Message:   input.Message,
		CreatedAt: b.now(),
	}

	data, err := json.Marshal(toStored(notification))
	if err != nil {
		return domain.Notification{}, err
	}

	// Sequence assignment and the write stay under one lock so arrival
	// order matches key order.
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeq++
	key := fmt.Sprintf("%s%020d", notificationPrefix, b.lastSeq)

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		b.lastSeq--
		return domain.Notification{}, fmt.Errorf("append notification: %w", err)
	}
	return notification, nil
}

func (b *Badger) ListAll(_ context.Context) ([]domain.Notification, error) {
	return b.scan(func(domain.Notification) bool { return true })
}

func (b *Badger) ListForDay(_ context.Context, day time.Time) ([]domain.Notification, error) {
	return b.scan(func(n domain.Notification) bool {
		return sameCalendarDay(n.CreatedAt, day)
	})
}

func (b *Badger) scan(keep func(domain.Notification) bool) ([]domain.Notification, error) {
	notifications := make([]domain.Notification, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(notificationPrefix)
		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var stored storedNotification
				if err := json.Unmarshal(v, &stored); err != nil {
					return fmt.Errorf("unmarshal notification: %w", err)
				}
				if n := fromStored(stored); keep(n) {
					notifications = append(notifications, n)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func toStored(n domain.Notification) storedNotification {
	return storedNotification{
		ID:        n.ID,
		Type:      string(n.Type),
		Source:    n.Source,
		Severity:  string(n.Severity),
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}

func fromStored(s storedNotification) domain.Notification {
	return domain.Notification{
		ID:        s.ID,
		Type:      domain.NotificationType(s.Type),
		Source:    s.Source,
		Severity:  domain.NotificationSeverity(s.Severity),
		Title:     s.Title,
		Message:   s.Message,
		CreatedAt: s.CreatedAt,
	}
}
