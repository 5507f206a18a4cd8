package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"persodash/internal/domain"
	"persodash/internal/ports"
)

// setupTestDB initializes a temporary in-memory Badger instance.
func setupTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type storeUnderTest struct {
	name    string
	store   ports.NotificationStore
	setTime func(time.Time)
}

func storesUnderTest(t *testing.T) []storeUnderTest {
	t.Helper()

	var memoryNow, badgerNow time.Time
	memory := NewMemory()
	memory.now = func() time.Time {
		if memoryNow.IsZero() {
			return time.Now()
		}
		return memoryNow
	}

	badgerStore, err := NewBadger(setupTestDB(t))
	require.NoError(t, err)
	badgerStore.now = func() time.Time {
		if badgerNow.IsZero() {
			return time.Now()
		}
		return badgerNow
	}

	return []storeUnderTest{
		{name: "memory", store: memory, setTime: func(ts time.Time) { memoryNow = ts }},
		{name: "badger", store: badgerStore, setTime: func(ts time.Time) { badgerNow = ts }},
	}
}

func input(title string) domain.NotificationInput {
	return domain.NotificationInput{
		Type:     domain.NotificationMiner,
		Source:   "miner:addr:w1",
		Severity: domain.SeverityWarning,
		Title:    title,
		Message:  "message body",
	}
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	for _, tc := range storesUnderTest(t) {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			before := time.Now()

			stored, err := tc.store.Append(context.Background(), input("first"))
			req.NoError(err)
			req.NotEmpty(stored.ID)
			req.False(stored.CreatedAt.Before(before))
			req.Equal(domain.NotificationMiner, stored.Type)
			req.Equal("first", stored.Title)
		})
	}
}

func TestListAllIsNewestFirst(t *testing.T) {
	for _, tc := range storesUnderTest(t) {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()

			for _, title := range []string{"oldest", "middle", "newest"} {
				_, err := tc.store.Append(ctx, input(title))
				req.NoError(err)
			}

			all, err := tc.store.ListAll(ctx)
			req.NoError(err)
			req.Len(all, 3)
			req.Equal("newest", all[0].Title)
			req.Equal("middle", all[1].Title)
			req.Equal("oldest", all[2].Title)
		})
	}
}

func TestListAllReturnsSnapshot(t *testing.T) {
	for _, tc := range storesUnderTest(t) {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()

			_, err := tc.store.Append(ctx, input("only"))
			req.NoError(err)

			snapshot, err := tc.store.ListAll(ctx)
			req.NoError(err)
			req.Len(snapshot, 1)

			_, err = tc.store.Append(ctx, input("later"))
			req.NoError(err)
			req.Len(snapshot, 1)
		})
	}
}

func TestListForDayMatchesCalendarDateOnly(t *testing.T) {
	for _, tc := range storesUnderTest(t) {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()

			today := time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local)

			// 23:59:59 yesterday must be excluded even though it is
			// within the last 24 hours.
			tc.setTime(today.Add(-10*time.Hour - 1*time.Second))
			_, err := tc.store.Append(ctx, input("yesterday"))
			req.NoError(err)

			tc.setTime(time.Date(2026, 3, 14, 0, 0, 1, 0, time.Local))
			_, err = tc.store.Append(ctx, input("early today"))
			req.NoError(err)

			tc.setTime(today)
			_, err = tc.store.Append(ctx, input("today"))
			req.NoError(err)

			todays, err := tc.store.ListForDay(ctx, today)
			req.NoError(err)
			req.Len(todays, 2)
			req.Equal("today", todays[0].Title)
			req.Equal("early today", todays[1].Title)
		})
	}
}

func TestConcurrentAppendsKeepAllEntriesWithUniqueIDs(t *testing.T) {
	for _, tc := range storesUnderTest(t) {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			const workers = 32

			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := tc.store.Append(ctx, input("concurrent"))
					require.NoError(t, err)
				}()
			}
			wg.Wait()

			all, err := tc.store.ListAll(ctx)
			req.NoError(err)
			req.Len(all, workers)

			seen := make(map[string]bool, workers)
			for _, n := range all {
				req.False(seen[n.ID], "duplicate id %s", n.ID)
				seen[n.ID] = true
			}
		})
	}
}
