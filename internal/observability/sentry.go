package observability

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

var sentryEnabled atomic.Bool

type Options struct {
	DSN         string
	Environment string
	Release     string
}

// Init configures sentry from explicit options. An empty DSN leaves
// error capture disabled and is not an error.
func Init(opts Options) (func(), bool, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		sentryEnabled.Store(false)
		return func() {}, false, nil
	}

	clientOptions := sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      strings.TrimSpace(opts.Environment),
		Release:          strings.TrimSpace(opts.Release),
		AttachStacktrace: true,
	}

	if err := sentry.Init(clientOptions); err != nil {
		sentryEnabled.Store(false)
		return func() {}, false, err
	}

	sentryEnabled.Store(true)
	return func() {
		sentry.Flush(2 * time.Second)
	}, true, nil
}

func CaptureError(err error, tags map[string]string, extra map[string]interface{}) {
	if err == nil || !sentryEnabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for key, value := range tags {
			scope.SetTag(key, value)
		}
		for key, value := range extra {
			scope.SetExtra(key, value)
		}
		sentry.CaptureException(err)
	})
}

func Enabled() bool {
	return sentryEnabled.Load()
}
