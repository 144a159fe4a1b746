package redisstream

import (
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xexec"
	"github.com/trickstertwo/xlog"
)

// Option configures the xexec.Registry construction when calling Use.
type Option func(*xexec.RegistryBuilder)

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *xexec.RegistryBuilder) { b.WithLogger(l) }
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func(b *xexec.RegistryBuilder) { b.WithClock(c) }
}

// WithMiddleware wraps every work item of the registry.
func WithMiddleware(mw ...xexec.Middleware) Option {
	return func(b *xexec.RegistryBuilder) { b.WithMiddleware(mw...) }
}

// WithJournalTimeout bounds each XADD (default: 2s).
func WithJournalTimeout(d time.Duration) Option {
	return func(b *xexec.RegistryBuilder) { b.WithJournalTimeout(d) }
}

// WithObserver attaches observers for lifecycle events.
func WithObserver(obs ...xexec.Observer) Option {
	return func(b *xexec.RegistryBuilder) { b.WithObserver(obs...) }
}

// WithObserverPool overrides the observer pool Use installs (default: 1 worker, 4096 events).
func WithObserverPool(workers, bufferSize int) Option {
	return func(b *xexec.RegistryBuilder) { b.WithObserverPool(workers, bufferSize) }
}
