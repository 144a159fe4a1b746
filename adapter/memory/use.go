package memory

import (
	"fmt"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xexec"
	"github.com/trickstertwo/xlog"
)

// Use builds a Registry journaling to an in-memory sink and sets it as the default.
// Mirrors redisstream.Use and xlog "Use" pattern: explicit construction with global install.
//
// Example:
//
//	reg, sink := memory.Use(memory.Config{Capacity: 256},
//	    memory.WithLogger(logger),
//	    memory.WithObserver(observer),
//	)
//
// The returned registry is installed as the process-wide default; the sink is
// returned so callers can read the journal back.
func Use(cfg Config, opts ...Option) (*xexec.Registry, *Sink) {
	sink := NewSink(cfg)
	rb := xexec.NewRegistryBuilder().WithSinkInstance(sink)

	for _, o := range opts {
		if o != nil {
			o(rb)
		}
	}

	reg, err := rb.Build()
	if err != nil {
		panic(fmt.Errorf("memory.Use: %w", err))
	}

	// Install as process-wide default
	xexec.SetDefault(reg)
	return reg, sink
}

// Option configures the xexec.Registry when calling Use.
type Option func(*xexec.RegistryBuilder)

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *xexec.RegistryBuilder) { b.WithLogger(l) }
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func(b *xexec.RegistryBuilder) { b.WithClock(c) }
}

// WithMiddleware adds work item middlewares (retry, deadline, tracing).
func WithMiddleware(mw ...xexec.Middleware) Option {
	return func(b *xexec.RegistryBuilder) { b.WithMiddleware(mw...) }
}

// WithObserver attaches observers for lifecycle events.
func WithObserver(obs ...xexec.Observer) Option {
	return func(b *xexec.RegistryBuilder) { b.WithObserver(obs...) }
}

// WithObserverPool configures async observer pool for non-blocking notifications.
func WithObserverPool(workers, bufferSize int) Option {
	return func(b *xexec.RegistryBuilder) { b.WithObserverPool(workers, bufferSize) }
}

// WithJournalTimeout bounds each sink write.
func WithJournalTimeout(d time.Duration) Option {
	return func(b *xexec.RegistryBuilder) { b.WithJournalTimeout(d) }
}
