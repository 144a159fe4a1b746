package xexec

import (
	"context"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// RegistryBuilder constructs Registry instances (Builder pattern).
type RegistryBuilder struct {
	middlewares []Middleware
	observers   []Observer
	logger      *xlog.Logger
	clock       xclock.Clock

	poolWorkers int
	poolBuffer  int

	sinkName string
	sinkCfg  map[string]any
	sinks    []Sink

	journalTimeout time.Duration
}

// NewRegistryBuilder returns a new builder with sensible defaults.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{
		journalTimeout: 2 * time.Second,
	}
}

// WithMiddleware wraps every work item of the registry, first middleware outermost.
func (rb *RegistryBuilder) WithMiddleware(mw ...Middleware) *RegistryBuilder {
	if len(mw) == 0 {
		return rb
	}
	rb.middlewares = append(rb.middlewares, mw...)
	return rb
}

func (rb *RegistryBuilder) WithObserver(obs ...Observer) *RegistryBuilder {
	for _, o := range obs {
		if o != nil {
			rb.observers = append(rb.observers, o)
		}
	}
	return rb
}

func (rb *RegistryBuilder) WithLogger(l *xlog.Logger) *RegistryBuilder {
	rb.logger = l
	return rb
}

func (rb *RegistryBuilder) WithClock(c xclock.Clock) *RegistryBuilder {
	rb.clock = c
	return rb
}

// WithObserverPool delivers lifecycle events from background workers instead of
// the dispatch thread.
func (rb *RegistryBuilder) WithObserverPool(workers, bufferSize int) *RegistryBuilder {
	rb.poolWorkers = workers
	rb.poolBuffer = bufferSize
	return rb
}

// WithSink journals every invocation to the sink registered under name.
func (rb *RegistryBuilder) WithSink(name string, cfg map[string]any) *RegistryBuilder {
	rb.sinkName = name
	rb.sinkCfg = cfg
	return rb
}

// WithSinkInstance journals every invocation to a ready Sink (e.g., from adapter Use()).
func (rb *RegistryBuilder) WithSinkInstance(s Sink) *RegistryBuilder {
	if s != nil {
		rb.sinks = append(rb.sinks, s)
	}
	return rb
}

// WithJournalTimeout bounds each sink write (default: 2s).
func (rb *RegistryBuilder) WithJournalTimeout(d time.Duration) *RegistryBuilder {
	if d > 0 {
		rb.journalTimeout = d
	}
	return rb
}

func (rb *RegistryBuilder) Build() (*Registry, error) {
	sinks := append([]Sink(nil), rb.sinks...)
	if rb.sinkName != "" {
		s, err := NewSink(rb.sinkName, rb.sinkCfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	clk := rb.clock
	if clk == nil {
		clk = xclock.Default()
	}
	lg := rb.logger
	if lg == nil {
		lg = xlog.Default()
	}

	eng := &engine{
		logger:      lg,
		clock:       clk,
		middlewares: rb.middlewares,
	}
	if rb.poolWorkers > 0 || rb.poolBuffer > 0 {
		eng.observerPool = NewObserverPool(rb.poolWorkers, rb.poolBuffer)
	}

	// Logging observer first unless one was supplied explicitly.
	hasLoggingObserver := false
	for _, o := range rb.observers {
		if _, ok := o.(LoggingObserver); ok {
			hasLoggingObserver = true
			break
		}
	}
	if !hasLoggingObserver && lg != nil {
		eng.addObserver(LoggingObserver{Logger: lg})
	}
	for _, o := range rb.observers {
		eng.addObserver(o)
	}
	for _, s := range sinks {
		eng.addObserver(&JournalObserver{Sink: s, Logger: lg, Timeout: rb.journalTimeout})
	}

	r := newRegistry(eng)
	r.sinks = sinks
	return r, nil
}

// New constructs a Registry via Builder and returns a close func for convenience.
func New(init func(b *RegistryBuilder)) (*Registry, func() error, error) {
	b := NewRegistryBuilder()
	if init != nil {
		init(b)
	}
	reg, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return reg.Close(context.Background()) }
	return reg, closeFn, nil
}
