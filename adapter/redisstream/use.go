package redisstream

import (
	"fmt"

	"github.com/trickstertwo/xexec"
)

// Adapter: Redis Streams journal Sink (Strategy + Adapter patterns)

const SinkName = "redis-streams"

func init() {
	if err := xexec.RegisterSink(SinkName, func(cfg map[string]any) (xexec.Sink, error) {
		s, err := NewSink(ConfigFromMap(cfg))
		if err != nil {
			return nil, err
		}
		return s, nil
	}); err != nil {
		panic(fmt.Errorf("xexec: failed to register sink %q: %w", SinkName, err))
	}
}

// Use builds a Registry journaling to Redis Streams and sets it as the default
// Registry, then returns it. Journal writes run on an observer pool so the
// dispatch thread never waits on Redis.
func Use(cfg Config, opts ...Option) *xexec.Registry {
	rb := xexec.NewRegistryBuilder().
		WithSink(SinkName, cfg.toMap()).
		WithObserverPool(1, 4096)

	for _, o := range opts {
		if o != nil {
			o(rb)
		}
	}
	reg, err := rb.Build()
	if err != nil {
		panic(fmt.Errorf("redisstream.Use: %w", err))
	}

	// Install as process-wide default (replaces any existing default).
	xexec.SetDefault(reg)
	return reg
}
