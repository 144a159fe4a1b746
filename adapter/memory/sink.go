package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/trickstertwo/xexec"
)

const SinkName = "memory"

func init() {
	if err := xexec.RegisterSink(SinkName, func(cfg map[string]any) (xexec.Sink, error) {
		return NewSink(ConfigFromMap(cfg)), nil
	}); err != nil {
		panic(fmt.Errorf("xexec/memory: failed to register sink: %w", err))
	}
}

// Config controls memory sink behavior.
type Config struct {
	// Capacity is the number of records kept; older ones are overwritten (default: 1024).
	Capacity int
}

func ConfigFromMap(cfg map[string]any) Config {
	getInt := func(k string, d int) int {
		switch v := cfg[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		default:
			return d
		}
	}

	return Config{
		Capacity: maxInt(1, getInt("capacity", 1024)),
	}
}

// Sink implements xexec.Sink as a bounded in-process ring (dev/testing, local
// inspection of recent invocations).
type Sink struct {
	cfg Config

	mu    sync.Mutex
	ring  []xexec.Record
	next  int
	count int

	closed  atomic.Bool
	written atomic.Uint64
	evicted atomic.Uint64
}

// Stats reports sink telemetry.
type Stats struct {
	Written  uint64
	Evicted  uint64
	Retained int
}

var _ xexec.Sink = (*Sink)(nil)

// NewSink creates a new in-memory sink.
func NewSink(cfg Config) *Sink {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1024
	}
	return &Sink{
		cfg:  cfg,
		ring: make([]xexec.Record, cfg.Capacity),
	}
}

// Write appends records, overwriting the oldest once full.
func (s *Sink) Write(_ context.Context, recs ...xexec.Record) error {
	if s.closed.Load() {
		return errors.New("memory sink is closed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		if s.count == len(s.ring) {
			s.evicted.Add(1)
		} else {
			s.count++
		}
		s.ring[s.next] = r
		s.next = (s.next + 1) % len(s.ring)
		s.written.Add(1)
	}
	return nil
}

// Records returns the retained records, oldest first.
func (s *Sink) Records() []xexec.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]xexec.Record, 0, s.count)
	start := (s.next - s.count + len(s.ring)) % len(s.ring)
	for i := 0; i < s.count; i++ {
		out = append(out, s.ring[(start+i)%len(s.ring)])
	}
	return out
}

// Stats returns current sink metrics.
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	retained := s.count
	s.mu.Unlock()
	return Stats{
		Written:  s.written.Load(),
		Evicted:  s.evicted.Load(),
		Retained: retained,
	}
}

// Close stops accepting records. Retained records stay readable.
func (s *Sink) Close(_ context.Context) error {
	s.closed.Store(true)
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
