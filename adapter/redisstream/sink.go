package redisstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trickstertwo/xexec"
)

// Sink appends xexec journal records to a Redis Stream.
type Sink struct {
	cfg    Config
	client *redis.Client
	codec  xexec.Codec

	closeOnce sync.Once
	closed    atomic.Bool

	metrics *sinkMetrics
}

// sinkMetrics tracks sink telemetry
type sinkMetrics struct {
	written     atomic.Uint64
	writeErrors atomic.Uint64
}

// Stats reports sink telemetry.
type Stats struct {
	Written     uint64
	WriteErrors uint64
}

var _ xexec.Sink = (*Sink)(nil)

// NewSink connects to Redis and verifies the connection with PING.
func NewSink(cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		MaxRetries:   3,
		PoolSize:     4,
		MinIdleConns: 1,
	}

	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:    tls.VersionTLS12,
			ServerName:    cfg.TLSServerName,
			Renegotiation: tls.RenegotiateNever,
		}
	}

	client := redis.NewClient(opts)
	if err := ping(client, cfg.DialTimeout); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewSinkWithClient(client, cfg)
}

// NewSinkWithClient wraps an existing client; it does not ping.
func NewSinkWithClient(client *redis.Client, cfg Config) (*Sink, error) {
	if client == nil {
		return nil, errors.New("redisstream: nil client")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := xexec.NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return &Sink{
		cfg:     cfg,
		client:  client,
		codec:   codec,
		metrics: &sinkMetrics{},
	}, nil
}

// Write appends records with XADD, pipelined when there is more than one.
func (s *Sink) Write(ctx context.Context, recs ...xexec.Record) error {
	if s.closed.Load() {
		return errors.New("redisstream: sink is closed")
	}
	if len(recs) == 0 {
		return nil
	}

	if len(recs) == 1 {
		args, err := s.xaddArgs(recs[0])
		if err != nil {
			s.metrics.writeErrors.Add(1)
			return err
		}
		if err := s.client.XAdd(ctx, args).Err(); err != nil {
			s.metrics.writeErrors.Add(1)
			return fmt.Errorf("redisstream: xadd %s: %w", s.cfg.Stream, err)
		}
		s.metrics.written.Add(1)
		return nil
	}

	pipe := s.client.Pipeline()
	for _, r := range recs {
		args, err := s.xaddArgs(r)
		if err != nil {
			s.metrics.writeErrors.Add(uint64(len(recs)))
			return err
		}
		pipe.XAdd(ctx, args)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.metrics.writeErrors.Add(uint64(len(recs)))
		return fmt.Errorf("redisstream: xadd pipeline %s: %w", s.cfg.Stream, err)
	}
	s.metrics.written.Add(uint64(len(recs)))
	return nil
}

func (s *Sink) xaddArgs(r xexec.Record) (*redis.XAddArgs, error) {
	data, err := s.codec.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("redisstream: encode record: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.cfg.Stream,
		ID:     "*", // Let Redis generate ID
		// slice keeps field order stable on the wire
		Values: []any{
			fieldID, r.ID,
			fieldBus, string(r.Bus),
			fieldPayloadType, r.PayloadType,
			fieldFinishedAt, r.FinishedAt.UnixNano(),
			fieldRecord, data,
		},
	}
	// Approximate trimming to keep stream bounded
	if s.cfg.MaxLenApprox > 0 {
		args.MaxLen = s.cfg.MaxLenApprox
		args.Approx = true
	}
	return args, nil
}

// Tail returns up to n most recent records, newest first.
func (s *Sink) Tail(ctx context.Context, n int64) ([]xexec.Record, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.cfg.Stream, "+", "-", n).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redisstream: xrevrange %s: %w", s.cfg.Stream, err)
	}
	out := make([]xexec.Record, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values[fieldRecord].(string)
		if !ok {
			continue
		}
		rec, err := xexec.Decode[xexec.Record](s.codec, []byte(raw))
		if err != nil {
			return out, fmt.Errorf("redisstream: decode %s: %w", m.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Stats returns current sink metrics.
func (s *Sink) Stats() Stats {
	return Stats{
		Written:     s.metrics.written.Load(),
		WriteErrors: s.metrics.writeErrors.Load(),
	}
}

// Close releases the Redis client.
func (s *Sink) Close(_ context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.client.Close()
	})
	return err
}

// Helper functions

func ping(c *redis.Client, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := c.Ping(ctx).Result()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("redis ping timeout: %w", err)
		}
		return err
	}

	if strings.ToUpper(res) != "PONG" {
		return fmt.Errorf("unexpected redis ping result: %s", res)
	}

	return nil
}
