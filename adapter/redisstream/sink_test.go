package redisstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xexec"
)

func testRecord(id string) xexec.Record {
	return xexec.Record{
		ID:          id,
		Seq:         1,
		Bus:         xexec.KindDynamic,
		PayloadType: "TurnStarted",
		Executed:    3,
		Duration:    2 * time.Millisecond,
		FinishedAt:  time.Unix(1700000000, 0).UTC(),
	}
}

func newMockSink(t *testing.T) (*Sink, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	cfg := Defaults()
	cfg.Stream = "test:journal"
	cfg.MaxLenApprox = 100
	s, err := NewSinkWithClient(client, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, mock
}

func TestSink_WriteSingle(t *testing.T) {
	s, mock := newMockSink(t)
	rec := testRecord("r1")

	args, err := s.xaddArgs(rec)
	require.NoError(t, err)
	assert.Equal(t, "test:journal", args.Stream)
	assert.True(t, args.Approx)
	assert.Equal(t, int64(100), args.MaxLen)
	mock.ExpectXAdd(args).SetVal("1-0")

	require.NoError(t, s.Write(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, Stats{Written: 1}, s.Stats())
}

func TestSink_WriteBatchPipelined(t *testing.T) {
	s, mock := newMockSink(t)
	recs := []xexec.Record{testRecord("r1"), testRecord("r2")}
	for i, r := range recs {
		args, err := s.xaddArgs(r)
		require.NoError(t, err)
		mock.ExpectXAdd(args).SetVal([]string{"1-0", "2-0"}[i])
	}

	require.NoError(t, s.Write(context.Background(), recs...))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, uint64(2), s.Stats().Written)
}

func TestSink_WriteError(t *testing.T) {
	s, mock := newMockSink(t)
	rec := testRecord("r1")
	args, err := s.xaddArgs(rec)
	require.NoError(t, err)
	mock.ExpectXAdd(args).SetErr(errors.New("READONLY"))

	err = s.Write(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test:journal")
	assert.Equal(t, Stats{WriteErrors: 1}, s.Stats())
}

func TestSink_Tail(t *testing.T) {
	s, mock := newMockSink(t)
	rec := testRecord("r1")
	data, err := xexec.JSONCodec{}.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectXRevRangeN("test:journal", "+", "-", 5).SetVal([]redis.XMessage{
		{ID: "2-0", Values: map[string]interface{}{fieldID: "other"}},
		{ID: "1-0", Values: map[string]interface{}{fieldID: rec.ID, fieldRecord: string(data)}},
	})

	got, err := s.Tail(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, 3, got[0].Executed)
	assert.Equal(t, xexec.KindDynamic, got[0].Bus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSink_Closed(t *testing.T) {
	s, _ := newMockSink(t)
	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))
	assert.Error(t, s.Write(context.Background(), testRecord("r1")))
}

func TestConfig(t *testing.T) {
	cfg := ConfigFromMap(map[string]any{
		"addr":           "redis:6380",
		"stream":         "s",
		"dial_timeout":   "750ms",
		"max_len_approx": 50,
		"tls":            true,
	})
	assert.Equal(t, "redis:6380", cfg.Addr)
	assert.Equal(t, "s", cfg.Stream)
	assert.Equal(t, 750*time.Millisecond, cfg.DialTimeout)
	assert.Equal(t, int64(50), cfg.MaxLenApprox)
	assert.True(t, cfg.TLS)
	assert.Equal(t, "json", cfg.Codec)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Defaults(), ConfigFromMap(Defaults().toMap()))

	bad := Defaults()
	bad.Stream = ""
	assert.Error(t, bad.Validate())
	bad = Defaults()
	bad.MaxLenApprox = -1
	assert.Error(t, bad.Validate())

	_, err := NewSinkWithClient(nil, Defaults())
	assert.Error(t, err)
}
