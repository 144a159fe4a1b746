package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xexec"
)

type turn struct {
	xexec.Chain
	n int
}

func TestSink_RingEvictsOldest(t *testing.T) {
	s := NewSink(Config{Capacity: 3})
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, s.Write(context.Background(), xexec.Record{ID: id}))
	}

	var ids []string
	for _, r := range s.Records() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"c", "d", "e"}, ids)
	assert.Equal(t, Stats{Written: 5, Evicted: 2, Retained: 3}, s.Stats())
}

func TestSink_Closed(t *testing.T) {
	s := NewSink(Config{})
	require.NoError(t, s.Write(context.Background(), xexec.Record{ID: "a"}))
	require.NoError(t, s.Close(context.Background()))

	assert.Error(t, s.Write(context.Background(), xexec.Record{ID: "b"}))
	assert.Len(t, s.Records(), 1)
}

func TestConfigFromMap(t *testing.T) {
	assert.Equal(t, 1024, ConfigFromMap(nil).Capacity)
	assert.Equal(t, 16, ConfigFromMap(map[string]any{"capacity": 16}).Capacity)
	assert.Equal(t, 16, ConfigFromMap(map[string]any{"capacity": float64(16)}).Capacity)
	assert.Equal(t, 1, ConfigFromMap(map[string]any{"capacity": -3}).Capacity)
}

func TestUse_JournalsInvocations(t *testing.T) {
	reg, sink := Use(Config{Capacity: 8})
	defer func() { _ = reg.Close(context.Background()) }()
	assert.Same(t, reg, xexec.Default())

	xexec.StaticOf[*turn](reg).Register("inc", 0, func(_ context.Context, p *turn) error {
		p.n++
		return nil
	})
	for range 3 {
		p := xexec.Acquire[turn](reg)
		_, err := xexec.InvokeStatic(context.Background(), p)
		p.Release()
		require.NoError(t, err)
	}

	recs := sink.Records()
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.Equal(t, "turn", r.PayloadType)
		assert.Equal(t, xexec.KindStatic, r.Bus)
		assert.Equal(t, 1, r.Executed)
	}
}

func TestSinkFactory_Registered(t *testing.T) {
	s, err := xexec.NewSink(SinkName, map[string]any{"capacity": 2})
	require.NoError(t, err)
	ms, ok := s.(*Sink)
	require.True(t, ok)
	assert.Equal(t, 2, ms.cfg.Capacity)
}
