package xexec

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trickstertwo/xlog"
)

// JournalObserver writes a Record to Sink for every finished invocation. Sink
// writes block, so attach it through an observer pool when the sink is remote.
type JournalObserver struct {
	Sink    Sink
	Logger  *xlog.Logger
	Timeout time.Duration
}

func (o *JournalObserver) OnEvent(e Event) {
	if o.Sink == nil || e.Type != InvokeDone {
		return
	}
	ctx := context.Background()
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	if err := o.Sink.Write(ctx, NewRecord(uuid.NewString(), e)); err != nil && o.Logger != nil {
		o.Logger.Warn().Err(err).Str("payload", e.PayloadType).Msg("xexec: journal write failed")
	}
}
