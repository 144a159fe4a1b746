package xexec

import (
	"github.com/trickstertwo/xlog"
)

// Observer receives lifecycle events. Implementations should be non-blocking
// unless they are attached through an ObserverPool.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// deliver calls o.OnEvent and swallows its panic, so the emitter keeps running.
func deliver(o Observer, ev Event) {
	if o == nil {
		return
	}
	defer func() { _ = recover() }()
	o.OnEvent(ev)
}

// LoggingObserver is an Adapter that emits lifecycle events via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnEvent(e Event) {
	if o.Logger == nil {
		return
	}
	ev := o.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("bus", string(e.Bus)),
		xlog.Str("payload", e.PayloadType),
	)
	switch e.Type {
	case ItemFailed, ListenerFailed:
		ev.With(xlog.Str("item", e.Item)).Warn().Err(e.Err).Msg("xexec event")
	case InvariantViolation:
		ev.Error().Err(e.Err).Msg("xexec event")
	case InvokeDone:
		if e.Duration > 0 {
			ev = ev.With(xlog.Dur("duration", e.Duration))
		}
		ev.Debug().
			Float64("executed", float64(e.Result.Executed)).
			Float64("failed", float64(e.Result.Failed)).
			Str("outcome", e.Result.Outcome()).
			Msg("xexec event")
	default:
		ev.Debug().Msg("xexec event")
	}
}
