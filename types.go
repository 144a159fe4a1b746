package xexec

import "time"

// BusKind tells which dispatcher produced an invocation.
type BusKind string

const (
	KindQueue   BusKind = "queue"
	KindDynamic BusKind = "dynamic"
	KindStatic  BusKind = "static"
)

// Result summarises one ExecuteAll / Invoke call.
type Result struct {
	Executed  int  // work items that started
	Failed    int  // of those, items that returned an error or panicked
	Remaining int  // items skipped because the chain broke or ctx was canceled
	Broken    bool // the payload's chain was broken
	Canceled  bool // ctx was done before every item ran
	Duration  time.Duration
}

// Completed reports whether every queued item ran.
func (r Result) Completed() bool { return r.Remaining == 0 }

// Outcome names how the invocation ended: "canceled", "broken" or "completed".
// Cancellation wins when both apply.
func (r Result) Outcome() string { return outcome(r.Broken, r.Canceled) }

func outcome(broken, canceled bool) string {
	switch {
	case canceled:
		return "canceled"
	case broken:
		return "broken"
	default:
		return "completed"
	}
}

// Stats defines observable telemetry for a registry.
type Stats struct {
	Invocations   uint64
	ItemsExecuted uint64
	ItemsFailed   uint64
	ChainsBroken  uint64
	Canceled      uint64
	Rejected      uint64 // re-entrant or nil-payload invokes
	EventsDropped uint64
	AvgInvokeMs   float64
}
