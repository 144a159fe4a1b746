package xexec

import "time"

// EventType enumerates internal lifecycle events for Observer pattern.
type EventType string

const (
	InvokeStart        EventType = "invoke_start"
	InvokeDone         EventType = "invoke_done"
	ItemFailed         EventType = "item_failed"
	ListenerFailed     EventType = "listener_failed"
	ChainBroken        EventType = "chain_broken"
	Canceled           EventType = "canceled"
	InvariantViolation EventType = "invariant_violation"
)

// Event carries telemetry for observers.
type Event struct {
	Type        EventType
	Bus         BusKind
	Seq         uint64 // invocation sequence number, shared by all events of one invocation
	PayloadType string
	Item        string
	Priority    int
	Result      Result
	Duration    time.Duration
	At          time.Time
	Err         error
}
