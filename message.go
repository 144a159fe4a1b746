package xexec

import (
	"time"
)

// Record is the journal entry written for one finished invocation.
type Record struct {
	// ID is a unique record identifier (UUID).
	ID string `json:"id"`
	// Seq is the registry-local invocation sequence number.
	Seq uint64 `json:"seq"`
	// Bus is the dispatcher kind that ran the invocation.
	Bus BusKind `json:"bus"`
	// PayloadType is the concrete payload type name, the event's routing key.
	PayloadType string `json:"payload_type"`
	Executed    int    `json:"executed"`
	Failed      int    `json:"failed"`
	Remaining   int    `json:"remaining"`
	Broken      bool   `json:"broken"`
	Canceled    bool   `json:"canceled"`
	// Duration of the whole invocation, listener collection included.
	Duration time.Duration `json:"duration"`
	// FinishedAt is taken from the registry clock.
	FinishedAt time.Time `json:"finished_at"`
}

// NewRecord builds the journal record of an InvokeDone event.
func NewRecord(id string, e Event) Record {
	return Record{
		ID:          id,
		Seq:         e.Seq,
		Bus:         e.Bus,
		PayloadType: e.PayloadType,
		Executed:    e.Result.Executed,
		Failed:      e.Result.Failed,
		Remaining:   e.Result.Remaining,
		Broken:      e.Result.Broken,
		Canceled:    e.Result.Canceled,
		Duration:    e.Duration,
		FinishedAt:  e.At,
	}
}

// Outcome mirrors Result.Outcome for a stored record.
func (r Record) Outcome() string { return outcome(r.Broken, r.Canceled) }
