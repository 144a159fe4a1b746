package redisstream

// Field constants (avoid typos/allocs)
const (
	fieldID          = "id"
	fieldBus         = "bus"
	fieldPayloadType = "payload_type"
	fieldRecord      = "record"     // codec-encoded xexec.Record
	fieldFinishedAt  = "finishedAt" // int64 ns
)
