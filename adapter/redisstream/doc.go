// Package redisstream journals xexec invocations to a Redis Stream.
//
// Sink name: "redis-streams"
//
// Every finished invocation becomes one XADD entry holding the record ID, bus
// kind, payload type, finish time and the codec-encoded xexec.Record. The stream
// is an audit trail; queues and payloads are never persisted.
//
// Minimal config keys:
// - addr: "host:port" (default "127.0.0.1:6379")
// - stream: stream key (default "xexec:journal")
// - max_len_approx: approximate MAXLEN trim (default 10000, 0 disables)
// - codec: record codec name (default "json")
//
// Example builder usage:
//
//  reg, _ := xexec.NewRegistryBuilder().
//      WithSink(redisstream.SinkName, map[string]any{
//          "addr":           "localhost:6379",
//          "stream":         "game:journal",
//          "max_len_approx": int64(50000),
//      }).
//      WithObserverPool(1, 4096).
//      Build()
package redisstream
