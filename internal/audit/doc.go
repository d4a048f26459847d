// Package audit relays session lifecycle events to a caller-supplied sink.
//
// # Components
//
//   - [Sink] receives events (channel, JSON lines writer, no-op).
//   - [Dispatcher] is a buffered asynchronous relay with drop-if-full or
//     block-if-full delivery.
//   - [Event] is the record: type, user, outcome, error class, metadata.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. It does NOT decide which events
// are emitted; the Manager does.
//
// # What this package must NOT do
//
//   - Carry credentials. Events hold error classes, never tokens or backend
//     payloads.
//   - Import authclient or any sibling internal package.
package audit
