// Package flows contains the pure orchestrators behind the Manager's
// credential-producing operations.
//
// Each flow (RunLogin, RunRefresh) takes a typed dependency struct, sends one
// request through the supplied Sender and classifies the outcome into a
// result carrying a failure kind. The Manager maps failure kinds to its
// public errors and applies successful results to the session.
//
// # Architecture boundaries
//
// Flows decode wire payloads and validate credential bundles. They do NOT own
// session state, persistence, scheduling or HTTP transport; those belong to
// the Manager and its Gateway.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authclient (to avoid import cycles).
//   - Perform I/O other than through the Sender.
package flows
