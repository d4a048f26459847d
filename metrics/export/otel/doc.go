// Package otel publishes authclient metrics through an OpenTelemetry Meter.
//
// [New] creates one Int64ObservableCounter per client counter and one
// Int64ObservableGauge per latency bucket. Values are read from
// [authclient.Manager.MetricsSnapshot] inside a single callback, so nothing
// is pushed from the session hot path.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers pass a Meter and shut down their own provider.
//   - Change the session.
package otel
