// Package otel exports goSession client metrics as OpenTelemetry
// instruments.
//
// [New] registers one Int64ObservableCounter per client counter and one
// Int64ObservableGauge per latency bucket. A single callback reads
// [goSession.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
