// Package prometheus exposes goSession client metrics to Prometheus.
//
// [Collector] plugs into a client_golang registry, and [Handler] wraps one
// in promhttp. [Exporter] renders the same families as plain exposition
// text for callers that keep no registry. Counters are named
// gosession_*_total; the single histogram is
// gosession_provider_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with the global default registry.
//   - Mutate client state.
package prometheus
