// Package metrics exposes pathbridge's cache, transform, filesystem
// operation, and error counters through a Prometheus registry and HTTP
// handler. There are no interposition-layer counters.
//
// Metrics are optional: spec section 6 treats monitoring as ambient
// rather than a functional requirement, so a Collector built with
// Config.Enabled false (the default when PATHBRIDGE_METRICS_PORT is
// unset) satisfies types.MetricsCollector as a safe no-op.
package metrics
