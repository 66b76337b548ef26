// Package prometheus serves engine metrics in the Prometheus text format
// without pulling in a client library. Mount [Exporter.Handler] on /metrics.
package prometheus
