// Package otel binds engine metrics to an OpenTelemetry Meter supplied by
// the caller: one observable counter per engine counter and one gauge per
// latency bucket.
package otel
