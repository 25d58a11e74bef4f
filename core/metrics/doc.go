// Package metrics defines the events emitted while building and solving
// scheduling models and the sinks that record them. Sinks like the
// Prometheus, InfluxDB and MQTT implementations register themselves by name;
// NewSink returns a MultiSink automatically when several are configured.
package metrics
