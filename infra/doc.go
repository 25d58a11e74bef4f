// Package infra contains technical adapters: solver gateways, run log
// stores, the MQTT publisher and metrics exporters. These packages should
// depend only on the interfaces defined in the core packages.
package infra
