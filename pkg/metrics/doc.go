/*
Package metrics provides Prometheus metrics and component health tracking
for Sentinel.

All collectors are package-level variables registered in init() and
served through Handler() at /metrics. Detection, guardrail decisions,
remediation outcomes and notification delivery each have counters;
gauges track the in-flight remediation count and queue depth.

The component health registry backs /healthz: long-running components
(storage, engine, poller, api) register at startup and update their
status as conditions change.
*/
package metrics
