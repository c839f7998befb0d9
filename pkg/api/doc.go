/*
Package api implements Sentinel's HTTP control surface.

The surface is deliberately small: read status, flip the kill switch, set
the autonomy level, inspect recent actions. Detection and remediation
never depend on it; the daemon runs headless if nothing ever connects.

# Endpoints

	GET  /v1/status          daemon status (kill switch, autonomy,
	                         active remediations, queue depth, uptime)
	PUT  /v1/killswitch      {"active": true|false}
	PUT  /v1/autonomy-level  {"level": 0-4}
	GET  /v1/actions?limit=N recent audit records, newest first
	GET  /healthz            component health registry
	GET  /metrics            prometheus metrics

Operator changes are persisted through pkg/prefs and announced on the
event bus (killswitch.changed, autonomy.changed), so they take effect on
the next guardrail evaluation without any engine restart.
*/
package api
