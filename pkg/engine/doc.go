/*
Package engine orchestrates the full lifecycle of one incident: guardrail
evaluation, action dispatch, verification, audit recording, notification
and escalation.

# Architecture

Incidents flow through a bounded queue into a single worker:

	┌──────────────── EXECUTION ENGINE ────────────────────┐
	│                                                       │
	│  Pollers ──SubmitStateChange/SubmitViolation──┐      │
	│                                                ▼      │
	│                      Queue (bounded, non-blocking)    │
	│                                                │      │
	│                      Worker (concurrency = 1)  │      │
	│                                                ▼      │
	│   runbook lookup ── none ──▶ silent no-op             │
	│        │                                              │
	│   guardrail chain ── blocked ──▶ audit + event        │
	│        │                                              │
	│   kill-switch re-check (closes the toggle race)       │
	│        │                                              │
	│   blast-radius acquire ── held until exit, always     │
	│        │                   released                   │
	│   dispatch (implicit approval) ──▶ verify after delay │
	│        │                                              │
	│   audit record + rate-limit count (always)            │
	│        │                                              │
	│   success ──▶ standard notification (cooldown)        │
	│   3rd failure ──▶ escalation (once, no cooldown)      │
	│                                                       │
	└───────────────────────────────────────────────────────┘

The queue depth of one worker is what keeps remediation serialized; the
blast-radius set backs that up against anything bypassing the queue and
gives the staleness recovery path.

# Isolation

Nothing thrown inside process() escapes: executor panics become failure
records, notification errors are logged and swallowed, audit write errors
are logged. A poll tick that submitted an incident never learns, and never
waits for, its outcome.
*/
package engine
