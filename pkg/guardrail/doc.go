/*
Package guardrail implements the layered safety checks that stand between
a detected incident and an automated action.

# Architecture

The chain evaluates in fixed priority and short-circuits on the first
failure:

	┌─────────────── GUARDRAIL CHAIN ───────────────┐
	│                                                │
	│  1. Kill switch    persisted boolean, point    │
	│                    read; unreadable = active   │
	│  2. Rate limiter   sliding window per incident │
	│                    key (default 3 per hour)    │
	│  3. Blast radius   global set of in-flight     │
	│                    remediations; non-empty =>  │
	│                    reject (fleet-wide serial)  │
	│  4. Autonomy level operator-set 0-4 vs the     │
	│                    runbook's minimum           │
	│                                                │
	└────────────────────────────────────────────────┘

A block is a decision, not an error: callers receive a Result naming the
guardrail and the reason, and record it in the audit log.

# State ownership

The rate limiter and blast radius are explicit objects created by the
caller and shared by reference between the chain and the execution engine,
so tests can exercise the chain in isolation. Both are process-local and
volatile; the rate limiter can rebuild its window from the audit log via
Rehydrate, the blast radius always starts cold because a remediation
cannot survive the process that dispatched it.

The kill switch and autonomy level are read through the preference store
on every evaluation. The engine re-reads the kill switch immediately
before dispatch, narrowing the window in which an operator toggle could
be missed to the dispatch call itself.
*/
package guardrail
