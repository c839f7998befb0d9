/*
Package types defines the core data structures used throughout Sentinel.

This package contains the fundamental types that represent Sentinel's
domain model: target snapshots, state changes, threshold rules and
violations, incidents, autonomy levels, and audit records. All other
packages build on these types for detection, guardrail evaluation, and
execution bookkeeping.

# Core Types

Detection:
  - TargetSnapshot: point-in-time status and metrics for one target
  - StateChange: a meaningful status transition (e.g. running -> stopped)
  - ThresholdRule / ThresholdViolation: declarative metric bounds and
    their onset events

Decision and execution:
  - Incident: one addressable adverse condition; Key (conditionType +
    ":" + targetID) is the stable deduplication and rate-limit identity
  - AutonomyLevel: operator-set 0-4 scale from observe to act-silently
  - AuditRecord: the durable record of one attempted action and its
    terminal result (success, failure, blocked, escalated)

Types here are plain data: no behavior beyond small helpers (severity
ranking, operator comparison, key construction) so that every component
can share them without import cycles.
*/
package types
