/*
Package storage provides persistent state management for Sentinel using BoltDB.

Two concerns share one embedded database file (sentinel.db):

  - The audit log: an append-only record of every attempted remediation.
    Keys are zero-padded unix-nano timestamps so cursor scans walk records
    chronologically; CountAttempts and ListRecentAudit iterate backwards
    from the newest record and stop early. The audit log is the sole
    durable source of truth for historical attempt counts across restarts.

  - The preference store: operator-set keys such as the kill switch and
    the autonomy level. These are read on every guardrail evaluation, so
    reads are single-bucket point lookups.

BoltDB fits the deployment model: a single control process, no external
database, crash-safe writes via a single file with B+tree buckets.
Rate-limiter and blast-radius state deliberately stay in memory (see
pkg/guardrail); only what must survive a restart lives here.
*/
package storage
