/*
Package poller drives Sentinel's detection loops against the cluster
status source.

Three independent cadences run off one goroutine:

	┌──────────────────── POLLER ────────────────────┐
	│                                                 │
	│  state tick   (default 10s)                     │
	│    fetch snapshots → state.Tracker.Evaluate     │
	│    → Sink.SubmitStateChange per transition      │
	│                                                 │
	│  metric tick  (default 30s)                     │
	│    fetch snapshots → threshold.Evaluate         │
	│    → Sink.SubmitViolation per onset             │
	│    → threshold.recovered events per clearing    │
	│                                                 │
	│  sweep tick   (default 1h)                      │
	│    audit retention cleanup                      │
	│                                                 │
	└─────────────────────────────────────────────────┘

Every tick is isolated: a source error or a panic inside one cycle is
logged and counted, and the next tick runs normally. Submission into the
engine is non-blocking, so a slow or wedged remediation can never delay
detection.

Before the loops start, Prime performs one poll and seeds the state
tracker silently, so targets that were already stopped or down at startup
do not produce detections.
*/
package poller
