// Package state tracks last-known status per monitored target and turns
// raw snapshots into meaningful transition events.
package state

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/log"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// Tracker remembers the last observed status of every target and computes
// transition events on each evaluation. It is accessed only from the
// polling path; there are no concurrent writers.
type Tracker struct {
	known  map[string]types.TargetStatus
	primed bool
	logger zerolog.Logger
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		known:  make(map[string]types.TargetStatus),
		logger: log.WithComponent("state-tracker"),
	}
}

// RecordInitialSnapshot populates the tracked map without emitting
// anything. This silent populate prevents spurious events for targets that
// were already stopped or down when the process started.
func (t *Tracker) RecordInitialSnapshot(snapshots []types.TargetSnapshot) {
	for _, snap := range snapshots {
		t.known[snap.TargetID] = snap.Status
	}
	t.primed = true
	t.logger.Info().Int("targets", len(snapshots)).Msg("initial snapshot recorded")
}

// Evaluate diffs the snapshots against the tracked map, returns the
// transitions that matter, then updates the map. Targets seen for the
// first time are recorded silently; targets missing from the snapshot are
// dropped from tracking without an event.
func (t *Tracker) Evaluate(snapshots []types.TargetSnapshot) []types.StateChange {
	if !t.primed {
		t.RecordInitialSnapshot(snapshots)
		return nil
	}

	now := time.Now()
	var changes []types.StateChange
	seen := make(map[string]bool, len(snapshots))

	for _, snap := range snapshots {
		seen[snap.TargetID] = true

		from, tracked := t.known[snap.TargetID]
		t.known[snap.TargetID] = snap.Status
		if !tracked || from == snap.Status {
			continue
		}

		condition, matters := conditionFor(snap.Kind, from, snap.Status)
		if !matters {
			t.logger.Debug().
				Str("target_id", snap.TargetID).
				Str("from", string(from)).
				Str("to", string(snap.Status)).
				Msg("ignoring transition")
			continue
		}

		t.logger.Warn().
			Str("target_id", snap.TargetID).
			Str("node", snap.Node).
			Str("from", string(from)).
			Str("to", string(snap.Status)).
			Str("condition", string(condition)).
			Msg("state change detected")

		changes = append(changes, types.StateChange{
			ConditionType: condition,
			TargetID:      snap.TargetID,
			Node:          snap.Node,
			FromStatus:    from,
			ToStatus:      snap.Status,
			DetectedAt:    now,
		})
	}

	for id := range t.known {
		if !seen[id] {
			delete(t.known, id)
		}
	}

	return changes
}

// TrackedCount returns the number of targets currently tracked
func (t *Tracker) TrackedCount() int {
	return len(t.known)
}

// conditionFor maps a status transition to the condition it signals.
// Transitions not listed here (e.g. stopped -> running) are recoveries or
// routine lifecycle and never produce an incident.
func conditionFor(kind types.TargetKind, from, to types.TargetStatus) (types.ConditionType, bool) {
	switch kind {
	case types.TargetKindNode:
		if to == types.TargetStatusDown && from != types.TargetStatusDown {
			return types.ConditionNodeDown, true
		}
	default:
		// VMs and services share lifecycle conditions
		if to == types.TargetStatusStopped && from == types.TargetStatusRunning {
			return types.ConditionVMStopped, true
		}
		if to == types.TargetStatusError && from != types.TargetStatusError {
			return types.ConditionVMError, true
		}
	}
	return "", false
}
