// Package verify re-polls a target after a remediation and evaluates the
// runbook's verification predicate against the fresh snapshot.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/runbook"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// StatusSource provides a fresh snapshot of one target on demand
type StatusSource interface {
	Snapshot(ctx context.Context, targetID string) (*types.TargetSnapshot, error)
}

// Result represents the outcome of a verification check
type Result struct {
	Passed    bool
	Message   string
	CheckedAt time.Time
}

// Checker evaluates verification specs against the status source
type Checker struct {
	source  StatusSource
	timeout time.Duration
}

// NewChecker creates a checker. The timeout bounds the re-poll, not the
// runbook's verify delay, which the engine applies before calling Check.
func NewChecker(source StatusSource, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{source: source, timeout: timeout}
}

// Check re-polls the target and applies the spec. A failed re-poll is a
// failed verification: we cannot claim success for a state we cannot see.
func (c *Checker) Check(ctx context.Context, targetID string, spec runbook.VerifySpec) Result {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	snap, err := c.source.Snapshot(checkCtx, targetID)
	if err != nil {
		return Result{
			Passed:    false,
			Message:   fmt.Sprintf("re-poll failed: %v", err),
			CheckedAt: time.Now(),
		}
	}

	if spec.ExpectedStatus != "" && snap.Status != spec.ExpectedStatus {
		return Result{
			Passed:    false,
			Message:   fmt.Sprintf("status is %s, expected %s", snap.Status, spec.ExpectedStatus),
			CheckedAt: time.Now(),
		}
	}

	if spec.Metric != "" {
		reading, ok := snap.Metrics[spec.Metric]
		if !ok {
			return Result{
				Passed:    false,
				Message:   fmt.Sprintf("metric %s missing from snapshot", spec.Metric),
				CheckedAt: time.Now(),
			}
		}
		if !spec.Operator.Compare(reading, spec.Value) {
			return Result{
				Passed:    false,
				Message:   fmt.Sprintf("%s is %.1f, want %s %.1f", spec.Metric, reading, spec.Operator, spec.Value),
				CheckedAt: time.Now(),
			}
		}
	}

	return Result{
		Passed:    true,
		Message:   fmt.Sprintf("target %s verified (status %s)", targetID, snap.Status),
		CheckedAt: time.Now(),
	}
}
