// Package threshold matches metric readings against an ordered rule set
// and deduplicates violations so only the onset of a condition fires.
package threshold

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/log"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// Evaluator checks snapshots against threshold rules. For each metric the
// rules are held severity-descending; the first satisfied rule determines
// the condition, so a 96% disk reading classifies as CRITICAL and never
// also as HIGH. An active set keyed by target and metric suppresses
// re-emission while a condition persists.
//
// Like the state tracker, the evaluator is only touched from the polling
// path and needs no locking.
type Evaluator struct {
	rules  map[string][]types.ThresholdRule // metric -> rules, severity descending
	active map[activeKey]types.ConditionType
	nodes  map[activeKey]string // node of the target when the violation fired
	logger zerolog.Logger
}

type activeKey struct {
	targetID string
	metric   string
}

// NewEvaluator creates an evaluator from a rule list. Rules are grouped by
// metric and sorted severity-descending (ties broken by bound tightness).
func NewEvaluator(rules []types.ThresholdRule) *Evaluator {
	byMetric := make(map[string][]types.ThresholdRule)
	for _, rule := range rules {
		byMetric[rule.Metric] = append(byMetric[rule.Metric], rule)
	}
	for metric := range byMetric {
		ordered := byMetric[metric]
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].Severity.Rank() != ordered[j].Severity.Rank() {
				return ordered[i].Severity.Rank() > ordered[j].Severity.Rank()
			}
			return ordered[i].Value > ordered[j].Value
		})
		byMetric[metric] = ordered
	}

	return &Evaluator{
		rules:  byMetric,
		active: make(map[activeKey]types.ConditionType),
		nodes:  make(map[activeKey]string),
		logger: log.WithComponent("threshold"),
	}
}

// Evaluate classifies every metric reading in the snapshots. It returns
// new violations (onsets only) and recoveries for previously active
// violations that have cleared.
func (e *Evaluator) Evaluate(snapshots []types.TargetSnapshot) ([]types.ThresholdViolation, []types.ThresholdRecovery) {
	now := time.Now()
	var violations []types.ThresholdViolation
	var recoveries []types.ThresholdRecovery

	seen := make(map[activeKey]bool)

	for _, snap := range snapshots {
		for metric, reading := range snap.Metrics {
			rules, ok := e.rules[metric]
			if !ok {
				continue
			}
			key := activeKey{targetID: snap.TargetID, metric: metric}
			seen[key] = true

			matched, found := firstMatch(rules, reading)
			previous, wasActive := e.active[key]

			switch {
			case found && (!wasActive || previous != matched.Condition):
				if wasActive {
					// Condition changed (e.g. HIGH worsened to CRITICAL):
					// the old one is recorded as cleared before the new
					// onset fires.
					recoveries = append(recoveries, types.ThresholdRecovery{
						Condition: previous,
						TargetID:  snap.TargetID,
						Node:      snap.Node,
						ClearedAt: now,
					})
				}
				e.active[key] = matched.Condition
				e.nodes[key] = snap.Node
				e.logger.Warn().
					Str("target_id", snap.TargetID).
					Str("metric", metric).
					Float64("reading", reading).
					Str("condition", string(matched.Condition)).
					Str("severity", string(matched.Severity)).
					Msg("threshold violated")
				violations = append(violations, types.ThresholdViolation{
					Rule:       matched,
					TargetID:   snap.TargetID,
					Node:       snap.Node,
					Reading:    reading,
					DetectedAt: now,
				})

			case !found && wasActive:
				delete(e.active, key)
				delete(e.nodes, key)
				e.logger.Info().
					Str("target_id", snap.TargetID).
					Str("metric", metric).
					Float64("reading", reading).
					Str("condition", string(previous)).
					Msg("threshold recovered")
				recoveries = append(recoveries, types.ThresholdRecovery{
					Condition: previous,
					TargetID:  snap.TargetID,
					Node:      snap.Node,
					ClearedAt: now,
				})
			}
			// found && still the same condition: suppressed, no re-emission
		}
	}

	// Targets that vanished from the poll are cleared silently; a recovery
	// claim needs an actual reading.
	for key := range e.active {
		if !seen[key] {
			delete(e.active, key)
			delete(e.nodes, key)
		}
	}

	return violations, recoveries
}

// ActiveCount returns the number of currently active violations
func (e *Evaluator) ActiveCount() int {
	return len(e.active)
}

func firstMatch(rules []types.ThresholdRule, reading float64) (types.ThresholdRule, bool) {
	for _, rule := range rules {
		if rule.Operator.Compare(reading, rule.Value) {
			return rule, true
		}
	}
	return types.ThresholdRule{}, false
}

// DefaultRules returns the compiled-in rule set
func DefaultRules() []types.ThresholdRule {
	return []types.ThresholdRule{
		{Metric: "disk_percent", Operator: types.OpGreaterOrEqual, Value: 95, Severity: types.SeverityCritical, Condition: types.ConditionDiskCritical},
		{Metric: "disk_percent", Operator: types.OpGreaterOrEqual, Value: 90, Severity: types.SeverityHigh, Condition: types.ConditionDiskHigh},
		{Metric: "memory_percent", Operator: types.OpGreaterOrEqual, Value: 90, Severity: types.SeverityHigh, Condition: types.ConditionMemoryHigh},
		{Metric: "cpu_percent", Operator: types.OpGreaterOrEqual, Value: 95, Severity: types.SeverityHigh, Condition: types.ConditionCPUHigh},
	}
}

// LoadRules reads threshold rules from a YAML file
func LoadRules(path string) ([]types.ThresholdRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var doc struct {
		Rules []types.ThresholdRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	for i, rule := range doc.Rules {
		if rule.Metric == "" || rule.Condition == "" {
			return nil, fmt.Errorf("rule %d: metric and condition are required", i)
		}
	}
	return doc.Rules, nil
}
