// Package runbook holds the static declarative table mapping conditions to
// corrective actions, their verification checks, and timing constraints.
package runbook

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// VerifySpec describes how to confirm a runbook's action worked: re-poll
// the target after Delay and check the expected status and/or a metric
// predicate. Pure data; the actual check lives in pkg/verify.
type VerifySpec struct {
	ExpectedStatus types.TargetStatus
	Metric         string
	Operator       types.Operator
	Value          float64
	Delay          time.Duration
}

// Runbook maps a trigger condition to a corrective action. Args values may
// contain {{target}} and {{node}} placeholders expanded at dispatch time.
type Runbook struct {
	ID               string
	Trigger          types.ConditionType
	MinAutonomyLevel types.AutonomyLevel
	Action           string
	Args             map[string]string
	Verify           VerifySpec
	Cooldown         time.Duration
}

// Registry is the lookup table from condition type to runbook
type Registry struct {
	byTrigger map[types.ConditionType]*Runbook
}

// NewRegistry builds a registry, rejecting duplicate triggers
func NewRegistry(runbooks []*Runbook) (*Registry, error) {
	byTrigger := make(map[types.ConditionType]*Runbook, len(runbooks))
	for _, rb := range runbooks {
		if rb.ID == "" || rb.Trigger == "" || rb.Action == "" {
			return nil, fmt.Errorf("runbook %q: id, trigger and action are required", rb.ID)
		}
		if !rb.MinAutonomyLevel.Valid() {
			return nil, fmt.Errorf("runbook %q: invalid autonomy level %d", rb.ID, rb.MinAutonomyLevel)
		}
		if _, exists := byTrigger[rb.Trigger]; exists {
			return nil, fmt.Errorf("duplicate runbook for trigger %s", rb.Trigger)
		}
		byTrigger[rb.Trigger] = rb
	}
	return &Registry{byTrigger: byTrigger}, nil
}

// Find returns the runbook for a condition, or nil when the condition has
// no safe automated fix. The engine treats nil as a silent no-op.
func (r *Registry) Find(condition types.ConditionType) *Runbook {
	return r.byTrigger[condition]
}

// Len returns the number of registered runbooks
func (r *Registry) Len() int {
	return len(r.byTrigger)
}

// ExpandArgs substitutes {{target}} and {{node}} placeholders. The input
// map is not modified.
func ExpandArgs(args map[string]string, targetID, node string) map[string]string {
	expanded := make(map[string]string, len(args))
	replacer := strings.NewReplacer("{{target}}", targetID, "{{node}}", node)
	for k, v := range args {
		expanded[k] = replacer.Replace(v)
	}
	return expanded
}

// Defaults returns the compiled-in runbook table. Note that disk-high has
// no entry on purpose: a warning-level disk condition has no safe
// automated fix and only surfaces through events.
func Defaults() []*Runbook {
	return []*Runbook{
		{
			ID:               "rb-vm-restart",
			Trigger:          types.ConditionVMStopped,
			MinAutonomyLevel: types.AutonomyActAndReport,
			Action:           "vm.start",
			Args:             map[string]string{"vm": "{{target}}", "node": "{{node}}"},
			Verify: VerifySpec{
				ExpectedStatus: types.TargetStatusRunning,
				Delay:          15 * time.Second,
			},
			Cooldown: time.Minute,
		},
		{
			ID:               "rb-vm-reset",
			Trigger:          types.ConditionVMError,
			MinAutonomyLevel: types.AutonomyActAndReport,
			Action:           "vm.reset",
			Args:             map[string]string{"vm": "{{target}}", "node": "{{node}}"},
			Verify: VerifySpec{
				ExpectedStatus: types.TargetStatusRunning,
				Delay:          30 * time.Second,
			},
			Cooldown: 2 * time.Minute,
		},
		{
			ID:               "rb-disk-purge",
			Trigger:          types.ConditionDiskCritical,
			MinAutonomyLevel: types.AutonomyActAndReport,
			Action:           "disk.purge-logs",
			Args:             map[string]string{"target": "{{target}}", "node": "{{node}}"},
			Verify: VerifySpec{
				Metric:   "disk_percent",
				Operator: types.OpLess,
				Value:    95,
				Delay:    20 * time.Second,
			},
			Cooldown: 5 * time.Minute,
		},
	}
}

// yamlRunbook is the file representation; durations are strings like "15s"
type yamlRunbook struct {
	ID               string            `yaml:"id"`
	Trigger          string            `yaml:"trigger"`
	MinAutonomyLevel int               `yaml:"minAutonomyLevel"`
	Action           string            `yaml:"action"`
	Args             map[string]string `yaml:"args"`
	Verify           struct {
		ExpectedStatus string  `yaml:"expectedStatus"`
		Metric         string  `yaml:"metric"`
		Operator       string  `yaml:"operator"`
		Value          float64 `yaml:"value"`
		Delay          string  `yaml:"delay"`
	} `yaml:"verify"`
	Cooldown string `yaml:"cooldown"`
}

// LoadFile reads runbooks from a YAML file
func LoadFile(path string) ([]*Runbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read runbooks file: %w", err)
	}

	var doc struct {
		Runbooks []yamlRunbook `yaml:"runbooks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse runbooks file: %w", err)
	}

	runbooks := make([]*Runbook, 0, len(doc.Runbooks))
	for _, y := range doc.Runbooks {
		rb := &Runbook{
			ID:               y.ID,
			Trigger:          types.ConditionType(y.Trigger),
			MinAutonomyLevel: types.AutonomyLevel(y.MinAutonomyLevel),
			Action:           y.Action,
			Args:             y.Args,
			Verify: VerifySpec{
				ExpectedStatus: types.TargetStatus(y.Verify.ExpectedStatus),
				Metric:         y.Verify.Metric,
				Operator:       types.Operator(y.Verify.Operator),
				Value:          y.Verify.Value,
			},
		}
		if y.Verify.Delay != "" {
			rb.Verify.Delay, err = time.ParseDuration(y.Verify.Delay)
			if err != nil {
				return nil, fmt.Errorf("runbook %q: bad verify delay: %w", y.ID, err)
			}
		}
		if y.Cooldown != "" {
			rb.Cooldown, err = time.ParseDuration(y.Cooldown)
			if err != nil {
				return nil, fmt.Errorf("runbook %q: bad cooldown: %w", y.ID, err)
			}
		}
		runbooks = append(runbooks, rb)
	}
	return runbooks, nil
}
