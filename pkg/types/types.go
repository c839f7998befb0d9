package types

import (
	"time"
)

// TargetKind identifies what sort of entity a target is
type TargetKind string

const (
	TargetKindVM      TargetKind = "vm"
	TargetKindNode    TargetKind = "node"
	TargetKindService TargetKind = "service"
)

// TargetStatus represents the observed status of a target
type TargetStatus string

const (
	TargetStatusRunning TargetStatus = "running"
	TargetStatusStopped TargetStatus = "stopped"
	TargetStatusError   TargetStatus = "error"
	TargetStatusReady   TargetStatus = "ready"
	TargetStatusDown    TargetStatus = "down"
	TargetStatusUnknown TargetStatus = "unknown"
)

// TargetSnapshot is a point-in-time view of one target as read from the
// cluster status source. Snapshots are not retained beyond one evaluation
// cycle except inside the state tracker's memory.
type TargetSnapshot struct {
	TargetID   string             `json:"targetId"`
	Kind       TargetKind         `json:"kind"`
	Node       string             `json:"node"`
	Status     TargetStatus       `json:"status"`
	Metrics    map[string]float64 `json:"metrics,omitempty"` // e.g. "disk_percent" -> 96.0
	ObservedAt time.Time          `json:"observedAt"`
}

// ConditionType classifies a detected adverse condition
type ConditionType string

const (
	ConditionVMStopped    ConditionType = "vm-stopped"
	ConditionVMError      ConditionType = "vm-error"
	ConditionNodeDown     ConditionType = "node-down"
	ConditionDiskCritical ConditionType = "disk-critical"
	ConditionDiskHigh     ConditionType = "disk-high"
	ConditionMemoryHigh   ConditionType = "memory-high"
	ConditionCPUHigh      ConditionType = "cpu-high"
)

// StateChange is a meaningful status transition detected by the state
// tracker (e.g. a VM going running -> stopped)
type StateChange struct {
	ConditionType ConditionType
	TargetID      string
	Node          string
	FromStatus    TargetStatus
	ToStatus      TargetStatus
	DetectedAt    time.Time
}

// Severity ranks threshold rules; higher severities are evaluated first
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityWarning  Severity = "warning"
)

// Rank returns the numeric ordering of a severity (higher = more severe)
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Operator is a comparison operator in a threshold rule
type Operator string

const (
	OpGreaterOrEqual Operator = ">="
	OpGreater        Operator = ">"
	OpLessOrEqual    Operator = "<="
	OpLess           Operator = "<"
)

// Compare applies the operator to a reading and a rule value
func (o Operator) Compare(reading, value float64) bool {
	switch o {
	case OpGreaterOrEqual:
		return reading >= value
	case OpGreater:
		return reading > value
	case OpLessOrEqual:
		return reading <= value
	case OpLess:
		return reading < value
	default:
		return false
	}
}

// ThresholdRule matches a metric reading against a bound. Rules for the
// same metric are held in severity-descending order; the first satisfied
// rule wins, so a single reading never fires two rules.
type ThresholdRule struct {
	Metric    string        `yaml:"metric"`
	Operator  Operator      `yaml:"operator"`
	Value     float64       `yaml:"value"`
	Severity  Severity      `yaml:"severity"`
	Condition ConditionType `yaml:"condition"`
}

// ThresholdViolation is the onset of a rule match for one target
type ThresholdViolation struct {
	Rule       ThresholdRule
	TargetID   string
	Node       string
	Reading    float64
	DetectedAt time.Time
}

// ThresholdRecovery is emitted when a previously active violation clears
type ThresholdRecovery struct {
	Condition ConditionType
	TargetID  string
	Node      string
	ClearedAt time.Time
}

// AutonomyLevel controls how much the system may act without a human
type AutonomyLevel int

const (
	AutonomyObserve      AutonomyLevel = 0 // watch only, never act
	AutonomyAlert        AutonomyLevel = 1 // notify, never act
	AutonomyRecommend    AutonomyLevel = 2 // propose actions, never act
	AutonomyActAndReport AutonomyLevel = 3 // act and notify
	AutonomyActSilently  AutonomyLevel = 4 // act without routine notifications
)

// Valid reports whether the level is within the defined 0-4 range
func (l AutonomyLevel) Valid() bool {
	return l >= AutonomyObserve && l <= AutonomyActSilently
}

func (l AutonomyLevel) String() string {
	switch l {
	case AutonomyObserve:
		return "observe"
	case AutonomyAlert:
		return "alert"
	case AutonomyRecommend:
		return "recommend"
	case AutonomyActAndReport:
		return "act-and-report"
	case AutonomyActSilently:
		return "act-silently"
	default:
		return "unknown"
	}
}

// Incident is one addressable adverse condition. Key is the stable
// deduplication and rate-limit identity: conditionType + ":" + targetID.
type Incident struct {
	ID            string        `json:"id"`
	Key           string        `json:"key"`
	ConditionType ConditionType `json:"conditionType"`
	TargetID      string        `json:"targetId"`
	Node          string        `json:"node,omitempty"`
	DetectedAt    time.Time     `json:"detectedAt"`
}

// IncidentKey builds the stable incident key for a condition and target
func IncidentKey(condition ConditionType, targetID string) string {
	return string(condition) + ":" + targetID
}

// ExecutionResult is returned by the external action execution capability
type ExecutionResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuditResult is the terminal outcome recorded for one processing pass
type AuditResult string

const (
	AuditResultSuccess   AuditResult = "success"
	AuditResultFailure   AuditResult = "failure"
	AuditResultBlocked   AuditResult = "blocked"
	AuditResultEscalated AuditResult = "escalated"
)

// AuditRecord is the durable, append-only record of one attempted action.
// The audit log is the sole source of truth for historical attempt counts.
type AuditRecord struct {
	ID                 string            `json:"id"`
	Timestamp          time.Time         `json:"timestamp"`
	IncidentKey        string            `json:"incidentKey"`
	IncidentID         string            `json:"incidentId"`
	RunbookID          string            `json:"runbookId,omitempty"`
	Action             string            `json:"action,omitempty"`
	ActionArgs         map[string]string `json:"actionArgs,omitempty"`
	Result             AuditResult       `json:"result"`
	BlockReason        string            `json:"blockReason,omitempty"`
	VerificationResult string            `json:"verificationResult,omitempty"`
	AutonomyLevel      AutonomyLevel     `json:"autonomyLevel"`
	AttemptNumber      int               `json:"attemptNumber"`
	Escalated          bool              `json:"escalated"`
	Notified           bool              `json:"notified"`
}

// Executed reports whether this record represents a dispatched action (as
// opposed to a guardrail block); only executed attempts count toward the
// rate-limit window.
func (r *AuditRecord) Executed() bool {
	return r.Result != AuditResultBlocked
}
