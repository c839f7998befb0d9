package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/events"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/guardrail"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/prefs"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/runbook"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/storage"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/verify"
)

type fakeExecutor struct {
	mu      sync.Mutex
	calls   int
	lastArg map[string]string
	result  *types.ExecutionResult
	err     error
	panics  bool
}

func (f *fakeExecutor) Execute(ctx context.Context, action string, args map[string]string, approvalImplicit bool) (*types.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastArg = args
	if !approvalImplicit {
		return nil, errors.New("interactive approval not available")
	}
	if f.panics {
		panic("backend exploded")
	}
	return f.result, f.err
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu          sync.Mutex
	standard    int
	escalations int
	failAll     bool
}

func (f *fakeNotifier) SendStandard(ctx context.Context, incident types.Incident, rec *types.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("webhook down")
	}
	f.standard++
	return nil
}

func (f *fakeNotifier) SendEscalation(ctx context.Context, incident types.Incident, rec *types.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("webhook down")
	}
	f.escalations++
	return nil
}

type fakeStatusSource struct {
	mu     sync.Mutex
	status types.TargetStatus
}

func (f *fakeStatusSource) Snapshot(ctx context.Context, targetID string) (*types.TargetSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &types.TargetSnapshot{
		TargetID:   targetID,
		Kind:       types.TargetKindVM,
		Status:     f.status,
		ObservedAt: time.Now(),
	}, nil
}

func (f *fakeStatusSource) setStatus(status types.TargetStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

type harness struct {
	engine   *Engine
	store    storage.Store
	prefs    *prefs.Prefs
	limiter  *guardrail.RateLimiter
	blast    *guardrail.BlastRadius
	executor *fakeExecutor
	notifier *fakeNotifier
	source   *fakeStatusSource
}

func testRunbooks() []*runbook.Runbook {
	return []*runbook.Runbook{{
		ID:               "rb-vm-restart",
		Trigger:          types.ConditionVMStopped,
		MinAutonomyLevel: types.AutonomyActAndReport,
		Action:           "vm.start",
		Args:             map[string]string{"vm": "{{target}}"},
		Verify:           runbook.VerifySpec{ExpectedStatus: types.TargetStatusRunning},
	}}
}

func newHarness(t *testing.T, store storage.Store) *harness {
	t.Helper()
	if store == nil {
		var err error
		bolt, err := storage.NewBoltStore(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { bolt.Close() })
		store = bolt
	}

	p := prefs.New(store)
	require.NoError(t, p.SetAutonomyLevel(types.AutonomyActAndReport))

	limiter := guardrail.NewRateLimiter(3, time.Hour)
	blast := guardrail.NewBlastRadius(10 * time.Minute)
	chain := guardrail.NewChain(p, limiter, blast)

	registry, err := runbook.NewRegistry(testRunbooks())
	require.NoError(t, err)

	executor := &fakeExecutor{result: &types.ExecutionResult{Success: true, Output: "started"}}
	notifier := &fakeNotifier{}
	source := &fakeStatusSource{status: types.TargetStatusRunning}

	eng := New(Config{EscalationThreshold: 3, NotifyCooldown: 5 * time.Minute}, Deps{
		Registry: registry,
		Chain:    chain,
		Limiter:  limiter,
		Blast:    blast,
		Prefs:    p,
		Executor: executor,
		Verifier: verify.NewChecker(source, time.Second),
		Store:    store,
		Notifier: notifier,
		Broker:   events.NewBroker(),
	})
	eng.sleep = func(time.Duration) {} // no real verify delays in tests

	return &harness{
		engine:   eng,
		store:    store,
		prefs:    p,
		limiter:  limiter,
		blast:    blast,
		executor: executor,
		notifier: notifier,
		source:   source,
	}
}

func vmIncident() types.Incident {
	return types.Incident{
		ID:            "inc-1",
		Key:           "vm-stopped:vm-1",
		ConditionType: types.ConditionVMStopped,
		TargetID:      "vm-1",
		Node:          "node-1",
		DetectedAt:    time.Now(),
	}
}

// TestScenarioSuccessfulRemediation: guardrails pass, the action runs with
// implicit approval, verification sees the VM running, the audit record is
// success and exactly one standard notification goes out
func TestScenarioSuccessfulRemediation(t *testing.T) {
	h := newHarness(t, nil)

	h.engine.process(vmIncident())

	assert.Equal(t, 1, h.executor.callCount())
	assert.Equal(t, "vm-1", h.executor.lastArg["vm"], "placeholder args expanded at dispatch")

	records, err := h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, types.AuditResultSuccess, rec.Result)
	assert.Equal(t, 1, rec.AttemptNumber)
	assert.True(t, rec.Notified)
	assert.False(t, rec.Escalated)

	assert.Equal(t, 1, h.notifier.standard)
	assert.Equal(t, 0, h.notifier.escalations)
	assert.Equal(t, 0, h.blast.ActiveCount(), "blast radius released")
}

// TestScenarioEscalationAfterThreeFailures: three failed attempts inside
// the window escalate exactly once; a fourth detection is blocked by the
// rate limiter and cannot succeed
func TestScenarioEscalationAfterThreeFailures(t *testing.T) {
	h := newHarness(t, nil)
	h.source.setStatus(types.TargetStatusStopped) // verification always fails

	for i := 0; i < 3; i++ {
		h.engine.process(vmIncident())
	}

	records, err := h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, types.AuditResultFailure, records[0].Result)
	assert.Equal(t, types.AuditResultFailure, records[1].Result)
	assert.Equal(t, types.AuditResultEscalated, records[2].Result)
	assert.True(t, records[2].Escalated)
	assert.Equal(t, 3, records[2].AttemptNumber)
	assert.Equal(t, 1, h.notifier.escalations, "exactly one escalation notification")

	// Fourth detection: rate-limited before dispatch
	h.source.setStatus(types.TargetStatusRunning) // even a would-be success
	h.engine.process(vmIncident())

	assert.Equal(t, 3, h.executor.callCount(), "no fourth dispatch")
	records, _ = h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	require.Len(t, records, 4)
	assert.Equal(t, types.AuditResultBlocked, records[3].Result)
	assert.Contains(t, records[3].BlockReason, "exhausted")
	assert.Equal(t, 1, h.notifier.escalations, "escalation does not re-fire")
}

// raceStore makes the kill switch read inactive on the first read and
// active on every later one, simulating an operator toggling the switch
// between the guardrail pass and dispatch
type raceStore struct {
	storage.Store
	mu    sync.Mutex
	reads int
}

func (r *raceStore) GetPreference(key string) (string, bool, error) {
	if key != "killswitch.active" {
		return r.Store.GetPreference(key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if r.reads == 1 {
		return "false", true, nil
	}
	return "true", true, nil
}

// TestScenarioKillSwitchRace: the pre-dispatch re-check catches a kill
// switch toggled after the chain already passed
func TestScenarioKillSwitchRace(t *testing.T) {
	bolt, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	h := newHarness(t, &raceStore{Store: bolt})

	h.engine.process(vmIncident())

	assert.Equal(t, 0, h.executor.callCount(), "action must not dispatch")

	records, err := h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, types.AuditResultBlocked, records[0].Result)
	assert.Contains(t, records[0].BlockReason, "kill switch")
	assert.Equal(t, 0, h.blast.ActiveCount())
}

func TestNoRunbookIsSilentNoOp(t *testing.T) {
	h := newHarness(t, nil)

	h.engine.process(types.Incident{
		ID:            "inc-2",
		Key:           "disk-high:vm-1",
		ConditionType: types.ConditionDiskHigh,
		TargetID:      "vm-1",
	})

	assert.Equal(t, 0, h.executor.callCount())
	records, err := h.store.ListAuditByIncidentKey("disk-high:vm-1")
	require.NoError(t, err)
	assert.Empty(t, records, "no audit row for a condition with no runbook")
}

// TestConcurrentIncidentBlockedByBlastRadius: with a remediation active on
// another target, processing is blocked, and proceeds after release
func TestConcurrentIncidentBlockedByBlastRadius(t *testing.T) {
	h := newHarness(t, nil)
	require.True(t, h.blast.Acquire("vm-other"))

	h.engine.process(vmIncident())
	assert.Equal(t, 0, h.executor.callCount())

	records, _ := h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.AuditResultBlocked, records[0].Result)

	h.blast.Release("vm-other")
	h.engine.process(vmIncident())
	assert.Equal(t, 1, h.executor.callCount())
}

func TestDispatchErrorRecordedAsFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.executor.err = errors.New("connection refused")
	h.executor.result = nil

	h.engine.process(vmIncident())

	records, _ := h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.AuditResultFailure, records[0].Result)
	assert.Contains(t, records[0].VerificationResult, "connection refused")
}

func TestExecutorPanicContained(t *testing.T) {
	h := newHarness(t, nil)
	h.executor.panics = true

	// Must not panic out of process()
	h.engine.process(vmIncident())

	records, _ := h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.AuditResultFailure, records[0].Result)
	assert.Contains(t, records[0].VerificationResult, "panic")
	assert.Equal(t, 0, h.blast.ActiveCount(), "blast radius released on panic")
}

func TestStandardNotificationCooldown(t *testing.T) {
	h := newHarness(t, nil)

	h.engine.process(vmIncident())
	h.engine.process(vmIncident())

	assert.Equal(t, 1, h.notifier.standard, "second success within cooldown stays quiet")

	records, _ := h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	require.Len(t, records, 2)
	assert.True(t, records[0].Notified)
	assert.False(t, records[1].Notified)
}

func TestActSilentlySkipsStandardNotification(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.prefs.SetAutonomyLevel(types.AutonomyActSilently))

	h.engine.process(vmIncident())

	assert.Equal(t, 1, h.executor.callCount())
	assert.Equal(t, 0, h.notifier.standard)

	records, _ := h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.AuditResultSuccess, records[0].Result)
	assert.False(t, records[0].Notified)
}

func TestNotificationFailureSwallowed(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier.failAll = true

	h.engine.process(vmIncident())

	records, _ := h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.AuditResultSuccess, records[0].Result, "delivery failure does not fail the remediation")
	assert.False(t, records[0].Notified)
}

func TestRunbookCooldownSkipsSilently(t *testing.T) {
	h := newHarness(t, nil)
	registry, err := runbook.NewRegistry([]*runbook.Runbook{{
		ID:               "rb-vm-restart",
		Trigger:          types.ConditionVMStopped,
		MinAutonomyLevel: types.AutonomyActAndReport,
		Action:           "vm.start",
		Verify:           runbook.VerifySpec{ExpectedStatus: types.TargetStatusRunning},
		Cooldown:         time.Minute,
	}})
	require.NoError(t, err)
	h.engine.deps.Registry = registry

	h.engine.process(vmIncident())
	h.engine.process(vmIncident())

	assert.Equal(t, 1, h.executor.callCount(), "second detection inside cooldown skipped")
	records, _ := h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	assert.Len(t, records, 1)
}

func TestSubmitNonBlockingWhenQueueFull(t *testing.T) {
	h := newHarness(t, nil)
	eng := New(Config{QueueSize: 1}, h.engine.deps)

	assert.True(t, eng.Submit(vmIncident()))
	assert.False(t, eng.Submit(vmIncident()), "full queue drops instead of blocking the poll path")
	assert.Equal(t, 1, eng.QueueDepth())
}

func TestStartStopProcessesQueued(t *testing.T) {
	h := newHarness(t, nil)

	h.engine.Start()
	h.engine.SubmitStateChange(types.StateChange{
		ConditionType: types.ConditionVMStopped,
		TargetID:      "vm-1",
		Node:          "node-1",
		FromStatus:    types.TargetStatusRunning,
		ToStatus:      types.TargetStatusStopped,
		DetectedAt:    time.Now(),
	})

	require.Eventually(t, func() bool {
		return h.executor.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	h.engine.Stop()

	records, _ := h.store.ListAuditByIncidentKey("vm-stopped:vm-1")
	require.Len(t, records, 1)
	assert.Equal(t, types.AuditResultSuccess, records[0].Result)
}
