package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/events"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/guardrail"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/log"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/metrics"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/notify"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/prefs"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/runbook"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/storage"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/verify"
)

// Executor is the external action execution capability. The implicit
// approval flag signals that guardrail passage substitutes for interactive
// confirmation. Errors are returned, never thrown past the engine.
type Executor interface {
	Execute(ctx context.Context, action string, args map[string]string, approvalImplicit bool) (*types.ExecutionResult, error)
}

// Config holds execution engine tunables
type Config struct {
	QueueSize           int
	EscalationThreshold int
	NotifyCooldown      time.Duration
	DispatchTimeout     time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		QueueSize:           16,
		EscalationThreshold: 3,
		NotifyCooldown:      5 * time.Minute,
		DispatchTimeout:     30 * time.Second,
	}
}

// Deps collects the engine's collaborators. The rate limiter and blast
// radius are the same objects the guardrail chain evaluates.
type Deps struct {
	Registry *runbook.Registry
	Chain    *guardrail.Chain
	Limiter  *guardrail.RateLimiter
	Blast    *guardrail.BlastRadius
	Prefs    *prefs.Prefs
	Executor Executor
	Verifier *verify.Checker
	Store    storage.Store
	Notifier notify.Notifier
	Broker   *events.Broker
}

// Engine processes incidents one at a time through the guardrail chain,
// dispatch, verification, audit and notification. Submission is
// non-blocking: the polling path enqueues and returns immediately.
type Engine struct {
	cfg  Config
	deps Deps

	queue  chan types.Incident
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu           sync.Mutex
	lastNotified map[string]time.Time
	lastExecuted map[string]time.Time

	now    func() time.Time
	sleep  func(time.Duration)
	logger zerolog.Logger
}

// New creates an engine
func New(cfg Config, deps Deps) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.EscalationThreshold <= 0 {
		cfg.EscalationThreshold = DefaultConfig().EscalationThreshold
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = DefaultConfig().DispatchTimeout
	}
	return &Engine{
		cfg:          cfg,
		deps:         deps,
		queue:        make(chan types.Incident, cfg.QueueSize),
		stopCh:       make(chan struct{}),
		lastNotified: make(map[string]time.Time),
		lastExecuted: make(map[string]time.Time),
		now:          time.Now,
		sleep:        time.Sleep,
		logger:       log.WithComponent("engine"),
	}
}

// Start begins the single worker loop. Concurrency is exactly one: the
// queue plus one worker is what enforces one remediation in flight.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
}

// Stop stops the engine after the in-flight incident, if any, finishes
func (e *Engine) Stop() {
	close(e.stopCh)
	e.wg.Wait()
}

// Submit enqueues an incident without blocking. A full queue drops the
// incident; the condition will be re-detected on a later poll.
func (e *Engine) Submit(incident types.Incident) bool {
	select {
	case e.queue <- incident:
		metrics.QueueDepth.Set(float64(len(e.queue)))
		return true
	default:
		metrics.DroppedIncidents.Inc()
		e.logger.Warn().Str("incident_key", incident.Key).Msg("queue full, incident dropped")
		return false
	}
}

// SubmitStateChange converts a state change into an incident and enqueues it
func (e *Engine) SubmitStateChange(change types.StateChange) {
	incident := types.Incident{
		ID:            uuid.New().String(),
		Key:           types.IncidentKey(change.ConditionType, change.TargetID),
		ConditionType: change.ConditionType,
		TargetID:      change.TargetID,
		Node:          change.Node,
		DetectedAt:    change.DetectedAt,
	}
	metrics.IncidentsDetected.WithLabelValues(string(change.ConditionType)).Inc()
	e.publish(events.EventIncidentDetected, incident, fmt.Sprintf(
		"%s: %s went %s -> %s", change.ConditionType, change.TargetID, change.FromStatus, change.ToStatus))
	e.Submit(incident)
}

// SubmitViolation converts a threshold violation into an incident and
// enqueues it
func (e *Engine) SubmitViolation(v types.ThresholdViolation) {
	incident := types.Incident{
		ID:            uuid.New().String(),
		Key:           types.IncidentKey(v.Rule.Condition, v.TargetID),
		ConditionType: v.Rule.Condition,
		TargetID:      v.TargetID,
		Node:          v.Node,
		DetectedAt:    v.DetectedAt,
	}
	metrics.IncidentsDetected.WithLabelValues(string(v.Rule.Condition)).Inc()
	e.publish(events.EventIncidentDetected, incident, fmt.Sprintf(
		"%s: %s %s %s %.1f (reading %.1f)", v.Rule.Condition, v.TargetID, v.Rule.Metric, v.Rule.Operator, v.Rule.Value, v.Reading))
	e.Submit(incident)
}

// ActiveRemediationCount returns how many remediations are in flight
func (e *Engine) ActiveRemediationCount() int {
	return e.deps.Blast.ActiveCount()
}

// QueueDepth returns the number of queued incidents
func (e *Engine) QueueDepth() int {
	return len(e.queue)
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case incident := <-e.queue:
			metrics.QueueDepth.Set(float64(len(e.queue)))
			e.process(incident)
		case <-e.stopCh:
			return
		}
	}
}

// process runs the full pipeline for one incident. Nothing may escape: a
// failure here must never delay the next poll or another incident.
func (e *Engine) process(incident types.Incident) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("incident_key", incident.Key).
				Interface("panic", r).
				Msg("panic while processing incident")
		}
	}()

	logger := e.logger.With().Str("incident_key", incident.Key).Str("target_id", incident.TargetID).Logger()

	rb := e.deps.Registry.Find(incident.ConditionType)
	if rb == nil {
		// No safe automated fix for this condition: silent no-op
		logger.Debug().Str("condition", string(incident.ConditionType)).Msg("no runbook, skipping")
		return
	}

	if e.inCooldown(incident.Key, rb.Cooldown) {
		logger.Debug().Str("runbook", rb.ID).Msg("runbook cooldown active, skipping")
		return
	}

	if res := e.deps.Chain.CheckAll(incident, rb); !res.Allowed {
		e.recordBlocked(incident, rb, res)
		return
	}

	// The operator may have flipped the kill switch since the chain
	// passed; re-read it immediately before dispatch.
	if res := e.deps.Chain.CheckKillSwitch(); !res.Allowed {
		logger.Warn().Msg("kill switch activated between guardrail check and dispatch, aborting")
		e.recordBlocked(incident, rb, res)
		return
	}

	if !e.deps.Blast.Acquire(incident.TargetID) {
		e.recordBlocked(incident, rb, guardrail.Result{
			Allowed:   false,
			Guardrail: guardrail.GuardrailBlastRadius,
			Reason:    "another remediation started first",
		})
		return
	}
	metrics.ActiveRemediations.Set(float64(e.deps.Blast.ActiveCount()))
	defer func() {
		e.deps.Blast.Release(incident.TargetID)
		metrics.ActiveRemediations.Set(float64(e.deps.Blast.ActiveCount()))
	}()

	e.markExecuted(incident.Key)

	args := runbook.ExpandArgs(rb.Args, incident.TargetID, incident.Node)
	logger.Info().Str("runbook", rb.ID).Str("action", rb.Action).Msg("dispatching remediation")
	e.publish(events.EventRemediationStarted, incident, fmt.Sprintf("runbook %s: %s", rb.ID, rb.Action))

	dispatchErr := e.dispatch(rb.Action, args)

	verification := ""
	success := false
	if dispatchErr == nil {
		e.sleep(rb.Verify.Delay)
		vres := e.deps.Verifier.Check(context.Background(), incident.TargetID, rb.Verify)
		verification = vres.Message
		success = vres.Passed
	} else {
		verification = dispatchErr.Error()
	}

	// Every dispatched attempt counts against the window, success or not
	attempt := e.deps.Limiter.Attempts(incident.Key) + 1
	e.deps.Limiter.Record(incident.Key)

	level, _ := e.deps.Prefs.AutonomyLevel()
	rec := &types.AuditRecord{
		ID:                 uuid.New().String(),
		Timestamp:          e.now(),
		IncidentKey:        incident.Key,
		IncidentID:         incident.ID,
		RunbookID:          rb.ID,
		Action:             rb.Action,
		ActionArgs:         args,
		AutonomyLevel:      level,
		AttemptNumber:      attempt,
		VerificationResult: verification,
	}

	if success {
		rec.Result = types.AuditResultSuccess
		logger.Info().Int("attempt", attempt).Msg("remediation verified")
		if level != types.AutonomyActSilently && e.shouldNotify(incident.Key) {
			rec.Notified = e.send(incident, rec, false)
		}
		e.publish(events.EventRemediationResolved, incident, verification)
	} else {
		rec.Result = types.AuditResultFailure
		logger.Warn().Int("attempt", attempt).Str("detail", verification).Msg("remediation failed")
		if attempt >= e.cfg.EscalationThreshold {
			rec.Result = types.AuditResultEscalated
			rec.Escalated = true
			metrics.EscalationsTotal.Inc()
			if e.deps.Limiter.MarkEscalated(incident.Key) {
				// Escalations bypass the standard notification cooldown
				rec.Notified = e.send(incident, rec, true)
			}
			e.publish(events.EventRemediationEscalated, incident, fmt.Sprintf(
				"%d failed attempts, operator intervention required", attempt))
		} else {
			e.publish(events.EventRemediationFailed, incident, verification)
		}
	}

	metrics.RemediationsTotal.WithLabelValues(string(rec.Result)).Inc()
	e.saveAudit(rec)
}

// dispatch invokes the executor, converting panics and backend errors into
// ordinary errors
func (e *Engine) dispatch(action string, args map[string]string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.DispatchTimeout)
	defer cancel()

	result, execErr := e.deps.Executor.Execute(ctx, action, args, true)
	if execErr != nil {
		return fmt.Errorf("dispatch failed: %w", execErr)
	}
	if result == nil {
		return fmt.Errorf("dispatch returned no result")
	}
	if !result.Success {
		if result.Error != "" {
			return fmt.Errorf("action failed: %s", result.Error)
		}
		return fmt.Errorf("action failed")
	}
	return nil
}

func (e *Engine) recordBlocked(incident types.Incident, rb *runbook.Runbook, res guardrail.Result) {
	metrics.GuardrailBlocks.WithLabelValues(res.Guardrail).Inc()
	metrics.RemediationsTotal.WithLabelValues(string(types.AuditResultBlocked)).Inc()

	level, _ := e.deps.Prefs.AutonomyLevel()
	rec := &types.AuditRecord{
		ID:            uuid.New().String(),
		Timestamp:     e.now(),
		IncidentKey:   incident.Key,
		IncidentID:    incident.ID,
		RunbookID:     rb.ID,
		Action:        rb.Action,
		Result:        types.AuditResultBlocked,
		BlockReason:   res.Reason,
		AutonomyLevel: level,
		AttemptNumber: e.deps.Limiter.Attempts(incident.Key),
	}

	// A rate-limit block means the key exhausted its attempts: escalate to
	// the operator, exactly once per window.
	if res.Guardrail == guardrail.GuardrailRateLimit && e.deps.Limiter.MarkEscalated(incident.Key) {
		rec.Escalated = true
		metrics.EscalationsTotal.Inc()
		rec.Notified = e.send(incident, rec, true)
		e.publish(events.EventRemediationEscalated, incident, res.Reason)
	}

	e.publish(events.EventRemediationBlocked, incident, res.Reason)
	e.saveAudit(rec)
}

// send delivers a notification, logging and swallowing failures
func (e *Engine) send(incident types.Incident, rec *types.AuditRecord, escalation bool) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	kind := "standard"
	var err error
	if escalation {
		kind = "escalation"
		err = e.deps.Notifier.SendEscalation(ctx, incident, rec)
	} else {
		err = e.deps.Notifier.SendStandard(ctx, incident, rec)
	}
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
		e.logger.Error().Err(err).Str("kind", kind).Str("incident_key", incident.Key).Msg("notification failed")
		return false
	}
	metrics.NotificationsTotal.WithLabelValues(kind, "sent").Inc()
	return true
}

// shouldNotify applies the standard notification cooldown per incident key
func (e *Engine) shouldNotify(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.lastNotified[key]; ok && e.now().Sub(last) < e.cfg.NotifyCooldown {
		return false
	}
	e.lastNotified[key] = e.now()
	return true
}

func (e *Engine) inCooldown(key string, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	last, ok := e.lastExecuted[key]
	return ok && e.now().Sub(last) < cooldown
}

func (e *Engine) markExecuted(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastExecuted[key] = e.now()
}

func (e *Engine) saveAudit(rec *types.AuditRecord) {
	if err := e.deps.Store.SaveAuditRecord(rec); err != nil {
		e.logger.Error().Err(err).Str("incident_key", rec.IncidentKey).Msg("failed to save audit record")
	}
}

func (e *Engine) publish(eventType events.EventType, incident types.Incident, msg string) {
	e.deps.Broker.Publish(&events.Event{
		Type:    eventType,
		Message: msg,
		Metadata: map[string]string{
			"incident_id":  incident.ID,
			"incident_key": incident.Key,
			"target_id":    incident.TargetID,
			"condition":    string(incident.ConditionType),
		},
	})
}
