package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/events"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/log"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/metrics"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/state"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/storage"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/threshold"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// Source provides fleet snapshots. A failing source fails the whole poll
// cycle; the next tick simply retries.
type Source interface {
	Snapshots(ctx context.Context) ([]types.TargetSnapshot, error)
	Snapshot(ctx context.Context, targetID string) (*types.TargetSnapshot, error)
}

// Sink receives detections. Submission must not block the poll path.
type Sink interface {
	SubmitStateChange(change types.StateChange)
	SubmitViolation(v types.ThresholdViolation)
}

// Config holds poll cadences
type Config struct {
	StateInterval  time.Duration
	MetricInterval time.Duration
	SweepInterval  time.Duration
	Retention      time.Duration
}

// Poller drives the two detection loops and the audit retention sweep.
// Each tick is isolated: an error or panic in one cycle is logged and the
// next tick runs normally.
type Poller struct {
	cfg       Config
	source    Source
	tracker   *state.Tracker
	evaluator *threshold.Evaluator
	sink      Sink
	store     storage.Store
	broker    *events.Broker

	stopCh chan struct{}
	doneCh chan struct{}
	logger zerolog.Logger
}

// New creates a poller
func New(cfg Config, source Source, tracker *state.Tracker, evaluator *threshold.Evaluator, sink Sink, store storage.Store, broker *events.Broker) *Poller {
	if cfg.StateInterval <= 0 {
		cfg.StateInterval = 10 * time.Second
	}
	if cfg.MetricInterval <= 0 {
		cfg.MetricInterval = 30 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	return &Poller{
		cfg:       cfg,
		source:    source,
		tracker:   tracker,
		evaluator: evaluator,
		sink:      sink,
		store:     store,
		broker:    broker,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		logger:    log.WithComponent("poller"),
	}
}

// Prime performs the initial poll and seeds the state tracker without
// emitting any events. Crash-looping on detections for pre-existing state
// is exactly what this avoids.
func (p *Poller) Prime(ctx context.Context) error {
	snapshots, err := p.source.Snapshots(ctx)
	if err != nil {
		return err
	}
	p.tracker.RecordInitialSnapshot(snapshots)
	return nil
}

// Start launches the poll loops
func (p *Poller) Start() {
	go p.run()
}

// Stop stops the poll loops and waits for the current tick to finish
func (p *Poller) Stop() {
	close(p.stopCh)
	<-p.doneCh
}

func (p *Poller) run() {
	defer close(p.doneCh)

	stateTicker := time.NewTicker(p.cfg.StateInterval)
	defer stateTicker.Stop()
	metricTicker := time.NewTicker(p.cfg.MetricInterval)
	defer metricTicker.Stop()
	sweepTicker := time.NewTicker(p.cfg.SweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-stateTicker.C:
			p.safeTick("state", p.stateTick)
		case <-metricTicker.C:
			p.safeTick("metric", p.metricTick)
		case <-sweepTicker.C:
			p.safeTick("sweep", p.sweepTick)
		case <-p.stopCh:
			return
		}
	}
}

// safeTick runs one cycle with panic isolation so a bad tick never kills
// the poll loop
func (p *Poller) safeTick(name string, tick func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PollErrors.WithLabelValues(name).Inc()
			p.logger.Error().Str("poller", name).Interface("panic", r).Msg("panic during poll tick")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	tick(ctx)
}

func (p *Poller) stateTick(ctx context.Context) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PollDuration.WithLabelValues("state"))

	snapshots, err := p.source.Snapshots(ctx)
	if err != nil {
		metrics.PollErrors.WithLabelValues("state").Inc()
		metrics.UpdateComponent("poller", false, err.Error())
		p.logger.Error().Err(err).Msg("state poll failed")
		return
	}
	metrics.UpdateComponent("poller", true, "polling")

	changes := p.tracker.Evaluate(snapshots)
	for _, change := range changes {
		p.logger.Info().
			Str("target_id", change.TargetID).
			Str("from", string(change.FromStatus)).
			Str("to", string(change.ToStatus)).
			Str("condition", string(change.ConditionType)).
			Msg("state change detected")
		p.sink.SubmitStateChange(change)
	}
}

func (p *Poller) metricTick(ctx context.Context) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PollDuration.WithLabelValues("metric"))

	snapshots, err := p.source.Snapshots(ctx)
	if err != nil {
		metrics.PollErrors.WithLabelValues("metric").Inc()
		p.logger.Error().Err(err).Msg("metric poll failed")
		return
	}

	violations, recoveries := p.evaluator.Evaluate(snapshots)

	for _, v := range violations {
		metrics.ThresholdViolations.WithLabelValues(string(v.Rule.Condition)).Inc()
		p.broker.Publish(&events.Event{
			Type:    events.EventThresholdViolated,
			Message: v.Rule.Metric,
			Metadata: map[string]string{
				"target_id": v.TargetID,
				"condition": string(v.Rule.Condition),
			},
		})
		p.sink.SubmitViolation(v)
	}

	for _, r := range recoveries {
		p.logger.Info().
			Str("target_id", r.TargetID).
			Str("condition", string(r.Condition)).
			Msg("threshold violation cleared")
		p.broker.Publish(&events.Event{
			Type:    events.EventThresholdRecovered,
			Message: "violation cleared",
			Metadata: map[string]string{
				"target_id": r.TargetID,
				"condition": string(r.Condition),
			},
		})
	}
}

func (p *Poller) sweepTick(ctx context.Context) {
	removed, err := p.store.CleanupAuditOlderThan(p.cfg.Retention)
	if err != nil {
		p.logger.Error().Err(err).Msg("audit retention sweep failed")
		return
	}
	if removed > 0 {
		p.logger.Info().Int("removed", removed).Msg("audit retention sweep completed")
	}
}
