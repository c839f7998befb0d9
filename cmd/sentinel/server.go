package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/api"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/config"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/engine"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/events"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/executor"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/guardrail"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/log"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/metrics"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/notify"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/poller"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/prefs"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/runbook"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/state"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/storage"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/threshold"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/verify"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the remediation daemon",
	Long: `Run the sentinel daemon: the detection pollers, the execution engine
and the HTTP control surface. The cluster status source and the action
execution backend are external services configured in sentinel.yaml.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().String("config", "sentinel.yaml", "Path to the configuration file")
}

func runServer(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	logger := log.WithComponent("main")
	metrics.SetVersion(Version)

	if cfg.Poll.SourceURL == "" {
		return fmt.Errorf("poll.sourceUrl must be configured")
	}
	if cfg.Executor.URL == "" {
		return fmt.Errorf("executor.url must be configured")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	metrics.RegisterComponent("storage", true, "store open")

	p := prefs.New(store)

	broker := events.NewBroker()
	broker.Start()

	limiter := guardrail.NewRateLimiter(cfg.Guardrails.MaxAttempts, cfg.Guardrails.AttemptWindow.Std())
	if err := limiter.Rehydrate(store); err != nil {
		logger.Warn().Err(err).Msg("rate limiter rehydration failed, starting cold")
	}
	blast := guardrail.NewBlastRadius(cfg.Guardrails.BlastStaleAfter.Std())
	chain := guardrail.NewChain(p, limiter, blast)

	rules := threshold.DefaultRules()
	if cfg.RulesFile != "" {
		if rules, err = threshold.LoadRules(cfg.RulesFile); err != nil {
			return fmt.Errorf("failed to load threshold rules: %w", err)
		}
	}
	evaluator := threshold.NewEvaluator(rules)

	runbooks := runbook.Defaults()
	if cfg.RunbooksFile != "" {
		if runbooks, err = runbook.LoadFile(cfg.RunbooksFile); err != nil {
			return fmt.Errorf("failed to load runbooks: %w", err)
		}
	}
	registry, err := runbook.NewRegistry(runbooks)
	if err != nil {
		return fmt.Errorf("invalid runbook table: %w", err)
	}

	source := poller.NewHTTPSource(cfg.Poll.SourceURL, cfg.Poll.Timeout.Std())
	verifier := verify.NewChecker(source, cfg.Poll.Timeout.Std())
	exec := executor.NewHTTPExecutor(cfg.Executor.URL, cfg.Executor.Timeout.Std())

	var notifier notify.Notifier = notify.NewLogNotifier()
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL)
	}

	eng := engine.New(engine.Config{
		QueueSize:           cfg.Engine.QueueSize,
		EscalationThreshold: cfg.Guardrails.MaxAttempts,
		NotifyCooldown:      cfg.Engine.NotifyCooldown.Std(),
		DispatchTimeout:     cfg.Engine.DispatchTimeout.Std(),
	}, engine.Deps{
		Registry: registry,
		Chain:    chain,
		Limiter:  limiter,
		Blast:    blast,
		Prefs:    p,
		Executor: exec,
		Verifier: verifier,
		Store:    store,
		Notifier: notifier,
		Broker:   broker,
	})
	eng.Start()
	metrics.RegisterComponent("engine", true, "worker started")

	watch := poller.New(poller.Config{
		StateInterval:  cfg.Poll.StateInterval.Std(),
		MetricInterval: cfg.Poll.MetricInterval.Std(),
		SweepInterval:  cfg.Audit.SweepInterval.Std(),
		Retention:      cfg.Audit.Retention.Std(),
	}, source, state.NewTracker(), evaluator, eng, store, broker)

	primeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := watch.Prime(primeCtx); err != nil {
		// Self-heals: the first successful state tick primes silently
		logger.Warn().Err(err).Msg("initial snapshot failed, tracker will prime on first poll")
		metrics.RegisterComponent("poller", false, "waiting for status source")
	} else {
		metrics.RegisterComponent("poller", true, "primed")
	}
	cancel()
	watch.Start()

	apiServer := api.NewServer(p, store, eng, broker)
	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(cfg.APIAddr); err != nil {
			errCh <- fmt.Errorf("control surface error: %w", err)
		}
	}()
	metrics.RegisterComponent("api", true, "listening on "+cfg.APIAddr)

	level, _ := p.AutonomyLevel()
	killSwitch, _ := p.KillSwitchActive()
	logger.Info().
		Str("version", Version).
		Str("autonomy_level", level.String()).
		Bool("kill_switch", killSwitch).
		Int("runbooks", registry.Len()).
		Msg("sentinel daemon running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("shutting down")
	}

	// Stop detection first so nothing new enters the queue, then the
	// engine (finishes the in-flight remediation), then the surfaces.
	watch.Stop()
	eng.Stop()
	apiServer.Stop()
	broker.Stop()

	logger.Info().Msg("shutdown complete")
	return nil
}
