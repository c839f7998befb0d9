package guardrail

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/log"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/prefs"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/runbook"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// Guardrail names, used in block reasons and metrics labels
const (
	GuardrailKillSwitch  = "kill-switch"
	GuardrailRateLimit   = "rate-limit"
	GuardrailBlastRadius = "blast-radius"
	GuardrailAutonomy    = "autonomy-level"
)

// Result is the outcome of a guardrail evaluation. A block is a decision,
// not an error.
type Result struct {
	Allowed   bool
	Guardrail string // which guardrail blocked, empty when allowed
	Reason    string
}

func allowed() Result {
	return Result{Allowed: true}
}

func blocked(guardrail, reason string) Result {
	return Result{Allowed: false, Guardrail: guardrail, Reason: reason}
}

// Chain evaluates the safety guardrails in fixed priority, short-circuiting
// on the first failure: kill switch, rate limiter, blast radius, autonomy
// level. The rate limiter and blast radius are shared with the execution
// engine by reference; the chain itself holds no hidden state.
type Chain struct {
	prefs   *prefs.Prefs
	limiter *RateLimiter
	blast   *BlastRadius
	logger  zerolog.Logger
}

// NewChain creates a guardrail chain
func NewChain(p *prefs.Prefs, limiter *RateLimiter, blast *BlastRadius) *Chain {
	return &Chain{
		prefs:   p,
		limiter: limiter,
		blast:   blast,
		logger:  log.WithComponent("guardrail"),
	}
}

// CheckAll runs the full chain for one incident
func (c *Chain) CheckAll(incident types.Incident, rb *runbook.Runbook) Result {
	if res := c.CheckKillSwitch(); !res.Allowed {
		return c.logBlock(incident, res)
	}

	if !c.limiter.Allow(incident.Key) {
		res := blocked(GuardrailRateLimit, fmt.Sprintf(
			"incident key %s exhausted %d attempts in window, escalating to operator",
			incident.Key, c.limiter.Attempts(incident.Key)))
		return c.logBlock(incident, res)
	}

	if c.blast.Busy() {
		res := blocked(GuardrailBlastRadius, "another remediation is in flight")
		return c.logBlock(incident, res)
	}

	level, err := c.prefs.AutonomyLevel()
	if err != nil {
		// Store unreachable: the conservative default still applies, log it
		c.logger.Warn().Err(err).Msg("preference store unreachable, using default autonomy level")
	}
	if level < rb.MinAutonomyLevel {
		res := blocked(GuardrailAutonomy, fmt.Sprintf(
			"autonomy level %s below runbook minimum %s", level, rb.MinAutonomyLevel))
		return c.logBlock(incident, res)
	}

	return allowed()
}

// CheckKillSwitch evaluates only the kill switch. The engine calls this a
// second time immediately before dispatch to close the race window against
// an operator toggling the switch after the full chain passed.
func (c *Chain) CheckKillSwitch() Result {
	active, err := c.prefs.KillSwitchActive()
	if err != nil {
		// Fail safe: an unreadable switch blocks
		return blocked(GuardrailKillSwitch, fmt.Sprintf("kill switch state unreadable, failing safe: %v", err))
	}
	if active {
		return blocked(GuardrailKillSwitch, "kill switch is active")
	}
	return allowed()
}

// RateLimitExceeded reports whether the key is currently rate-limited,
// without consuming an attempt
func (c *Chain) RateLimitExceeded(key string) bool {
	return !c.limiter.Allow(key)
}

func (c *Chain) logBlock(incident types.Incident, res Result) Result {
	c.logger.Info().
		Str("incident_key", incident.Key).
		Str("guardrail", res.Guardrail).
		Str("reason", res.Reason).
		Msg("remediation blocked")
	return res
}
