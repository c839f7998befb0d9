// Package notify delivers operator notifications. Delivery failures are
// logged and swallowed, never retried: a lost notification must not stall
// or fail the remediation that produced it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/log"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// Notifier sends notifications for remediation outcomes. Standard
// notifications report routine results; escalations demand a human.
type Notifier interface {
	SendStandard(ctx context.Context, incident types.Incident, rec *types.AuditRecord) error
	SendEscalation(ctx context.Context, incident types.Incident, rec *types.AuditRecord) error
}

// message is the wire format posted to the webhook
type message struct {
	Kind     string             `json:"kind"` // "standard" or "escalation"
	Incident types.Incident     `json:"incident"`
	Record   *types.AuditRecord `json:"record"`
	SentAt   time.Time          `json:"sentAt"`
}

// WebhookNotifier posts JSON notifications to a configured URL
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookNotifier creates a webhook notifier with a bounded timeout
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: log.WithComponent("notify"),
	}
}

func (n *WebhookNotifier) SendStandard(ctx context.Context, incident types.Incident, rec *types.AuditRecord) error {
	return n.post(ctx, "standard", incident, rec)
}

func (n *WebhookNotifier) SendEscalation(ctx context.Context, incident types.Incident, rec *types.AuditRecord) error {
	return n.post(ctx, "escalation", incident, rec)
}

func (n *WebhookNotifier) post(ctx context.Context, kind string, incident types.Incident, rec *types.AuditRecord) error {
	body, err := json.Marshal(message{
		Kind:     kind,
		Incident: incident,
		Record:   rec,
		SentAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}

	n.logger.Debug().Str("kind", kind).Str("incident_key", incident.Key).Msg("notification delivered")
	return nil
}

// LogNotifier writes notifications to the log only. Used when no webhook
// is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: log.WithComponent("notify")}
}

func (n *LogNotifier) SendStandard(ctx context.Context, incident types.Incident, rec *types.AuditRecord) error {
	n.logger.Info().
		Str("incident_key", incident.Key).
		Str("result", string(rec.Result)).
		Int("attempt", rec.AttemptNumber).
		Msg("remediation notification")
	return nil
}

func (n *LogNotifier) SendEscalation(ctx context.Context, incident types.Incident, rec *types.AuditRecord) error {
	n.logger.Error().
		Str("incident_key", incident.Key).
		Str("result", string(rec.Result)).
		Int("attempt", rec.AttemptNumber).
		Msg("ESCALATION: automated remediation exhausted, operator action required")
	return nil
}
