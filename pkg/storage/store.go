package storage

import (
	"time"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// Store defines the interface for Sentinel's durable state: the
// append-only audit log and the operator preference store.
// Implemented by BoltDB-backed storage.
type Store interface {
	// Audit log (append-only)
	SaveAuditRecord(rec *types.AuditRecord) error
	ListAuditByIncidentKey(key string) ([]*types.AuditRecord, error)
	ListRecentAudit(limit int) ([]*types.AuditRecord, error)
	CountAttempts(incidentKey string, window time.Duration) (int, error)
	CleanupAuditOlderThan(retention time.Duration) (int, error)

	// Preferences (point reads must be cheap; read on every guardrail check)
	GetPreference(key string) (string, bool, error)
	SetPreference(key, value string) error

	// Utility
	Close() error
}
