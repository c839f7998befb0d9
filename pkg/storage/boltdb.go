package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketAudit       = []byte("audit_records")
	bucketPreferences = []byte("preferences")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "sentinel.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketAudit,
			bucketPreferences,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// auditKey builds a chronologically sortable key so that cursor scans walk
// records in timestamp order
func auditKey(rec *types.AuditRecord) []byte {
	return []byte(fmt.Sprintf("%020d-%s", rec.Timestamp.UnixNano(), rec.ID))
}

// SaveAuditRecord appends a record to the audit log. Records are never
// updated or overwritten.
func (s *BoltStore) SaveAuditRecord(rec *types.AuditRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAudit)
		key := auditKey(rec)
		if b.Get(key) != nil {
			return fmt.Errorf("audit record already exists: %s", rec.ID)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// ListAuditByIncidentKey returns all records for one incident key, oldest first
func (s *BoltStore) ListAuditByIncidentKey(key string) ([]*types.AuditRecord, error) {
	var records []*types.AuditRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAudit)
		return b.ForEach(func(k, v []byte) error {
			var rec types.AuditRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.IncidentKey == key {
				records = append(records, &rec)
			}
			return nil
		})
	})
	return records, err
}

// ListRecentAudit returns up to limit records, newest first
func (s *BoltStore) ListRecentAudit(limit int) ([]*types.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []*types.AuditRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAudit).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var rec types.AuditRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	return records, err
}

// CountAttempts counts executed attempts (success, failure or escalated;
// blocked records do not count) for an incident key inside the window
func (s *BoltStore) CountAttempts(incidentKey string, window time.Duration) (int, error) {
	cutoff := s.now().Add(-window)
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAudit).Cursor()
		// Walk backwards from the newest record; keys are timestamp-ordered
		// so we can stop at the first record older than the cutoff.
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var rec types.AuditRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Timestamp.Before(cutoff) {
				break
			}
			if rec.IncidentKey == incidentKey && rec.Executed() {
				count++
			}
		}
		return nil
	})
	return count, err
}

// CleanupAuditOlderThan deletes records older than the retention period
// and returns how many were removed
func (s *BoltStore) CleanupAuditOlderThan(retention time.Duration) (int, error) {
	cutoff := []byte(fmt.Sprintf("%020d", s.now().Add(-retention).UnixNano()))
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAudit).Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k, cutoff) < 0; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// Preference operations
func (s *BoltStore) GetPreference(key string) (string, bool, error) {
	var value string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPreferences).Get([]byte(key))
		if data != nil {
			value = string(data)
			found = true
		}
		return nil
	})
	return value, found, err
}

func (s *BoltStore) SetPreference(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPreferences).Put([]byte(key), []byte(value))
	})
}
