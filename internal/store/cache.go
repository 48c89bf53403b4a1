package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CachedSummary is one memoized accounting pass for an owner.
type CachedSummary struct {
	OwnerID     string
	Fingerprint string
	Payload     []byte
	ComputedAt  time.Time
}

// CacheStore memoizes derived accounting results keyed by a content
// fingerprint of the owner's event set.
type CacheStore struct {
	db *sql.DB
}

func NewCacheStore(db *sql.DB) *CacheStore {
	return &CacheStore{db: db}
}

func (s *CacheStore) Get(ownerID string) (*CachedSummary, error) {
	var c CachedSummary
	var payload string
	err := s.db.QueryRow(
		"SELECT owner_id, fingerprint, payload, computed_at FROM summary_cache WHERE owner_id = ?",
		ownerID,
	).Scan(&c.OwnerID, &c.Fingerprint, &payload, &c.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query summary cache: %w", err)
	}
	c.Payload = []byte(payload)
	return &c, nil
}

func (s *CacheStore) Set(ownerID, fingerprint string, payload []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO summary_cache (owner_id, fingerprint, payload, computed_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET
		   fingerprint = excluded.fingerprint,
		   payload = excluded.payload,
		   computed_at = excluded.computed_at`,
		ownerID, fingerprint, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set summary cache: %w", err)
	}
	return nil
}

func (s *CacheStore) Invalidate(ownerID string) error {
	_, err := s.db.Exec("DELETE FROM summary_cache WHERE owner_id = ?", ownerID)
	if err != nil {
		return fmt.Errorf("invalidate summary cache: %w", err)
	}
	return nil
}
