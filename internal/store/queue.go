package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dt2patel/traveller/internal/model"
)

// QueueStore is the durable outbound mutation log. Entries are returned in
// enqueue order; collapsing of entries for the same event is the sync
// engine's job, not the store's.
type QueueStore struct {
	db *sql.DB
}

func NewQueueStore(db *sql.DB) *QueueStore {
	return &QueueStore{db: db}
}

func (s *QueueStore) Append(entry model.QueueEntry) error {
	var payload []byte
	if entry.Payload != nil {
		var err error
		payload, err = json.Marshal(entry.Payload)
		if err != nil {
			return fmt.Errorf("marshal queue payload: %w", err)
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO queue (id, action, event_id, owner_id, payload, enqueued_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Action), entry.EventID, entry.OwnerID, nullableString(payload), entry.EnqueuedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append queue entry: %w", err)
	}
	return nil
}

// List returns all pending entries in enqueue order.
func (s *QueueStore) List() ([]model.QueueEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, action, event_id, owner_id, payload, enqueued_at
		 FROM queue ORDER BY enqueued_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// FindByEventID returns the pending entry for an event, or nil if none is
// queued. At most one entry per event exists because enqueue collapses.
func (s *QueueStore) FindByEventID(eventID string) (*model.QueueEntry, error) {
	row := s.db.QueryRow(
		`SELECT id, action, event_id, owner_id, payload, enqueued_at
		 FROM queue WHERE event_id = ?`,
		eventID,
	)

	var entry model.QueueEntry
	var payload sql.NullString
	err := row.Scan(&entry.ID, &entry.Action, &entry.EventID, &entry.OwnerID, &payload, &entry.EnqueuedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query queue entry: %w", err)
	}
	if err := unmarshalPayload(payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *QueueStore) Remove(id string) error {
	_, err := s.db.Exec("DELETE FROM queue WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remove queue entry: %w", err)
	}
	return nil
}

func (s *QueueStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM queue").Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueEntry(row rowScanner) (model.QueueEntry, error) {
	var entry model.QueueEntry
	var payload sql.NullString
	if err := row.Scan(&entry.ID, &entry.Action, &entry.EventID, &entry.OwnerID, &payload, &entry.EnqueuedAt); err != nil {
		return entry, fmt.Errorf("scan queue entry: %w", err)
	}
	if err := unmarshalPayload(payload, &entry); err != nil {
		return entry, err
	}
	return entry, nil
}

func unmarshalPayload(payload sql.NullString, entry *model.QueueEntry) error {
	if !payload.Valid || payload.String == "" {
		return nil
	}
	var e model.Event
	if err := json.Unmarshal([]byte(payload.String), &e); err != nil {
		return fmt.Errorf("unmarshal queue payload: %w", err)
	}
	entry.Payload = &e
	return nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
