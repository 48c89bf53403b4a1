package store

import (
	"database/sql"
	"fmt"

	"github.com/dt2patel/traveller/internal/model"
)

// EventStore is the local authoritative copy of an owner's events.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// Put inserts or replaces an event by id.
func (s *EventStore) Put(e model.Event) error {
	_, err := s.db.Exec(
		`INSERT INTO events (id, owner_id, kind, occurred_at, occurred_zone, created_at, updated_at, origin, notes, sync_marker)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id = excluded.owner_id,
		   kind = excluded.kind,
		   occurred_at = excluded.occurred_at,
		   occurred_zone = excluded.occurred_zone,
		   created_at = excluded.created_at,
		   updated_at = excluded.updated_at,
		   origin = excluded.origin,
		   notes = excluded.notes,
		   sync_marker = excluded.sync_marker`,
		e.ID, e.OwnerID, string(e.Kind), e.OccurredAt.UTC(), e.OccurredZone,
		e.CreatedAt.UTC(), e.UpdatedAt.UTC(), string(e.Origin), e.Notes, string(e.SyncMarker),
	)
	if err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

func (s *EventStore) GetByID(id string) (*model.Event, error) {
	var e model.Event
	err := s.db.QueryRow(
		`SELECT id, owner_id, kind, occurred_at, occurred_zone, created_at, updated_at, origin, notes, sync_marker
		 FROM events WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.OwnerID, &e.Kind, &e.OccurredAt, &e.OccurredZone, &e.CreatedAt, &e.UpdatedAt, &e.Origin, &e.Notes, &e.SyncMarker)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return &e, nil
}

// ListByOwner returns the owner's events ordered by occurred_at ascending,
// with id as a stable tie-break.
func (s *EventStore) ListByOwner(ownerID string) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, kind, occurred_at, occurred_zone, created_at, updated_at, origin, notes, sync_marker
		 FROM events WHERE owner_id = ?
		 ORDER BY occurred_at ASC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Kind, &e.OccurredAt, &e.OccurredZone, &e.CreatedAt, &e.UpdatedAt, &e.Origin, &e.Notes, &e.SyncMarker); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *EventStore) Delete(id string) error {
	_, err := s.db.Exec("DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// SetMarker flips the local-only sync marker without touching updated_at, so
// marker changes never influence conflict resolution.
func (s *EventStore) SetMarker(id string, marker model.SyncMarker) error {
	_, err := s.db.Exec("UPDATE events SET sync_marker = ? WHERE id = ?", string(marker), id)
	if err != nil {
		return fmt.Errorf("set sync marker: %w", err)
	}
	return nil
}

// CountMarker returns how many events carry the marker, across all owners.
func (s *EventStore) CountMarker(marker model.SyncMarker) (int, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM events WHERE sync_marker = ?",
		string(marker),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events by marker: %w", err)
	}
	return n, nil
}
