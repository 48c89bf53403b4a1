package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dt2patel/traveller/internal/database"
	"github.com/dt2patel/traveller/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleEvent(id, ownerID string, occurredAt time.Time) model.Event {
	return model.Event{
		ID:           id,
		OwnerID:      ownerID,
		Kind:         model.KindEntry,
		OccurredAt:   occurredAt.UTC(),
		OccurredZone: "Asia/Kolkata",
		CreatedAt:    occurredAt.UTC(),
		UpdatedAt:    occurredAt.UTC(),
		Origin:       model.OriginManual,
		Notes:        "some notes",
		SyncMarker:   model.MarkerQueued,
	}
}

func TestEventPutGetDelete(t *testing.T) {
	s := NewEventStore(setupTestDB(t))
	at := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)

	e := sampleEvent("e1", "owner-1", at)
	if err := s.Put(e); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.GetByID("e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected event, got nil")
	}
	if got.Kind != model.KindEntry {
		t.Errorf("kind = %q, want ENTRY", got.Kind)
	}
	if !got.OccurredAt.Equal(at) {
		t.Errorf("occurred_at = %v, want %v", got.OccurredAt, at)
	}
	if got.OccurredZone != "Asia/Kolkata" {
		t.Errorf("zone = %q, want Asia/Kolkata", got.OccurredZone)
	}
	if got.SyncMarker != model.MarkerQueued {
		t.Errorf("marker = %q, want queued", got.SyncMarker)
	}

	if err := s.Delete("e1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.GetByID("e1")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestEventPutReplaces(t *testing.T) {
	s := NewEventStore(setupTestDB(t))
	at := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)

	e := sampleEvent("e1", "owner-1", at)
	if err := s.Put(e); err != nil {
		t.Fatalf("put: %v", err)
	}

	e.Notes = "revised"
	e.UpdatedAt = at.Add(time.Hour)
	if err := s.Put(e); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.GetByID("e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Notes != "revised" {
		t.Errorf("notes = %q, want %q", got.Notes, "revised")
	}
}

func TestEventGetNotFound(t *testing.T) {
	s := NewEventStore(setupTestDB(t))

	got, err := s.GetByID("missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestEventListByOwnerOrderingAndIsolation(t *testing.T) {
	s := NewEventStore(setupTestDB(t))
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Put(sampleEvent("b", "owner-1", base.Add(48*time.Hour)))
	s.Put(sampleEvent("a", "owner-1", base))
	s.Put(sampleEvent("x", "owner-2", base.Add(24*time.Hour)))

	// Timestamp collision: id breaks the tie.
	s.Put(sampleEvent("d", "owner-1", base.Add(72*time.Hour)))
	s.Put(sampleEvent("c", "owner-1", base.Add(72*time.Hour)))

	events, err := s.ListByOwner("owner-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("len = %d, want 4", len(events))
	}
	wantOrder := []string{"a", "b", "c", "d"}
	for i, want := range wantOrder {
		if events[i].ID != want {
			t.Errorf("events[%d].ID = %q, want %q", i, events[i].ID, want)
		}
	}
}

func TestEventSetMarkerLeavesUpdatedAt(t *testing.T) {
	s := NewEventStore(setupTestDB(t))
	at := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.Put(sampleEvent("e1", "owner-1", at)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.SetMarker("e1", model.MarkerSynced); err != nil {
		t.Fatalf("set marker: %v", err)
	}

	got, err := s.GetByID("e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SyncMarker != model.MarkerSynced {
		t.Errorf("marker = %q, want synced", got.SyncMarker)
	}
	if !got.UpdatedAt.Equal(at) {
		t.Errorf("updated_at changed by marker flip: %v", got.UpdatedAt)
	}
}

func TestEventCountMarker(t *testing.T) {
	s := NewEventStore(setupTestDB(t))
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Put(sampleEvent("a", "owner-1", base))
	s.Put(sampleEvent("b", "owner-1", base.Add(time.Hour)))
	s.SetMarker("b", model.MarkerError)

	n, err := s.CountMarker(model.MarkerError)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("error count = %d, want 1", n)
	}
}
