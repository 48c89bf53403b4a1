package store

import (
	"testing"
	"time"

	"github.com/dt2patel/traveller/internal/model"
)

func queueEntry(id, eventID string, action model.QueueAction, enqueuedAt time.Time, payload *model.Event) model.QueueEntry {
	return model.QueueEntry{
		ID:         id,
		Action:     action,
		EventID:    eventID,
		OwnerID:    "owner-1",
		Payload:    payload,
		EnqueuedAt: enqueuedAt.UTC(),
	}
}

func TestQueueAppendListRemove(t *testing.T) {
	s := NewQueueStore(setupTestDB(t))
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	e := sampleEvent("ev1", "owner-1", base)
	if err := s.Append(queueEntry("q2", "ev2", model.ActionDelete, base.Add(time.Minute), nil)); err != nil {
		t.Fatalf("append q2: %v", err)
	}
	if err := s.Append(queueEntry("q1", "ev1", model.ActionCreate, base, &e)); err != nil {
		t.Fatalf("append q1: %v", err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	// Enqueue order, not insertion order.
	if entries[0].ID != "q1" || entries[1].ID != "q2" {
		t.Errorf("order = [%s, %s], want [q1, q2]", entries[0].ID, entries[1].ID)
	}
	if entries[0].Payload == nil || entries[0].Payload.ID != "ev1" {
		t.Errorf("q1 payload = %+v, want event ev1", entries[0].Payload)
	}
	if entries[1].Payload != nil {
		t.Errorf("delete entry payload = %+v, want nil", entries[1].Payload)
	}

	if err := s.Remove("q1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	n, err := s.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestQueueFindByEventID(t *testing.T) {
	s := NewQueueStore(setupTestDB(t))
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	e := sampleEvent("ev1", "owner-1", base)
	if err := s.Append(queueEntry("q1", "ev1", model.ActionUpdate, base, &e)); err != nil {
		t.Fatalf("append: %v", err)
	}

	entry, err := s.FindByEventID("ev1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry, got nil")
	}
	if entry.Action != model.ActionUpdate {
		t.Errorf("action = %q, want update", entry.Action)
	}

	entry, err = s.FindByEventID("unknown")
	if err != nil {
		t.Fatalf("find unknown: %v", err)
	}
	if entry != nil {
		t.Error("expected nil for unknown event id")
	}
}

func TestQueuePayloadRoundTrip(t *testing.T) {
	s := NewQueueStore(setupTestDB(t))
	base := time.Date(2023, 6, 15, 8, 30, 0, 0, time.UTC)

	e := sampleEvent("ev1", "owner-1", base)
	e.Notes = "payload survives storage"
	if err := s.Append(queueEntry("q1", "ev1", model.ActionCreate, base, &e)); err != nil {
		t.Fatalf("append: %v", err)
	}

	entry, err := s.FindByEventID("ev1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if entry.Payload.Notes != "payload survives storage" {
		t.Errorf("notes = %q", entry.Payload.Notes)
	}
	if !entry.Payload.OccurredAt.Equal(base) {
		t.Errorf("occurred_at = %v, want %v", entry.Payload.OccurredAt, base)
	}
}
