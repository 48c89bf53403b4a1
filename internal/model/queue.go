package model

import "time"

// QueueAction is the kind of remote effect a queue entry describes.
type QueueAction string

const (
	ActionCreate QueueAction = "create"
	ActionUpdate QueueAction = "update"
	ActionDelete QueueAction = "delete"
)

// QueueEntry is a durable mutation intent awaiting transmission to the remote
// store. Entries are drained strictly in EnqueuedAt order and are never
// mutated in place; a newer mutation for the same event collapses with the
// pending entry at enqueue time.
type QueueEntry struct {
	ID         string      `json:"id"`
	Action     QueueAction `json:"action"`
	EventID    string      `json:"event_id"`
	OwnerID    string      `json:"owner_id"`
	Payload    *Event      `json:"payload,omitempty"` // full event for create/update, nil for delete
	EnqueuedAt time.Time   `json:"enqueued_at"`
}
