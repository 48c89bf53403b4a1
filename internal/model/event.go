package model

import "time"

// EventKind is the direction of a border crossing.
type EventKind string

const (
	KindEntry EventKind = "ENTRY"
	KindExit  EventKind = "EXIT"
)

// EventOrigin records how an event was captured. Provenance only; it has no
// effect on day accounting.
type EventOrigin string

const (
	OriginQuick  EventOrigin = "quick"
	OriginManual EventOrigin = "manual"
	OriginImport EventOrigin = "import"
)

// SyncMarker is the local-only outbound sync state of an event. It is never
// written to the remote store.
type SyncMarker string

const (
	MarkerQueued SyncMarker = "queued"
	MarkerSynced SyncMarker = "synced"
	MarkerError  SyncMarker = "error"
)

// Event is a single ENTRY or EXIT border crossing, the only durable business
// fact in the system. OccurredAt (UTC) is authoritative for all accounting
// math; OccurredZone is a display-only IANA label.
type Event struct {
	ID           string      `json:"id"`
	OwnerID      string      `json:"owner_id"`
	Kind         EventKind   `json:"kind"`
	OccurredAt   time.Time   `json:"occurred_at"`
	OccurredZone string      `json:"occurred_zone"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Origin       EventOrigin `json:"origin"`
	Notes        string      `json:"notes,omitempty"`
	SyncMarker   SyncMarker  `json:"sync_marker,omitempty"`
}

// ValidKind reports whether k is a known event kind.
func ValidKind(k EventKind) bool {
	return k == KindEntry || k == KindExit
}

// ValidOrigin reports whether o is a known event origin.
func ValidOrigin(o EventOrigin) bool {
	return o == OriginQuick || o == OriginManual || o == OriginImport
}
