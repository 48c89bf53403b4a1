// Package residency derives presence intervals and tax-residency day counts
// from an owner's ENTRY/EXIT event stream. Everything in this package is pure
// computation over the supplied events; callers pass the reference instant.
package residency

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dt2patel/traveller/internal/model"
)

// ErrInvalidTimestamp is returned when an event carries an unusable
// occurred-at instant. Events are validated on creation, so hitting this
// means corrupted data, not user error.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

const (
	// duplicateEpsilon is the window within which two consecutive events of
	// the same kind are treated as a double-tap.
	duplicateEpsilon = 2 * time.Minute

	// openTripReviewAfter flags open stays that have run implausibly long.
	openTripReviewAfter = 120 * 24 * time.Hour
)

const (
	WarnMissingExit  = "missing EXIT"
	WarnDuplicate    = "duplicate within 2min"
	WarnLongOpenStay = "open trip exceeds 120 days, review"
)

// Trip is a maximal interval of presence: an ENTRY and, unless the stay is
// still open, the EXIT that ended it.
type Trip struct {
	Start    model.Event  `json:"start"`
	End      *model.Event `json:"end,omitempty"` // nil = still open
	Warnings []string     `json:"warnings,omitempty"`
}

// EffectiveEnd returns the trip's end instant, substituting now for open
// trips.
func (t Trip) EffectiveEnd(now time.Time) time.Time {
	if t.End != nil {
		return t.End.OccurredAt
	}
	return now
}

// PairTrips folds an unordered event stream into presence intervals.
//
// Events are sorted by occurred-at with id as a deterministic tie-break, then
// scanned once. An ENTRY while a stay is open closes the previous stay with a
// missing-EXIT warning; an EXIT with no open stay is excluded here and
// surfaced by DetectAnomalies. Every ENTRY appears in exactly one trip.
func PairTrips(events []model.Event, now time.Time) ([]Trip, error) {
	sorted, err := sortEvents(events)
	if err != nil {
		return nil, err
	}

	var trips []Trip
	var open *model.Event
	var openWarnings []string
	var prev *model.Event

	for i := range sorted {
		ev := &sorted[i]
		dup := prev != nil && prev.Kind == ev.Kind && ev.OccurredAt.Sub(prev.OccurredAt) <= duplicateEpsilon

		switch ev.Kind {
		case model.KindEntry:
			if open != nil {
				trips = append(trips, Trip{Start: *open, Warnings: append(openWarnings, WarnMissingExit)})
			}
			open = ev
			openWarnings = nil
			if dup {
				openWarnings = append(openWarnings, WarnDuplicate)
			}
		case model.KindExit:
			if open != nil {
				trips = append(trips, Trip{Start: *open, End: ev, Warnings: openWarnings})
				open = nil
				openWarnings = nil
			} else if dup && len(trips) > 0 {
				// The orphaned duplicate EXIT has no trip of its own; pin the
				// warning on the stay the first EXIT closed.
				last := &trips[len(trips)-1]
				last.Warnings = append(last.Warnings, WarnDuplicate)
			}
		default:
			return nil, fmt.Errorf("event %s: unknown kind %q", ev.ID, ev.Kind)
		}
		prev = ev
	}

	if open != nil {
		if now.Sub(open.OccurredAt) > openTripReviewAfter {
			openWarnings = append(openWarnings, WarnLongOpenStay)
		}
		trips = append(trips, Trip{Start: *open, Warnings: openWarnings})
	}

	return trips, nil
}

// sortEvents validates timestamps and returns a stable copy ordered by
// occurred-at, then id.
func sortEvents(events []model.Event) ([]model.Event, error) {
	for i := range events {
		if events[i].OccurredAt.IsZero() {
			return nil, fmt.Errorf("event %s: %w", events[i].ID, ErrInvalidTimestamp)
		}
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.Event) int {
		if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return sorted, nil
}
