package residency

import (
	"fmt"
	"time"

	"github.com/dt2patel/traveller/internal/model"
)

// DetectAnomalies rescans the event stream for data-quality gaps that trip
// pairing tolerates silently: orphaned EXITs, ENTRYs without a matching EXIT,
// same-kind double-taps, and implausibly long open stays. The returned
// strings are user-facing.
func DetectAnomalies(events []model.Event, now time.Time) ([]string, error) {
	sorted, err := sortEvents(events)
	if err != nil {
		return nil, err
	}

	var anomalies []string
	var open *model.Event
	var prev *model.Event

	for i := range sorted {
		ev := &sorted[i]

		if prev != nil && prev.Kind == ev.Kind && ev.OccurredAt.Sub(prev.OccurredAt) <= duplicateEpsilon {
			anomalies = append(anomalies, fmt.Sprintf("duplicate %s events within 2 minutes at %s",
				ev.Kind, ev.OccurredAt.UTC().Format(time.RFC3339)))
		}

		switch ev.Kind {
		case model.KindEntry:
			if open != nil {
				anomalies = append(anomalies, fmt.Sprintf("ENTRY at %s has no matching EXIT before the next ENTRY",
					open.OccurredAt.UTC().Format(time.RFC3339)))
			}
			open = ev
		case model.KindExit:
			if open == nil {
				anomalies = append(anomalies, fmt.Sprintf("orphaned EXIT at %s has no preceding ENTRY",
					ev.OccurredAt.UTC().Format(time.RFC3339)))
			} else {
				open = nil
			}
		}
		prev = ev
	}

	if open != nil && now.Sub(open.OccurredAt) > openTripReviewAfter {
		anomalies = append(anomalies, fmt.Sprintf("open stay since %s exceeds 120 days",
			open.OccurredAt.UTC().Format(time.RFC3339)))
	}

	return anomalies, nil
}
