package residency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dt2patel/traveller/internal/model"
)

// Summary is one full accounting pass over an owner's event set.
type Summary struct {
	Status          string    `json:"status"` // "in" or "out"
	CurrentStayDays float64   `json:"current_stay_days"`
	Rolling182      float64   `json:"rolling_182"`
	Rolling365      float64   `json:"rolling_365"`
	FiscalYear      int       `json:"fiscal_year"` // starting calendar year of the current FY
	FiscalYearDays  float64   `json:"fiscal_year_days"`
	PrevFiscalYear  float64   `json:"prev_fiscal_year_days"`
	Trips           []Trip    `json:"trips"`
	Anomalies       []string  `json:"anomalies,omitempty"`
	Fingerprint     string    `json:"fingerprint"`
	ComputedAt      time.Time `json:"computed_at"`
}

// BuildSummary runs the full accounting pass: trip pairing, the standard
// rolling and fiscal-year windows, and anomaly detection.
func BuildSummary(events []model.Event, now time.Time) (*Summary, error) {
	trips, err := PairTrips(events, now)
	if err != nil {
		return nil, err
	}

	anomalies, err := DetectAnomalies(events, now)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Status:      "out",
		Rolling182:  RollingWindowDays(trips, 182, now),
		Rolling365:  RollingWindowDays(trips, 365, now),
		FiscalYear:  FiscalYearFor(now),
		Trips:       trips,
		Anomalies:   anomalies,
		Fingerprint: Fingerprint(events),
		ComputedAt:  now,
	}
	s.FiscalYearDays = FiscalYearDays(trips, s.FiscalYear, now)
	s.PrevFiscalYear = FiscalYearDays(trips, s.FiscalYear-1, now)

	if len(trips) > 0 {
		last := trips[len(trips)-1]
		if last.End == nil {
			s.Status = "in"
			s.CurrentStayDays = float64(now.Sub(last.Start.OccurredAt)) / float64(day)
		}
	}

	return s, nil
}

// Fingerprint is the deterministic identity of an event set for memoization:
// sha256 over sorted (id, updatedAt) pairs. Any create, update, or delete
// changes it.
func Fingerprint(events []model.Event) string {
	pairs := make([]string, 0, len(events))
	for _, e := range events {
		pairs = append(pairs, fmt.Sprintf("%s=%s", e.ID, e.UpdatedAt.UTC().Format(time.RFC3339Nano)))
	}
	slices.Sort(pairs)

	h := sha256.Sum256([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(h[:])
}
