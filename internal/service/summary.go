package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dt2patel/traveller/internal/residency"
)

// Summary runs the full accounting pass for an owner, memoized by the event
// set's fingerprint: if the cached pass matches the current fingerprint it is
// served as-is, otherwise the pass is recomputed and cached.
func (s *EventService) Summary(ctx context.Context, ownerID string) (*residency.Summary, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}

	events, err := s.events.ListByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	fingerprint := residency.Fingerprint(events)

	if cached, err := s.cache.Get(ownerID); err != nil {
		return nil, err
	} else if cached != nil && cached.Fingerprint == fingerprint {
		var summary residency.Summary
		if err := json.Unmarshal(cached.Payload, &summary); err == nil {
			return &summary, nil
		}
		// Undecodable cache entry: fall through and recompute.
		s.logger.Warn("discarding corrupt summary cache entry", "owner", ownerID)
	}

	summary, err := residency.BuildSummary(events, s.now())
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ownerID, fingerprint, payload); err != nil {
		s.logger.Error("store summary cache", "owner", ownerID, "error", err)
	}

	return summary, nil
}

// Trips pairs the owner's events into presence intervals.
func (s *EventService) Trips(ctx context.Context, ownerID string) ([]residency.Trip, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}
	events, err := s.events.ListByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	return residency.PairTrips(events, s.now())
}

// RollingWindowDays counts presence days in the trailing n-day window.
func (s *EventService) RollingWindowDays(ctx context.Context, ownerID string, n int) (float64, error) {
	trips, err := s.Trips(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return residency.RollingWindowDays(trips, n, s.now()), nil
}

// FiscalYearDays counts presence days in the fiscal year starting in the
// given calendar year.
func (s *EventService) FiscalYearDays(ctx context.Context, ownerID string, year int) (float64, error) {
	trips, err := s.Trips(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return residency.FiscalYearDays(trips, year, s.now()), nil
}

// Forecast returns the presence days remaining before the threshold is
// reached in the trailing 365-day window ending at targetDate.
func (s *EventService) Forecast(ctx context.Context, ownerID string, targetDate time.Time, threshold float64) (float64, error) {
	trips, err := s.Trips(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return residency.Forecast(trips, targetDate, threshold, s.now()), nil
}

// Anomalies reports data-quality gaps in the owner's event stream.
func (s *EventService) Anomalies(ctx context.Context, ownerID string) ([]string, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}
	events, err := s.events.ListByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	return residency.DetectAnomalies(events, s.now())
}
