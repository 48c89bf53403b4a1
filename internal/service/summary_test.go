package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/dt2patel/traveller/internal/model"
)

func seedSampleEvents(t *testing.T, svc *EventService) {
	t.Helper()
	ctx := context.Background()
	seed := []struct {
		kind model.EventKind
		at   string
	}{
		{model.KindEntry, "2023-01-01T00:00:00Z"},
		{model.KindExit, "2023-01-11T00:00:00Z"},
		{model.KindEntry, "2023-02-01T00:00:00Z"},
	}
	for _, s := range seed {
		at, _ := time.Parse(time.RFC3339, s.at)
		if _, err := svc.Create(ctx, "owner-1", CreateEventInput{Kind: s.kind, OccurredAt: at}); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}
}

func TestSummaryComputation(t *testing.T) {
	svc, _, _ := setupService(t)
	svc.now = func() time.Time { return time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC) }
	seedSampleEvents(t, svc)

	s, err := svc.Summary(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if s.Status != "in" {
		t.Errorf("status = %q, want in", s.Status)
	}
	if math.Abs(s.Rolling182-19.0) > 1e-6 {
		t.Errorf("rolling 182 = %v, want 19.0", s.Rolling182)
	}
	if math.Abs(s.FiscalYearDays-19.0) > 1e-6 {
		t.Errorf("fiscal year days = %v, want 19.0", s.FiscalYearDays)
	}
}

func TestSummaryMemoized(t *testing.T) {
	svc, _, _ := setupService(t)
	t1 := time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t1 }
	seedSampleEvents(t, svc)

	first, err := svc.Summary(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("first summary: %v", err)
	}

	// Same event set, later clock: the memoized pass is served unchanged.
	svc.now = func() time.Time { return t1.Add(time.Hour) }
	second, err := svc.Summary(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("second summary: %v", err)
	}
	if !second.ComputedAt.Equal(first.ComputedAt) {
		t.Errorf("summary recomputed despite unchanged events: %v vs %v", second.ComputedAt, first.ComputedAt)
	}
}

func TestSummaryInvalidatedByMutation(t *testing.T) {
	svc, _, _ := setupService(t)
	t1 := time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t1 }
	seedSampleEvents(t, svc)

	first, err := svc.Summary(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("first summary: %v", err)
	}

	t2 := t1.Add(time.Hour)
	svc.now = func() time.Time { return t2 }
	at := time.Date(2023, 2, 9, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Create(context.Background(), "owner-1", CreateEventInput{Kind: model.KindExit, OccurredAt: at}); err != nil {
		t.Fatalf("mutating create: %v", err)
	}

	second, err := svc.Summary(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("second summary: %v", err)
	}
	if second.ComputedAt.Equal(first.ComputedAt) {
		t.Error("summary served stale cache after mutation")
	}
	if second.Fingerprint == first.Fingerprint {
		t.Error("fingerprint unchanged after mutation")
	}
}

func TestForecastEndpointValues(t *testing.T) {
	svc, _, _ := setupService(t)
	asOf := time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return asOf }
	seedSampleEvents(t, svc)

	target := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	got, err := svc.Forecast(context.Background(), "owner-1", target, 182)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if got <= 0 {
		t.Errorf("forecast = %v, want positive remaining days", got)
	}
}

func TestAnomaliesSurfaceOrphanedExit(t *testing.T) {
	svc, _, _ := setupService(t)
	svc.now = func() time.Time { return time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	at := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Create(ctx, "owner-1", CreateEventInput{Kind: model.KindExit, OccurredAt: at}); err != nil {
		t.Fatalf("create: %v", err)
	}

	anomalies, err := svc.Anomalies(ctx, "owner-1")
	if err != nil {
		t.Fatalf("anomalies: %v", err)
	}
	if len(anomalies) != 1 {
		t.Fatalf("anomalies = %v, want exactly one orphaned-EXIT report", anomalies)
	}
}
