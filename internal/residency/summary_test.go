package residency

import (
	"math"
	"testing"
	"time"

	"github.com/dt2patel/traveller/internal/model"
)

func TestBuildSummaryOpenStay(t *testing.T) {
	now := mustParse(t, "2023-02-10T00:00:00Z")
	events := []model.Event{
		ev("a", model.KindEntry, "2023-01-01T00:00:00Z"),
		ev("b", model.KindExit, "2023-01-11T00:00:00Z"),
		ev("c", model.KindEntry, "2023-02-01T00:00:00Z"),
	}

	s, err := BuildSummary(events, now)
	if err != nil {
		t.Fatalf("build summary: %v", err)
	}

	if s.Status != "in" {
		t.Errorf("status = %q, want %q", s.Status, "in")
	}
	if math.Abs(s.CurrentStayDays-9.0) > tolerance {
		t.Errorf("current stay = %v, want 9.0", s.CurrentStayDays)
	}
	if math.Abs(s.Rolling182-19.0) > tolerance {
		t.Errorf("rolling 182 = %v, want 19.0", s.Rolling182)
	}
	if s.FiscalYear != 2022 {
		t.Errorf("fiscal year = %d, want 2022", s.FiscalYear)
	}
	if math.Abs(s.FiscalYearDays-19.0) > tolerance {
		t.Errorf("fiscal year days = %v, want 19.0", s.FiscalYearDays)
	}
	if len(s.Trips) != 2 {
		t.Errorf("trips = %d, want 2", len(s.Trips))
	}
	if s.Fingerprint == "" {
		t.Error("expected non-empty fingerprint")
	}
}

func TestBuildSummaryOutside(t *testing.T) {
	now := mustParse(t, "2023-02-10T00:00:00Z")
	events := []model.Event{
		ev("a", model.KindEntry, "2023-01-01T00:00:00Z"),
		ev("b", model.KindExit, "2023-01-11T00:00:00Z"),
	}

	s, err := BuildSummary(events, now)
	if err != nil {
		t.Fatalf("build summary: %v", err)
	}
	if s.Status != "out" {
		t.Errorf("status = %q, want %q", s.Status, "out")
	}
	if s.CurrentStayDays != 0 {
		t.Errorf("current stay = %v, want 0", s.CurrentStayDays)
	}
}

func TestBuildSummaryEmpty(t *testing.T) {
	now := mustParse(t, "2023-02-10T00:00:00Z")

	s, err := BuildSummary(nil, now)
	if err != nil {
		t.Fatalf("build summary: %v", err)
	}
	if s.Status != "out" {
		t.Errorf("status = %q, want %q", s.Status, "out")
	}
	if s.Rolling365 != 0 {
		t.Errorf("rolling 365 = %v, want 0", s.Rolling365)
	}
}

func TestFingerprintStableAcrossOrder(t *testing.T) {
	a := ev("a", model.KindEntry, "2023-01-01T00:00:00Z")
	b := ev("b", model.KindExit, "2023-01-11T00:00:00Z")

	fp1 := Fingerprint([]model.Event{a, b})
	fp2 := Fingerprint([]model.Event{b, a})
	if fp1 != fp2 {
		t.Errorf("fingerprint depends on input order: %s vs %s", fp1, fp2)
	}
}

func TestFingerprintChangesOnUpdate(t *testing.T) {
	a := ev("a", model.KindEntry, "2023-01-01T00:00:00Z")
	b := ev("b", model.KindExit, "2023-01-11T00:00:00Z")
	before := Fingerprint([]model.Event{a, b})

	b.UpdatedAt = b.UpdatedAt.Add(time.Second)
	after := Fingerprint([]model.Event{a, b})
	if before == after {
		t.Error("fingerprint unchanged after event update")
	}

	if got := Fingerprint([]model.Event{a}); got == before {
		t.Error("fingerprint unchanged after event delete")
	}
}
