package model

import (
	"testing"
	"time"
)

func TestClampRangeKeepsSuppliedStart(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	f := AnalyticsFilter{Range: DateRange{From: from}}

	clamped := f.ClampRange(30, 365)
	if !clamped.Range.From.Equal(from) {
		t.Fatalf("from = %v, want the supplied %v kept", clamped.Range.From, from)
	}
	if clamped.Range.To.IsZero() || clamped.Range.To.Before(from) {
		t.Fatalf("to = %v, want defaulted to now", clamped.Range.To)
	}
}

func TestClampRangeKeepsSuppliedEnd(t *testing.T) {
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	f := AnalyticsFilter{Range: DateRange{To: to}}

	clamped := f.ClampRange(30, 365)
	if !clamped.Range.To.Equal(to) {
		t.Fatalf("to = %v, want the supplied %v kept", clamped.Range.To, to)
	}
	if want := to.AddDate(0, 0, -30); !clamped.Range.From.Equal(want) {
		t.Fatalf("from = %v, want the default window before to (%v)", clamped.Range.From, want)
	}
}

func TestClampRangeDefaultsEmptyRange(t *testing.T) {
	clamped := AnalyticsFilter{}.ClampRange(30, 365)
	if clamped.Range.From.IsZero() || clamped.Range.To.IsZero() {
		t.Fatalf("range = %+v, want both bounds filled", clamped.Range)
	}
	if got := clamped.Range.To.Sub(clamped.Range.From); got != 30*24*time.Hour {
		t.Fatalf("window = %v, want the 30-day default", got)
	}
}

func TestClampRangeEnforcesMax(t *testing.T) {
	f := AnalyticsFilter{Range: DateRange{
		From: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}}

	clamped := f.ClampRange(30, 365)
	if got := clamped.Range.To.Sub(clamped.Range.From); got != 365*24*time.Hour {
		t.Fatalf("window = %v, want capped at 365 days", got)
	}
	if !clamped.Range.To.Equal(f.Range.To) {
		t.Fatalf("to = %v, want the supplied end kept when capping", clamped.Range.To)
	}
}

func TestClampRangeInvertedRange(t *testing.T) {
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	f := AnalyticsFilter{Range: DateRange{From: from, To: from.AddDate(0, 0, -5)}}

	clamped := f.ClampRange(30, 365)
	if !clamped.Range.To.After(clamped.Range.From) {
		t.Fatalf("range = %+v, want to after from", clamped.Range)
	}
}
