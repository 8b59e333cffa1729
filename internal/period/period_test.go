package period

import (
	"errors"
	"testing"
	"time"

	"safety-analytics/internal/apperr"
	"safety-analytics/internal/model"
)

func TestBucketStartDay(t *testing.T) {
	ts := time.Date(2025, 3, 12, 15, 4, 5, 0, time.UTC)
	got := BucketStart(ts, model.PeriodDay)
	want := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("BucketStart(day) = %v, want %v", got, want)
	}
}

func TestBucketStartWeekIsMonday(t *testing.T) {
	cases := []struct {
		name string
		ts   time.Time
		want time.Time
	}{
		{
			name: "wednesday",
			ts:   time.Date(2025, 3, 12, 15, 4, 5, 0, time.UTC),
			want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monday stays put",
			ts:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday belongs to the preceding monday",
			ts:   time.Date(2025, 3, 16, 23, 59, 0, 0, time.UTC),
			want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BucketStart(tc.ts, model.PeriodWeek)
			if !got.Equal(tc.want) {
				t.Fatalf("BucketStart(week) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBucketEndMonthUsesCalendarMonth(t *testing.T) {
	start := BucketStart(time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC), model.PeriodMonth)
	if want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Fatalf("month bucket start = %v, want %v", start, want)
	}
	end := BucketEnd(start, model.PeriodMonth)
	if want := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Fatalf("month bucket end = %v, want %v", end, want)
	}

	// February is shorter than 30 days; the end must still land on March 1st.
	febStart := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	if got, want := BucketEnd(febStart, model.PeriodMonth), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("february bucket end = %v, want %v", got, want)
	}
}

func TestBucketRoundTrip(t *testing.T) {
	ts := time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC)
	for _, p := range []model.Period{model.PeriodDay, model.PeriodWeek, model.PeriodMonth} {
		start := BucketStart(ts, p)
		end := BucketEnd(start, p)
		if !end.After(start) {
			t.Fatalf("bucket_end(bucket_start(ts, %s)) = %v not after %v", p, end, start)
		}
	}
}

func TestParseISOWeekBothForms(t *testing.T) {
	startA, endA, err := ParseISOWeek("2025-W01")
	if err != nil {
		t.Fatalf("ParseISOWeek(2025-W01): %v", err)
	}
	startB, endB, err := ParseISOWeek("2025-01")
	if err != nil {
		t.Fatalf("ParseISOWeek(2025-01): %v", err)
	}
	if !startA.Equal(startB) || !endA.Equal(endB) {
		t.Fatalf("forms disagree: (%v, %v) vs (%v, %v)", startA, endA, startB, endB)
	}

	// ISO week 1 of 2025 starts in Gregorian 2024.
	if want := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC); !startA.Equal(want) {
		t.Fatalf("2025-W01 start = %v, want %v", startA, want)
	}
	if want := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC); !endA.Equal(want) {
		t.Fatalf("2025-W01 end = %v, want %v", endA, want)
	}
}

func TestParseISOWeekMatchesISOWeekNumbering(t *testing.T) {
	start, _, err := ParseISOWeek("2026-W30")
	if err != nil {
		t.Fatalf("ParseISOWeek: %v", err)
	}
	year, week := start.ISOWeek()
	if year != 2026 || week != 30 {
		t.Fatalf("start.ISOWeek() = (%d, %d), want (2026, 30)", year, week)
	}
	if start.Weekday() != time.Monday {
		t.Fatalf("week starts on %v, want Monday", start.Weekday())
	}
}

func TestParseISOWeekInvalid(t *testing.T) {
	for _, raw := range []string{"", "2025", "2025-W60", "2025-00", "year-W01", "2025-Wxx"} {
		_, _, err := ParseISOWeek(raw)
		if !errors.Is(err, apperr.ErrInvalidRequest) {
			t.Fatalf("ParseISOWeek(%q) = %v, want ErrInvalidRequest", raw, err)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	if p, err := Parse(""); err != nil || p != model.PeriodWeek {
		t.Fatalf("Parse(\"\") = (%v, %v), want week", p, err)
	}
	if p, err := Parse("Month"); err != nil || p != model.PeriodMonth {
		t.Fatalf("Parse(Month) = (%v, %v), want month", p, err)
	}
	if _, err := Parse("fortnight"); !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Fatalf("Parse(fortnight) = %v, want ErrInvalidRequest", err)
	}
}
