// Package period computes calendar-aligned day/week/month buckets.
// Weeks follow ISO 8601: Monday through Sunday, and the year of a week
// string is the ISO week-year, which can differ from the Gregorian year
// around New Year.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"safety-analytics/internal/apperr"
	"safety-analytics/internal/model"
)

func Parse(raw string) (model.Period, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "week":
		return model.PeriodWeek, nil
	case "day":
		return model.PeriodDay, nil
	case "month":
		return model.PeriodMonth, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", apperr.ErrInvalidRequest, raw)
	}
}

// BucketStart returns the start of the calendar bucket containing ts.
func BucketStart(ts time.Time, p model.Period) time.Time {
	switch p {
	case model.PeriodDay:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	case model.PeriodMonth:
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location())
	default:
		midnight := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
		return midnight.AddDate(0, 0, -mondayOffset(midnight))
	}
}

// BucketEnd returns the exclusive end of the bucket beginning at start.
// Months advance by calendar month, never a fixed 30-day offset.
func BucketEnd(start time.Time, p model.Period) time.Time {
	switch p {
	case model.PeriodDay:
		return start.AddDate(0, 0, 1)
	case model.PeriodMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 7)
	}
}

// ParseISOWeek accepts both "2025-W01" and "2025-01" and returns the
// week's [start, end) boundaries in UTC.
func ParseISOWeek(raw string) (time.Time, time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	parts := strings.SplitN(trimmed, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: malformed week %q", apperr.ErrInvalidRequest, raw)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: malformed week %q", apperr.ErrInvalidRequest, raw)
	}

	weekPart := strings.TrimPrefix(strings.ToUpper(parts[1]), "W")
	week, err := strconv.Atoi(weekPart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: malformed week %q", apperr.ErrInvalidRequest, raw)
	}

	if week < 1 || week > isoWeeksInYear(year) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: week %d out of range for %d", apperr.ErrInvalidRequest, week, year)
	}

	start := isoWeekStart(year, week)
	return start, start.AddDate(0, 0, 7), nil
}

// isoWeekStart returns the Monday of the given ISO week. January 4th is
// always inside week 1 of its ISO week-year.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	week1Monday := jan4.AddDate(0, 0, -mondayOffset(jan4))
	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// isoWeeksInYear is 52 or 53. December 28th is always in the last week.
func isoWeeksInYear(year int) int {
	_, weeks := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return weeks
}

// mondayOffset counts days since the most recent Monday (0 on Mondays).
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
