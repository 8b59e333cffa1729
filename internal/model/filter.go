package model

import (
	"time"

	"github.com/google/uuid"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// AnalyticsFilter carries the optional query parameters of the analytics
// endpoints. Zero values mean "not supplied".
type AnalyticsFilter struct {
	Range              DateRange
	Week               string
	Period             Period
	FleetID            *uuid.UUID
	InsurancePartnerID *uuid.UUID
	DriverProfileID    *uuid.UUID
	Limit              int
}

// ClampRange fills the open ends of a partial range: a missing To means
// "until now", a missing From means the default trailing window before To.
// A supplied bound is always kept.
func (f AnalyticsFilter) ClampRange(defaultRange, maxRange int) AnalyticsFilter {
	if f.Range.To.IsZero() {
		f.Range.To = time.Now()
	}
	if f.Range.From.IsZero() {
		f.Range.From = f.Range.To.AddDate(0, 0, -defaultRange)
	}
	if f.Range.To.Before(f.Range.From) {
		f.Range.To = f.Range.From.Add(24 * time.Hour)
	}
	if f.Range.To.Sub(f.Range.From) > time.Duration(maxRange)*24*time.Hour {
		f.Range.From = f.Range.To.Add(-time.Duration(maxRange) * 24 * time.Hour)
	}
	return f
}

func (f AnalyticsFilter) Bucket() Period {
	switch f.Period {
	case PeriodDay, PeriodMonth:
		return f.Period
	default:
		return PeriodWeek
	}
}
