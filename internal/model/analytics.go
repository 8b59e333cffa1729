package model

import (
	"time"

	"github.com/google/uuid"
)

// UBPKSample is a per-trip safety measurement derived per request,
// never persisted.
type UBPKSample struct {
	TripID      uuid.UUID  `json:"tripId"`
	UnsafeCount int64      `json:"unsafe_count"`
	DistanceKm  float64    `json:"distance_km"`
	UBPK        float64    `json:"ubpk"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
}

type LeaderboardEntry struct {
	DriverProfileID uuid.UUID `json:"driverProfileId"`
	UBPK            float64   `json:"ubpk"`
	UnsafeCount     int64     `json:"unsafe_count"`
	DistanceKm      float64   `json:"distance_km"`
}

type Leaderboard struct {
	Period       Period             `json:"period"`
	StartDate    time.Time          `json:"start_date"`
	EndDate      time.Time          `json:"end_date"`
	TotalDrivers int                `json:"total_drivers"`
	Best         []LeaderboardEntry `json:"best"`
	Worst        []LeaderboardEntry `json:"worst"`
}

type BadPeriodThresholds struct {
	Day   float64 `json:"day"`
	Week  float64 `json:"week"`
	Month float64 `json:"month"`
}

type DriverBadPeriods struct {
	DriverProfileID uuid.UUID `json:"driverProfileId"`
	BadDays         int       `json:"bad_days"`
	BadWeeks        int       `json:"bad_weeks"`
	BadMonths       int       `json:"bad_months"`
	LastDayDelta    *float64  `json:"last_day_delta"`
	LastWeekDelta   *float64  `json:"last_week_delta"`
	LastMonthDelta  *float64  `json:"last_month_delta"`
}

type BadPeriodReport struct {
	Thresholds BadPeriodThresholds `json:"thresholds"`
	Drivers    []DriverBadPeriods  `json:"drivers"`
}

type ImprovementResult struct {
	DriverProfileID uuid.UUID `json:"driverProfileId"`
	PValue          float64   `json:"p_value"`
	MeanDifference  float64   `json:"mean_difference"`
}

type ImprovementTrend struct {
	DriverProfileID uuid.UUID `json:"driverProfileId"`
	PValue          float64   `json:"p_value"`
	MeanDifference  float64   `json:"mean_difference"`
	Improved        bool      `json:"improved"`
}

// TripAggregate is a raw per-trip row returned by the reader: distance
// summed over the trip's location samples and the resolved start time.
// StartedAt is nil when the trip has neither a start date nor an epoch
// start time; such trips contribute nothing to windowed aggregation.
type TripAggregate struct {
	TripID          uuid.UUID
	DriverProfileID uuid.UUID
	DistanceM       float64
	StartedAt       *time.Time
}
