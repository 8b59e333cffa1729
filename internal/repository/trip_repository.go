package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"safety-analytics/internal/model"
)

// TripRepository is the read-only trip/behaviour query surface. Distance
// is derived per trip as the sum of location-sample distances reachable
// through the trip's raw sensor rows; trips without location rows report
// 0.0, not NULL.
type TripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) *TripRepository {
	return &TripRepository{db: db}
}

type tripRow struct {
	TripID          uuid.UUID
	DriverProfileID uuid.UUID
	DistanceM       float64
	StartDate       *time.Time
	StartTime       *int64
}

// TripAggregates returns one row per trip with the summed distance and
// the resolved start timestamp. driverIDs nil means all drivers. When a
// window is given, trips with neither start_date nor start_time are
// excluded; start_date wins when both are present.
func (r *TripRepository) TripAggregates(ctx context.Context, driverIDs []uuid.UUID, window *model.DateRange) ([]model.TripAggregate, error) {
	var rows []tripRow

	query := r.db.WithContext(ctx).
		Table("trips tr").
		Select(`tr.id AS trip_id,
			tr.driver_profile_id,
			COALESCE(SUM(l.distance), 0) AS distance_m,
			tr.start_date,
			tr.start_time`).
		Joins("LEFT JOIN raw_sensor_data rsd ON rsd.trip_id = tr.id").
		Joins("LEFT JOIN locations l ON l.raw_sensor_data_id = rsd.id").
		Group("tr.id, tr.driver_profile_id, tr.start_date, tr.start_time")

	if len(driverIDs) > 0 {
		query = query.Where("tr.driver_profile_id IN ?", driverIDs)
	}
	if window != nil {
		query = query.Where(
			"(tr.start_date BETWEEN ? AND ?) OR (tr.start_date IS NULL AND tr.start_time BETWEEN ? AND ?)",
			window.From, window.To, window.From.UnixMilli(), window.To.UnixMilli())
	}

	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]model.TripAggregate, 0, len(rows))
	for _, row := range rows {
		result = append(result, model.TripAggregate{
			TripID:          row.TripID,
			DriverProfileID: row.DriverProfileID,
			DistanceM:       row.DistanceM,
			StartedAt:       resolveStart(row.StartDate, row.StartTime),
		})
	}
	return result, nil
}

// BehaviourCounts returns the unsafe-behaviour count per trip. Trips with
// no events are simply absent from the map.
func (r *TripRepository) BehaviourCounts(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(tripIDs))
	if len(tripIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		TripID uuid.UUID
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Table("unsafe_behaviours").
		Select("trip_id, COUNT(*) AS count").
		Where("trip_id IN ?", tripIDs).
		Group("trip_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.TripID] = row.Count
	}
	return counts, nil
}

// resolveStart prefers the calendar start date and falls back to the
// epoch-millisecond start time. Both absent means the trip cannot be
// placed on a timeline.
func resolveStart(startDate *time.Time, startTime *int64) *time.Time {
	if startDate != nil {
		return startDate
	}
	if startTime != nil {
		ts := time.UnixMilli(*startTime).UTC()
		return &ts
	}
	return nil
}
