package service

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"safety-analytics/internal/model"
	"safety-analytics/internal/period"
	"safety-analytics/internal/stats"
)

// UBPK is unsafe behaviours per kilometre. Zero distance yields 0.0, not
// NaN; every downstream sort and threshold relies on that convention.
func UBPK(unsafeCount int64, distanceM float64) float64 {
	distanceKm := distanceM / 1000
	if distanceKm <= 0 {
		return 0.0
	}
	return float64(unsafeCount) / distanceKm
}

type driverTotals struct {
	UnsafeCount int64
	DistanceM   float64
}

func accumulateTotals(trips []model.TripAggregate, counts map[uuid.UUID]int64) map[uuid.UUID]driverTotals {
	totals := make(map[uuid.UUID]driverTotals)
	for _, trip := range trips {
		t := totals[trip.DriverProfileID]
		t.UnsafeCount += counts[trip.TripID]
		t.DistanceM += trip.DistanceM
		totals[trip.DriverProfileID] = t
	}
	return totals
}

// rankLeaderboard sorts drivers ascending by UBPK (lower is safer).
// best is the first limit entries; worst is the last limit entries in
// worst-first order.
func rankLeaderboard(totals map[uuid.UUID]driverTotals, limit int) (best, worst []model.LeaderboardEntry, total int) {
	entries := make([]model.LeaderboardEntry, 0, len(totals))
	for driverID, t := range totals {
		entries = append(entries, model.LeaderboardEntry{
			DriverProfileID: driverID,
			UBPK:            UBPK(t.UnsafeCount, t.DistanceM),
			UnsafeCount:     t.UnsafeCount,
			DistanceKm:      t.DistanceM / 1000,
		})
	}

	// Map order is random; fix insertion order before the stable sort so
	// ties rank deterministically.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DriverProfileID.String() < entries[j].DriverProfileID.String()
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UBPK < entries[j].UBPK
	})

	total = len(entries)
	n := limit
	if n > total {
		n = total
	}

	best = make([]model.LeaderboardEntry, n)
	copy(best, entries[:n])

	worst = make([]model.LeaderboardEntry, n)
	for i := 0; i < n; i++ {
		worst[i] = entries[total-1-i]
	}
	return best, worst, total
}

type bucketPoint struct {
	Start time.Time
	UBPK  float64
}

// driverBucketSeries groups each driver's trips into calendar buckets and
// computes the bucket UBPK. Trips without a resolvable start time are
// skipped, never fatal. Series come back chronologically ordered.
func driverBucketSeries(trips []model.TripAggregate, counts map[uuid.UUID]int64, p model.Period, window model.DateRange) map[uuid.UUID][]bucketPoint {
	type bucketTotals struct {
		UnsafeCount int64
		DistanceM   float64
	}
	perDriver := make(map[uuid.UUID]map[time.Time]bucketTotals)

	for _, trip := range trips {
		if trip.StartedAt == nil {
			continue
		}
		started := trip.StartedAt.UTC()
		if started.Before(window.From) || !started.Before(window.To) {
			continue
		}
		bucket := period.BucketStart(started, p)
		buckets, ok := perDriver[trip.DriverProfileID]
		if !ok {
			buckets = make(map[time.Time]bucketTotals)
			perDriver[trip.DriverProfileID] = buckets
		}
		t := buckets[bucket]
		t.UnsafeCount += counts[trip.TripID]
		t.DistanceM += trip.DistanceM
		buckets[bucket] = t
	}

	series := make(map[uuid.UUID][]bucketPoint, len(perDriver))
	for driverID, buckets := range perDriver {
		points := make([]bucketPoint, 0, len(buckets))
		for start, t := range buckets {
			points = append(points, bucketPoint{Start: start, UBPK: UBPK(t.UnsafeCount, t.DistanceM)})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Start.Before(points[j].Start) })
		series[driverID] = points
	}
	return series
}

type badPeriodResult struct {
	BadCount  int
	LastDelta *float64
}

// detectBadPeriods runs the two-pass anomaly detection. Pass one pools
// every consecutive bucket delta across the whole cohort and derives the
// shared threshold: the 75th percentile of the pool, floored at zero.
// Pass two counts, per driver, deltas strictly above that threshold. The
// threshold must be complete before any driver's count is finalized; the
// per-driver delta lists are kept from pass one, which does not change
// the output.
func detectBadPeriods(series map[uuid.UUID][]bucketPoint) (map[uuid.UUID]badPeriodResult, float64) {
	deltasByDriver := make(map[uuid.UUID][]float64, len(series))
	var pool []float64

	for driverID, points := range series {
		if len(points) < 2 {
			deltasByDriver[driverID] = nil
			continue
		}
		deltas := make([]float64, 0, len(points)-1)
		for i := 1; i < len(points); i++ {
			deltas = append(deltas, points[i].UBPK-points[i-1].UBPK)
		}
		deltasByDriver[driverID] = deltas
		pool = append(pool, deltas...)
	}

	threshold := 0.0
	if len(pool) > 0 {
		sort.Float64s(pool)
		if p := stats.Percentile(pool, 0.75); p > 0 {
			threshold = p
		}
	}

	results := make(map[uuid.UUID]badPeriodResult, len(series))
	for driverID, deltas := range deltasByDriver {
		result := badPeriodResult{}
		for _, delta := range deltas {
			if delta > threshold {
				result.BadCount++
			}
		}
		if len(deltas) > 0 {
			last := deltas[len(deltas)-1]
			result.LastDelta = &last
		}
		results[driverID] = result
	}
	return results, threshold
}
