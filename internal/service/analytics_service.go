package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"safety-analytics/internal/apperr"
	"safety-analytics/internal/cache"
	"safety-analytics/internal/config"
	"safety-analytics/internal/model"
	"safety-analytics/internal/period"
	"safety-analytics/internal/stats"
)

// TripReader is the read-only trip/behaviour query surface. Satisfied by
// repository.TripRepository.
type TripReader interface {
	TripAggregates(ctx context.Context, driverIDs []uuid.UUID, window *model.DateRange) ([]model.TripAggregate, error)
	BehaviourCounts(ctx context.Context, tripIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

type AnalyticsService struct {
	cohorts  *CohortResolver
	members  MembershipStore
	trips    TripReader
	cache    cache.Cache
	log      zerolog.Logger
	cfg      config.AnalyticsConfig
	cacheTTL time.Duration
}

func NewAnalyticsService(cohorts *CohortResolver, members MembershipStore, trips TripReader, resultCache cache.Cache, log zerolog.Logger, cfg config.AnalyticsConfig, cacheTTL time.Duration) *AnalyticsService {
	return &AnalyticsService{
		cohorts:  cohorts,
		members:  members,
		trips:    trips,
		cache:    resultCache,
		log:      log,
		cfg:      cfg,
		cacheTTL: cacheTTL,
	}
}

func (s *AnalyticsService) GetLeaderboard(ctx context.Context, principal model.Principal, filter model.AnalyticsFilter) (*model.Leaderboard, error) {
	cohort, err := s.cohorts.Resolve(ctx, principal, filter.FleetID, filter.InsurancePartnerID, false)
	if err != nil {
		return nil, err
	}

	p, window, err := s.resolveWindow(filter)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = s.cfg.LeaderboardLimit
	}
	if limit > 100 {
		limit = 100
	}

	key := fmt.Sprintf("analytics:leaderboard:%s:%s:%d:%d:%d",
		cohortKey(cohort), p, window.From.Unix(), window.To.Unix(), limit)
	var cached model.Leaderboard
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	leaderboard := &model.Leaderboard{
		Period:    p,
		StartDate: window.From,
		EndDate:   window.To,
		Best:      []model.LeaderboardEntry{},
		Worst:     []model.LeaderboardEntry{},
	}

	if !cohort.Empty() {
		trips, counts, err := s.loadTrips(ctx, cohort.DriverIDs, &window)
		if err != nil {
			return nil, err
		}
		totals := accumulateTotals(inWindow(trips, window), counts)
		leaderboard.Best, leaderboard.Worst, leaderboard.TotalDrivers = rankLeaderboard(totals, limit)
	}

	s.toCache(ctx, key, leaderboard)
	return leaderboard, nil
}

func (s *AnalyticsService) GetBadPeriods(ctx context.Context, principal model.Principal, filter model.AnalyticsFilter) (*model.BadPeriodReport, error) {
	cohort, err := s.cohorts.Resolve(ctx, principal, filter.FleetID, filter.InsurancePartnerID, false)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("analytics:bad-periods:%s:%s", cohortKey(cohort), now.Format("2006-01-02"))
	var cached model.BadPeriodReport
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	maxDays := s.cfg.BadDayWindowDays
	if s.cfg.BadWeekWindowDays > maxDays {
		maxDays = s.cfg.BadWeekWindowDays
	}
	if s.cfg.BadMonthWindowDays > maxDays {
		maxDays = s.cfg.BadMonthWindowDays
	}
	fullWindow := model.DateRange{From: now.AddDate(0, 0, -maxDays), To: now}

	report := &model.BadPeriodReport{Drivers: []model.DriverBadPeriods{}}

	if cohort.Empty() {
		s.toCache(ctx, key, report)
		return report, nil
	}

	trips, counts, err := s.loadTrips(ctx, cohort.DriverIDs, &fullWindow)
	if err != nil {
		return nil, err
	}

	granularities := []struct {
		period     model.Period
		windowDays int
	}{
		{model.PeriodDay, s.cfg.BadDayWindowDays},
		{model.PeriodWeek, s.cfg.BadWeekWindowDays},
		{model.PeriodMonth, s.cfg.BadMonthWindowDays},
	}

	perDriver := make(map[uuid.UUID]*model.DriverBadPeriods)
	for _, id := range cohort.DriverIDs {
		perDriver[id] = &model.DriverBadPeriods{DriverProfileID: id}
	}

	for _, g := range granularities {
		window := model.DateRange{From: now.AddDate(0, 0, -g.windowDays), To: now}
		series := driverBucketSeries(trips, counts, g.period, window)
		results, threshold := detectBadPeriods(series)

		switch g.period {
		case model.PeriodDay:
			report.Thresholds.Day = threshold
		case model.PeriodWeek:
			report.Thresholds.Week = threshold
		case model.PeriodMonth:
			report.Thresholds.Month = threshold
		}

		for driverID, result := range results {
			entry, ok := perDriver[driverID]
			if !ok {
				entry = &model.DriverBadPeriods{DriverProfileID: driverID}
				perDriver[driverID] = entry
			}
			switch g.period {
			case model.PeriodDay:
				entry.BadDays = result.BadCount
				entry.LastDayDelta = result.LastDelta
			case model.PeriodWeek:
				entry.BadWeeks = result.BadCount
				entry.LastWeekDelta = result.LastDelta
			case model.PeriodMonth:
				entry.BadMonths = result.BadCount
				entry.LastMonthDelta = result.LastDelta
			}
		}
	}

	for _, entry := range perDriver {
		report.Drivers = append(report.Drivers, *entry)
	}
	sort.Slice(report.Drivers, func(i, j int) bool {
		return report.Drivers[i].DriverProfileID.String() < report.Drivers[j].DriverProfileID.String()
	})

	s.toCache(ctx, key, report)
	return report, nil
}

// GetImprovement compares one driver's daily UBPK in the requested ISO
// week against the preceding week with a paired test.
func (s *AnalyticsService) GetImprovement(ctx context.Context, principal model.Principal, filter model.AnalyticsFilter) (*model.ImprovementResult, error) {
	if filter.DriverProfileID == nil {
		return nil, fmt.Errorf("%w: driverProfileId is required", apperr.ErrInvalidRequest)
	}
	driverID := *filter.DriverProfileID
	if err := s.authorizeDriver(ctx, principal, driverID); err != nil {
		return nil, err
	}

	var weekStart, weekEnd time.Time
	var err error
	if filter.Week != "" {
		weekStart, weekEnd, err = period.ParseISOWeek(filter.Week)
		if err != nil {
			return nil, err
		}
	} else {
		weekStart = period.BucketStart(time.Now().UTC(), model.PeriodWeek)
		weekEnd = period.BucketEnd(weekStart, model.PeriodWeek)
	}
	prevStart := weekStart.AddDate(0, 0, -7)

	window := model.DateRange{From: prevStart, To: weekEnd}
	trips, counts, err := s.loadTrips(ctx, []uuid.UUID{driverID}, &window)
	if err != nil {
		return nil, err
	}

	current := dailySeries(trips, counts, driverID, model.DateRange{From: weekStart, To: weekEnd})
	previous := dailySeries(trips, counts, driverID, model.DateRange{From: prevStart, To: weekStart})

	meanDiff, pValue, err := stats.PairedTTest(current, previous)
	if err != nil {
		return nil, err
	}

	return &model.ImprovementResult{
		DriverProfileID: driverID,
		PValue:          pValue,
		MeanDifference:  meanDiff,
	}, nil
}

// GetImprovementTrend splits one driver's bucketed UBPK series into an
// earlier and a later half and runs Welch's unequal-variance test.
// Improvement is reported only for a significant decrease.
func (s *AnalyticsService) GetImprovementTrend(ctx context.Context, principal model.Principal, filter model.AnalyticsFilter) (*model.ImprovementTrend, error) {
	if filter.DriverProfileID == nil {
		return nil, fmt.Errorf("%w: driverProfileId is required", apperr.ErrInvalidRequest)
	}
	driverID := *filter.DriverProfileID
	if err := s.authorizeDriver(ctx, principal, driverID); err != nil {
		return nil, err
	}

	clamped := filter.ClampRange(s.cfg.DefaultRangeDays, s.cfg.MaxRangeDays)
	window := clamped.Range
	p := filter.Bucket()

	trips, counts, err := s.loadTrips(ctx, []uuid.UUID{driverID}, &window)
	if err != nil {
		return nil, err
	}

	points := driverBucketSeries(trips, counts, p, window)[driverID]
	values := make([]float64, len(points))
	for i, point := range points {
		values[i] = point.UBPK
	}
	if len(values) < 4 {
		return nil, fmt.Errorf("%w: at least 4 %s buckets are required, got %d", apperr.ErrInvalidRequest, p, len(values))
	}

	half := len(values) / 2
	earlier := values[:half]
	later := values[half:]

	meanDiff, pValue, err := stats.WelchTTest(later, earlier)
	if err != nil {
		return nil, err
	}

	return &model.ImprovementTrend{
		DriverProfileID: driverID,
		PValue:          pValue,
		MeanDifference:  meanDiff,
		Improved:        pValue < 0.05 && stats.Mean(later) < stats.Mean(earlier),
	}, nil
}

// GetDriverTrips returns the per-trip UBPK samples for one driver.
// Driver callers may only query themselves; a fleet mate inside the same
// cohort is still off limits here.
func (s *AnalyticsService) GetDriverTrips(ctx context.Context, principal model.Principal, driverID uuid.UUID, rng model.DateRange) ([]model.UBPKSample, error) {
	if principal.IsDriver() && (principal.DriverProfileID == nil || *principal.DriverProfileID != driverID) {
		return nil, fmt.Errorf("%w: scope mismatch", apperr.ErrForbidden)
	}
	if err := s.authorizeDriver(ctx, principal, driverID); err != nil {
		return nil, err
	}

	var window *model.DateRange
	if !rng.IsZero() {
		// An open-ended range means "until now"; the zero From is already a
		// valid lower bound.
		if rng.To.IsZero() {
			rng.To = time.Now().UTC()
		}
		window = &rng
	}

	trips, counts, err := s.loadTrips(ctx, []uuid.UUID{driverID}, window)
	if err != nil {
		return nil, err
	}

	samples := make([]model.UBPKSample, 0, len(trips))
	for _, trip := range trips {
		samples = append(samples, model.UBPKSample{
			TripID:      trip.TripID,
			UnsafeCount: counts[trip.TripID],
			DistanceKm:  trip.DistanceM / 1000,
			UBPK:        UBPK(counts[trip.TripID], trip.DistanceM),
			StartedAt:   trip.StartedAt,
		})
	}
	sort.Slice(samples, func(i, j int) bool {
		a, b := samples[i].StartedAt, samples[j].StartedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.Before(*b)
	})
	return samples, nil
}

func (s *AnalyticsService) authorizeDriver(ctx context.Context, principal model.Principal, driverID uuid.UUID) error {
	cohort, err := s.cohorts.Resolve(ctx, principal, nil, nil, false)
	if err != nil {
		return err
	}
	if !cohort.Contains(driverID) {
		return fmt.Errorf("%w: scope mismatch", apperr.ErrForbidden)
	}
	if cohort.Unrestricted {
		exists, err := s.members.DriverExists(ctx, driverID)
		if err != nil {
			return fmt.Errorf("%w: check driver: %v", apperr.ErrUnavailable, err)
		}
		if !exists {
			return fmt.Errorf("%w: driver profile", apperr.ErrNotFound)
		}
	}
	return nil
}

func (s *AnalyticsService) loadTrips(ctx context.Context, driverIDs []uuid.UUID, window *model.DateRange) ([]model.TripAggregate, map[uuid.UUID]int64, error) {
	trips, err := s.trips.TripAggregates(ctx, driverIDs, window)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load trips: %v", apperr.ErrUnavailable, err)
	}

	tripIDs := make([]uuid.UUID, len(trips))
	for i, trip := range trips {
		tripIDs[i] = trip.TripID
	}
	counts, err := s.trips.BehaviourCounts(ctx, tripIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load behaviour counts: %v", apperr.ErrUnavailable, err)
	}
	return trips, counts, nil
}

// resolveWindow picks the leaderboard window: explicit dates win, then an
// ISO week string, then the current calendar bucket of the period.
func (s *AnalyticsService) resolveWindow(filter model.AnalyticsFilter) (model.Period, model.DateRange, error) {
	p := filter.Bucket()

	if !filter.Range.IsZero() {
		clamped := filter.ClampRange(s.cfg.DefaultRangeDays, s.cfg.MaxRangeDays)
		return p, clamped.Range, nil
	}
	if filter.Week != "" {
		start, end, err := period.ParseISOWeek(filter.Week)
		if err != nil {
			return "", model.DateRange{}, err
		}
		return model.PeriodWeek, model.DateRange{From: start, To: end}, nil
	}

	start := period.BucketStart(time.Now().UTC(), p)
	return p, model.DateRange{From: start, To: period.BucketEnd(start, p)}, nil
}

// dailySeries extracts one driver's day-bucket UBPK values inside window.
func dailySeries(trips []model.TripAggregate, counts map[uuid.UUID]int64, driverID uuid.UUID, window model.DateRange) []float64 {
	points := driverBucketSeries(trips, counts, model.PeriodDay, window)[driverID]
	values := make([]float64, len(points))
	for i, point := range points {
		values[i] = point.UBPK
	}
	return values
}

func inWindow(trips []model.TripAggregate, window model.DateRange) []model.TripAggregate {
	result := trips[:0:0]
	for _, trip := range trips {
		if trip.StartedAt == nil {
			continue
		}
		started := trip.StartedAt.UTC()
		if started.Before(window.From) || !started.Before(window.To) {
			continue
		}
		result = append(result, trip)
	}
	return result
}

func cohortKey(c model.Cohort) string {
	if c.Unrestricted {
		return "all"
	}
	ids := make([]string, len(c.DriverIDs))
	for i, id := range c.DriverIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)

	digest := sha256.New()
	for _, id := range ids {
		digest.Write([]byte(id))
	}
	return hex.EncodeToString(digest.Sum(nil))[:16]
}

func (s *AnalyticsService) fromCache(ctx context.Context, key string, out interface{}) bool {
	payload, ok := s.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return false
	}
	return true
}

func (s *AnalyticsService) toCache(ctx context.Context, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.cache.Set(ctx, key, payload, s.cacheTTL)
}
