package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"safety-analytics/internal/apperr"
	"safety-analytics/internal/http/middleware"
	"safety-analytics/internal/model"
	"safety-analytics/internal/period"
	"safety-analytics/internal/service"
)

type Handler struct {
	analytics *service.AnalyticsService
	log       zerolog.Logger
}

func NewHandler(analytics *service.AnalyticsService, log zerolog.Logger) *Handler {
	return &Handler{analytics: analytics, log: log}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := r.Group("/analytics")
	protected.Use(authMiddleware)

	protected.GET("/leaderboard", h.getLeaderboard)
	protected.GET("/bad-days", h.getBadDays)
	protected.GET("/improvement", h.getImprovement)
	protected.GET("/improvement/trend", h.getImprovementTrend)
	protected.GET("/drivers/:id/trips", h.getDriverTrips)
}

func (h *Handler) getLeaderboard(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	filter, err := h.parseAnalyticsFilter(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	leaderboard, err := h.analytics.GetLeaderboard(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(leaderboard))
}

func (h *Handler) getBadDays(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	filter, err := h.parseAnalyticsFilter(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	report, err := h.analytics.GetBadPeriods(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(report))
}

func (h *Handler) getImprovement(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	filter, err := h.parseAnalyticsFilter(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	result, err := h.analytics.GetImprovement(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) getImprovementTrend(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	filter, err := h.parseAnalyticsFilter(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	trend, err := h.analytics.GetImprovementTrend(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(trend))
}

func (h *Handler) getDriverTrips(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	driverID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid driver id"))
		return
	}

	rng, err := parseDateRange(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	samples, err := h.analytics.GetDriverTrips(c.Request.Context(), principal, driverID, rng)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(samples))
}

func (h *Handler) parseAnalyticsFilter(c *gin.Context) (model.AnalyticsFilter, error) {
	filter := model.AnalyticsFilter{}

	rng, err := parseDateRange(c)
	if err != nil {
		return filter, err
	}
	filter.Range = rng
	filter.Week = strings.TrimSpace(c.Query("week"))

	if filter.Period, err = period.Parse(c.Query("period")); err != nil {
		return filter, err
	}

	if filter.FleetID, err = parseOptionalID(c, "fleetId"); err != nil {
		return filter, err
	}
	if filter.InsurancePartnerID, err = parseOptionalID(c, "insurancePartnerId"); err != nil {
		return filter, err
	}
	if filter.DriverProfileID, err = parseOptionalID(c, "driverProfileId"); err != nil {
		return filter, err
	}

	if limitStr := strings.TrimSpace(c.Query("limit")); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return filter, fmt.Errorf("%w: invalid limit %q", apperr.ErrInvalidRequest, limitStr)
		}
		filter.Limit = limit
	}

	return filter, nil
}

func parseDateRange(c *gin.Context) (model.DateRange, error) {
	rng := model.DateRange{}
	if fromStr := strings.TrimSpace(c.Query("startDate")); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return rng, fmt.Errorf("%w: invalid startDate %q", apperr.ErrInvalidRequest, fromStr)
		}
		rng.From = parsed
	}
	if toStr := strings.TrimSpace(c.Query("endDate")); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return rng, fmt.Errorf("%w: invalid endDate %q", apperr.ErrInvalidRequest, toStr)
		}
		rng.To = parsed
	}
	return rng, nil
}

func parseOptionalID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", apperr.ErrInvalidRequest, name)
	}
	return &id, nil
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, apperr.ErrForbidden):
		// One stable message for every scope violation.
		c.JSON(http.StatusForbidden, errorResponse(apperr.ErrForbidden.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, apperr.ErrUnavailable):
		h.log.Error().Err(err).Msg("persistence unavailable")
		c.JSON(http.StatusServiceUnavailable, errorResponse("service unavailable"))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{"data": data}
}

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}
