package main

import (
	"fmt"
	"os"
	"time"

	"safety-analytics/internal/auth"
	"safety-analytics/internal/cache"
	"safety-analytics/internal/config"
	"safety-analytics/internal/db"
	httphandler "safety-analytics/internal/http"
	"safety-analytics/internal/http/middleware"
	"safety-analytics/internal/logger"
	"safety-analytics/internal/repository"
	"safety-analytics/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	var resultCache cache.Cache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		resultCache = cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, appLogger)
		appLogger.Info().Str("addr", cfg.Redis.Addr).Msg("result cache enabled")
	}

	scopeRepo := repository.NewScopeRepository(database)
	tripRepo := repository.NewTripRepository(database)
	cohortResolver := service.NewCohortResolver(scopeRepo)
	analyticsService := service.NewAnalyticsService(
		cohortResolver,
		scopeRepo,
		tripRepo,
		resultCache,
		appLogger,
		cfg.Analytics,
		time.Duration(cfg.Cache.TTLSeconds)*time.Second,
	)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(analyticsService, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting safety analytics service")

	if err := router.Run(addr); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}
