package main

import (
	"fmt"
	"log"

	"github.com/ondutypro/onduty-api/internal/handler"
	"github.com/ondutypro/onduty-api/internal/repository"
	"github.com/ondutypro/onduty-api/internal/router"
	"github.com/ondutypro/onduty-api/internal/service"
	"github.com/ondutypro/onduty-api/pkg/cache"
	"github.com/ondutypro/onduty-api/pkg/config"
	"github.com/ondutypro/onduty-api/pkg/database"
	"github.com/ondutypro/onduty-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, list caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, auditRepo, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "onduty-api",
	})
	userSvc := service.NewUserService(userRepo, auditRepo, logr)
	requestSvc := service.NewRequestService(requestRepo, userRepo, auditRepo, logr,
		service.WithListCache(cacheRepo, cfg.Cache.TTL),
		service.WithMetrics(metricsSvc),
	)

	handlers := router.Handlers{
		Auth:    handler.NewAuthHandler(authSvc),
		User:    handler.NewUserHandler(userSvc),
		Request: handler.NewRequestHandler(requestSvc),
		Health:  handler.NewHealthHandler(),
		Metrics: handler.NewMetricsHandler(metricsSvc),
	}

	r := router.Setup(cfg, handlers, authSvc, metricsSvc, logr)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
