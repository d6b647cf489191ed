package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/service-kit/configs"
	"github.com/avatarctic/service-kit/internal/application/services"
	"github.com/avatarctic/service-kit/internal/core/domain/cache"
	"github.com/avatarctic/service-kit/internal/core/ports"
	"github.com/avatarctic/service-kit/internal/infrastructure/db"
	"github.com/avatarctic/service-kit/internal/infrastructure/email"
	"github.com/avatarctic/service-kit/internal/infrastructure/health"
	"github.com/avatarctic/service-kit/internal/infrastructure/httpserver"
	"github.com/avatarctic/service-kit/internal/infrastructure/logging"
	"github.com/avatarctic/service-kit/internal/infrastructure/memory"
	"github.com/avatarctic/service-kit/internal/infrastructure/redis"
	"github.com/avatarctic/service-kit/internal/infrastructure/repositories"
	"github.com/avatarctic/service-kit/internal/infrastructure/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logging.New(&cfg.Log)
	logger.Info("Starting service-kit...")

	ctx := context.Background()

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis successfully")

	healthCheckers := []ports.HealthChecker{health.NewRedisHealthChecker(redisClient)}

	// Response cache records
	var store ports.HashStore
	switch cfg.Cache.Store {
	case "memory":
		mem, err := memory.NewHashStore(cfg.Cache.MemoryMaxEntries)
		if err != nil {
			logger.Fatal("Failed to create in-memory cache store:", err)
		}
		defer mem.Close()
		store = mem
	default:
		store = redis.NewHashStore(redisClient, cfg.Cache.KeyPrefix)
	}
	cacheSvc, err := services.NewResponseCacheService(&services.ResponseCacheConfig{
		Store:           store,
		Debug:           cfg.Cache.Debug,
		DefaultDuration: cache.ParseDuration(cfg.Cache.DefaultDuration, cache.DefaultDurationMillis),
		Namespace:       cfg.Cache.Namespace,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize response cache:", err)
	}
	logger.WithFields(logrus.Fields{
		"store":    cfg.Cache.Store,
		"duration": cfg.Cache.DefaultDuration,
	}).Info("Response cache ready")

	tokenSvc := services.NewTokenService(&cfg.JWT, redis.NewRedisCache(redisClient, "tokens"), logger)

	deps := httpserver.ServerDeps{
		TokenService:  tokenSvc,
		ResponseCache: cacheSvc,
	}

	if cfg.Email.SendGridAPIKey != "" {
		mailer, err := email.NewMailer(&cfg.Email, logger)
		if err != nil {
			logger.Fatal("Failed to initialize mailer:", err)
		}
		deps.Mailer = mailer
	} else {
		logger.Warn("SENDGRID_API_KEY not set; mail endpoint disabled")
	}

	switch {
	case cfg.Storage.S3Enabled():
		s3Store, err := storage.NewS3Store(ctx, &cfg.Storage.S3, logger)
		if err != nil {
			logger.Fatal("Failed to initialize S3 storage:", err)
		}
		deps.ObjectStore = s3Store
		healthCheckers = append(healthCheckers, health.NewObjectStoreHealthChecker("s3", s3Store))
	case cfg.Storage.GCSEnabled():
		gcsStore, err := storage.NewGCSStore(ctx, &cfg.Storage.GCS, logger)
		if err != nil {
			logger.Fatal("Failed to initialize GCS storage:", err)
		}
		defer gcsStore.Close()
		deps.ObjectStore = gcsStore
		healthCheckers = append(healthCheckers, health.NewObjectStoreHealthChecker("gcs", gcsStore))
	}

	var auditRepo ports.AuditRepository
	if cfg.Database.Enabled {
		database, err := db.NewDatabase(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database:", err)
		}
		defer database.Close()
		logger.Info("Connected to database successfully")

		if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
			logger.Warn("Failed to run migrations:", err)
		}
		auditRepo = repositories.NewAuditRepository(database, logger)
		healthCheckers = append(healthCheckers, health.NewDBHealthChecker(database))
	}
	deps.AuditService = services.NewAuditService(auditRepo, logger)
	deps.HealthCheckers = healthCheckers

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
		CacheDuration:  cfg.Cache.DefaultDuration,
	}
	server := httpserver.NewServer(serverConfig, logger, deps)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
