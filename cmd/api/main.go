package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-profile-backend/config"
	_ "go-profile-backend/docs" // Important for Swagger
	v1 "go-profile-backend/internal/delivery/http/v1"
	"go-profile-backend/internal/domain"
	"go-profile-backend/internal/repository/postgres"
	"go-profile-backend/internal/usecase"
	"go-profile-backend/pkg/auth"
	"go-profile-backend/pkg/database"
	"go-profile-backend/pkg/events"
	"go-profile-backend/pkg/logger"
	"go-profile-backend/pkg/redis"
	"go-profile-backend/pkg/security"
	"go-profile-backend/pkg/security/antivirus"
	"go-profile-backend/pkg/storage"
)

// @title           Profile Backend API
// @version         1.0
// @description     Job-seeker profile service: résumé upload, listing and default selection.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting profile backend", "port", cfg.Port)
	environment := "development"
	if os.Getenv("GIN_MODE") == "release" {
		environment = "production"
	}
	secLog := security.InitSecurityLogger("profile-backend", environment)
	defer func() { _ = secLog.Sync() }()

	ctx := context.Background()

	// 3. Setup Database
	if cfg.AutoMigrate {
		if err := database.Migrate(cfg.DBUrl); err != nil {
			logger.Log.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Setup Repositories
	userRepo := postgres.NewUserRepository(dbPool)
	profileRepo := postgres.NewProfileRepository(dbPool)
	resumeRepo := postgres.NewResumeRepository(dbPool)

	// 5. Setup Object Storage
	store, err := storage.New(ctx, storage.Config{
		Driver:          cfg.StorageDriver,
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Endpoint:        cfg.S3Endpoint,
		UsePathStyle:    cfg.S3UsePathStyle,
		UseSSL:          cfg.S3UseSSL,
	})
	if err != nil {
		logger.Log.Error("Failed to initialize object storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}

	// 6. Setup Redis (optional, rate limiting falls back to memory)
	var redisCheck usecase.HealthCheck
	if err := redis.Initialize(ctx, redis.Config{URL: cfg.UpstashRedisURL, Password: cfg.UpstashRedisPassword}); err != nil {
		logger.Log.Warn("Redis unavailable, using in-memory rate limiting", "error", err)
	} else {
		redisCheck = redis.HealthCheck
		defer redis.Close()
	}

	// 7. Setup Antivirus and Events
	var scanner antivirus.Scanner
	if cfg.ClamAVAddress != "" {
		scanner = antivirus.NewChainScanner(antivirus.NewClamAVScanner(cfg.ClamAVAddress, cfg.ClamAVTimeout))
	} else {
		logger.Log.Warn("CLAMAV_ADDRESS not configured - uploads will not be scanned")
	}

	var publisher domain.ResumeEventPublisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.ResumeEventsExchange, cfg.RabbitMQDialTimeout)
		if err != nil {
			logger.Log.Warn("RabbitMQ unavailable - resume events will be dropped", "error", err)
		} else {
			publisher = amqpPublisher
			defer amqpPublisher.Close()
		}
	}

	// 8. Setup UseCases
	authUC := usecase.NewAuthUsecase(userRepo, profileRepo)
	resumeUC := usecase.NewResumeUsecase(resumeRepo, profileRepo, store, scanner, publisher, cfg.ResumeURLTTL)
	healthUC := usecase.NewHealthUsecase(map[string]usecase.HealthCheck{
		"database": dbPool.Ping,
		"redis":    redisCheck,
		"storage":  store.HealthCheck,
	})

	// 9. Setup Auth Provider (JWKS)
	var jwksProvider *auth.Provider
	if jwksURL := cfg.JWKSURL(); jwksURL != "" {
		jwksProvider = auth.NewProvider(jwksURL)
	}

	// 10. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:       authUC,
		ResumeUC:     resumeUC,
		HealthUC:     healthUC,
		ProfileRepo:  profileRepo,
		JWKSProvider: jwksProvider,
		Config:       cfg,
	})

	// 11. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
