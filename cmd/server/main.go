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

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/networkpro/user-service/adapters/event"
	httpAdapter "github.com/networkpro/user-service/adapters/http"
	"github.com/networkpro/user-service/adapters/media_storage"
	"github.com/networkpro/user-service/adapters/persistence"
	"github.com/networkpro/user-service/internal/application/service"
	profileUC "github.com/networkpro/user-service/internal/application/usecase/profile"
	"github.com/networkpro/user-service/internal/config"
	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/auth"
	"github.com/networkpro/user-service/pkg/logger"
	"github.com/networkpro/user-service/pkg/ratelimit"
	"github.com/networkpro/user-service/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env, cfg.App.LogLevel, "user-profile-service")
	defer appLogger.Sync()
	appLogger.Info("Starting Networkpro User Profile Service...", zap.String("env", cfg.App.Env))
	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration", err)
	}

	tp, err := tracing.NewTracerProvider(cfg, appLogger, "user-profile-service")
	if err != nil {
		appLogger.Fatal("Failed to initialize tracer provider", err)
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				appLogger.Error("Failed to shutdown tracer provider", err)
			}
		}()
	}

	// Repository
	var profileRepo profile.Repository
	switch cfg.DB.Driver {
	case "memory":
		appLogger.Warn("Using in-memory profile store, data is lost on restart")
		profileRepo = persistence.NewMemoryProfileRepo()
	default:
		if cfg.DB.MigrateOnStart {
			if err := persistence.RunMigrations(cfg.DB.MigrationsPath, cfg.DB.DSN, appLogger); err != nil {
				appLogger.Fatal("Failed to run migrations", err)
			}
		}
		dbPool, err := persistence.NewPostgresPool(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot connect Postgres", err)
		}
		defer dbPool.Close()
		profileRepo = persistence.NewPostgresProfileRepo(dbPool, appLogger)
	}

	// Cache
	cache := service.NewNopCache()
	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot connect Redis", err)
		}
		defer redisClient.Close()
		cache = persistence.NewRedisProfileCache(redisClient, cfg.Redis.TTL, appLogger)
	}

	// Events
	publisher := service.NewNopPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot init Kafka", err)
		}
		defer kafkaClient.Close()
		publisher = kafkaClient
	}

	// Blob storage
	var (
		blobs   service.BlobStore
		uploads http.FileSystem
	)
	switch cfg.Blob.Provider {
	case "cloudinary":
		blobs, err = media_storage.NewCloudinaryBlobStore(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize blob store", err)
		}
	default:
		fs := afero.NewBasePathFs(afero.NewOsFs(), cfg.Blob.Root)
		blobs = media_storage.NewLocalBlobStore(fs)
		uploads = afero.NewHttpFs(fs).Dir(profileUC.UploadsDir)
	}

	// Use Case
	profileUseCase := profileUC.NewProfileUseCase(profileRepo, blobs, cache, publisher, appLogger, profileUC.Options{
		MaxUploadBytes: cfg.Blob.MaxUploadBytes,
	})

	// HTTP
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)
	profileHandler := httpAdapter.NewProfileHandler(profileUseCase, cfg.Auth.EnforceOwnership, appLogger)
	if !cfg.Auth.EnforceOwnership {
		appLogger.Warn("Ownership enforcement is disabled, every caller may modify every profile")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var limiter *ratelimit.KeyedRateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go sweepLimiter(ctx, limiter, appLogger)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		ProfileHandler: profileHandler,
		JWTService:     jwtSvc,
		Logger:         appLogger,
		RequestTimeout: cfg.App.RequestTimeout,
		RateLimiter:    limiter,
		Uploads:        uploads,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
}

func sweepLimiter(ctx context.Context, limiter *ratelimit.KeyedRateLimiter, log logger.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Sweep(); n > 0 {
				log.Debug("Evicted idle rate limiters", zap.Int("count", n))
			}
		}
	}
}
