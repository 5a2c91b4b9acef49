package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/networkpro/user-service/adapters/event"
	"github.com/networkpro/user-service/adapters/media_storage"
	"github.com/networkpro/user-service/adapters/persistence"
	"github.com/networkpro/user-service/internal/application/service"
	profileUC "github.com/networkpro/user-service/internal/application/usecase/profile"
	"github.com/networkpro/user-service/internal/config"
	"github.com/networkpro/user-service/pkg/logger"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env, cfg.App.LogLevel, "profile-blob-worker")
	defer appLogger.Sync()
	appLogger.Info("Starting profile blob worker...")

	if len(cfg.Kafka.Brokers) == 0 {
		appLogger.Fatal("Worker needs kafka.brokers", errors.New("no kafka brokers configured"))
	}

	// Database
	dbPool, err := persistence.NewPostgresPool(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Cannot connect Postgres", err)
	}
	defer dbPool.Close()

	// Blob storage
	var blobs service.BlobStore
	switch cfg.Blob.Provider {
	case "cloudinary":
		blobs, err = media_storage.NewCloudinaryBlobStore(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize blob store", err)
		}
	default:
		blobs = media_storage.NewLocalBlobStore(afero.NewBasePathFs(afero.NewOsFs(), cfg.Blob.Root))
	}

	// Worker Use Case
	profileRepo := persistence.NewPostgresProfileRepo(dbPool, appLogger)
	processProfileEventUC := profileUC.NewProcessProfileEventUseCase(profileRepo, blobs, appLogger)

	// Kafka Consumer
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Worker listening", zap.String("topic", cfg.Kafka.Topic), zap.String("group_id", cfg.Kafka.GroupID))

	for {
		msg, err := consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				appLogger.Info("Worker stopped")
				return
			}
			appLogger.Error("Failed to read message from Kafka", err)
			continue
		}

		l := appLogger.With(zap.String("key", string(msg.Key)), zap.Int64("offset", msg.Offset))

		evt, err := event.DecodeProfileEvent(msg.Value)
		if err != nil {
			l.Warn("Skipping undecodable event", zap.Error(err))
			commitMessage(ctx, consumer, msg, l)
			continue
		}

		l.Info("Processing event", zap.String("event_type", string(evt.EventType)), zap.Int64("profile_id", evt.ProfileID))

		if err := processProfileEventUC.Execute(ctx, evt); err != nil {
			// left uncommitted so the group redelivers it
			l.Error("Failed to process event", err)
			continue
		}

		commitMessage(ctx, consumer, msg, l)
	}
}

func commitMessage(ctx context.Context, consumer *kafka.Reader, msg kafka.Message, log logger.Logger) {
	if err := consumer.CommitMessages(ctx, msg); err != nil {
		log.Error("Failed to commit message", err)
	}
}
