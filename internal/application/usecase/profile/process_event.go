package profile

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/networkpro/user-service/internal/application/service"
	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/apperror"
	"github.com/networkpro/user-service/pkg/logger"
)

// ProcessProfileEventUseCase runs in the worker and deletes blobs that a
// request could not delete itself.
type ProcessProfileEventUseCase struct {
	profileRepo profile.Repository
	blobs       service.BlobStore
	logger      logger.Logger
}

func NewProcessProfileEventUseCase(repo profile.Repository, blobs service.BlobStore, log logger.Logger) *ProcessProfileEventUseCase {
	return &ProcessProfileEventUseCase{profileRepo: repo, blobs: blobs, logger: log}
}

func (uc *ProcessProfileEventUseCase) Execute(ctx context.Context, evt service.ProfileEvent) error {
	l := uc.logger.With(zap.String("event_type", string(evt.EventType)), zap.Int64("user_id", evt.ProfileID))

	if evt.EventType != service.ProfileEventBlobOrphaned {
		l.Debug("Ignoring profile event")
		return nil
	}
	if evt.BlobKey == "" || !strings.HasPrefix(evt.BlobKey, ownerKeyPrefix(evt.ProfileID)) {
		l.Warn("Orphaned blob event carries an unexpected key, skipping", zap.String("blob_key", evt.BlobKey))
		return nil
	}

	// the row may have been pointed back at the blob since the event was sent
	p, err := uc.profileRepo.FindByID(ctx, evt.ProfileID)
	switch {
	case err == nil:
		if key, ok := uc.blobs.KeyFromURL(p.ProfilePictureURL); ok && key == evt.BlobKey {
			l.Info("Blob is referenced again, keeping it", zap.String("blob_key", evt.BlobKey))
			return nil
		}
	case errors.Is(err, apperror.ErrNotFound):
	default:
		return err
	}

	if err := uc.blobs.Delete(ctx, evt.BlobKey); err != nil {
		return apperror.NewBlob("failed to delete orphaned blob", err)
	}
	l.Info("Deleted orphaned blob", zap.String("blob_key", evt.BlobKey))
	return nil
}
