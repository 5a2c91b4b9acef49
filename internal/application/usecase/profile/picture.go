package profile

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"path"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/networkpro/user-service/internal/application/service"
	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/apperror"
)

const (
	// UploadsDir is the blob store directory served under /uploads.
	UploadsDir            = "uploads"
	PictureKeyPrefix      = UploadsDir + "/profile-pictures"
	maxOriginalNameLength = 100
)

type UploadPictureInput struct {
	ID           int64
	Caller       profile.Caller
	Content      io.Reader
	OriginalName string
}

// MaxUploadBytes is the largest picture UploadPicture accepts.
func (uc *ProfileUseCase) MaxUploadBytes() int64 {
	return uc.maxUploadBytes
}

// UploadPicture writes the blob first and then points the row at it. If the
// row update fails the fresh blob is deleted so no row references it.
func (uc *ProfileUseCase) UploadPicture(ctx context.Context, input UploadPictureInput) (string, error) {
	ctx, span := tracer.Start(ctx, "ProfileUseCase.UploadPicture")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", input.ID))

	l := uc.logger.With(zap.Int64("user_id", input.ID), zap.String("original_name", input.OriginalName))
	l.Info("Uploading profile picture")

	existing, err := uc.profileRepo.FindByID(ctx, input.ID)
	if err != nil {
		return "", err
	}
	if !input.Caller.Owns(existing) {
		return "", apperror.NewPermissionDenied("only the profile owner can change the picture")
	}

	content, err := uc.readPicture(input.Content)
	if err != nil {
		return "", err
	}

	key := PictureKey(input.ID, uuid.NewString(), input.OriginalName)
	pictureURL, err := uc.blobs.Put(ctx, key, bytes.NewReader(content))
	if err != nil {
		return "", apperror.NewBlob("failed to store profile picture", err)
	}

	var previous string
	_, err = uc.mutate(ctx, input.ID, input.Caller, func(p *profile.UserProfile) error {
		previous = p.ProfilePictureURL
		p.ProfilePictureURL = pictureURL
		return nil
	})
	if err != nil {
		uc.discardBlob(ctx, input.ID, key)
		return "", err
	}

	if previous != "" && previous != pictureURL {
		uc.releasePicture(ctx, input.ID, previous)
	}
	l.Info("Profile picture stored", zap.String("blob_key", key))
	uc.publish(service.ProfileEventPictureUploaded, input.ID, key)
	return pictureURL, nil
}

// DeletePicture is idempotent; removed reports whether a picture was referenced.
// The row is cleared first so it never points at a deleted blob.
func (uc *ProfileUseCase) DeletePicture(ctx context.Context, id int64, caller profile.Caller) (bool, error) {
	ctx, span := tracer.Start(ctx, "ProfileUseCase.DeletePicture")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", id))

	uc.logger.Info("Deleting profile picture", zap.Int64("user_id", id))

	var removed string
	_, err := uc.mutate(ctx, id, caller, func(p *profile.UserProfile) error {
		removed = p.ProfilePictureURL
		p.ProfilePictureURL = ""
		return nil
	})
	if err != nil {
		return false, err
	}
	if removed == "" {
		return false, nil
	}

	uc.releasePicture(ctx, id, removed)
	uc.publish(service.ProfileEventPictureDeleted, id, "")
	return true, nil
}

func (uc *ProfileUseCase) readPicture(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, apperror.NewInvalidInput("No file uploaded.", nil)
	}
	content, err := io.ReadAll(io.LimitReader(r, uc.maxUploadBytes+1))
	if err != nil {
		return nil, apperror.NewInvalidInput("failed to read uploaded file", err)
	}
	if len(content) == 0 {
		return nil, apperror.NewInvalidInput("No file uploaded.", nil)
	}
	if int64(len(content)) > uc.maxUploadBytes {
		return nil, apperror.NewInvalidInput(fmt.Sprintf("file exceeds the %d byte limit", uc.maxUploadBytes), nil)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(content)); err != nil {
		return nil, apperror.NewInvalidInput("file must be a png, jpeg, gif or webp image", err)
	}
	return content, nil
}

// discardBlob deletes a blob no row references, such as one staged for a
// failed or cancelled update. Failures go to the worker as blob_orphaned.
func (uc *ProfileUseCase) discardBlob(ctx context.Context, id int64, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
	defer cancel()

	if err := uc.blobs.Delete(ctx, key); err != nil {
		uc.logger.Error("Failed to delete unreferenced profile picture", err, zap.Int64("user_id", id), zap.String("blob_key", key))
		uc.publish(service.ProfileEventBlobOrphaned, id, key)
	}
}

// PictureKey lays out uploads/profile-pictures/{userId}/{uuid}_{originalName}.
func PictureKey(id int64, blobID, originalName string) string {
	return fmt.Sprintf("%s/%d/%s_%s", PictureKeyPrefix, id, blobID, SanitizeFileName(originalName))
}

func ownerKeyPrefix(id int64) string {
	return fmt.Sprintf("%s/%d/", PictureKeyPrefix, id)
}

// SanitizeFileName keeps the base name and replaces anything outside
// [A-Za-z0-9._-] so the name is safe as a single path segment.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "picture"
	}
	if len(out) > maxOriginalNameLength {
		out = out[len(out)-maxOriginalNameLength:]
	}
	return out
}
