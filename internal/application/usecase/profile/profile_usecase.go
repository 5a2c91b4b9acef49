package profile

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/networkpro/user-service/internal/application/service"
	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/apperror"
	"github.com/networkpro/user-service/pkg/logger"
)

var tracer = otel.Tracer("github.com/networkpro/user-service/usecase/profile")

const (
	defaultMaxUploadBytes = 5 << 20
	backgroundTimeout     = 30 * time.Second
)

type Options struct {
	MaxUploadBytes int64
}

type ProfileUseCase struct {
	profileRepo    profile.Repository
	blobs          service.BlobStore
	cache          service.ProfileCache
	events         service.EventPublisher
	logger         logger.Logger
	maxUploadBytes int64
	now            func() time.Time
}

func NewProfileUseCase(
	repo profile.Repository,
	blobs service.BlobStore,
	cache service.ProfileCache,
	events service.EventPublisher,
	log logger.Logger,
	opts Options,
) *ProfileUseCase {
	if cache == nil {
		cache = service.NewNopCache()
	}
	if events == nil {
		events = service.NewNopPublisher()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &ProfileUseCase{
		profileRepo:    repo,
		blobs:          blobs,
		cache:          cache,
		events:         events,
		logger:         log,
		maxUploadBytes: opts.MaxUploadBytes,
		now:            time.Now,
	}
}

type CreateProfileInput struct {
	FullName string
	Email    string
	// Fields carries the optional descriptive fields, skills and privacy flags.
	// Its FullName is ignored.
	Fields profile.Patch
}

func (uc *ProfileUseCase) Create(ctx context.Context, input CreateProfileInput) (*profile.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "ProfileUseCase.Create")
	defer span.End()

	uc.logger.Info("Creating new user profile", zap.String("email", input.Email))

	p := profile.New(input.FullName, input.Email)
	fields := input.Fields
	fields.FullName = nil
	if err := p.Apply(fields); err != nil {
		return nil, apperror.NewInvalidInput(err.Error(), err)
	}
	// no id yet, so only external picture URLs pass
	if err := uc.checkPictureURL(ctx, 0, p.ProfilePictureURL); err != nil {
		return nil, err
	}

	if err := uc.profileRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("profile.id", p.ID))

	uc.publish(service.ProfileEventCreated, p.ID, "")
	return p, nil
}

// GetByID never fails for a missing row; it reports found=false instead.
func (uc *ProfileUseCase) GetByID(ctx context.Context, id int64) (*profile.UserProfile, bool, error) {
	ctx, span := tracer.Start(ctx, "ProfileUseCase.GetByID")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", id))

	uc.logger.Info("Fetching user profile", zap.Int64("user_id", id))

	if p, ok := uc.cache.Get(ctx, id); ok {
		return p, true, nil
	}

	version := uc.cache.Version(ctx, id)
	p, err := uc.profileRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	uc.cache.Set(ctx, p, version)
	return p, true, nil
}

// GetPublicByID hides private profiles exactly like missing ones.
func (uc *ProfileUseCase) GetPublicByID(ctx context.Context, id int64) (*profile.UserProfile, bool, error) {
	p, ok, err := uc.GetByID(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}
	if !p.IsPublic() {
		return nil, false, nil
	}
	return p, true, nil
}

func (uc *ProfileUseCase) Exists(ctx context.Context, id int64) (bool, error) {
	if _, ok := uc.cache.Get(ctx, id); ok {
		return true, nil
	}
	return uc.profileRepo.ExistsByID(ctx, id)
}

type UpdateProfileInput struct {
	ID     int64
	Caller profile.Caller
	Patch  profile.Patch
}

func (uc *ProfileUseCase) Update(ctx context.Context, input UpdateProfileInput) (*profile.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "ProfileUseCase.Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", input.ID))

	uc.logger.Info("Updating user profile", zap.Int64("user_id", input.ID))

	if input.Patch.ProfilePictureURL != nil {
		if err := uc.checkPictureURL(ctx, input.ID, *input.Patch.ProfilePictureURL); err != nil {
			return nil, err
		}
	}

	var previousPicture string
	updated, err := uc.mutate(ctx, input.ID, input.Caller, func(p *profile.UserProfile) error {
		previousPicture = p.ProfilePictureURL
		if err := p.Apply(input.Patch); err != nil {
			return apperror.NewInvalidInput(err.Error(), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previousPicture != updated.ProfilePictureURL {
		uc.releasePicture(ctx, updated.ID, previousPicture)
	}
	uc.publish(service.ProfileEventUpdated, updated.ID, "")
	return updated, nil
}

// Delete is idempotent. The referenced picture blob is removed before the row.
func (uc *ProfileUseCase) Delete(ctx context.Context, id int64, caller profile.Caller) error {
	ctx, span := tracer.Start(ctx, "ProfileUseCase.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", id))

	uc.logger.Info("Deleting user profile", zap.Int64("user_id", id))

	deleted, err := uc.profileRepo.Delete(ctx, id, func(p *profile.UserProfile) error {
		if !caller.Owns(p) {
			return apperror.NewPermissionDenied("only the profile owner can delete it")
		}
		key, ok := uc.blobKey(p.ID, p.ProfilePictureURL)
		if !ok {
			return nil
		}
		if err := uc.blobs.Delete(ctx, key); err != nil {
			return apperror.NewBlob("failed to delete profile picture", err)
		}
		return nil
	})
	uc.cache.Invalidate(ctx, id)
	if err != nil {
		return err
	}

	if deleted {
		uc.publish(service.ProfileEventDeleted, id, "")
	}
	return nil
}

// GetProfileCompletion reports 0 for missing profiles and for profiles the
// caller may not see, so a private profile reads like a missing one.
func (uc *ProfileUseCase) GetProfileCompletion(ctx context.Context, id int64, caller profile.Caller) (int, error) {
	p, ok, err := uc.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if _, visible := p.VisibilityFor(caller); !visible {
		return 0, nil
	}
	return p.CompletionPercentage(), nil
}

func (uc *ProfileUseCase) UpdatePrivacy(ctx context.Context, id int64, caller profile.Caller, settings profile.PrivacySettings) (*profile.UserProfile, error) {
	uc.logger.Info("Updating privacy settings", zap.Int64("user_id", id), zap.Bool("profile_visible", settings.ProfileVisible))

	return uc.mutate(ctx, id, caller, func(p *profile.UserProfile) error {
		p.ApplyPrivacySettings(settings)
		return nil
	})
}

// mutate runs fn against the locked row after the ownership check and
// invalidates the cached copy once the transaction has committed.
func (uc *ProfileUseCase) mutate(ctx context.Context, id int64, caller profile.Caller, fn func(p *profile.UserProfile) error) (*profile.UserProfile, error) {
	updated, err := uc.profileRepo.Update(ctx, id, func(p *profile.UserProfile) error {
		if !caller.Owns(p) {
			return apperror.NewPermissionDenied("only the profile owner can modify it")
		}
		return fn(p)
	})
	if err != nil {
		return nil, err
	}
	uc.cache.Invalidate(ctx, id)
	return updated, nil
}

// checkPictureURL accepts external http(s) URLs and URLs of blobs we hold for
// this profile. A stored picture of another profile is rejected.
func (uc *ProfileUseCase) checkPictureURL(ctx context.Context, id int64, raw string) error {
	if raw == "" {
		return nil
	}
	if uc.blobs != nil {
		if key, ok := uc.blobs.KeyFromURL(raw); ok {
			if !strings.HasPrefix(key, ownerKeyPrefix(id)) {
				return apperror.NewInvalidInput("profilePictureUrl does not reference a stored picture", nil)
			}
			exists, err := uc.blobs.Exists(ctx, key)
			if err != nil {
				return apperror.NewBlob("failed to check profile picture", err)
			}
			if !exists {
				return apperror.NewInvalidInput("profilePictureUrl does not reference a stored picture", nil)
			}
			return nil
		}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.NewInvalidInput("profilePictureUrl must be an absolute http(s) URL", err)
	}
	return nil
}

// blobKey resolves a picture URL to a key under the profile's own prefix.
// Anything else is not ours to delete.
func (uc *ProfileUseCase) blobKey(id int64, rawURL string) (string, bool) {
	if rawURL == "" || uc.blobs == nil {
		return "", false
	}
	key, ok := uc.blobs.KeyFromURL(rawURL)
	if !ok || !strings.HasPrefix(key, ownerKeyPrefix(id)) {
		return "", false
	}
	return key, true
}

// releasePicture deletes a blob that the row no longer references.
func (uc *ProfileUseCase) releasePicture(ctx context.Context, id int64, oldURL string) {
	if key, ok := uc.blobKey(id, oldURL); ok {
		uc.discardBlob(ctx, id, key)
	}
}

func (uc *ProfileUseCase) publish(eventType service.ProfileEventType, id int64, blobKey string) {
	evt := service.ProfileEvent{
		EventType:  eventType,
		ProfileID:  id,
		BlobKey:    blobKey,
		OccurredAt: uc.now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		if err := uc.events.PublishProfileEvent(ctx, evt); err != nil {
			uc.logger.Error("Failed to publish profile event", err, zap.String("event_type", string(eventType)), zap.Int64("user_id", id))
		}
	}()
}
