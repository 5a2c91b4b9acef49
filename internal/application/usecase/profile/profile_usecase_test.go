package profile

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/networkpro/user-service/adapters/persistence"
	"github.com/networkpro/user-service/internal/application/service"
	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/apperror"
	"github.com/networkpro/user-service/pkg/logger"
)

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

type ProfileUseCaseTestSuite struct {
	suite.Suite
	ctx    context.Context
	repo   profile.Repository
	blobs  *fakeBlobStore
	cache  *mapCache
	events *recordingPublisher
	uc     *ProfileUseCase
}

func (s *ProfileUseCaseTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = persistence.NewMemoryProfileRepo()
	s.blobs = newFakeBlobStore()
	s.cache = newMapCache()
	s.events = &recordingPublisher{}
	s.uc = NewProfileUseCase(s.repo, s.blobs, s.cache, s.events, logger.NewNopLogger(), Options{MaxUploadBytes: 1 << 20})
}

func TestProfileUseCase(t *testing.T) {
	suite.Run(t, new(ProfileUseCaseTestSuite))
}

func (s *ProfileUseCaseTestSuite) createProfile(name, email string, fields profile.Patch) *profile.UserProfile {
	p, err := s.uc.Create(s.ctx, CreateProfileInput{FullName: name, Email: email, Fields: fields})
	s.Require().NoError(err)
	return p
}

func (s *ProfileUseCaseTestSuite) eventually(eventType service.ProfileEventType) {
	s.Eventually(func() bool { return s.events.has(eventType) }, time.Second, 5*time.Millisecond, "expected %s", eventType)
}

func owner(p *profile.UserProfile) profile.Caller {
	return profile.Authenticated(p.Email)
}

func (s *ProfileUseCaseTestSuite) Test_Create() {
	p := s.createProfile("  Jane Doe ", "jane@example.com", profile.Patch{
		Headline: strPtr("Engineer"),
		Skills:   &[]string{" Go ", "Go", "SQL"},
	})

	s.NotZero(p.ID)
	s.Equal("Jane Doe", p.FullName)
	s.Equal("Engineer", p.Headline)
	s.Equal([]string{"Go", "SQL"}, p.Skills.Slice())
	s.Equal(profile.DefaultPrivacy(), p.Privacy)
	s.eventually(service.ProfileEventCreated)
}

func (s *ProfileUseCaseTestSuite) Test_Create_Validation() {
	tests := []struct {
		name  string
		input CreateProfileInput
	}{
		{"blank name", CreateProfileInput{FullName: "   ", Email: "a@example.com"}},
		{"long name", CreateProfileInput{FullName: strings.Repeat("x", 101), Email: "a@example.com"}},
		{"bad email", CreateProfileInput{FullName: "A", Email: "not-an-email"}},
		{"empty skill", CreateProfileInput{FullName: "A", Email: "a@example.com", Fields: profile.Patch{Skills: &[]string{" "}}}},
		{"relative picture", CreateProfileInput{FullName: "A", Email: "a@example.com", Fields: profile.Patch{ProfilePictureURL: strPtr("/uploads/profile-pictures/1/x.png")}}},
		{"ftp picture", CreateProfileInput{FullName: "A", Email: "a@example.com", Fields: profile.Patch{ProfilePictureURL: strPtr("ftp://example.com/x.png")}}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.uc.Create(s.ctx, tt.input)
			s.True(errors.Is(err, apperror.ErrInvalidInput), "got %v", err)
		})
	}
}

func (s *ProfileUseCaseTestSuite) Test_Create_DuplicateEmail() {
	s.createProfile("Jane", "jane@example.com", profile.Patch{})

	_, err := s.uc.Create(s.ctx, CreateProfileInput{FullName: "Other", Email: "Jane@Example.com"})
	s.True(errors.Is(err, apperror.ErrDuplicateEmail))
}

func (s *ProfileUseCaseTestSuite) Test_Create_ExternalPicture() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{ProfilePictureURL: strPtr("https://cdn.example.com/jane.png")})
	s.Equal("https://cdn.example.com/jane.png", p.ProfilePictureURL)
}

func (s *ProfileUseCaseTestSuite) Test_GetByID() {
	_, ok, err := s.uc.GetByID(s.ctx, 12345)
	s.NoError(err)
	s.False(ok)

	p := s.createProfile("Jane", "jane@example.com", profile.Patch{})
	got, ok, err := s.uc.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("Jane", got.FullName)
	s.True(s.cache.cached(p.ID))

	exists, err := s.uc.Exists(s.ctx, p.ID)
	s.NoError(err)
	s.True(exists)

	exists, err = s.uc.Exists(s.ctx, 12345)
	s.NoError(err)
	s.False(exists)
}

func (s *ProfileUseCaseTestSuite) Test_GetPublicByID_HidesPrivate() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{ProfilePublic: boolPtr(false)})

	_, ok, err := s.uc.GetPublicByID(s.ctx, p.ID)
	s.NoError(err)
	s.False(ok)

	_, ok, err = s.uc.GetByID(s.ctx, p.ID)
	s.NoError(err)
	s.True(ok)
}

// commitDuringRead runs hook once, after the row is loaded and before the
// reader can fill the cache.
type commitDuringRead struct {
	profile.Repository
	hook func()
}

func (r *commitDuringRead) FindByID(ctx context.Context, id int64) (*profile.UserProfile, error) {
	p, err := r.Repository.FindByID(ctx, id)
	if hook := r.hook; hook != nil {
		r.hook = nil
		hook()
	}
	return p, err
}

func (s *ProfileUseCaseTestSuite) Test_GetByID_RacingPrivacyUpdateDoesNotRefillCache() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{})

	racing := &commitDuringRead{Repository: s.repo, hook: func() {
		_, err := s.uc.UpdatePrivacy(s.ctx, p.ID, owner(p), profile.PrivacySettings{ProfileVisible: false})
		s.Require().NoError(err)
	}}
	reader := NewProfileUseCase(racing, s.blobs, s.cache, s.events, logger.NewNopLogger(), Options{})

	_, ok, err := reader.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.True(ok)
	s.False(s.cache.cached(p.ID), "row loaded before the commit must not be cached")

	_, ok, err = s.uc.GetPublicByID(s.ctx, p.ID)
	s.NoError(err)
	s.False(ok)
}

func (s *ProfileUseCaseTestSuite) Test_Update() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{Bio: strPtr("old")})
	_, _, err := s.uc.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)

	updated, err := s.uc.Update(s.ctx, UpdateProfileInput{
		ID:     p.ID,
		Caller: owner(p),
		Patch:  profile.Patch{Bio: strPtr("new"), Location: strPtr("Berlin"), Headline: strPtr("")},
	})
	s.Require().NoError(err)
	s.Equal("new", updated.Bio)
	s.Equal("Berlin", updated.Location)
	s.Equal("jane@example.com", updated.Email)
	s.False(s.cache.cached(p.ID), "update must invalidate the cached copy")
	s.eventually(service.ProfileEventUpdated)
}

func (s *ProfileUseCaseTestSuite) Test_Update_RequiresOwner() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{})

	for _, caller := range []profile.Caller{profile.Anonymous(), profile.Authenticated("mallory@example.com")} {
		_, err := s.uc.Update(s.ctx, UpdateProfileInput{ID: p.ID, Caller: caller, Patch: profile.Patch{Bio: strPtr("pwned")}})
		s.True(errors.Is(err, apperror.ErrPermission))
	}

	_, err := s.uc.Update(s.ctx, UpdateProfileInput{ID: p.ID, Caller: profile.Trusted(), Patch: profile.Patch{Bio: strPtr("ok")}})
	s.NoError(err)

	got, _, err := s.uc.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("ok", got.Bio)
}

func (s *ProfileUseCaseTestSuite) Test_Update_InvalidLeavesRowUntouched() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{Bio: strPtr("keep")})

	_, err := s.uc.Update(s.ctx, UpdateProfileInput{
		ID:     p.ID,
		Caller: owner(p),
		Patch:  profile.Patch{FullName: strPtr(" "), Bio: strPtr("lost")},
	})
	s.True(errors.Is(err, apperror.ErrInvalidInput))

	got, _, err := s.uc.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Jane", got.FullName)
	s.Equal("keep", got.Bio)
}

func (s *ProfileUseCaseTestSuite) Test_Update_Missing() {
	_, err := s.uc.Update(s.ctx, UpdateProfileInput{ID: 999, Caller: profile.Trusted(), Patch: profile.Patch{Bio: strPtr("x")}})
	s.True(errors.Is(err, apperror.ErrNotFound))
}

func (s *ProfileUseCaseTestSuite) Test_Update_PictureURL() {
	jane := s.createProfile("Jane", "jane@example.com", profile.Patch{})
	john := s.createProfile("John", "john@example.com", profile.Patch{})

	johnsBlob := s.blobs.seed(PictureKey(john.ID, "u1", "john.png"))
	_, err := s.uc.Update(s.ctx, UpdateProfileInput{ID: jane.ID, Caller: owner(jane), Patch: profile.Patch{ProfilePictureURL: &johnsBlob}})
	s.True(errors.Is(err, apperror.ErrInvalidInput), "another profile's blob must be rejected")

	missing := "/" + PictureKey(jane.ID, "u2", "gone.png")
	_, err = s.uc.Update(s.ctx, UpdateProfileInput{ID: jane.ID, Caller: owner(jane), Patch: profile.Patch{ProfilePictureURL: &missing}})
	s.True(errors.Is(err, apperror.ErrInvalidInput))

	first := s.blobs.seed(PictureKey(jane.ID, "u3", "a.png"))
	_, err = s.uc.Update(s.ctx, UpdateProfileInput{ID: jane.ID, Caller: owner(jane), Patch: profile.Patch{ProfilePictureURL: &first}})
	s.Require().NoError(err)

	_, err = s.uc.Update(s.ctx, UpdateProfileInput{ID: jane.ID, Caller: owner(jane), Patch: profile.Patch{ProfilePictureURL: strPtr("https://cdn.example.com/jane.png")}})
	s.Require().NoError(err)
	s.ElementsMatch([]string{PictureKey(john.ID, "u1", "john.png")}, s.blobs.keys(), "replaced blob is released")
}

func (s *ProfileUseCaseTestSuite) Test_Delete() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{})
	url, err := s.uc.UploadPicture(s.ctx, UploadPictureInput{ID: p.ID, Caller: owner(p), Content: bytes.NewReader(pngBytes(s.T())), OriginalName: "me.png"})
	s.Require().NoError(err)
	_, _, err = s.uc.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)

	s.True(errors.Is(s.uc.Delete(s.ctx, p.ID, profile.Authenticated("mallory@example.com")), apperror.ErrPermission))

	s.Require().NoError(s.uc.Delete(s.ctx, p.ID, owner(p)))
	s.Empty(s.blobs.keys())
	s.False(s.cache.cached(p.ID))
	s.eventually(service.ProfileEventDeleted)

	_, ok, err := s.uc.GetByID(s.ctx, p.ID)
	s.NoError(err)
	s.False(ok)
	s.NotEmpty(url)

	s.NoError(s.uc.Delete(s.ctx, p.ID, owner(p)), "delete is idempotent")
}

func (s *ProfileUseCaseTestSuite) Test_Delete_BlobFailureKeepsRow() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{})
	_, err := s.uc.UploadPicture(s.ctx, UploadPictureInput{ID: p.ID, Caller: owner(p), Content: bytes.NewReader(pngBytes(s.T())), OriginalName: "me.png"})
	s.Require().NoError(err)

	s.blobs.deleteErr = errBlobDown
	err = s.uc.Delete(s.ctx, p.ID, owner(p))
	s.True(errors.Is(err, apperror.ErrBlob))

	exists, err := s.uc.Exists(s.ctx, p.ID)
	s.NoError(err)
	s.True(exists)
}

func (s *ProfileUseCaseTestSuite) Test_Delete_ExternalPictureIsNotTouched() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{ProfilePictureURL: strPtr("https://cdn.example.com/jane.png")})

	s.Require().NoError(s.uc.Delete(s.ctx, p.ID, owner(p)))
	s.Empty(s.blobs.deletes)
}

func (s *ProfileUseCaseTestSuite) Test_GetProfileCompletion() {
	pct, err := s.uc.GetProfileCompletion(s.ctx, 999, profile.Anonymous())
	s.NoError(err)
	s.Equal(0, pct)

	p := s.createProfile("Jane", "jane@example.com", profile.Patch{})
	pct, err = s.uc.GetProfileCompletion(s.ctx, p.ID, profile.Anonymous())
	s.NoError(err)
	s.Equal(10, pct)

	_, err = s.uc.Update(s.ctx, UpdateProfileInput{ID: p.ID, Caller: owner(p), Patch: profile.Patch{
		Headline:          strPtr("h"),
		Bio:               strPtr("b"),
		Location:          strPtr("l"),
		Industry:          strPtr("i"),
		CurrentPosition:   strPtr("p"),
		CurrentCompany:    strPtr("c"),
		PhoneNumber:       strPtr("1"),
		Website:           strPtr("https://jane.dev"),
		ProfilePictureURL: strPtr("https://cdn.example.com/jane.png"),
		Skills:            &[]string{"Go"},
	}})
	s.Require().NoError(err)

	pct, err = s.uc.GetProfileCompletion(s.ctx, p.ID, profile.Anonymous())
	s.NoError(err)
	s.Equal(100, pct)
}

func (s *ProfileUseCaseTestSuite) Test_GetProfileCompletion_PrivateReadsAsMissing() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{
		ProfilePublic: boolPtr(false),
		Bio:           strPtr("b"),
	})

	for _, caller := range []profile.Caller{profile.Anonymous(), profile.Authenticated("mallory@example.com")} {
		pct, err := s.uc.GetProfileCompletion(s.ctx, p.ID, caller)
		s.NoError(err)
		s.Equal(0, pct)
	}

	pct, err := s.uc.GetProfileCompletion(s.ctx, p.ID, owner(p))
	s.NoError(err)
	s.Equal(20, pct)
}

func (s *ProfileUseCaseTestSuite) Test_UpdatePrivacy() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{SkillsPublic: boolPtr(false)})

	updated, err := s.uc.UpdatePrivacy(s.ctx, p.ID, owner(p), profile.PrivacySettings{
		ProfileVisible:     false,
		ShowPhone:          true,
		ShowWorkExperience: false,
		ShowEducation:      true,
	})
	s.Require().NoError(err)
	s.False(updated.Privacy.ProfilePublic)
	s.True(updated.Privacy.ContactInfoPublic)
	s.False(updated.Privacy.WorkExperiencePublic)
	s.True(updated.Privacy.EducationPublic)
	s.False(updated.Privacy.SkillsPublic, "skills flag is not part of the settings")

	_, err = s.uc.UpdatePrivacy(s.ctx, p.ID, profile.Anonymous(), profile.PrivacySettings{ProfileVisible: true})
	s.True(errors.Is(err, apperror.ErrPermission))
}

func (s *ProfileUseCaseTestSuite) Test_Skills() {
	p := s.createProfile("Jane", "jane@example.com", profile.Patch{})
	c := owner(p)

	got, err := s.uc.AddSkill(s.ctx, p.ID, c, " Go ")
	s.Require().NoError(err)
	s.Equal([]string{"Go"}, got.Skills.Slice())

	got, err = s.uc.AddSkill(s.ctx, p.ID, c, "Go")
	s.Require().NoError(err)
	s.Equal([]string{"Go"}, got.Skills.Slice())

	_, err = s.uc.AddSkill(s.ctx, p.ID, c, "  ")
	s.True(errors.Is(err, apperror.ErrInvalidInput))

	got, err = s.uc.ReplaceSkills(s.ctx, p.ID, c, []string{"Rust", "SQL", "Rust"})
	s.Require().NoError(err)
	s.Equal([]string{"Rust", "SQL"}, got.Skills.Slice())

	_, err = s.uc.ReplaceSkills(s.ctx, p.ID, c, []string{"Rust", ""})
	s.True(errors.Is(err, apperror.ErrInvalidInput))

	got, err = s.uc.RemoveSkill(s.ctx, p.ID, c, "Rust")
	s.Require().NoError(err)
	s.Equal([]string{"SQL"}, got.Skills.Slice())

	got, err = s.uc.RemoveSkill(s.ctx, p.ID, c, "Missing")
	s.Require().NoError(err)
	s.Equal([]string{"SQL"}, got.Skills.Slice())

	_, err = s.uc.AddSkill(s.ctx, p.ID, profile.Anonymous(), "Go")
	s.True(errors.Is(err, apperror.ErrPermission))
}
