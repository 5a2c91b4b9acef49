package persistence

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/stretchr/testify/suite"

	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/apperror"
)

// profileRepoContract is run against every profile.Repository implementation.
type profileRepoContract struct {
	suite.Suite
	newRepo func() profile.Repository
	repo    profile.Repository
}

func (s *profileRepoContract) SetupTest() {
	s.repo = s.newRepo()
}

func strPtr(v string) *string { return &v }

func (s *profileRepoContract) create(name, email string, edit func(p *profile.UserProfile)) *profile.UserProfile {
	p := profile.New(name, email)
	if edit != nil {
		edit(p)
	}
	s.Require().NoError(s.repo.Create(context.Background(), p))
	return p
}

func (s *profileRepoContract) Test_Create_AssignsIDAndTimestamps() {
	p := s.create("Ada Lovelace", "ada@example.com", func(p *profile.UserProfile) {
		p.Skills = profile.SkillSet{"Go": {}, "Math": {}}
		p.Headline = "Analyst"
	})

	s.NotZero(p.ID)
	s.False(p.CreatedAt.IsZero())
	s.False(p.UpdatedAt.Before(p.CreatedAt))

	got, err := s.repo.FindByID(context.Background(), p.ID)
	s.Require().NoError(err)
	s.Equal("Ada Lovelace", got.FullName)
	s.Equal("Analyst", got.Headline)
	s.Equal("", got.Bio)
	s.Equal([]string{"Go", "Math"}, got.Skills.Slice())
	s.Equal(profile.DefaultPrivacy(), got.Privacy)
	s.False(got.EmailVerified)
}

func (s *profileRepoContract) Test_Create_DuplicateEmailIgnoresCase() {
	s.create("Ada", "ada@example.com", nil)

	dup := profile.New("Other Ada", "ADA@example.com")
	err := s.repo.Create(context.Background(), dup)
	s.Require().Error(err)
	s.True(errors.Is(err, apperror.ErrDuplicateEmail))

	var appErr *apperror.AppError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(apperror.DuplicateEmailMessage, appErr.Message)
}

func (s *profileRepoContract) Test_FindByID_Missing() {
	_, err := s.repo.FindByID(context.Background(), 999999)
	s.True(errors.Is(err, apperror.ErrNotFound))

	ok, err := s.repo.ExistsByID(context.Background(), 999999)
	s.NoError(err)
	s.False(ok)
}

func (s *profileRepoContract) Test_Update_AppliesAndKeepsImmutableFields() {
	p := s.create("Ada", "ada@example.com", nil)

	updated, err := s.repo.Update(context.Background(), p.ID, func(w *profile.UserProfile) error {
		w.Bio = "Wrote the first program"
		w.Email = "hijack@example.com"
		w.Skills = profile.SkillSet{"Engines": {}}
		w.Privacy.ProfilePublic = false
		return nil
	})
	s.Require().NoError(err)
	s.Equal("ada@example.com", updated.Email)
	s.Equal("Wrote the first program", updated.Bio)
	s.True(updated.CreatedAt.Equal(p.CreatedAt))
	s.False(updated.UpdatedAt.Before(p.UpdatedAt))

	got, err := s.repo.FindByID(context.Background(), p.ID)
	s.Require().NoError(err)
	s.Equal("ada@example.com", got.Email)
	s.Equal([]string{"Engines"}, got.Skills.Slice())
	s.False(got.Privacy.ProfilePublic)
}

func (s *profileRepoContract) Test_Update_MutateErrorRollsBack() {
	p := s.create("Ada", "ada@example.com", nil)
	boom := errors.New("boom")

	_, err := s.repo.Update(context.Background(), p.ID, func(w *profile.UserProfile) error {
		w.Bio = "should not stick"
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.repo.FindByID(context.Background(), p.ID)
	s.Require().NoError(err)
	s.Equal("", got.Bio)
}

func (s *profileRepoContract) Test_OverlongValuesAreClientErrors() {
	long := profile.New("Ada", "ada@example.com")
	long.Headline = strings.Repeat("h", profile.MaxShortText+1)
	err := s.repo.Create(context.Background(), long)
	s.Require().Error(err)
	s.ErrorIs(err, apperror.ErrInvalidInput)
	s.Equal(http.StatusBadRequest, apperror.ToHTTPStatus(err))
	s.Equal("headline must be at most 255 characters", apperror.ToJSON(err)["message"])

	p := s.create("Ada", "ada@example.com", nil)
	_, err = s.repo.Update(context.Background(), p.ID, func(w *profile.UserProfile) error {
		w.PhoneNumber = strings.Repeat("1", profile.MaxPhoneLength+1)
		return nil
	})
	s.Equal(http.StatusBadRequest, apperror.ToHTTPStatus(err))

	_, err = s.repo.Update(context.Background(), p.ID, func(w *profile.UserProfile) error {
		w.Skills = profile.SkillSet{strings.Repeat("s", profile.MaxSkillLength+1): {}}
		return nil
	})
	s.Equal(http.StatusBadRequest, apperror.ToHTTPStatus(err))

	got, err := s.repo.FindByID(context.Background(), p.ID)
	s.Require().NoError(err)
	s.Equal("", got.PhoneNumber)
	s.Empty(got.Skills)
}

func (s *profileRepoContract) Test_Update_Missing() {
	_, err := s.repo.Update(context.Background(), 424242, func(*profile.UserProfile) error { return nil })
	s.True(errors.Is(err, apperror.ErrNotFound))
}

func (s *profileRepoContract) Test_Update_ConcurrentSkillAddsAreSerialized() {
	p := s.create("Ada", "ada@example.com", nil)
	skills := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	for _, skill := range skills {
		wg.Add(1)
		go func(skill string) {
			defer wg.Done()
			_, err := s.repo.Update(context.Background(), p.ID, func(w *profile.UserProfile) error {
				return w.Skills.Add(skill)
			})
			s.NoError(err)
		}(skill)
	}
	wg.Wait()

	got, err := s.repo.FindByID(context.Background(), p.ID)
	s.Require().NoError(err)
	s.Equal(skills, got.Skills.Slice())
}

func (s *profileRepoContract) Test_Delete() {
	p := s.create("Ada", "ada@example.com", func(p *profile.UserProfile) {
		p.Skills = profile.SkillSet{"Go": {}}
	})

	var seen *profile.UserProfile
	removed, err := s.repo.Delete(context.Background(), p.ID, func(row *profile.UserProfile) error {
		seen = row
		return nil
	})
	s.Require().NoError(err)
	s.True(removed)
	s.Require().NotNil(seen)
	s.Equal(p.ID, seen.ID)

	ok, err := s.repo.ExistsByID(context.Background(), p.ID)
	s.NoError(err)
	s.False(ok)

	removed, err = s.repo.Delete(context.Background(), p.ID, nil)
	s.NoError(err)
	s.False(removed)
}

func (s *profileRepoContract) Test_Delete_HookErrorKeepsRow() {
	p := s.create("Ada", "ada@example.com", nil)

	_, err := s.repo.Delete(context.Background(), p.ID, func(*profile.UserProfile) error {
		return apperror.NewBlob("blob store down", nil)
	})
	s.True(errors.Is(err, apperror.ErrBlob))

	ok, err := s.repo.ExistsByID(context.Background(), p.ID)
	s.NoError(err)
	s.True(ok)
}

func (s *profileRepoContract) Test_SearchPublic() {
	ctx := context.Background()
	jane := s.create("Jane Doe", "jane@example.com", func(p *profile.UserProfile) {
		p.Location = "Berlin"
		p.CurrentCompany = "Acme GmbH"
		p.Industry = "Software"
	})
	john := s.create("John Doe", "john@example.com", func(p *profile.UserProfile) {
		p.Location = "Paris"
		p.CurrentCompany = "Acme SA"
	})
	s.create("Hidden Doe", "hidden@example.com", func(p *profile.UserProfile) {
		p.Location = "Berlin"
		p.Privacy.ProfilePublic = false
	})
	s.create("Percent 100% Doe", "pct@example.com", nil)

	all, err := s.repo.SearchPublic(ctx, profile.SearchCriteria{})
	s.Require().NoError(err)
	s.Len(all, 3)
	s.Equal(jane.ID, all[0].ID)
	for i := 1; i < len(all); i++ {
		s.Less(all[i-1].ID, all[i].ID)
	}

	got, err := s.repo.SearchPublic(ctx, profile.SearchCriteria{Keyword: strPtr("doe"), Location: strPtr("BER")})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(jane.ID, got[0].ID)

	got, err = s.repo.SearchPublic(ctx, profile.SearchCriteria{Company: strPtr("acme")})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(jane.ID, got[0].ID)
	s.Equal(john.ID, got[1].ID)

	got, err = s.repo.SearchPublic(ctx, profile.SearchCriteria{Industry: strPtr("soft")})
	s.Require().NoError(err)
	s.Len(got, 1)

	got, err = s.repo.SearchPublic(ctx, profile.SearchCriteria{Keyword: strPtr("100%")})
	s.Require().NoError(err)
	s.Len(got, 1)

	got, err = s.repo.SearchPublic(ctx, profile.SearchCriteria{Keyword: strPtr("%")})
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *profileRepoContract) Test_FindPublicBySkills() {
	ctx := context.Background()
	a := s.create("A", "a@example.com", func(p *profile.UserProfile) { p.Skills = profile.SkillSet{"Go": {}, "SQL": {}} })
	b := s.create("B", "b@example.com", func(p *profile.UserProfile) { p.Skills = profile.SkillSet{"Rust": {}} })
	s.create("C", "c@example.com", func(p *profile.UserProfile) {
		p.Skills = profile.SkillSet{"Go": {}}
		p.Privacy.ProfilePublic = false
	})

	got, err := s.repo.FindPublicBySkills(ctx, []string{"Go", "Rust"})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(a.ID, got[0].ID)
	s.Equal(b.ID, got[1].ID)
	s.Equal([]string{"Go", "SQL"}, got[0].Skills.Slice())

	got, err = s.repo.FindPublicBySkills(ctx, []string{"go"})
	s.Require().NoError(err)
	s.Empty(got)
}
