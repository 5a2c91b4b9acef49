package profile

import (
	"github.com/networkpro/user-service/internal/domain/profile"
)

func ids(profiles []*profile.UserProfile) []int64 {
	out := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.ID)
	}
	return out
}

func (s *ProfileUseCaseTestSuite) seedDirectory() (jane, john, hidden *profile.UserProfile) {
	jane = s.createProfile("Jane Doe", "jane@example.com", profile.Patch{
		Location:       strPtr("Berlin"),
		CurrentCompany: strPtr("Acme"),
		Industry:       strPtr("Software"),
		Skills:         &[]string{"Go", "SQL"},
	})
	john = s.createProfile("John Smith", "john@example.com", profile.Patch{
		Location:       strPtr("berlin-mitte"),
		CurrentCompany: strPtr("Globex"),
		Skills:         &[]string{"Java"},
	})
	hidden = s.createProfile("Hidden Doe", "hidden@example.com", profile.Patch{
		Location:       strPtr("Berlin"),
		CurrentCompany: strPtr("Acme"),
		Skills:         &[]string{"Go"},
		ProfilePublic:  boolPtr(false),
	})
	return jane, john, hidden
}

func (s *ProfileUseCaseTestSuite) Test_SearchPublicProfiles() {
	jane, john, _ := s.seedDirectory()

	got, err := s.uc.SearchPublicProfiles(s.ctx, profile.SearchCriteria{Keyword: strPtr("  "), Location: strPtr("BERLIN")})
	s.Require().NoError(err)
	s.Equal([]int64{jane.ID, john.ID}, ids(got))

	got, err = s.uc.SearchPublicProfiles(s.ctx, profile.SearchCriteria{Keyword: strPtr("doe")})
	s.Require().NoError(err)
	s.Equal([]int64{jane.ID}, ids(got))

	got, err = s.uc.SearchPublicProfiles(s.ctx, profile.SearchCriteria{Company: strPtr("acme"), Industry: strPtr("soft")})
	s.Require().NoError(err)
	s.Equal([]int64{jane.ID}, ids(got))

	got, err = s.uc.SearchPublicProfiles(s.ctx, profile.SearchCriteria{Keyword: strPtr("nobody")})
	s.Require().NoError(err)
	s.NotNil(got)
	s.Empty(got)
}

func (s *ProfileUseCaseTestSuite) Test_DirectoryQueries() {
	jane, john, _ := s.seedDirectory()

	all, err := s.uc.GetAllPublicProfiles(s.ctx)
	s.Require().NoError(err)
	s.Equal([]int64{jane.ID, john.ID}, ids(all))

	got, err := s.uc.FindByLocation(s.ctx, "mitte")
	s.Require().NoError(err)
	s.Equal([]int64{john.ID}, ids(got))

	got, err = s.uc.FindUsersByCompany(s.ctx, "ACME")
	s.Require().NoError(err)
	s.Equal([]int64{jane.ID}, ids(got))
}

func (s *ProfileUseCaseTestSuite) Test_FindBySkills() {
	jane, john, _ := s.seedDirectory()

	got, err := s.uc.FindBySkills(s.ctx, []string{" Go ", "Java", "Go"})
	s.Require().NoError(err)
	s.Equal([]int64{jane.ID, john.ID}, ids(got))

	got, err = s.uc.FindBySkills(s.ctx, []string{"go"})
	s.Require().NoError(err)
	s.Empty(got, "skill match is case-sensitive")

	got, err = s.uc.FindBySkills(s.ctx, []string{"", "  "})
	s.Require().NoError(err)
	s.NotNil(got)
	s.Empty(got)
}

func (s *ProfileUseCaseTestSuite) Test_FindWithCompletionAbove() {
	jane, john, _ := s.seedDirectory()
	// jane: name 10 + location 10 + company 10 + industry 10 + skills 15 = 55
	// john: name 10 + location 10 + company 10 + skills 15 = 45

	got, err := s.uc.FindWithCompletionAbove(s.ctx, 45)
	s.Require().NoError(err)
	s.Equal([]int64{jane.ID}, ids(got))

	got, err = s.uc.FindWithCompletionAbove(s.ctx, 44)
	s.Require().NoError(err)
	s.Equal([]int64{jane.ID, john.ID}, ids(got))

	got, err = s.uc.FindWithCompletionAbove(s.ctx, 55)
	s.Require().NoError(err)
	s.Empty(got)
}
