package http

import (
	"strings"
	"time"

	"github.com/networkpro/user-service/internal/domain/profile"
)

// ProfileDTO is the external profile shape. Absent and hidden fields are null.
type ProfileDTO struct {
	ID                          int64     `json:"id"`
	FullName                    string    `json:"fullName"`
	FirstName                   string    `json:"firstName"`
	LastName                    *string   `json:"lastName"`
	Email                       *string   `json:"email"`
	Headline                    *string   `json:"headline"`
	Bio                         *string   `json:"bio"`
	Summary                     *string   `json:"summary"`
	Location                    *string   `json:"location"`
	Industry                    *string   `json:"industry"`
	CurrentPosition             *string   `json:"currentPosition"`
	CurrentCompany              *string   `json:"currentCompany"`
	Website                     *string   `json:"website"`
	PhoneNumber                 *string   `json:"phoneNumber"`
	LinkedinURL                 *string   `json:"linkedinUrl"`
	GithubURL                   *string   `json:"githubUrl"`
	ProfilePictureURL           *string   `json:"profilePictureUrl"`
	Skills                      []string  `json:"skills"`
	ProfilePublic               bool      `json:"profilePublic"`
	ContactInfoPublic           bool      `json:"contactInfoPublic"`
	WorkExperiencePublic        bool      `json:"workExperiencePublic"`
	EducationPublic             bool      `json:"educationPublic"`
	SkillsPublic                bool      `json:"skillsPublic"`
	EmailVerified               bool      `json:"emailVerified"`
	ProfileCompletionPercentage int       `json:"profileCompletionPercentage"`
	IsProfileComplete           bool      `json:"isProfileComplete"`
	ProfileCreatedAt            time.Time `json:"profileCreatedAt"`
	ProfileUpdatedAt            time.Time `json:"profileUpdatedAt"`
}

// ProfileRequest is shared by create and update. Every field is optional at
// this layer; a present empty string clears the field on update.
type ProfileRequest struct {
	FullName          *string   `json:"fullName"`
	FirstName         *string   `json:"firstName"`
	LastName          *string   `json:"lastName"`
	Email             *string   `json:"email"`
	Headline          *string   `json:"headline"`
	Bio               *string   `json:"bio"`
	Summary           *string   `json:"summary"`
	Location          *string   `json:"location"`
	Industry          *string   `json:"industry"`
	CurrentPosition   *string   `json:"currentPosition"`
	CurrentCompany    *string   `json:"currentCompany"`
	Website           *string   `json:"website"`
	PhoneNumber       *string   `json:"phoneNumber"`
	LinkedinURL       *string   `json:"linkedinUrl"`
	GithubURL         *string   `json:"githubUrl"`
	ProfilePictureURL *string   `json:"profilePictureUrl"`
	Skills            *[]string `json:"skills"`

	ProfilePublic        *bool `json:"profilePublic"`
	ContactInfoPublic    *bool `json:"contactInfoPublic"`
	WorkExperiencePublic *bool `json:"workExperiencePublic"`
	EducationPublic      *bool `json:"educationPublic"`
	SkillsPublic         *bool `json:"skillsPublic"`
}

type SearchRequest struct {
	Keyword  *string `json:"keyword"`
	Location *string `json:"location"`
	Company  *string `json:"company"`
	Industry *string `json:"industry"`
}

type PrivacySettingsDTO struct {
	ID                 int64 `json:"id"`
	ProfileVisible     bool  `json:"profileVisible"`
	ShowEmail          bool  `json:"showEmail"`
	ShowPhone          bool  `json:"showPhone"`
	ShowWorkExperience bool  `json:"showWorkExperience"`
	ShowEducation      bool  `json:"showEducation"`
}

type CompletionDTO struct {
	UserID               int64 `json:"userId"`
	CompletionPercentage int   `json:"completionPercentage"`
	IsComplete           bool  `json:"isComplete"`
}

type AddSkillRequest struct {
	Skill string `json:"skill" binding:"required"`
}

type ReplaceSkillsRequest struct {
	Skills []string `json:"skills"`
}

// SplitFullName splits on the first space. The last name is nil for a
// single-word name.
func SplitFullName(fullName string) (string, *string) {
	first, last, found := strings.Cut(strings.TrimSpace(fullName), " ")
	if !found {
		return first, nil
	}
	last = strings.TrimSpace(last)
	if last == "" {
		return first, nil
	}
	return first, &last
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ToProfileDTO renders p with the groups vis allows.
func ToProfileDTO(p *profile.UserProfile, vis profile.Visibility) ProfileDTO {
	first, last := SplitFullName(p.FullName)
	pct := p.CompletionPercentage()
	dto := ProfileDTO{
		ID:                          p.ID,
		FullName:                    p.FullName,
		FirstName:                   first,
		LastName:                    last,
		Headline:                    optional(p.Headline),
		Bio:                         optional(p.Bio),
		Summary:                     optional(p.Bio),
		Location:                    optional(p.Location),
		Industry:                    optional(p.Industry),
		Website:                     optional(p.Website),
		ProfilePictureURL:           optional(p.ProfilePictureURL),
		ProfilePublic:               p.Privacy.ProfilePublic,
		ContactInfoPublic:           p.Privacy.ContactInfoPublic,
		WorkExperiencePublic:        p.Privacy.WorkExperiencePublic,
		EducationPublic:             p.Privacy.EducationPublic,
		SkillsPublic:                p.Privacy.SkillsPublic,
		EmailVerified:               p.EmailVerified,
		ProfileCompletionPercentage: pct,
		IsProfileComplete:           pct >= profile.CompleteThreshold,
		ProfileCreatedAt:            p.CreatedAt,
		ProfileUpdatedAt:            p.UpdatedAt,
	}
	if vis.ContactInfo {
		dto.Email = optional(p.Email)
		dto.PhoneNumber = optional(p.PhoneNumber)
		dto.LinkedinURL = optional(p.LinkedinURL)
		dto.GithubURL = optional(p.GithubURL)
	}
	if vis.WorkExperience {
		dto.CurrentPosition = optional(p.CurrentPosition)
		dto.CurrentCompany = optional(p.CurrentCompany)
	}
	if vis.Skills {
		dto.Skills = p.Skills.Slice()
	}
	return dto
}

// ToProfileDTOs keeps only the profiles the caller may see.
func ToProfileDTOs(profiles []*profile.UserProfile, caller profile.Caller) []ProfileDTO {
	dtos := make([]ProfileDTO, 0, len(profiles))
	for _, p := range profiles {
		vis, ok := p.VisibilityFor(caller)
		if !ok {
			continue
		}
		dtos = append(dtos, ToProfileDTO(p, vis))
	}
	return dtos
}

// fullName resolves the name from fullName, or from firstName and lastName
// joined by a space. ok is false when no name field was sent.
func (r *ProfileRequest) fullName() (string, bool) {
	if r.FullName != nil {
		return *r.FullName, true
	}
	if r.FirstName == nil && r.LastName == nil {
		return "", false
	}
	parts := make([]string, 0, 2)
	for _, v := range []*string{r.FirstName, r.LastName} {
		if v != nil && strings.TrimSpace(*v) != "" {
			parts = append(parts, strings.TrimSpace(*v))
		}
	}
	return strings.Join(parts, " "), true
}

// ToPatch maps the request onto a domain patch. bio wins over summary.
func (r *ProfileRequest) ToPatch() profile.Patch {
	patch := profile.Patch{
		Headline:             r.Headline,
		Bio:                  r.Bio,
		Location:             r.Location,
		Industry:             r.Industry,
		CurrentPosition:      r.CurrentPosition,
		CurrentCompany:       r.CurrentCompany,
		Website:              r.Website,
		PhoneNumber:          r.PhoneNumber,
		LinkedinURL:          r.LinkedinURL,
		GithubURL:            r.GithubURL,
		ProfilePictureURL:    r.ProfilePictureURL,
		Skills:               r.Skills,
		ProfilePublic:        r.ProfilePublic,
		ContactInfoPublic:    r.ContactInfoPublic,
		WorkExperiencePublic: r.WorkExperiencePublic,
		EducationPublic:      r.EducationPublic,
		SkillsPublic:         r.SkillsPublic,
	}
	if patch.Bio == nil {
		patch.Bio = r.Summary
	}
	if name, ok := r.fullName(); ok {
		patch.FullName = &name
	}
	return patch
}

func (r *SearchRequest) ToCriteria() profile.SearchCriteria {
	return profile.SearchCriteria{
		Keyword:  r.Keyword,
		Location: r.Location,
		Company:  r.Company,
		Industry: r.Industry,
	}
}

func ToPrivacySettingsDTO(p *profile.UserProfile) PrivacySettingsDTO {
	s := p.PrivacySettings()
	return PrivacySettingsDTO{
		ID:                 p.ID,
		ProfileVisible:     s.ProfileVisible,
		ShowEmail:          s.ShowEmail,
		ShowPhone:          s.ShowPhone,
		ShowWorkExperience: s.ShowWorkExperience,
		ShowEducation:      s.ShowEducation,
	}
}

func (d PrivacySettingsDTO) ToDomain() profile.PrivacySettings {
	return profile.PrivacySettings{
		ProfileVisible:     d.ProfileVisible,
		ShowEmail:          d.ShowEmail,
		ShowPhone:          d.ShowPhone,
		ShowWorkExperience: d.ShowWorkExperience,
		ShowEducation:      d.ShowEducation,
	}
}
