package profile

import "strings"

// PrivacySettings is the lossy external view of the privacy flags: email and
// phone visibility collapse into a single contact flag.
type PrivacySettings struct {
	ProfileVisible     bool
	ShowEmail          bool
	ShowPhone          bool
	ShowWorkExperience bool
	ShowEducation      bool
}

// ApplyPrivacySettings leaves SkillsPublic untouched.
func (p *UserProfile) ApplyPrivacySettings(s PrivacySettings) {
	p.Privacy.ProfilePublic = s.ProfileVisible
	p.Privacy.ContactInfoPublic = s.ShowEmail || s.ShowPhone
	p.Privacy.WorkExperiencePublic = s.ShowWorkExperience
	p.Privacy.EducationPublic = s.ShowEducation
}

func (p *UserProfile) PrivacySettings() PrivacySettings {
	return PrivacySettings{
		ProfileVisible:     p.Privacy.ProfilePublic,
		ShowEmail:          p.Privacy.ContactInfoPublic,
		ShowPhone:          p.Privacy.ContactInfoPublic,
		ShowWorkExperience: p.Privacy.WorkExperiencePublic,
		ShowEducation:      p.Privacy.EducationPublic,
	}
}

// Caller is the identity a request runs as.
type Caller struct {
	Email   string
	trusted bool
}

func Anonymous() Caller {
	return Caller{}
}

func Authenticated(email string) Caller {
	return Caller{Email: strings.TrimSpace(email)}
}

// Trusted returns a caller treated as owner of every profile. It is used when
// ownership enforcement is switched off.
func Trusted() Caller {
	return Caller{trusted: true}
}

func (c Caller) IsAuthenticated() bool {
	return c.trusted || c.Email != ""
}

func (c Caller) Owns(p *UserProfile) bool {
	if p == nil {
		return false
	}
	if c.trusted {
		return true
	}
	return c.Email != "" && strings.EqualFold(c.Email, p.Email)
}

// Visibility says which field groups a caller may see.
type Visibility struct {
	ContactInfo    bool
	WorkExperience bool
	Education      bool
	Skills         bool
}

var fullVisibility = Visibility{ContactInfo: true, WorkExperience: true, Education: true, Skills: true}

// VisibilityFor returns false when the profile must look absent to the caller.
func (p *UserProfile) VisibilityFor(c Caller) (Visibility, bool) {
	if c.Owns(p) {
		return fullVisibility, true
	}
	return p.PublicVisibility()
}

// PublicVisibility is the projection for anonymous callers.
func (p *UserProfile) PublicVisibility() (Visibility, bool) {
	if !p.Privacy.ProfilePublic {
		return Visibility{}, false
	}
	return Visibility{
		ContactInfo:    p.Privacy.ContactInfoPublic,
		WorkExperience: p.Privacy.WorkExperiencePublic,
		Education:      p.Privacy.EducationPublic,
		Skills:         p.Privacy.SkillsPublic,
	}, true
}
