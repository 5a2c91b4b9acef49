package profile

import "strings"

// Patch is a partial update. Nil fields are left as they are; a non-nil empty
// string clears the field. Email and ID are not patchable.
type Patch struct {
	FullName          *string
	Bio               *string
	Headline          *string
	Location          *string
	Industry          *string
	CurrentPosition   *string
	CurrentCompany    *string
	Website           *string
	PhoneNumber       *string
	LinkedinURL       *string
	GithubURL         *string
	ProfilePictureURL *string
	Skills            *[]string

	ProfilePublic        *bool
	ContactInfoPublic    *bool
	WorkExperiencePublic *bool
	EducationPublic      *bool
	SkillsPublic         *bool
}

// Apply mutates p with every present field and validates the result.
func (p *UserProfile) Apply(patch Patch) error {
	setString(&p.FullName, patch.FullName)
	setString(&p.Bio, patch.Bio)
	setString(&p.Headline, patch.Headline)
	setString(&p.Location, patch.Location)
	setString(&p.Industry, patch.Industry)
	setString(&p.CurrentPosition, patch.CurrentPosition)
	setString(&p.CurrentCompany, patch.CurrentCompany)
	setString(&p.Website, patch.Website)
	setString(&p.PhoneNumber, patch.PhoneNumber)
	setString(&p.LinkedinURL, patch.LinkedinURL)
	setString(&p.GithubURL, patch.GithubURL)
	setString(&p.ProfilePictureURL, patch.ProfilePictureURL)

	if patch.Skills != nil {
		skills, err := NewSkillSet(*patch.Skills)
		if err != nil {
			return err
		}
		p.Skills = skills
	}

	setBool(&p.Privacy.ProfilePublic, patch.ProfilePublic)
	setBool(&p.Privacy.ContactInfoPublic, patch.ContactInfoPublic)
	setBool(&p.Privacy.WorkExperiencePublic, patch.WorkExperiencePublic)
	setBool(&p.Privacy.EducationPublic, patch.EducationPublic)
	setBool(&p.Privacy.SkillsPublic, patch.SkillsPublic)

	return p.Validate()
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
