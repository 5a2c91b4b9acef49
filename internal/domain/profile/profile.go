package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Column widths of user_profiles and user_profile_skills, in characters.
const (
	MaxFullNameLength = 100
	MaxEmailLength    = 320
	MaxShortText      = 255
	MaxPhoneLength    = 50
	MaxSkillLength    = 100
)

var (
	ErrProfileNotFound  = errors.New("user profile not found")
	ErrFullNameRequired = errors.New("fullName is required")
	ErrFullNameTooLong  = errors.New("fullName must be at most 100 characters")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("email should be valid")
	ErrEmptySkill       = errors.New("skill must not be empty")
	ErrFieldTooLong     = errors.New("field too long")
)

type fieldTooLongError struct {
	field string
	max   int
}

func (e fieldTooLongError) Error() string {
	return fmt.Sprintf("%s must be at most %d characters", e.field, e.max)
}

func (e fieldTooLongError) Is(target error) bool { return target == ErrFieldTooLong }

func checkLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fieldTooLongError{field: field, max: max}
	}
	return nil
}

// Privacy holds the persisted visibility flags.
type Privacy struct {
	ProfilePublic        bool `json:"profile_public"`
	ContactInfoPublic    bool `json:"contact_info_public"`
	WorkExperiencePublic bool `json:"work_experience_public"`
	EducationPublic      bool `json:"education_public"`
	SkillsPublic         bool `json:"skills_public"`
}

func DefaultPrivacy() Privacy {
	return Privacy{
		ProfilePublic:        true,
		ContactInfoPublic:    false,
		WorkExperiencePublic: true,
		EducationPublic:      true,
		SkillsPublic:         true,
	}
}

// UserProfile is the aggregate root. Empty strings mean the field is absent.
type UserProfile struct {
	ID                int64     `json:"id"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	Bio               string    `json:"bio"`
	Headline          string    `json:"headline"`
	Location          string    `json:"location"`
	Industry          string    `json:"industry"`
	CurrentPosition   string    `json:"current_position"`
	CurrentCompany    string    `json:"current_company"`
	Website           string    `json:"website"`
	PhoneNumber       string    `json:"phone_number"`
	LinkedinURL       string    `json:"linkedin_url"`
	GithubURL         string    `json:"github_url"`
	ProfilePictureURL string    `json:"profile_picture_url"`
	Skills            SkillSet  `json:"skills"`
	Privacy           Privacy   `json:"privacy"`
	EmailVerified     bool      `json:"email_verified"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// New builds an unsaved profile with default privacy flags.
func New(fullName, email string) *UserProfile {
	return &UserProfile{
		FullName: strings.TrimSpace(fullName),
		Email:    strings.TrimSpace(email),
		Skills:   SkillSet{},
		Privacy:  DefaultPrivacy(),
	}
}

func (p *UserProfile) Validate() error {
	if p.FullName == "" {
		return ErrFullNameRequired
	}
	if utf8.RuneCountInString(p.FullName) > MaxFullNameLength {
		return ErrFullNameTooLong
	}
	if err := ValidateEmail(p.Email); err != nil {
		return err
	}

	limits := []struct {
		field string
		value string
		max   int
	}{
		{"headline", p.Headline, MaxShortText},
		{"location", p.Location, MaxShortText},
		{"industry", p.Industry, MaxShortText},
		{"currentPosition", p.CurrentPosition, MaxShortText},
		{"currentCompany", p.CurrentCompany, MaxShortText},
		{"phoneNumber", p.PhoneNumber, MaxPhoneLength},
	}
	for _, l := range limits {
		if err := checkLength(l.field, l.value, l.max); err != nil {
			return err
		}
	}
	for skill := range p.Skills {
		if _, err := NormalizeSkill(skill); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEmail accepts a bare RFC 5322 addr-spec, no display name.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if err := checkLength("email", email, MaxEmailLength); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrEmailInvalid
	}
	return nil
}

func (p *UserProfile) IsPublic() bool {
	return p.Privacy.ProfilePublic
}

// Clone returns a deep copy so callers can mutate without sharing the skill map.
func (p *UserProfile) Clone() *UserProfile {
	c := *p
	c.Skills = p.Skills.Clone()
	return &c
}

// SkillSet is a set of trimmed, non-empty skill tokens.
type SkillSet map[string]struct{}

// NewSkillSet trims every entry and rejects empty ones. Duplicates collapse.
func NewSkillSet(skills []string) (SkillSet, error) {
	set := make(SkillSet, len(skills))
	for _, s := range skills {
		if err := set.Add(s); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func NormalizeSkill(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptySkill
	}
	if err := checkLength("skill", s, MaxSkillLength); err != nil {
		return "", err
	}
	return s, nil
}

func (s SkillSet) Add(skill string) error {
	skill, err := NormalizeSkill(skill)
	if err != nil {
		return err
	}
	s[skill] = struct{}{}
	return nil
}

func (s SkillSet) Remove(skill string) {
	delete(s, strings.TrimSpace(skill))
}

func (s SkillSet) Has(skill string) bool {
	_, ok := s[strings.TrimSpace(skill)]
	return ok
}

// Slice returns the skills sorted, which keeps responses and SQL writes stable.
func (s SkillSet) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s SkillSet) Clone() SkillSet {
	c := make(SkillSet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

func (s SkillSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *SkillSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	set := make(SkillSet, len(list))
	for _, v := range list {
		set[v] = struct{}{}
	}
	*s = set
	return nil
}

// SearchCriteria filters public profiles. A nil field is a wildcard; all
// provided fields must match as case-insensitive substrings.
type SearchCriteria struct {
	Keyword  *string
	Location *string
	Company  *string
	Industry *string
}

type Repository interface {
	Create(ctx context.Context, p *UserProfile) error
	FindByID(ctx context.Context, id int64) (*UserProfile, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	// Update loads the row under a lock, applies mutate and persists the
	// result in one transaction. A mutate error rolls everything back.
	Update(ctx context.Context, id int64, mutate func(p *UserProfile) error) (*UserProfile, error)
	// Delete locks the row, runs beforeDelete, then removes it. It reports
	// false without error when the row does not exist.
	Delete(ctx context.Context, id int64, beforeDelete func(p *UserProfile) error) (bool, error)
	SearchPublic(ctx context.Context, criteria SearchCriteria) ([]*UserProfile, error)
	FindPublicBySkills(ctx context.Context, skills []string) ([]*UserProfile, error)
}
