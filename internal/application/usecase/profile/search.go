package profile

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/networkpro/user-service/internal/domain/profile"
)

// SearchPublicProfiles filters public profiles; blank criteria act as wildcards.
func (uc *ProfileUseCase) SearchPublicProfiles(ctx context.Context, criteria profile.SearchCriteria) ([]*profile.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "ProfileUseCase.SearchPublicProfiles")
	defer span.End()

	criteria = profile.SearchCriteria{
		Keyword:  blankToNil(criteria.Keyword),
		Location: blankToNil(criteria.Location),
		Company:  blankToNil(criteria.Company),
		Industry: blankToNil(criteria.Industry),
	}
	uc.logger.Info("Searching public profiles",
		zap.Stringp("name", criteria.Keyword),
		zap.Stringp("location", criteria.Location),
		zap.Stringp("company", criteria.Company),
		zap.Stringp("industry", criteria.Industry),
	)
	return uc.profileRepo.SearchPublic(ctx, criteria)
}

func (uc *ProfileUseCase) GetAllPublicProfiles(ctx context.Context) ([]*profile.UserProfile, error) {
	uc.logger.Info("Fetching all public profiles")
	return uc.profileRepo.SearchPublic(ctx, profile.SearchCriteria{})
}

// FindByLocation only returns public profiles.
func (uc *ProfileUseCase) FindByLocation(ctx context.Context, location string) ([]*profile.UserProfile, error) {
	uc.logger.Info("Finding users in location", zap.String("location", location))
	return uc.SearchPublicProfiles(ctx, profile.SearchCriteria{Location: &location})
}

func (uc *ProfileUseCase) FindUsersByCompany(ctx context.Context, company string) ([]*profile.UserProfile, error) {
	uc.logger.Info("Finding users at company", zap.String("company", company))
	return uc.SearchPublicProfiles(ctx, profile.SearchCriteria{Company: &company})
}

// FindBySkills returns public profiles holding at least one of skills.
func (uc *ProfileUseCase) FindBySkills(ctx context.Context, skills []string) ([]*profile.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "ProfileUseCase.FindBySkills")
	defer span.End()

	wanted := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s, err := profile.NormalizeSkill(s)
		if err != nil {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		wanted = append(wanted, s)
	}

	uc.logger.Info("Finding users with skills", zap.Strings("skills", wanted))
	if len(wanted) == 0 {
		return []*profile.UserProfile{}, nil
	}
	return uc.profileRepo.FindPublicBySkills(ctx, wanted)
}

// FindWithCompletionAbove scores public profiles at read time and keeps those
// strictly above threshold.
func (uc *ProfileUseCase) FindWithCompletionAbove(ctx context.Context, threshold int) ([]*profile.UserProfile, error) {
	uc.logger.Info("Fetching profiles with completion percentage above", zap.Int("threshold", threshold))

	all, err := uc.profileRepo.SearchPublic(ctx, profile.SearchCriteria{})
	if err != nil {
		return nil, err
	}
	out := make([]*profile.UserProfile, 0, len(all))
	for _, p := range all {
		if p.CompletionPercentage() > threshold {
			out = append(out, p)
		}
	}
	return out, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
