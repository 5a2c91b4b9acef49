package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/apperror"
)

// AddSkill is a no-op on the set when the skill is already present, but the
// row is still rewritten so profileUpdatedAt moves.
func (uc *ProfileUseCase) AddSkill(ctx context.Context, id int64, caller profile.Caller, skill string) (*profile.UserProfile, error) {
	uc.logger.Info("Adding skill to user profile", zap.Int64("user_id", id), zap.String("skill", skill))

	skill, err := profile.NormalizeSkill(skill)
	if err != nil {
		return nil, apperror.NewInvalidInput(err.Error(), err)
	}
	return uc.mutate(ctx, id, caller, func(p *profile.UserProfile) error {
		return p.Skills.Add(skill)
	})
}

func (uc *ProfileUseCase) RemoveSkill(ctx context.Context, id int64, caller profile.Caller, skill string) (*profile.UserProfile, error) {
	uc.logger.Info("Removing skill from user profile", zap.Int64("user_id", id), zap.String("skill", skill))

	skill, err := profile.NormalizeSkill(skill)
	if err != nil {
		return nil, apperror.NewInvalidInput(err.Error(), err)
	}
	return uc.mutate(ctx, id, caller, func(p *profile.UserProfile) error {
		p.Skills.Remove(skill)
		return nil
	})
}

// ReplaceSkills swaps the whole set inside one transaction.
func (uc *ProfileUseCase) ReplaceSkills(ctx context.Context, id int64, caller profile.Caller, skills []string) (*profile.UserProfile, error) {
	uc.logger.Info("Updating skills for user profile", zap.Int64("user_id", id), zap.Int("count", len(skills)))

	set, err := profile.NewSkillSet(skills)
	if err != nil {
		return nil, apperror.NewInvalidInput(err.Error(), err)
	}
	return uc.mutate(ctx, id, caller, func(p *profile.UserProfile) error {
		p.Skills = set.Clone()
		return nil
	})
}
