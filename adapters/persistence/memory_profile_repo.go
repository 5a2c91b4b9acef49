package persistence

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/apperror"
)

// memoryProfileRepo keeps profiles in process. A single mutex stands in for
// the row lock and the transaction: mutate callbacks run while it is held and
// their changes are discarded on error.
type memoryProfileRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*profile.UserProfile
	now    func() time.Time
}

func NewMemoryProfileRepo() profile.Repository {
	return &memoryProfileRepo{
		rows: make(map[int64]*profile.UserProfile),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryProfileRepo) Create(ctx context.Context, p *profile.UserProfile) error {
	if err := validateRow(p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if strings.EqualFold(row.Email, p.Email) {
			return apperror.NewDuplicateEmail(p.Email)
		}
	}

	r.nextID++
	now := r.now()
	p.ID = r.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Skills == nil {
		p.Skills = profile.SkillSet{}
	}
	r.rows[p.ID] = p.Clone()
	return nil
}

func (r *memoryProfileRepo) FindByID(ctx context.Context, id int64) (*profile.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, apperror.NewNotFound("User profile", strconv.FormatInt(id, 10))
	}
	return row.Clone(), nil
}

func (r *memoryProfileRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rows[id]
	return ok, nil
}

func (r *memoryProfileRepo) Update(ctx context.Context, id int64, mutate func(p *profile.UserProfile) error) (*profile.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, apperror.NewNotFound("User profile", strconv.FormatInt(id, 10))
	}

	working := row.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	if err := validateRow(working); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperror.NewInternal("update cancelled before commit", err)
	}

	working.ID = row.ID
	working.Email = row.Email
	working.EmailVerified = row.EmailVerified
	working.CreatedAt = row.CreatedAt
	working.UpdatedAt = r.now()
	if working.UpdatedAt.Before(row.UpdatedAt) {
		working.UpdatedAt = row.UpdatedAt
	}
	if working.Skills == nil {
		working.Skills = profile.SkillSet{}
	}

	r.rows[id] = working
	return working.Clone(), nil
}

func (r *memoryProfileRepo) Delete(ctx context.Context, id int64, beforeDelete func(p *profile.UserProfile) error) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	if beforeDelete != nil {
		if err := beforeDelete(row.Clone()); err != nil {
			return false, err
		}
	}
	delete(r.rows, id)
	return true, nil
}

func (r *memoryProfileRepo) SearchPublic(ctx context.Context, criteria profile.SearchCriteria) ([]*profile.UserProfile, error) {
	return r.filterPublic(func(p *profile.UserProfile) bool {
		return containsFold(p.FullName, criteria.Keyword) &&
			containsFold(p.Location, criteria.Location) &&
			containsFold(p.CurrentCompany, criteria.Company) &&
			containsFold(p.Industry, criteria.Industry)
	}), nil
}

func (r *memoryProfileRepo) FindPublicBySkills(ctx context.Context, skills []string) ([]*profile.UserProfile, error) {
	return r.filterPublic(func(p *profile.UserProfile) bool {
		for _, s := range skills {
			if _, ok := p.Skills[s]; ok {
				return true
			}
		}
		return false
	}), nil
}

func (r *memoryProfileRepo) filterPublic(match func(p *profile.UserProfile) bool) []*profile.UserProfile {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*profile.UserProfile, 0)
	for _, row := range r.rows {
		if row.Privacy.ProfilePublic && match(row) {
			out = append(out, row.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// containsFold treats a nil needle as a wildcard. A set needle never matches
// an absent field, the same way SQL LIKE never matches NULL.
func containsFold(haystack string, needle *string) bool {
	if needle == nil {
		return true
	}
	if haystack == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(*needle))
}
