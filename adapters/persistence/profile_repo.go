package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/apperror"
	"github.com/networkpro/user-service/pkg/logger"
)

const emailUniqueConstraint = "user_profiles_email_key"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var profileColumns = []string{
	"p.id", "p.full_name", "p.email", "p.bio", "p.headline", "p.location", "p.industry",
	"p.current_position", "p.current_company", "p.website", "p.phone_number",
	"p.linkedin_url", "p.github_url", "p.profile_picture_url",
	"p.profile_public", "p.contact_info_public", "p.work_experience_public",
	"p.education_public", "p.skills_public", "p.email_verified",
	"p.profile_created_at", "p.profile_updated_at",
}

type postgresProfileRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresProfileRepo(db *pgxpool.Pool, logger logger.Logger) profile.Repository {
	return &postgresProfileRepo{db: db, logger: logger}
}

func scanProfile(row pgx.Row) (*profile.UserProfile, error) {
	p := &profile.UserProfile{Skills: profile.SkillSet{}}
	var bio, headline, location, industry, position, company, website, phone, linkedin, github, picture sql.NullString

	err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.Email,
		&bio,
		&headline,
		&location,
		&industry,
		&position,
		&company,
		&website,
		&phone,
		&linkedin,
		&github,
		&picture,
		&p.Privacy.ProfilePublic,
		&p.Privacy.ContactInfoPublic,
		&p.Privacy.WorkExperiencePublic,
		&p.Privacy.EducationPublic,
		&p.Privacy.SkillsPublic,
		&p.EmailVerified,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Bio = bio.String
	p.Headline = headline.String
	p.Location = location.String
	p.Industry = industry.String
	p.CurrentPosition = position.String
	p.CurrentCompany = company.String
	p.Website = website.String
	p.PhoneNumber = phone.String
	p.LinkedinURL = linkedin.String
	p.GithubURL = github.String
	p.ProfilePictureURL = picture.String
	return p, nil
}

// nullable stores absent optional fields as NULL rather than ''.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapWriteError turns integrity violations (class 23) and rejected values
// (class 22, e.g. 22001 string too long) into client errors. Anything else is
// a persistence failure.
func mapWriteError(err error, email, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && pgErr.ConstraintName == emailUniqueConstraint {
			return apperror.NewDuplicateEmail(email)
		}
		if strings.HasPrefix(pgErr.Code, "23") || strings.HasPrefix(pgErr.Code, "22") {
			return apperror.NewStorage(pgErr.Message, err)
		}
	}
	return apperror.NewInternal(op, err)
}

// validateRow keeps values that the columns would reject out of the store.
func validateRow(p *profile.UserProfile) error {
	if err := p.Validate(); err != nil {
		return apperror.NewInvalidInput(err.Error(), err)
	}
	return nil
}

func (r *postgresProfileRepo) Create(ctx context.Context, p *profile.UserProfile) error {
	if err := validateRow(p); err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperror.NewInternal("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := psql.Insert("user_profiles").
		Columns(
			"full_name", "email", "bio", "headline", "location", "industry",
			"current_position", "current_company", "website", "phone_number",
			"linkedin_url", "github_url", "profile_picture_url",
			"profile_public", "contact_info_public", "work_experience_public",
			"education_public", "skills_public", "email_verified",
		).
		Values(
			p.FullName, p.Email, nullable(p.Bio), nullable(p.Headline), nullable(p.Location), nullable(p.Industry),
			nullable(p.CurrentPosition), nullable(p.CurrentCompany), nullable(p.Website), nullable(p.PhoneNumber),
			nullable(p.LinkedinURL), nullable(p.GithubURL), nullable(p.ProfilePictureURL),
			p.Privacy.ProfilePublic, p.Privacy.ContactInfoPublic, p.Privacy.WorkExperiencePublic,
			p.Privacy.EducationPublic, p.Privacy.SkillsPublic, p.EmailVerified,
		).
		Suffix("RETURNING id, profile_created_at, profile_updated_at").
		ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build insert query", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return mapWriteError(err, p.Email, "failed to insert user profile")
	}

	if err := r.writeSkills(ctx, tx, p.ID, p.Skills); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapWriteError(err, p.Email, "failed to commit user profile")
	}
	if p.Skills == nil {
		p.Skills = profile.SkillSet{}
	}
	return nil
}

func (r *postgresProfileRepo) FindByID(ctx context.Context, id int64) (*profile.UserProfile, error) {
	query, args, err := psql.Select(profileColumns...).
		From("user_profiles p").
		Where(sq.Eq{"p.id": id}).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build find query", err)
	}

	p, err := scanProfile(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("User profile", strconv.FormatInt(id, 10))
		}
		return nil, apperror.NewInternal("failed to query user profile", err)
	}

	if err := r.loadSkills(ctx, r.db, []*profile.UserProfile{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresProfileRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_profiles WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, apperror.NewInternal("failed to check user profile existence", err)
	}
	return exists, nil
}

func (r *postgresProfileRepo) lockForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*profile.UserProfile, error) {
	query, args, err := psql.Select(profileColumns...).
		From("user_profiles p").
		Where(sq.Eq{"p.id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build lock query", err)
	}

	p, err := scanProfile(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("User profile", strconv.FormatInt(id, 10))
		}
		return nil, apperror.NewInternal("failed to lock user profile", err)
	}
	if err := r.loadSkills(ctx, tx, []*profile.UserProfile{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresProfileRepo) Update(ctx context.Context, id int64, mutate func(p *profile.UserProfile) error) (*profile.UserProfile, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, apperror.NewInternal("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	current, err := r.lockForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	if err := validateRow(working); err != nil {
		return nil, err
	}

	// email, email_verified and profile_created_at are never written here.
	query, args, err := psql.Update("user_profiles").
		SetMap(map[string]interface{}{
			"full_name":              working.FullName,
			"bio":                    nullable(working.Bio),
			"headline":               nullable(working.Headline),
			"location":               nullable(working.Location),
			"industry":               nullable(working.Industry),
			"current_position":       nullable(working.CurrentPosition),
			"current_company":        nullable(working.CurrentCompany),
			"website":                nullable(working.Website),
			"phone_number":           nullable(working.PhoneNumber),
			"linkedin_url":           nullable(working.LinkedinURL),
			"github_url":             nullable(working.GithubURL),
			"profile_picture_url":    nullable(working.ProfilePictureURL),
			"profile_public":         working.Privacy.ProfilePublic,
			"contact_info_public":    working.Privacy.ContactInfoPublic,
			"work_experience_public": working.Privacy.WorkExperiencePublic,
			"education_public":       working.Privacy.EducationPublic,
			"skills_public":          working.Privacy.SkillsPublic,
			"profile_updated_at":     sq.Expr("GREATEST(NOW(), profile_updated_at)"),
		}).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING profile_updated_at").
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build update query", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&working.UpdatedAt); err != nil {
		return nil, mapWriteError(err, current.Email, "failed to update user profile")
	}

	if !sameSkills(current.Skills, working.Skills) {
		if _, err := tx.Exec(ctx, `DELETE FROM user_profile_skills WHERE profile_id = $1`, id); err != nil {
			return nil, apperror.NewInternal("failed to clear skills", err)
		}
		if err := r.writeSkills(ctx, tx, id, working.Skills); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapWriteError(err, current.Email, "failed to commit user profile update")
	}

	working.ID = current.ID
	working.Email = current.Email
	working.EmailVerified = current.EmailVerified
	working.CreatedAt = current.CreatedAt
	if working.Skills == nil {
		working.Skills = profile.SkillSet{}
	}
	return working, nil
}

func (r *postgresProfileRepo) Delete(ctx context.Context, id int64, beforeDelete func(p *profile.UserProfile) error) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, apperror.NewInternal("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	current, err := r.lockForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if beforeDelete != nil {
		if err := beforeDelete(current); err != nil {
			return false, err
		}
	}

	// skills rows go with ON DELETE CASCADE
	if _, err := tx.Exec(ctx, `DELETE FROM user_profiles WHERE id = $1`, id); err != nil {
		return false, apperror.NewInternal("failed to delete user profile", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, apperror.NewInternal("failed to commit user profile delete", err)
	}
	return true, nil
}

func (r *postgresProfileRepo) SearchPublic(ctx context.Context, criteria profile.SearchCriteria) ([]*profile.UserProfile, error) {
	builder := psql.Select(profileColumns...).
		From("user_profiles p").
		Where(sq.Eq{"p.profile_public": true})

	if criteria.Keyword != nil {
		builder = builder.Where(sq.ILike{"p.full_name": likePattern(*criteria.Keyword)})
	}
	if criteria.Location != nil {
		builder = builder.Where(sq.ILike{"p.location": likePattern(*criteria.Location)})
	}
	if criteria.Company != nil {
		builder = builder.Where(sq.ILike{"p.current_company": likePattern(*criteria.Company)})
	}
	if criteria.Industry != nil {
		builder = builder.Where(sq.ILike{"p.industry": likePattern(*criteria.Industry)})
	}

	return r.queryProfiles(ctx, builder.OrderBy("p.id ASC"))
}

func (r *postgresProfileRepo) FindPublicBySkills(ctx context.Context, skills []string) ([]*profile.UserProfile, error) {
	if len(skills) == 0 {
		return []*profile.UserProfile{}, nil
	}

	builder := psql.Select(profileColumns...).
		From("user_profiles p").
		Where(sq.Eq{"p.profile_public": true}).
		Where(sq.Expr("EXISTS (SELECT 1 FROM user_profile_skills s WHERE s.profile_id = p.id AND s.skill = ANY(?))", skills)).
		OrderBy("p.id ASC")

	return r.queryProfiles(ctx, builder)
}

func (r *postgresProfileRepo) queryProfiles(ctx context.Context, builder sq.SelectBuilder) ([]*profile.UserProfile, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build search query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to search user profiles", err)
	}
	defer rows.Close()

	profiles := make([]*profile.UserProfile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, apperror.NewInternal("failed to scan user profile row", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal("error iterating user profile rows", err)
	}

	if err := r.loadSkills(ctx, r.db, profiles); err != nil {
		return nil, err
	}
	r.logger.Debug("Searched user profiles", zap.Int("count", len(profiles)))
	return profiles, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadSkills fills every profile's skill set with one round trip.
func (r *postgresProfileRepo) loadSkills(ctx context.Context, q querier, profiles []*profile.UserProfile) error {
	if len(profiles) == 0 {
		return nil
	}

	byID := make(map[int64]*profile.UserProfile, len(profiles))
	ids := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := q.Query(ctx, `SELECT profile_id, skill FROM user_profile_skills WHERE profile_id = ANY($1)`, ids)
	if err != nil {
		return apperror.NewInternal("failed to query skills", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var skill string
		if err := rows.Scan(&id, &skill); err != nil {
			return apperror.NewInternal("failed to scan skill row", err)
		}
		if p, ok := byID[id]; ok {
			p.Skills[skill] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return apperror.NewInternal("error iterating skill rows", err)
	}
	return nil
}

func (r *postgresProfileRepo) writeSkills(ctx context.Context, tx pgx.Tx, id int64, skills profile.SkillSet) error {
	if len(skills) == 0 {
		return nil
	}

	list := skills.Slice()
	rowsToInsert := make([][]interface{}, len(list))
	for i, skill := range list {
		rowsToInsert[i] = []interface{}{id, skill}
	}

	_, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"user_profile_skills"},
		[]string{"profile_id", "skill"},
		pgx.CopyFromRows(rowsToInsert),
	)
	if err != nil {
		return mapWriteError(err, "", "failed to write skills")
	}
	return nil
}

func sameSkills(a, b profile.SkillSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches term as a literal substring; LIKE metacharacters in the
// input carry no special meaning.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
