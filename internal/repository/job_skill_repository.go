package repository

import (
	"context"

	"talentmatch/internal/database"

	"github.com/google/uuid"
)

type JobSkillRow struct {
	SkillID            uuid.UUID
	SkillName          string
	IsRequired         bool
	MinYearsExperience int
	Importance         int
}

type JobSkillUpsert struct {
	JobID              uuid.UUID
	SkillID            uuid.UUID
	IsRequired         bool
	MinYearsExperience int
	Importance         int
}

type JobSkillRepository interface {
	FindByJobID(ctx context.Context, jobID uuid.UUID) ([]JobSkillRow, error)
	Upsert(ctx context.Context, js JobSkillUpsert) error
	DeleteByJobID(ctx context.Context, jobID uuid.UUID) (int64, error)
}

type PostgresJobSkillRepository struct {
	db database.DB
}

func NewPostgresJobSkillRepository(db database.DB) *PostgresJobSkillRepository {
	return &PostgresJobSkillRepository{db: db}
}

func (r *PostgresJobSkillRepository) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]JobSkillRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT js.skill_id, s.name, js.is_required, js.min_years_experience, js.importance
		 FROM job_skills js
		 JOIN skills s ON s.id = js.skill_id
		 WHERE js.job_id = $1
		 ORDER BY js.skill_id ASC`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]JobSkillRow, 0)
	for rows.Next() {
		var it JobSkillRow
		if err := rows.Scan(&it.SkillID, &it.SkillName, &it.IsRequired, &it.MinYearsExperience, &it.Importance); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresJobSkillRepository) Upsert(ctx context.Context, js JobSkillUpsert) error {
	if js.JobID == uuid.Nil || js.SkillID == uuid.Nil {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO job_skills (id, job_id, skill_id, is_required, min_years_experience, importance)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (job_id, skill_id) DO UPDATE SET
			is_required = EXCLUDED.is_required,
			min_years_experience = EXCLUDED.min_years_experience,
			importance = EXCLUDED.importance`,
		uuid.New(),
		js.JobID,
		js.SkillID,
		js.IsRequired,
		js.MinYearsExperience,
		js.Importance,
	)
	return err
}

func (r *PostgresJobSkillRepository) DeleteByJobID(ctx context.Context, jobID uuid.UUID) (int64, error) {
	return r.db.Exec(ctx, `DELETE FROM job_skills WHERE job_id = $1`, jobID)
}
