package repository

import (
	"context"

	"talentmatch/internal/database"

	"github.com/google/uuid"
)

type CandidateSkillRow struct {
	SkillID          uuid.UUID
	SkillName        string
	YearsExperience  int
	ProficiencyLevel string
	IsHighlighted    bool
}

type CandidateSkillUpsert struct {
	CandidateID      uuid.UUID
	SkillID          uuid.UUID
	YearsExperience  int
	ProficiencyLevel string
	IsHighlighted    bool
}

type CandidateSkillRepository interface {
	FindByCandidateID(ctx context.Context, candidateID uuid.UUID) ([]CandidateSkillRow, error)
	Upsert(ctx context.Context, cs CandidateSkillUpsert) error
	DeleteByCandidateID(ctx context.Context, candidateID uuid.UUID) (int64, error)
}

type PostgresCandidateSkillRepository struct {
	db database.DB
}

func NewPostgresCandidateSkillRepository(db database.DB) *PostgresCandidateSkillRepository {
	return &PostgresCandidateSkillRepository{db: db}
}

func (r *PostgresCandidateSkillRepository) FindByCandidateID(ctx context.Context, candidateID uuid.UUID) ([]CandidateSkillRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT cs.skill_id, s.name, COALESCE(cs.years_experience, 0), COALESCE(cs.proficiency_level, ''), cs.is_highlighted
		 FROM candidate_skills cs
		 JOIN skills s ON s.id = cs.skill_id
		 WHERE cs.candidate_id = $1
		 ORDER BY cs.skill_id ASC`,
		candidateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CandidateSkillRow, 0)
	for rows.Next() {
		var it CandidateSkillRow
		if err := rows.Scan(&it.SkillID, &it.SkillName, &it.YearsExperience, &it.ProficiencyLevel, &it.IsHighlighted); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresCandidateSkillRepository) Upsert(ctx context.Context, cs CandidateSkillUpsert) error {
	if cs.CandidateID == uuid.Nil || cs.SkillID == uuid.Nil {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO candidate_skills (id, candidate_id, skill_id, years_experience, proficiency_level, is_highlighted)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (candidate_id, skill_id) DO UPDATE SET
			years_experience = EXCLUDED.years_experience,
			proficiency_level = EXCLUDED.proficiency_level,
			is_highlighted = EXCLUDED.is_highlighted`,
		uuid.New(),
		cs.CandidateID,
		cs.SkillID,
		cs.YearsExperience,
		cs.ProficiencyLevel,
		cs.IsHighlighted,
	)
	return err
}

func (r *PostgresCandidateSkillRepository) DeleteByCandidateID(ctx context.Context, candidateID uuid.UUID) (int64, error) {
	return r.db.Exec(ctx, `DELETE FROM candidate_skills WHERE candidate_id = $1`, candidateID)
}
