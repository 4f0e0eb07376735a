package repository

import (
	"context"
	"errors"
	"time"

	"talentmatch/internal/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrSkillReferenced = errors.New("skill still referenced by associations")

type Skill struct {
	ID        uuid.UUID
	Name      string
	Category  string
	CreatedAt time.Time
}

type SkillRepository interface {
	GetOrCreateByName(ctx context.Context, name string) (Skill, error)
	GetAllSkills(ctx context.Context) ([]Skill, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, category string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PostgresSkillRepository struct {
	db database.DB
}

func NewPostgresSkillRepository(db database.DB) *PostgresSkillRepository {
	return &PostgresSkillRepository{db: db}
}

// GetOrCreateByName resolves a skill by its unique name, creating it on
// first reference. Concurrent creates race on the unique index; the loser
// retries the lookup.
func (r *PostgresSkillRepository) GetOrCreateByName(ctx context.Context, name string) (Skill, error) {
	s, err := r.getByName(ctx, name)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Skill{}, err
	}

	id := uuid.New()
	_, err = r.db.Exec(ctx, `INSERT INTO skills (id, name) VALUES ($1, $2)`, id, name)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return r.getByName(ctx, name)
		}
		return Skill{}, err
	}
	return Skill{ID: id, Name: name}, nil
}

func (r *PostgresSkillRepository) getByName(ctx context.Context, name string) (Skill, error) {
	var s Skill
	err := r.db.QueryRow(ctx,
		`SELECT id, name, COALESCE(category, ''), created_at FROM skills WHERE name = $1`,
		name,
	).Scan(&s.ID, &s.Name, &s.Category, &s.CreatedAt)
	if err != nil {
		return Skill{}, err
	}
	return s, nil
}

func (r *PostgresSkillRepository) GetAllSkills(ctx context.Context) ([]Skill, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, COALESCE(category, ''), created_at FROM skills ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Skill, 0)
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresSkillRepository) UpdateCategory(ctx context.Context, id uuid.UUID, category string) error {
	_, err := r.db.Exec(ctx, `UPDATE skills SET category = $2 WHERE id = $1`, id, category)
	return err
}

// Delete removes a skill only when no candidate or job association still
// points at it.
func (r *PostgresSkillRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var refs int
	err := r.db.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM candidate_skills WHERE skill_id = $1)
		      + (SELECT COUNT(*) FROM job_skills WHERE skill_id = $1)`,
		id,
	).Scan(&refs)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrSkillReferenced
	}

	_, err = r.db.Exec(ctx, `DELETE FROM skills WHERE id = $1`, id)
	return err
}
