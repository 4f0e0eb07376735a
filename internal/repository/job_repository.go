package repository

import (
	"context"
	"encoding/json"

	"talentmatch/internal/database"

	"github.com/google/uuid"
)

type JobProfile struct {
	ID          uuid.UUID
	Title       string
	Description string
	Embedding   []float32
}

type JobRepository interface {
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	GetProfile(ctx context.Context, id uuid.UUID) (JobProfile, error)
	SaveEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type PostgresJobRepository struct {
	db database.DB
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *PostgresJobRepository) GetProfile(ctx context.Context, id uuid.UUID) (JobProfile, error) {
	var p JobProfile
	var embedding []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, title, description, embedding FROM jobs WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Title, &p.Description, &embedding)
	if err != nil {
		return JobProfile{}, err
	}
	if len(embedding) > 0 {
		_ = json.Unmarshal(embedding, &p.Embedding)
	}
	return p, nil
}

func (r *PostgresJobRepository) SaveEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	b, err := json.Marshal(embedding)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`UPDATE jobs SET embedding = $2, updated_at = now() WHERE id = $1`, id, b)
	return err
}

func (r *PostgresJobRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	return r.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
}
