package repository

import (
	"context"
	"encoding/json"

	"talentmatch/internal/database"

	"github.com/google/uuid"
)

type CandidateProfile struct {
	ID         uuid.UUID
	Name       string
	ResumeText string
	Summary    string
	Embedding  []float32
}

type CandidateRepository interface {
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	GetProfile(ctx context.Context, id uuid.UUID) (CandidateProfile, error)
	SaveEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type PostgresCandidateRepository struct {
	db database.DB
}

func NewPostgresCandidateRepository(db database.DB) *PostgresCandidateRepository {
	return &PostgresCandidateRepository{db: db}
}

func (r *PostgresCandidateRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM candidates WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *PostgresCandidateRepository) GetProfile(ctx context.Context, id uuid.UUID) (CandidateProfile, error) {
	var p CandidateProfile
	var embedding []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, name, COALESCE(resume_text, ''), COALESCE(summary, ''), embedding
		 FROM candidates WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.ResumeText, &p.Summary, &embedding)
	if err != nil {
		return CandidateProfile{}, err
	}
	if len(embedding) > 0 {
		// Stored as a JSONB array; an unreadable value degrades to no
		// embedding rather than failing the lookup.
		_ = json.Unmarshal(embedding, &p.Embedding)
	}
	return p, nil
}

func (r *PostgresCandidateRepository) SaveEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	b, err := json.Marshal(embedding)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`UPDATE candidates SET embedding = $2, updated_at = now() WHERE id = $1`, id, b)
	return err
}

// Delete removes the candidate; skill associations, matches, and audits
// cascade at the storage layer.
func (r *PostgresCandidateRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	return r.db.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
}
