package repository

import (
	"context"
	"errors"
	"time"

	"talentmatch/internal/database"

	"github.com/google/uuid"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchUpsert struct {
	JobID       uuid.UUID
	CandidateID uuid.UUID
	Score       float64
	Details     []byte
}

type MatchRow struct {
	ID                uuid.UUID
	JobID             uuid.UUID
	CandidateID       uuid.UUID
	Score             float64
	Details           []byte
	IsVerified        bool
	VerifiedBy        uuid.UUID
	VerificationNotes string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type MatchRepository interface {
	Upsert(ctx context.Context, m MatchUpsert) error
	Get(ctx context.Context, jobID, candidateID uuid.UUID) (MatchRow, error)
	FindByJob(ctx context.Context, jobID uuid.UUID) ([]MatchRow, error)
	Verify(ctx context.Context, jobID, candidateID, verifierID uuid.UUID, notes string) error
}

type PostgresMatchRepository struct {
	db database.DB
}

func NewPostgresMatchRepository(db database.DB) *PostgresMatchRepository {
	return &PostgresMatchRepository{db: db}
}

// Upsert writes the single live match row per (job, candidate) pair. The ON
// CONFLICT arm rewrites score and details but leaves the human verification
// fields untouched.
func (r *PostgresMatchRepository) Upsert(ctx context.Context, m MatchUpsert) error {
	if m.JobID == uuid.Nil || m.CandidateID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO job_candidate_matches (id, job_id, candidate_id, match_score, match_details, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$6)
		 ON CONFLICT (job_id, candidate_id) DO UPDATE SET
			match_score = EXCLUDED.match_score,
			match_details = EXCLUDED.match_details,
			updated_at = EXCLUDED.updated_at`,
		uuid.New(),
		m.JobID,
		m.CandidateID,
		m.Score,
		m.Details,
		now,
	)
	return err
}

func (r *PostgresMatchRepository) Get(ctx context.Context, jobID, candidateID uuid.UUID) (MatchRow, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, job_id, candidate_id, match_score, match_details,
		        is_verified, COALESCE(verified_by, '00000000-0000-0000-0000-000000000000'::uuid),
		        COALESCE(verification_notes, ''), created_at, updated_at
		 FROM job_candidate_matches
		 WHERE job_id = $1 AND candidate_id = $2`,
		jobID, candidateID,
	)
	return scanMatch(row)
}

func (r *PostgresMatchRepository) FindByJob(ctx context.Context, jobID uuid.UUID) ([]MatchRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, job_id, candidate_id, match_score, match_details,
		        is_verified, COALESCE(verified_by, '00000000-0000-0000-0000-000000000000'::uuid),
		        COALESCE(verification_notes, ''), created_at, updated_at
		 FROM job_candidate_matches
		 WHERE job_id = $1
		 ORDER BY match_score DESC, candidate_id ASC`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MatchRow, 0)
	for rows.Next() {
		var m MatchRow
		if err := rows.Scan(&m.ID, &m.JobID, &m.CandidateID, &m.Score, &m.Details,
			&m.IsVerified, &m.VerifiedBy, &m.VerificationNotes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Verify records a human reviewer's sign-off. The engine never writes these
// columns.
func (r *PostgresMatchRepository) Verify(ctx context.Context, jobID, candidateID, verifierID uuid.UUID, notes string) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE job_candidate_matches
		 SET is_verified = TRUE, verified_by = $3, verification_notes = $4, updated_at = now()
		 WHERE job_id = $1 AND candidate_id = $2`,
		jobID, candidateID, verifierID, notes,
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func scanMatch(row database.Row) (MatchRow, error) {
	var m MatchRow
	err := row.Scan(&m.ID, &m.JobID, &m.CandidateID, &m.Score, &m.Details,
		&m.IsVerified, &m.VerifiedBy, &m.VerificationNotes, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return MatchRow{}, err
	}
	return m, nil
}
