package repository

import (
	"context"
	"time"

	"talentmatch/internal/database"

	"github.com/google/uuid"
)

type JobBiasAuditRecord struct {
	ID                 uuid.UUID
	JobID              uuid.UUID
	CreatedAt          time.Time
	BiasTerms          []byte
	BiasedRequirements []byte
	BiasScore          float64
	Recommendations    []byte
	DebiasedText       string
	ChangesMade        []byte
}

type JobBiasAuditRepository interface {
	Insert(ctx context.Context, a JobBiasAuditRecord) (uuid.UUID, error)
	FindByJobID(ctx context.Context, jobID uuid.UUID) ([]JobBiasAuditRecord, error)
	ListUpTo(ctx context.Context, asOf time.Time) ([]JobBiasAuditRecord, error)
}

type PostgresJobBiasAuditRepository struct {
	db database.DB
}

func NewPostgresJobBiasAuditRepository(db database.DB) *PostgresJobBiasAuditRepository {
	return &PostgresJobBiasAuditRepository{db: db}
}

func (r *PostgresJobBiasAuditRepository) Insert(ctx context.Context, a JobBiasAuditRecord) (uuid.UUID, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO job_bias_audits (id, job_id, created_at, bias_terms, biased_requirements, bias_score, recommendations, debiased_text, changes_made)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		id,
		a.JobID,
		createdAt,
		a.BiasTerms,
		a.BiasedRequirements,
		a.BiasScore,
		a.Recommendations,
		a.DebiasedText,
		a.ChangesMade,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *PostgresJobBiasAuditRepository) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]JobBiasAuditRecord, error) {
	return r.list(ctx,
		`SELECT id, job_id, created_at, bias_terms, biased_requirements, bias_score, recommendations, COALESCE(debiased_text, ''), changes_made
		 FROM job_bias_audits WHERE job_id = $1 ORDER BY created_at DESC`,
		jobID,
	)
}

func (r *PostgresJobBiasAuditRepository) ListUpTo(ctx context.Context, asOf time.Time) ([]JobBiasAuditRecord, error) {
	return r.list(ctx,
		`SELECT id, job_id, created_at, bias_terms, biased_requirements, bias_score, recommendations, COALESCE(debiased_text, ''), changes_made
		 FROM job_bias_audits WHERE created_at <= $1 ORDER BY created_at ASC`,
		asOf,
	)
}

func (r *PostgresJobBiasAuditRepository) list(ctx context.Context, query string, args ...any) ([]JobBiasAuditRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]JobBiasAuditRecord, 0)
	for rows.Next() {
		var a JobBiasAuditRecord
		if err := rows.Scan(&a.ID, &a.JobID, &a.CreatedAt, &a.BiasTerms, &a.BiasedRequirements,
			&a.BiasScore, &a.Recommendations, &a.DebiasedText, &a.ChangesMade); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
