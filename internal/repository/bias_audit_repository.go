package repository

import (
	"context"
	"errors"
	"time"

	"talentmatch/internal/database"

	"github.com/google/uuid"
)

var ErrAlreadyMitigated = errors.New("mitigation already recorded")

type BiasAuditRecord struct {
	ID                uuid.UUID
	CandidateID       uuid.UUID
	CreatedAt         time.Time
	Findings          []byte
	PromptBias        []byte
	PromptUsed        string
	MitigationApplied bool
	MitigationActions []byte
}

type BiasAuditRepository interface {
	Insert(ctx context.Context, a BiasAuditRecord) (uuid.UUID, error)
	MarkMitigated(ctx context.Context, id uuid.UUID, actions []byte) error
	FindByCandidateID(ctx context.Context, candidateID uuid.UUID) ([]BiasAuditRecord, error)
	ListUpTo(ctx context.Context, asOf time.Time) ([]BiasAuditRecord, error)
}

type PostgresBiasAuditRepository struct {
	db database.DB
}

func NewPostgresBiasAuditRepository(db database.DB) *PostgresBiasAuditRepository {
	return &PostgresBiasAuditRepository{db: db}
}

func (r *PostgresBiasAuditRepository) Insert(ctx context.Context, a BiasAuditRecord) (uuid.UUID, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO bias_audits (id, candidate_id, created_at, findings, prompt_bias, prompt_used, mitigation_applied, mitigation_actions)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		id,
		a.CandidateID,
		createdAt,
		a.Findings,
		a.PromptBias,
		a.PromptUsed,
		a.MitigationApplied,
		a.MitigationActions,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// MarkMitigated is the one mutation an audit row permits: recording that
// mitigation ran. A second attempt is rejected.
func (r *PostgresBiasAuditRepository) MarkMitigated(ctx context.Context, id uuid.UUID, actions []byte) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE bias_audits
		 SET mitigation_applied = TRUE, mitigation_actions = $2
		 WHERE id = $1 AND NOT mitigation_applied`,
		id, actions,
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyMitigated
	}
	return nil
}

func (r *PostgresBiasAuditRepository) FindByCandidateID(ctx context.Context, candidateID uuid.UUID) ([]BiasAuditRecord, error) {
	return r.list(ctx,
		`SELECT id, candidate_id, created_at, findings, prompt_bias, COALESCE(prompt_used, ''), mitigation_applied, mitigation_actions
		 FROM bias_audits WHERE candidate_id = $1 ORDER BY created_at DESC`,
		candidateID,
	)
}

func (r *PostgresBiasAuditRepository) ListUpTo(ctx context.Context, asOf time.Time) ([]BiasAuditRecord, error) {
	return r.list(ctx,
		`SELECT id, candidate_id, created_at, findings, prompt_bias, COALESCE(prompt_used, ''), mitigation_applied, mitigation_actions
		 FROM bias_audits WHERE created_at <= $1 ORDER BY created_at ASC`,
		asOf,
	)
}

func (r *PostgresBiasAuditRepository) list(ctx context.Context, query string, args ...any) ([]BiasAuditRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]BiasAuditRecord, 0)
	for rows.Next() {
		var a BiasAuditRecord
		if err := rows.Scan(&a.ID, &a.CandidateID, &a.CreatedAt, &a.Findings, &a.PromptBias,
			&a.PromptUsed, &a.MitigationApplied, &a.MitigationActions); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
