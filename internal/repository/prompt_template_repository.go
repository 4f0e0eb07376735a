package repository

import (
	"context"
	"errors"
	"time"

	"talentmatch/internal/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrTemplateVersionExists = errors.New("template version already exists")
	ErrTemplateNotFound      = errors.New("template not found")
)

type PromptTemplate struct {
	ID            uuid.UUID
	Name          string
	Version       string
	TemplateText  string
	Description   string
	BiasEvaluated bool
	BiasScore     float64
	BiasFindings  []byte
	IsActive      bool
	CreatedBy     uuid.UUID
	ApprovedBy    uuid.UUID
	CreatedAt     time.Time
}

type PromptTemplateRepository interface {
	Create(ctx context.Context, t PromptTemplate) (uuid.UUID, error)
	GetByNameVersion(ctx context.Context, name, version string) (PromptTemplate, error)
	// FindActive returns every active row for the name, highest version
	// first. A healthy store yields at most one.
	FindActive(ctx context.Context, name string) ([]PromptTemplate, error)
	// Activate deactivates the prior active version and activates the
	// target as one transaction.
	Activate(ctx context.Context, name, version string, approvedBy uuid.UUID) error
}

type PostgresPromptTemplateRepository struct {
	db database.DB
}

func NewPostgresPromptTemplateRepository(db database.DB) *PostgresPromptTemplateRepository {
	return &PostgresPromptTemplateRepository{db: db}
}

// Create inserts an immutable template version. Editing is modeled as a new
// version, never an update, so the audit trail of prompt text and bias
// score stays intact.
func (r *PostgresPromptTemplateRepository) Create(ctx context.Context, t PromptTemplate) (uuid.UUID, error) {
	id := t.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO bias_prompt_templates
			(id, name, version, template_text, description, bias_evaluated, bias_score, bias_findings, is_active, created_by, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,FALSE,$9,$10)`,
		id,
		t.Name,
		t.Version,
		t.TemplateText,
		t.Description,
		t.BiasEvaluated,
		t.BiasScore,
		t.BiasFindings,
		nullableUUID(t.CreatedBy),
		createdAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, ErrTemplateVersionExists
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (r *PostgresPromptTemplateRepository) GetByNameVersion(ctx context.Context, name, version string) (PromptTemplate, error) {
	rows, err := r.db.Query(ctx,
		selectTemplate+` WHERE name = $1 AND version = $2`, name, version)
	if err != nil {
		return PromptTemplate{}, err
	}
	defer rows.Close()

	out, err := scanTemplates(rows)
	if err != nil {
		return PromptTemplate{}, err
	}
	if len(out) == 0 {
		return PromptTemplate{}, ErrTemplateNotFound
	}
	return out[0], nil
}

func (r *PostgresPromptTemplateRepository) FindActive(ctx context.Context, name string) ([]PromptTemplate, error) {
	rows, err := r.db.Query(ctx,
		selectTemplate+` WHERE name = $1 AND is_active ORDER BY version DESC, created_at DESC`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTemplates(rows)
}

func (r *PostgresPromptTemplateRepository) Activate(ctx context.Context, name, version string, approvedBy uuid.UUID) error {
	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE bias_prompt_templates SET is_active = FALSE WHERE name = $1 AND is_active`,
			name,
		); err != nil {
			return err
		}

		affected, err := tx.Exec(ctx,
			`UPDATE bias_prompt_templates
			 SET is_active = TRUE, approved_by = $3
			 WHERE name = $1 AND version = $2`,
			name, version, nullableUUID(approvedBy),
		)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrTemplateNotFound
		}
		return nil
	})
}

const selectTemplate = `SELECT id, name, version, template_text, COALESCE(description, ''),
	bias_evaluated, bias_score, bias_findings, is_active,
	COALESCE(created_by, '00000000-0000-0000-0000-000000000000'::uuid),
	COALESCE(approved_by, '00000000-0000-0000-0000-000000000000'::uuid),
	created_at
 FROM bias_prompt_templates`

func scanTemplates(rows database.Rows) ([]PromptTemplate, error) {
	out := make([]PromptTemplate, 0)
	for rows.Next() {
		var t PromptTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Version, &t.TemplateText, &t.Description,
			&t.BiasEvaluated, &t.BiasScore, &t.BiasFindings, &t.IsActive,
			&t.CreatedBy, &t.ApprovedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
