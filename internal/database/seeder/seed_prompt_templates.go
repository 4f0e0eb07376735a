package seeder

import (
	"context"
	"encoding/json"
	"fmt"

	"talentmatch/internal/database"
	"talentmatch/internal/domain/bias"
)

// Baseline prompt templates so bias audits and structured extraction work on
// a fresh install without going through the registry first. Reruns are
// no-ops; versions are immutable once created.
type PromptTemplatesSeeder struct{}

func (PromptTemplatesSeeder) Name() string { return "prompt_templates" }

func (PromptTemplatesSeeder) Run(ctx context.Context, db database.DB) error {
	if err := EnsureTableColumns(ctx, db, "bias_prompt_templates",
		"id", "name", "version", "template_text", "bias_evaluated", "bias_score", "bias_findings", "is_active", "created_at"); err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	items := []struct {
		Name        string
		Version     string
		Text        string
		Description string
	}{
		{
			Name:        "bias-classification",
			Version:     "v1",
			Text:        "Review the following text for hiring bias. Report protected attribute references and loaded language.\n\n{{TEXT}}",
			Description: "default classifier prompt",
		},
		{
			Name:        "resume-extraction",
			Version:     "v1",
			Text:        "Extract name, skills, and years of experience from the resume below as JSON.\n\n{{TEXT}}",
			Description: "default structured extraction prompt",
		},
	}

	for _, it := range items {
		findings, score := bias.EvaluateTemplate(it.Text)
		findingsJSON, err := json.Marshal(findings)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			ctx,
			`INSERT INTO bias_prompt_templates (id, name, version, template_text, description, bias_evaluated, bias_score, bias_findings, is_active)
			 SELECT gen_random_uuid(), $1, $2, $3, $4, TRUE, $5, $6,
			        NOT EXISTS (SELECT 1 FROM bias_prompt_templates WHERE name = $1 AND is_active)
			 ON CONFLICT (name, version) DO NOTHING`,
			it.Name,
			it.Version,
			it.Text,
			it.Description,
			score,
			findingsJSON,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
