package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"talentmatch/internal/domain/bias"
	"talentmatch/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PromptUsecase interface {
	CreateVersion(ctx context.Context, name, version, templateText, description string, createdBy uuid.UUID) (repository.PromptTemplate, error)
	Activate(ctx context.Context, name, version string, approvedBy uuid.UUID) error
	GetActive(ctx context.Context, name string) (repository.PromptTemplate, error)
}

type Prompt struct {
	templates repository.PromptTemplateRepository
	logger    *zap.Logger
}

func NewPromptUsecase(templates repository.PromptTemplateRepository, logger *zap.Logger) *Prompt {
	return &Prompt{templates: templates, logger: logger}
}

// CreateVersion stores a new immutable template version, inactive until
// explicitly activated. The template text is scored for bias at creation so
// reviewers see the evaluation before approving it.
func (u *Prompt) CreateVersion(ctx context.Context, name, version, templateText, description string, createdBy uuid.UUID) (repository.PromptTemplate, error) {
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)
	if name == "" || version == "" || strings.TrimSpace(templateText) == "" {
		return repository.PromptTemplate{}, ErrInvalidInput
	}

	findings, score := bias.EvaluateTemplate(templateText)
	findingsJSON, err := json.Marshal(findings)
	if err != nil {
		return repository.PromptTemplate{}, ErrInternal
	}

	_, err = u.templates.Create(ctx, repository.PromptTemplate{
		Name:          name,
		Version:       version,
		TemplateText:  templateText,
		Description:   description,
		BiasEvaluated: true,
		BiasScore:     score,
		BiasFindings:  findingsJSON,
		CreatedBy:     createdBy,
	})
	if err != nil {
		if errors.Is(err, repository.ErrTemplateVersionExists) {
			return repository.PromptTemplate{}, ErrTemplateConflict
		}
		u.logger.Error("failed to create template version",
			zap.String("name", name), zap.String("version", version), zap.Error(err))
		return repository.PromptTemplate{}, ErrInternal
	}

	created, err := u.templates.GetByNameVersion(ctx, name, version)
	if err != nil {
		u.logger.Error("failed to load created template",
			zap.String("name", name), zap.String("version", version), zap.Error(err))
		return repository.PromptTemplate{}, ErrInternal
	}
	return created, nil
}

func (u *Prompt) Activate(ctx context.Context, name, version string, approvedBy uuid.UUID) error {
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)
	if name == "" || version == "" {
		return ErrInvalidInput
	}

	if err := u.templates.Activate(ctx, name, version, approvedBy); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return ErrTemplateNotFound
		}
		u.logger.Error("failed to activate template",
			zap.String("name", name), zap.String("version", version), zap.Error(err))
		return ErrInternal
	}
	return nil
}

// GetActive returns the single active version of a template. The schema
// enforces at most one active row per name; if a drifted store reports more,
// the highest version wins and the inconsistency is logged.
func (u *Prompt) GetActive(ctx context.Context, name string) (repository.PromptTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return repository.PromptTemplate{}, ErrInvalidInput
	}

	active, err := u.templates.FindActive(ctx, name)
	if err != nil {
		u.logger.Error("failed to load active template", zap.String("name", name), zap.Error(err))
		return repository.PromptTemplate{}, ErrInternal
	}
	if len(active) == 0 {
		return repository.PromptTemplate{}, ErrNoActiveTemplate
	}
	if len(active) > 1 {
		u.logger.Warn("multiple active template versions, using highest",
			zap.String("name", name), zap.Int("count", len(active)),
			zap.String("chosen_version", active[0].Version))
	}
	return active[0], nil
}
