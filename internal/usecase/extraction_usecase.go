package usecase

import (
	"context"
	"errors"
	"strings"

	"talentmatch/internal/ai"
	"talentmatch/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExtractionTemplateName is the registry entry used to parse resumes into
// structured fields.
const ExtractionTemplateName = "resume-extraction"

const fallbackExtractionTemplate = "Extract name, skills, and years of experience from the resume below as JSON.\n\n{{TEXT}}"

type ExtractionUsecase interface {
	ExtractResume(ctx context.Context, candidateID uuid.UUID) (map[string]any, error)
}

type Extraction struct {
	candidates repository.CandidateRepository
	prompts    PromptUsecase
	extractor  ai.Extractor
	logger     *zap.Logger
}

func NewExtractionUsecase(candidates repository.CandidateRepository, prompts PromptUsecase, extractor ai.Extractor, logger *zap.Logger) *Extraction {
	return &Extraction{candidates: candidates, prompts: prompts, extractor: extractor, logger: logger}
}

// ExtractResume runs the active extraction template over the candidate's
// resume text. Without an active version the built-in template is used, so
// extraction keeps working before the registry is populated.
func (u *Extraction) ExtractResume(ctx context.Context, candidateID uuid.UUID) (map[string]any, error) {
	if candidateID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	if u.extractor == nil {
		return nil, ai.ErrExtractionFailed
	}

	exists, err := u.candidates.ExistsByID(ctx, candidateID)
	if err != nil {
		u.logger.Error("failed to check candidate existence", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return nil, ErrInternal
	}
	if !exists {
		return nil, ErrCandidateNotFound
	}

	profile, err := u.candidates.GetProfile(ctx, candidateID)
	if err != nil {
		u.logger.Error("failed to load candidate profile", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return nil, ErrInternal
	}
	resume := strings.TrimSpace(profile.ResumeText)
	if resume == "" {
		return nil, ErrInvalidInput
	}

	templateText := fallbackExtractionTemplate
	active, err := u.prompts.GetActive(ctx, ExtractionTemplateName)
	switch {
	case err == nil:
		templateText = active.TemplateText
	case errors.Is(err, ErrNoActiveTemplate):
		u.logger.Info("no active extraction template, using built-in default")
	default:
		return nil, err
	}

	out, err := u.extractor.ExtractStructured(ctx, resume, templateText)
	if err != nil {
		u.logger.Warn("resume extraction failed", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return nil, err
	}
	return out, nil
}
