package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"talentmatch/internal/ai"
	"talentmatch/internal/domain/bias"
	"talentmatch/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CandidateAudit struct {
	ID                uuid.UUID
	CandidateID       uuid.UUID
	Findings          []bias.Finding
	PromptBias        []bias.Finding
	PromptUsed        string
	HasBias           bool
	Summary           map[string][]string
	MitigationApplied bool
	MitigationActions []string
}

type JobAudit struct {
	ID                 uuid.UUID
	JobID              uuid.UUID
	BiasTerms          []string
	BiasedRequirements []string
	BiasScore          float64
	BiasLevel          string
	HasBias            bool
	Recommendations    []string
	DebiasedText       string
	Changes            []bias.Change
}

type BiasUsecase interface {
	AuditCandidateOutput(ctx context.Context, candidateID uuid.UUID, promptText, content string) (CandidateAudit, error)
	AuditJobDescription(ctx context.Context, jobID uuid.UUID, text string) (JobAudit, error)
}

type Bias struct {
	candidates repository.CandidateRepository
	jobs       repository.JobRepository
	audits     repository.BiasAuditRepository
	jobAudits  repository.JobBiasAuditRepository
	classifier ai.Classifier
	logger     *zap.Logger
}

// NewBiasUsecase wires the audit workflow. classifier may be nil; lexicon
// detection still runs and the audit records a detection_error marker only
// when a configured classifier fails, never when none is configured.
func NewBiasUsecase(
	candidates repository.CandidateRepository,
	jobs repository.JobRepository,
	audits repository.BiasAuditRepository,
	jobAudits repository.JobBiasAuditRepository,
	classifier ai.Classifier,
	logger *zap.Logger,
) *Bias {
	return &Bias{
		candidates: candidates,
		jobs:       jobs,
		audits:     audits,
		jobAudits:  jobAudits,
		classifier: classifier,
		logger:     logger,
	}
}

func (u *Bias) AuditCandidateOutput(ctx context.Context, candidateID uuid.UUID, promptText, content string) (CandidateAudit, error) {
	if candidateID == uuid.Nil {
		return CandidateAudit{}, ErrInvalidInput
	}

	exists, err := u.candidates.ExistsByID(ctx, candidateID)
	if err != nil {
		u.logger.Error("failed to check candidate existence", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return CandidateAudit{}, ErrInternal
	}
	if !exists {
		return CandidateAudit{}, ErrCandidateNotFound
	}

	findings := bias.Detect(content)
	promptBias := bias.Detect(promptText)

	if u.classifier != nil {
		classified, err := u.classifier.ClassifyBias(ctx, content)
		if err != nil {
			u.logger.Warn("bias classification degraded to lexicon-only",
				zap.String("candidate_id", candidateID.String()), zap.Error(err))
			findings = append(findings, bias.Finding{
				Type:    bias.TypeDetectionError,
				Context: "classifier unavailable",
			})
		} else {
			findings = mergeFindings(findings, classified)
		}
	}

	findingsJSON, err := json.Marshal(findings)
	if err != nil {
		return CandidateAudit{}, ErrInternal
	}
	promptBiasJSON, err := json.Marshal(promptBias)
	if err != nil {
		return CandidateAudit{}, ErrInternal
	}

	id, err := u.audits.Insert(ctx, repository.BiasAuditRecord{
		CandidateID: candidateID,
		Findings:    findingsJSON,
		PromptBias:  promptBiasJSON,
		PromptUsed:  promptText,
	})
	if err != nil {
		u.logger.Error("failed to persist bias audit", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return CandidateAudit{}, ErrInternal
	}

	audit := CandidateAudit{
		ID:          id,
		CandidateID: candidateID,
		Findings:    findings,
		PromptBias:  promptBias,
		PromptUsed:  promptText,
		HasBias:     bias.HasBias(findings, promptBias),
		Summary:     bias.Summarize(findingsJSON),
	}

	if audit.HasBias {
		actions := mitigationActions(findings, promptBias)
		actionsJSON, err := json.Marshal(actions)
		if err != nil {
			return CandidateAudit{}, ErrInternal
		}
		if err := u.audits.MarkMitigated(ctx, id, actionsJSON); err != nil {
			if !errors.Is(err, repository.ErrAlreadyMitigated) {
				u.logger.Error("failed to record mitigation", zap.String("audit_id", id.String()), zap.Error(err))
				return CandidateAudit{}, ErrInternal
			}
		} else {
			audit.MitigationApplied = true
			audit.MitigationActions = actions
		}
	}

	return audit, nil
}

func (u *Bias) AuditJobDescription(ctx context.Context, jobID uuid.UUID, text string) (JobAudit, error) {
	if jobID == uuid.Nil || strings.TrimSpace(text) == "" {
		return JobAudit{}, ErrInvalidInput
	}

	exists, err := u.jobs.ExistsByID(ctx, jobID)
	if err != nil {
		u.logger.Error("failed to check job existence", zap.String("job_id", jobID.String()), zap.Error(err))
		return JobAudit{}, ErrInternal
	}
	if !exists {
		return JobAudit{}, ErrJobNotFound
	}

	analysis := bias.AnalyzeJobDescription(text)

	audit := JobAudit{
		JobID:              jobID,
		BiasTerms:          analysis.BiasTerms,
		BiasedRequirements: analysis.BiasedRequirements,
		BiasScore:          analysis.BiasScore,
		BiasLevel:          analysis.Level(),
		HasBias:            analysis.HasBias(),
		Recommendations:    analysis.Recommendations,
	}
	if analysis.BiasScore >= bias.MitigationThreshold {
		audit.DebiasedText, audit.Changes = bias.Debias(text)
	}

	record := repository.JobBiasAuditRecord{
		JobID:        jobID,
		BiasScore:    analysis.BiasScore,
		DebiasedText: audit.DebiasedText,
	}
	if record.BiasTerms, err = json.Marshal(analysis.BiasTerms); err != nil {
		return JobAudit{}, ErrInternal
	}
	if record.BiasedRequirements, err = json.Marshal(analysis.BiasedRequirements); err != nil {
		return JobAudit{}, ErrInternal
	}
	if record.Recommendations, err = json.Marshal(analysis.Recommendations); err != nil {
		return JobAudit{}, ErrInternal
	}
	if record.ChangesMade, err = json.Marshal(audit.Changes); err != nil {
		return JobAudit{}, ErrInternal
	}

	id, err := u.jobAudits.Insert(ctx, record)
	if err != nil {
		u.logger.Error("failed to persist job bias audit", zap.String("job_id", jobID.String()), zap.Error(err))
		return JobAudit{}, ErrInternal
	}
	audit.ID = id

	return audit, nil
}

// mergeFindings appends classifier findings that the lexicon pass did not
// already report.
func mergeFindings(base, extra []bias.Finding) []bias.Finding {
	seen := make(map[string]bool, len(base))
	key := func(f bias.Finding) string {
		return f.Type + "|" + strings.ToLower(f.Attribute) + "|" + strings.ToLower(f.Term)
	}
	for _, f := range base {
		seen[key(f)] = true
	}
	for _, f := range extra {
		if seen[key(f)] {
			continue
		}
		seen[key(f)] = true
		base = append(base, f)
	}
	return base
}

func mitigationActions(findings, promptBias []bias.Finding) []string {
	actions := make([]string, 0, len(findings)+len(promptBias))
	add := func(fs []bias.Finding, scope string) {
		for _, f := range fs {
			switch f.Type {
			case bias.TypeProtectedAttribute:
				actions = append(actions, fmt.Sprintf("redacted %s reference in %s", f.Attribute, scope))
			case bias.TypeBiasedLanguage:
				actions = append(actions, fmt.Sprintf("flagged term %q in %s", f.Term, scope))
			}
		}
	}
	add(findings, "output")
	add(promptBias, "prompt")
	return actions
}
