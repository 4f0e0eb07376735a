package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"talentmatch/internal/ai"
	"talentmatch/internal/domain/matching"
	"talentmatch/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MatchingUsecase interface {
	ComputeMatch(ctx context.Context, jobID, candidateID uuid.UUID) (matching.Result, error)
	RankCandidates(ctx context.Context, jobID uuid.UUID, candidateIDs []uuid.UUID) ([]matching.Result, error)
}

type Matching struct {
	jobs            repository.JobRepository
	candidates      repository.CandidateRepository
	jobSkills       repository.JobSkillRepository
	candidateSkills repository.CandidateSkillRepository
	matches         repository.MatchRepository
	embedder        ai.Embedder
	cache           EmbeddingCache
	logger          *zap.Logger
}

// NewMatchingUsecase wires the scoring workflow. embedder and cache may be
// nil; matches then degrade to skill-only scoring instead of failing.
func NewMatchingUsecase(
	jobs repository.JobRepository,
	candidates repository.CandidateRepository,
	jobSkills repository.JobSkillRepository,
	candidateSkills repository.CandidateSkillRepository,
	matches repository.MatchRepository,
	embedder ai.Embedder,
	cache EmbeddingCache,
	logger *zap.Logger,
) *Matching {
	return &Matching{
		jobs:            jobs,
		candidates:      candidates,
		jobSkills:       jobSkills,
		candidateSkills: candidateSkills,
		matches:         matches,
		embedder:        embedder,
		cache:           cache,
		logger:          logger,
	}
}

func (u *Matching) ComputeMatch(ctx context.Context, jobID, candidateID uuid.UUID) (matching.Result, error) {
	if jobID == uuid.Nil || candidateID == uuid.Nil {
		return matching.Result{}, ErrInvalidInput
	}

	job, err := u.loadJob(ctx, jobID)
	if err != nil {
		return matching.Result{}, err
	}
	return u.scoreCandidate(ctx, job, candidateID)
}

func (u *Matching) RankCandidates(ctx context.Context, jobID uuid.UUID, candidateIDs []uuid.UUID) ([]matching.Result, error) {
	if jobID == uuid.Nil || len(candidateIDs) == 0 {
		return nil, ErrInvalidInput
	}

	job, err := u.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(candidateIDs))
	results := make([]matching.Result, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if id == uuid.Nil {
			return nil, ErrInvalidInput
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		res, err := u.scoreCandidate(ctx, job, id)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	return matching.Rank(results), nil
}

type jobContext struct {
	profile   repository.JobProfile
	skills    []matching.JobSkill
	embedding []float32
}

func (u *Matching) loadJob(ctx context.Context, jobID uuid.UUID) (jobContext, error) {
	exists, err := u.jobs.ExistsByID(ctx, jobID)
	if err != nil {
		u.logger.Error("failed to check job existence", zap.String("job_id", jobID.String()), zap.Error(err))
		return jobContext{}, ErrInternal
	}
	if !exists {
		return jobContext{}, ErrJobNotFound
	}

	profile, err := u.jobs.GetProfile(ctx, jobID)
	if err != nil {
		u.logger.Error("failed to load job profile", zap.String("job_id", jobID.String()), zap.Error(err))
		return jobContext{}, ErrInternal
	}

	rows, err := u.jobSkills.FindByJobID(ctx, jobID)
	if err != nil {
		u.logger.Error("failed to load job skills", zap.String("job_id", jobID.String()), zap.Error(err))
		return jobContext{}, ErrInternal
	}
	skills := make([]matching.JobSkill, 0, len(rows))
	for _, r := range rows {
		skills = append(skills, matching.JobSkill{
			SkillID:            r.SkillID,
			SkillName:          r.SkillName,
			IsRequired:         r.IsRequired,
			MinYearsExperience: r.MinYearsExperience,
			Importance:         r.Importance,
		})
	}

	embedding := u.resolveEmbedding(ctx, profile.Embedding, jobText(profile), func(ctx context.Context, emb []float32) error {
		return u.jobs.SaveEmbedding(ctx, jobID, emb)
	})

	return jobContext{profile: profile, skills: skills, embedding: embedding}, nil
}

func (u *Matching) scoreCandidate(ctx context.Context, job jobContext, candidateID uuid.UUID) (matching.Result, error) {
	exists, err := u.candidates.ExistsByID(ctx, candidateID)
	if err != nil {
		u.logger.Error("failed to check candidate existence", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return matching.Result{}, ErrInternal
	}
	if !exists {
		return matching.Result{}, ErrCandidateNotFound
	}

	profile, err := u.candidates.GetProfile(ctx, candidateID)
	if err != nil {
		u.logger.Error("failed to load candidate profile", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return matching.Result{}, ErrInternal
	}

	rows, err := u.candidateSkills.FindByCandidateID(ctx, candidateID)
	if err != nil {
		u.logger.Error("failed to load candidate skills", zap.String("candidate_id", candidateID.String()), zap.Error(err))
		return matching.Result{}, ErrInternal
	}
	skills := make([]matching.CandidateSkill, 0, len(rows))
	for _, r := range rows {
		skills = append(skills, matching.CandidateSkill{
			SkillID:          r.SkillID,
			SkillName:        r.SkillName,
			YearsExperience:  r.YearsExperience,
			ProficiencyLevel: r.ProficiencyLevel,
			IsHighlighted:    r.IsHighlighted,
		})
	}

	embedding := u.resolveEmbedding(ctx, profile.Embedding, candidateText(profile), func(ctx context.Context, emb []float32) error {
		return u.candidates.SaveEmbedding(ctx, candidateID, emb)
	})

	result := matching.Compute(job.profile.ID, candidateID, job.embedding, embedding, job.skills, skills)
	if result.Details.Partial {
		u.logger.Info("computed partial match",
			zap.String("job_id", job.profile.ID.String()),
			zap.String("candidate_id", candidateID.String()),
			zap.String("reason", result.Details.PartialReason))
	}

	details, err := json.Marshal(result.Details)
	if err != nil {
		u.logger.Error("failed to serialize match details", zap.Error(err))
		return matching.Result{}, ErrInternal
	}
	if err := u.matches.Upsert(ctx, repository.MatchUpsert{
		JobID:       job.profile.ID,
		CandidateID: candidateID,
		Score:       result.Score,
		Details:     details,
	}); err != nil {
		u.logger.Error("failed to persist match",
			zap.String("job_id", job.profile.ID.String()),
			zap.String("candidate_id", candidateID.String()),
			zap.Error(err))
		return matching.Result{}, ErrInternal
	}

	return result, nil
}

// resolveEmbedding prefers the stored vector, then the cache, then the
// provider. A provider failure returns nil so the caller can proceed with a
// partial result.
func (u *Matching) resolveEmbedding(ctx context.Context, stored []float32, text string, persist func(context.Context, []float32) error) []float32 {
	if len(stored) > 0 {
		return stored
	}
	if text == "" || u.embedder == nil {
		return nil
	}

	if u.cache != nil {
		if emb, ok := u.cache.GetEmbedding(ctx, text); ok {
			return emb
		}
	}

	emb, err := u.embedder.EmbedText(ctx, text)
	if err != nil || len(emb) == 0 {
		if err != nil {
			u.logger.Warn("embedding unavailable, degrading to skill-only scoring", zap.Error(err))
		}
		return nil
	}

	if u.cache != nil {
		u.cache.SetEmbedding(ctx, text, emb)
	}
	if err := persist(ctx, emb); err != nil {
		u.logger.Warn("failed to store embedding", zap.Error(err))
	}
	return emb
}

func jobText(p repository.JobProfile) string {
	return strings.TrimSpace(p.Title + "\n\n" + p.Description)
}

func candidateText(p repository.CandidateProfile) string {
	if s := strings.TrimSpace(p.ResumeText); s != "" {
		return s
	}
	return strings.TrimSpace(p.Summary)
}
