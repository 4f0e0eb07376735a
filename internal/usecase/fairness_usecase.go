package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"talentmatch/internal/domain/bias"
	"talentmatch/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ScopeSystem    = "system"
	ScopeCandidate = "candidate"
	ScopeJob       = "job"
)

type SnapshotData struct {
	Scope           string         `json:"scope"`
	AsOf            time.Time      `json:"as_of"`
	TotalAudits     int            `json:"total_audits"`
	BiasedAudits    int            `json:"biased_audits"`
	BiasRate        float64        `json:"bias_rate"`
	MitigationRate  float64        `json:"mitigation_rate"`
	AvgJobBiasScore float64        `json:"avg_job_bias_score"`
	JobLevelCounts  map[string]int `json:"job_level_counts"`
	TrendDelta      float64        `json:"trend_delta"`
}

type FairnessSnapshot struct {
	ID   uuid.UUID
	Data SnapshotData
}

type FairnessUsecase interface {
	Snapshot(ctx context.Context, scope string, asOf time.Time) (FairnessSnapshot, error)
}

type Fairness struct {
	audits    repository.BiasAuditRepository
	jobAudits repository.JobBiasAuditRepository
	metrics   repository.FairnessMetricRepository
	logger    *zap.Logger
}

func NewFairnessUsecase(
	audits repository.BiasAuditRepository,
	jobAudits repository.JobBiasAuditRepository,
	metrics repository.FairnessMetricRepository,
	logger *zap.Logger,
) *Fairness {
	return &Fairness{audits: audits, jobAudits: jobAudits, metrics: metrics, logger: logger}
}

// Snapshot aggregates every audit recorded up to asOf into an immutable
// fairness metric row. The trend delta compares the bias rate against the
// previous snapshot of the same scope; the first snapshot reports zero.
func (u *Fairness) Snapshot(ctx context.Context, scope string, asOf time.Time) (FairnessSnapshot, error) {
	switch scope {
	case ScopeSystem, ScopeCandidate, ScopeJob:
	default:
		return FairnessSnapshot{}, ErrInvalidInput
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	data := SnapshotData{Scope: scope, AsOf: asOf}

	if scope == ScopeSystem || scope == ScopeCandidate {
		records, err := u.audits.ListUpTo(ctx, asOf)
		if err != nil {
			u.logger.Error("failed to list candidate audits", zap.Error(err))
			return FairnessSnapshot{}, ErrInternal
		}
		u.foldCandidateAudits(&data, records)
	}
	if scope == ScopeSystem || scope == ScopeJob {
		records, err := u.jobAudits.ListUpTo(ctx, asOf)
		if err != nil {
			u.logger.Error("failed to list job audits", zap.Error(err))
			return FairnessSnapshot{}, ErrInternal
		}
		u.foldJobAudits(&data, records)
	}

	if data.TotalAudits > 0 {
		data.BiasRate = float64(data.BiasedAudits) / float64(data.TotalAudits)
	}

	previous, err := u.metrics.Latest(ctx, scope)
	switch {
	case err == nil:
		var prev SnapshotData
		if err := json.Unmarshal(previous.MetricData, &prev); err != nil {
			u.logger.Warn("previous snapshot unreadable, reporting zero trend",
				zap.String("scope", scope), zap.Error(err))
		} else {
			data.TrendDelta = data.BiasRate - prev.BiasRate
		}
	case errors.Is(err, repository.ErrMetricNotFound):
	default:
		u.logger.Error("failed to load previous snapshot", zap.String("scope", scope), zap.Error(err))
		return FairnessSnapshot{}, ErrInternal
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return FairnessSnapshot{}, ErrInternal
	}
	id, err := u.metrics.Insert(ctx, repository.FairnessMetricRecord{
		MetricType: scope,
		MetricData: payload,
	})
	if err != nil {
		u.logger.Error("failed to persist fairness snapshot", zap.String("scope", scope), zap.Error(err))
		return FairnessSnapshot{}, ErrInternal
	}

	return FairnessSnapshot{ID: id, Data: data}, nil
}

func (u *Fairness) foldCandidateAudits(data *SnapshotData, records []repository.BiasAuditRecord) {
	mitigated := 0
	for _, rec := range records {
		data.TotalAudits++

		findings, ok := decodeFindings(rec.Findings)
		if !ok {
			u.logger.Warn("unreadable findings in audit, counted as unbiased",
				zap.String("audit_id", rec.ID.String()))
		}
		promptBias, ok := decodeFindings(rec.PromptBias)
		if !ok {
			u.logger.Warn("unreadable prompt findings in audit, counted as unbiased",
				zap.String("audit_id", rec.ID.String()))
		}

		if bias.HasBias(findings, promptBias) {
			data.BiasedAudits++
		}
		if rec.MitigationApplied {
			mitigated++
		}
	}
	if n := len(records); n > 0 {
		data.MitigationRate = float64(mitigated) / float64(n)
	}
}

func (u *Fairness) foldJobAudits(data *SnapshotData, records []repository.JobBiasAuditRecord) {
	if data.JobLevelCounts == nil {
		data.JobLevelCounts = map[string]int{}
	}
	var scoreSum float64
	for _, rec := range records {
		data.TotalAudits++
		if rec.BiasScore >= bias.MediumThreshold {
			data.BiasedAudits++
		}
		data.JobLevelCounts[bias.Level(rec.BiasScore)]++
		scoreSum += rec.BiasScore
	}
	if n := len(records); n > 0 {
		data.AvgJobBiasScore = scoreSum / float64(n)
	}
}

func decodeFindings(raw []byte) ([]bias.Finding, bool) {
	if len(raw) == 0 {
		return nil, true
	}
	var findings []bias.Finding
	if err := json.Unmarshal(raw, &findings); err != nil {
		return nil, false
	}
	return findings, true
}
