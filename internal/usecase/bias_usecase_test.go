package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"talentmatch/internal/domain/bias"
	"talentmatch/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockBiasAuditRepo struct {
	inserted  []repository.BiasAuditRecord
	mitigated map[uuid.UUID][]byte
	insertErr error
	listed    []repository.BiasAuditRecord
}

func (m *mockBiasAuditRepo) Insert(_ context.Context, a repository.BiasAuditRecord) (uuid.UUID, error) {
	if m.insertErr != nil {
		return uuid.Nil, m.insertErr
	}
	a.ID = uuid.New()
	m.inserted = append(m.inserted, a)
	return a.ID, nil
}
func (m *mockBiasAuditRepo) MarkMitigated(_ context.Context, id uuid.UUID, actions []byte) error {
	if m.mitigated == nil {
		m.mitigated = map[uuid.UUID][]byte{}
	}
	if _, ok := m.mitigated[id]; ok {
		return repository.ErrAlreadyMitigated
	}
	m.mitigated[id] = actions
	return nil
}
func (m *mockBiasAuditRepo) FindByCandidateID(context.Context, uuid.UUID) ([]repository.BiasAuditRecord, error) {
	return nil, nil
}
func (m *mockBiasAuditRepo) ListUpTo(context.Context, time.Time) ([]repository.BiasAuditRecord, error) {
	return m.listed, nil
}

type mockJobBiasAuditRepo struct {
	inserted []repository.JobBiasAuditRecord
	listed   []repository.JobBiasAuditRecord
}

func (m *mockJobBiasAuditRepo) Insert(_ context.Context, a repository.JobBiasAuditRecord) (uuid.UUID, error) {
	a.ID = uuid.New()
	m.inserted = append(m.inserted, a)
	return a.ID, nil
}
func (m *mockJobBiasAuditRepo) FindByJobID(context.Context, uuid.UUID) ([]repository.JobBiasAuditRecord, error) {
	return nil, nil
}
func (m *mockJobBiasAuditRepo) ListUpTo(context.Context, time.Time) ([]repository.JobBiasAuditRecord, error) {
	return m.listed, nil
}

type mockClassifier struct {
	findings []bias.Finding
	err      error
}

func (m *mockClassifier) ClassifyBias(context.Context, string) ([]bias.Finding, error) {
	return m.findings, m.err
}

func candidateRepoWith(ids ...uuid.UUID) *mockCandidateRepo {
	profiles := map[uuid.UUID]repository.CandidateProfile{}
	for _, id := range ids {
		profiles[id] = repository.CandidateProfile{ID: id}
	}
	return &mockCandidateRepo{profiles: profiles}
}

func TestBiasUsecase_AuditCandidateOutput_CandidateNotFound(t *testing.T) {
	uc := NewBiasUsecase(candidateRepoWith(), &mockJobRepo{}, &mockBiasAuditRepo{}, &mockJobBiasAuditRepo{}, nil, zap.NewNop())
	if _, err := uc.AuditCandidateOutput(context.Background(), uuid.New(), "", "clean text"); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound, got %v", err)
	}
}

func TestBiasUsecase_AuditCandidateOutput_Clean(t *testing.T) {
	candID := uuid.New()
	audits := &mockBiasAuditRepo{}
	uc := NewBiasUsecase(candidateRepoWith(candID), &mockJobRepo{}, audits, &mockJobBiasAuditRepo{}, nil, zap.NewNop())

	audit, err := uc.AuditCandidateOutput(context.Background(), candID, "Summarize the resume.", "Experienced backend engineer with strong Go skills.")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if audit.HasBias {
		t.Fatalf("clean output must not report bias: %+v", audit.Findings)
	}
	if audit.MitigationApplied {
		t.Fatalf("clean output must not trigger mitigation")
	}
	if len(audits.inserted) != 1 {
		t.Fatalf("audit not persisted")
	}
	if len(audits.mitigated) != 0 {
		t.Fatalf("mitigation recorded for clean audit")
	}
}

func TestBiasUsecase_AuditCandidateOutput_FindingsTriggerMitigation(t *testing.T) {
	candID := uuid.New()
	audits := &mockBiasAuditRepo{}
	uc := NewBiasUsecase(candidateRepoWith(candID), &mockJobRepo{}, audits, &mockJobBiasAuditRepo{}, nil, zap.NewNop())

	audit, err := uc.AuditCandidateOutput(context.Background(), candID, "Summarize the resume.", "A young rockstar developer.")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !audit.HasBias {
		t.Fatalf("expected bias, findings: %+v", audit.Findings)
	}
	if !audit.MitigationApplied || len(audit.MitigationActions) == 0 {
		t.Fatalf("expected mitigation, got %+v", audit)
	}
	if len(audits.mitigated) != 1 {
		t.Fatalf("mitigation not recorded")
	}
	if got := audit.Summary[bias.TypeProtectedAttribute]; len(got) == 0 || got[0] != "age" {
		t.Fatalf("unexpected summary: %+v", audit.Summary)
	}
	if got := audit.Summary[bias.TypeBiasedLanguage]; len(got) == 0 || got[0] != "rockstar" {
		t.Fatalf("unexpected summary: %+v", audit.Summary)
	}
}

func TestBiasUsecase_AuditCandidateOutput_PromptBiasCounts(t *testing.T) {
	candID := uuid.New()
	uc := NewBiasUsecase(candidateRepoWith(candID), &mockJobRepo{}, &mockBiasAuditRepo{}, &mockJobBiasAuditRepo{}, nil, zap.NewNop())

	audit, err := uc.AuditCandidateOutput(context.Background(), candID, "Prefer young applicants.", "Experienced backend engineer.")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !audit.HasBias {
		t.Fatalf("prompt findings must count toward bias")
	}
	if len(audit.PromptBias) == 0 {
		t.Fatalf("expected prompt findings")
	}
}

func TestBiasUsecase_AuditCandidateOutput_ClassifierFailureDegrades(t *testing.T) {
	candID := uuid.New()
	uc := NewBiasUsecase(candidateRepoWith(candID), &mockJobRepo{}, &mockBiasAuditRepo{}, &mockJobBiasAuditRepo{},
		&mockClassifier{err: errors.New("provider down")}, zap.NewNop())

	audit, err := uc.AuditCandidateOutput(context.Background(), candID, "Summarize the resume.", "Experienced backend engineer.")
	if err != nil {
		t.Fatalf("degraded classification must not fail the audit: %v", err)
	}
	var marker bool
	for _, f := range audit.Findings {
		if f.Type == bias.TypeDetectionError {
			marker = true
		}
	}
	if !marker {
		t.Fatalf("expected detection_error marker, findings: %+v", audit.Findings)
	}
	if audit.HasBias {
		t.Fatalf("detection_error alone must not count as bias")
	}
}

func TestBiasUsecase_AuditCandidateOutput_ClassifierMerge(t *testing.T) {
	candID := uuid.New()
	classifier := &mockClassifier{findings: []bias.Finding{
		{Type: bias.TypeBiasedLanguage, Term: "rockstar"},
		{Type: bias.TypeProtectedAttribute, Attribute: "gender", Term: "cultural fit for the guys"},
	}}
	uc := NewBiasUsecase(candidateRepoWith(candID), &mockJobRepo{}, &mockBiasAuditRepo{}, &mockJobBiasAuditRepo{}, classifier, zap.NewNop())

	audit, err := uc.AuditCandidateOutput(context.Background(), candID, "Summarize the resume.", "A rockstar developer.")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	rockstars := 0
	genderFindings := 0
	for _, f := range audit.Findings {
		if f.Type == bias.TypeBiasedLanguage && f.Term == "rockstar" {
			rockstars++
		}
		if f.Type == bias.TypeProtectedAttribute && f.Attribute == "gender" {
			genderFindings++
		}
	}
	if rockstars != 1 {
		t.Fatalf("duplicate classifier finding not collapsed, count=%d", rockstars)
	}
	if genderFindings != 1 {
		t.Fatalf("novel classifier finding dropped")
	}
}

func TestBiasUsecase_AuditJobDescription_InvalidInput(t *testing.T) {
	uc := NewBiasUsecase(candidateRepoWith(), &mockJobRepo{exists: true}, &mockBiasAuditRepo{}, &mockJobBiasAuditRepo{}, nil, zap.NewNop())
	if _, err := uc.AuditJobDescription(context.Background(), uuid.Nil, "text"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := uc.AuditJobDescription(context.Background(), uuid.New(), "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBiasUsecase_AuditJobDescription_JobNotFound(t *testing.T) {
	uc := NewBiasUsecase(candidateRepoWith(), &mockJobRepo{exists: false}, &mockBiasAuditRepo{}, &mockJobBiasAuditRepo{}, nil, zap.NewNop())
	if _, err := uc.AuditJobDescription(context.Background(), uuid.New(), "We build services in Go."); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestBiasUsecase_AuditJobDescription_CleanBelowThreshold(t *testing.T) {
	jobAudits := &mockJobBiasAuditRepo{}
	uc := NewBiasUsecase(candidateRepoWith(), &mockJobRepo{exists: true}, &mockBiasAuditRepo{}, jobAudits, nil, zap.NewNop())

	audit, err := uc.AuditJobDescription(context.Background(), uuid.New(), "We build reliable backend services in Go and PostgreSQL.")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if audit.BiasScore != 0 || audit.BiasLevel != "Low" || audit.HasBias {
		t.Fatalf("unexpected audit: %+v", audit)
	}
	if audit.DebiasedText != "" || len(audit.Changes) != 0 {
		t.Fatalf("mitigation produced below threshold")
	}
	if len(jobAudits.inserted) != 1 {
		t.Fatalf("audit not persisted")
	}
}

func TestBiasUsecase_AuditJobDescription_MitigatesAtThreshold(t *testing.T) {
	jobAudits := &mockJobBiasAuditRepo{}
	uc := NewBiasUsecase(candidateRepoWith(), &mockJobRepo{exists: true}, &mockBiasAuditRepo{}, jobAudits, nil, zap.NewNop())

	text := "Seeking a rockstar ninja to join our team."
	audit, err := uc.AuditJobDescription(context.Background(), uuid.New(), text)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if audit.BiasScore < 0.3 || audit.BiasLevel != "Medium" || !audit.HasBias {
		t.Fatalf("two loaded terms must reach Medium: %+v", audit)
	}
	if audit.DebiasedText == "" || len(audit.Changes) != 2 {
		t.Fatalf("expected debiased rewrite with 2 changes: %+v", audit)
	}
	if strings.Contains(strings.ToLower(audit.DebiasedText), "rockstar") {
		t.Fatalf("debiased text still contains the flagged term")
	}
	if len(jobAudits.inserted) != 1 || jobAudits.inserted[0].DebiasedText != audit.DebiasedText {
		t.Fatalf("debiased text not persisted")
	}
}
