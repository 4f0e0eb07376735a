package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"talentmatch/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockTemplateRepo struct {
	stored      map[string]repository.PromptTemplate
	active      []repository.PromptTemplate
	createErr   error
	activateErr error
	activations []string
}

func (m *mockTemplateRepo) Create(_ context.Context, t repository.PromptTemplate) (uuid.UUID, error) {
	if m.createErr != nil {
		return uuid.Nil, m.createErr
	}
	if m.stored == nil {
		m.stored = map[string]repository.PromptTemplate{}
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	m.stored[t.Name+"|"+t.Version] = t
	return t.ID, nil
}
func (m *mockTemplateRepo) GetByNameVersion(_ context.Context, name, version string) (repository.PromptTemplate, error) {
	t, ok := m.stored[name+"|"+version]
	if !ok {
		return repository.PromptTemplate{}, repository.ErrTemplateNotFound
	}
	return t, nil
}
func (m *mockTemplateRepo) FindActive(context.Context, string) ([]repository.PromptTemplate, error) {
	return m.active, nil
}
func (m *mockTemplateRepo) Activate(_ context.Context, name, version string, _ uuid.UUID) error {
	if m.activateErr != nil {
		return m.activateErr
	}
	m.activations = append(m.activations, name+"|"+version)
	return nil
}

func TestPromptUsecase_CreateVersion_InvalidInput(t *testing.T) {
	uc := NewPromptUsecase(&mockTemplateRepo{}, zap.NewNop())
	cases := [][3]string{
		{"", "v1", "text"},
		{"resume-summary", "", "text"},
		{"resume-summary", "v1", "  "},
	}
	for _, c := range cases {
		if _, err := uc.CreateVersion(context.Background(), c[0], c[1], c[2], "", uuid.New()); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %v, got %v", c, err)
		}
	}
}

func TestPromptUsecase_CreateVersion_EvaluatesBias(t *testing.T) {
	repo := &mockTemplateRepo{}
	uc := NewPromptUsecase(repo, zap.NewNop())

	created, err := uc.CreateVersion(context.Background(), "resume-summary", "v1",
		"Assess whether {{TEXT}} describes a rockstar candidate.", "summary prompt", uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !created.BiasEvaluated {
		t.Fatalf("template must be evaluated at creation")
	}
	if created.BiasScore != 0.15 {
		t.Fatalf("one loaded term should score 0.15, got %v", created.BiasScore)
	}
	if len(created.BiasFindings) == 0 {
		t.Fatalf("findings not recorded")
	}
	if created.IsActive {
		t.Fatalf("new versions must start inactive")
	}
}

func TestPromptUsecase_CreateVersion_Conflict(t *testing.T) {
	uc := NewPromptUsecase(&mockTemplateRepo{createErr: repository.ErrTemplateVersionExists}, zap.NewNop())
	if _, err := uc.CreateVersion(context.Background(), "resume-summary", "v1", "text", "", uuid.New()); !errors.Is(err, ErrTemplateConflict) {
		t.Fatalf("expected ErrTemplateConflict, got %v", err)
	}
}

func TestPromptUsecase_Activate(t *testing.T) {
	repo := &mockTemplateRepo{}
	uc := NewPromptUsecase(repo, zap.NewNop())
	if err := uc.Activate(context.Background(), "resume-summary", "v2", uuid.New()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(repo.activations) != 1 || repo.activations[0] != "resume-summary|v2" {
		t.Fatalf("activation not forwarded: %v", repo.activations)
	}
}

func TestPromptUsecase_Activate_NotFound(t *testing.T) {
	uc := NewPromptUsecase(&mockTemplateRepo{activateErr: repository.ErrTemplateNotFound}, zap.NewNop())
	if err := uc.Activate(context.Background(), "resume-summary", "v9", uuid.New()); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestPromptUsecase_GetActive_None(t *testing.T) {
	uc := NewPromptUsecase(&mockTemplateRepo{}, zap.NewNop())
	if _, err := uc.GetActive(context.Background(), "resume-summary"); !errors.Is(err, ErrNoActiveTemplate) {
		t.Fatalf("expected ErrNoActiveTemplate, got %v", err)
	}
}

func TestPromptUsecase_GetActive_PicksHighestOnDrift(t *testing.T) {
	repo := &mockTemplateRepo{active: []repository.PromptTemplate{
		{Name: "resume-summary", Version: "v3", IsActive: true},
		{Name: "resume-summary", Version: "v2", IsActive: true},
	}}
	uc := NewPromptUsecase(repo, zap.NewNop())
	got, err := uc.GetActive(context.Background(), "resume-summary")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Version != "v3" {
		t.Fatalf("expected highest version, got %s", got.Version)
	}
}
