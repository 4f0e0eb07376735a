package integration

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"talentmatch/internal/config"
	"talentmatch/internal/database"
	"talentmatch/internal/database/migration"
	dbpostgres "talentmatch/internal/database/postgres"
	"talentmatch/internal/repository"
	"talentmatch/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Exercises the full matching and audit workflow against a live Postgres.
// Skipped unless test DB env vars are set.
func TestIntegration_MatchAuditSnapshot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := connectTestDB(t, ctx)
	defer func() { _ = db.Close() }()

	runMigrations(t, ctx, db)

	seed := seedWorkflowData(t, ctx, db)
	defer cleanupSeed(t, db, seed)

	logger := zap.NewNop()
	candidates := repository.NewPostgresCandidateRepository(db)
	jobs := repository.NewPostgresJobRepository(db)
	matches := repository.NewPostgresMatchRepository(db)
	audits := repository.NewPostgresBiasAuditRepository(db)
	jobAudits := repository.NewPostgresJobBiasAuditRepository(db)
	templates := repository.NewPostgresPromptTemplateRepository(db)
	metrics := repository.NewPostgresFairnessMetricRepository(db)

	matchingUC := usecase.NewMatchingUsecase(jobs, candidates,
		repository.NewPostgresJobSkillRepository(db),
		repository.NewPostgresCandidateSkillRepository(db),
		matches, nil, nil, logger)

	res, err := matchingUC.ComputeMatch(ctx, seed.jobID, seed.candidateID)
	if err != nil {
		t.Fatalf("compute match: %v", err)
	}
	if !res.Details.Partial {
		t.Fatalf("expected partial result without an embedder")
	}
	if math.Abs(res.Score-80) > 1e-9 {
		t.Fatalf("expected score 80, got %v", res.Score)
	}
	if len(res.MissingSkills) != 1 || res.MissingSkills[0] != "Docker" {
		t.Fatalf("expected Docker missing, got %v", res.MissingSkills)
	}

	row, err := matches.Get(ctx, seed.jobID, seed.candidateID)
	if err != nil {
		t.Fatalf("load persisted match: %v", err)
	}
	if math.Abs(row.Score-80) > 1e-9 {
		t.Fatalf("persisted score diverges: %v", row.Score)
	}

	// Recompute must land on the same row, not a second one.
	if _, err := matchingUC.ComputeMatch(ctx, seed.jobID, seed.candidateID); err != nil {
		t.Fatalf("recompute match: %v", err)
	}
	rows, err := matches.FindByJob(ctx, seed.jobID)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("recompute created duplicate rows: %d", len(rows))
	}

	biasUC := usecase.NewBiasUsecase(candidates, jobs, audits, jobAudits, nil, logger)

	jobAudit, err := biasUC.AuditJobDescription(ctx, seed.jobID, "Seeking a rockstar ninja engineer.")
	if err != nil {
		t.Fatalf("audit job: %v", err)
	}
	if jobAudit.BiasLevel != "Medium" || jobAudit.DebiasedText == "" {
		t.Fatalf("unexpected job audit: %+v", jobAudit)
	}

	candAudit, err := biasUC.AuditCandidateOutput(ctx, seed.candidateID,
		"Summarize the resume.", "A young rockstar developer.")
	if err != nil {
		t.Fatalf("audit candidate: %v", err)
	}
	if !candAudit.HasBias || !candAudit.MitigationApplied {
		t.Fatalf("unexpected candidate audit: %+v", candAudit)
	}

	promptUC := usecase.NewPromptUsecase(templates, logger)
	if _, err := promptUC.CreateVersion(ctx, seed.templateName, "v1", "Summarize {{TEXT}} for a recruiter.", "test", uuid.Nil); err != nil {
		t.Fatalf("create template: %v", err)
	}
	if _, err := promptUC.GetActive(ctx, seed.templateName); !errors.Is(err, usecase.ErrNoActiveTemplate) {
		t.Fatalf("new version must start inactive, got %v", err)
	}
	if err := promptUC.Activate(ctx, seed.templateName, "v1", uuid.Nil); err != nil {
		t.Fatalf("activate template: %v", err)
	}
	active, err := promptUC.GetActive(ctx, seed.templateName)
	if err != nil {
		t.Fatalf("get active template: %v", err)
	}
	if active.Version != "v1" {
		t.Fatalf("unexpected active version: %s", active.Version)
	}

	fairnessUC := usecase.NewFairnessUsecase(audits, jobAudits, metrics, logger)
	snap, err := fairnessUC.Snapshot(ctx, usecase.ScopeSystem, time.Now().UTC())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	seed.metricIDs = append(seed.metricIDs, snap.ID)
	if snap.Data.TotalAudits < 2 || snap.Data.BiasedAudits < 2 {
		t.Fatalf("snapshot missed seeded audits: %+v", snap.Data)
	}
}

type workflowSeed struct {
	candidateID  uuid.UUID
	jobID        uuid.UUID
	goSkillID    uuid.UUID
	dockerID     uuid.UUID
	templateName string
	metricIDs    []uuid.UUID
}

func seedWorkflowData(t *testing.T, ctx context.Context, db database.DB) *workflowSeed {
	t.Helper()

	seed := &workflowSeed{
		candidateID:  uuid.New(),
		jobID:        uuid.New(),
		goSkillID:    uuid.New(),
		dockerID:     uuid.New(),
		templateName: "itest-summary-" + uuid.NewString()[:8],
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO skills (id, name, category) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
		seed.goSkillID, "itest-Go-"+seed.goSkillID.String()[:8], "Programming Language"); err != nil {
		t.Fatalf("seed go skill: %v", err)
	}
	if _, err := db.Exec(ctx,
		`INSERT INTO skills (id, name, category) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
		seed.dockerID, "Docker", "DevOps"); err != nil {
		t.Fatalf("seed docker skill: %v", err)
	}
	// Docker may already exist; use whichever row holds the name.
	row := db.QueryRow(ctx, `SELECT id FROM skills WHERE name = 'Docker'`)
	if err := row.Scan(&seed.dockerID); err != nil {
		t.Fatalf("resolve docker skill: %v", err)
	}

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO candidates (id, name, resume_text) VALUES ($1, $2, $3)`,
			[]any{seed.candidateID, "Integration Candidate", "Backend engineer, four years of Go."}},
		{`INSERT INTO jobs (id, title, description) VALUES ($1, $2, $3)`,
			[]any{seed.jobID, "Backend Engineer", "Build Go services."}},
		{`INSERT INTO candidate_skills (id, candidate_id, skill_id, years_experience) VALUES (gen_random_uuid(), $1, $2, $3)`,
			[]any{seed.candidateID, seed.goSkillID, 4}},
		{`INSERT INTO job_skills (id, job_id, skill_id, is_required, min_years_experience, importance) VALUES (gen_random_uuid(), $1, $2, TRUE, $3, $4)`,
			[]any{seed.jobID, seed.goSkillID, 2, 8}},
		{`INSERT INTO job_skills (id, job_id, skill_id, is_required, min_years_experience, importance) VALUES (gen_random_uuid(), $1, $2, TRUE, $3, $4)`,
			[]any{seed.jobID, seed.dockerID, 1, 2}},
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s.sql, s.args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	return seed
}

func cleanupSeed(t *testing.T, db database.DB, seed *workflowSeed) {
	t.Helper()

	cleanCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, id := range seed.metricIDs {
		_, _ = db.Exec(cleanCtx, `DELETE FROM fairness_metrics WHERE id = $1`, id)
	}
	_, _ = db.Exec(cleanCtx, `DELETE FROM bias_prompt_templates WHERE name = $1`, seed.templateName)
	_, _ = db.Exec(cleanCtx, `DELETE FROM candidates WHERE id = $1`, seed.candidateID)
	_, _ = db.Exec(cleanCtx, `DELETE FROM jobs WHERE id = $1`, seed.jobID)
	_, _ = db.Exec(cleanCtx, `DELETE FROM skills WHERE id = $1`, seed.goSkillID)
}

func connectTestDB(t *testing.T, ctx context.Context) database.DB {
	t.Helper()

	host := firstNonEmpty(os.Getenv("TALENTMATCH_TEST_DB_HOST"), os.Getenv("DB_HOST"))
	port := firstNonEmpty(os.Getenv("TALENTMATCH_TEST_DB_PORT"), os.Getenv("DB_PORT"))
	name := firstNonEmpty(os.Getenv("TALENTMATCH_TEST_DB_NAME"), os.Getenv("DB_NAME"))
	user := firstNonEmpty(os.Getenv("TALENTMATCH_TEST_DB_USER"), os.Getenv("DB_USER"))
	pass := firstNonEmpty(os.Getenv("TALENTMATCH_TEST_DB_PASSWORD"), os.Getenv("DB_PASSWORD"))
	ssl := firstNonEmpty(os.Getenv("TALENTMATCH_TEST_DB_SSL_MODE"), os.Getenv("DB_SSL_MODE"))

	if host == "" || port == "" || name == "" || user == "" {
		t.Skip("missing test DB env vars: set TALENTMATCH_TEST_DB_HOST/PORT/NAME/USER/PASSWORD (or DB_HOST/DB_PORT/DB_NAME/DB_USER/DB_PASSWORD)")
	}
	if ssl == "" {
		ssl = "disable"
	}

	db, err := dbpostgres.Connect(ctx, config.DatabaseConfig{
		DBHost:     host,
		DBPort:     port,
		DBName:     name,
		DBUser:     user,
		DBPassword: pass,
		DBSSLMode:  ssl,
	})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

func runMigrations(t *testing.T, ctx context.Context, db database.DB) {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("resolve migrations dir: runtime.Caller failed")
	}
	migDir := filepath.Join(filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..")), "migrations")
	if st, err := os.Stat(migDir); err != nil || !st.IsDir() {
		t.Fatalf("resolve migrations dir: not found: %s", migDir)
	}

	r := migration.Runner{Dir: migDir}
	if err := r.Run(ctx, db.SQLDB()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
