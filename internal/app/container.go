package app

import (
	"context"
	"time"

	"talentmatch/internal/ai"
	"talentmatch/internal/ai/gemini"
	"talentmatch/internal/config"
	"talentmatch/internal/database"
	dbpostgres "talentmatch/internal/database/postgres"
	"talentmatch/internal/infrastructure/cache"
	"talentmatch/internal/repository"
	"talentmatch/internal/usecase"

	"go.uber.org/zap"
)

type Container struct {
	Config config.Config
	Logger *zap.Logger
	DB     database.DB
	Cache  *cache.Redis

	Matching   usecase.MatchingUsecase
	Bias       usecase.BiasUsecase
	Prompts    usecase.PromptUsecase
	Fairness   usecase.FairnessUsecase
	Extraction usecase.ExtractionUsecase
}

// NewContainer wires the full dependency graph. The Gemini client is
// optional: without an API key matching degrades to skill-only scoring and
// audits run lexicon-only.
func NewContainer(cfg config.Config, logger *zap.Logger) (*Container, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	redisCache := cache.NewRedis(cfg.Redis, logger)

	var embedder ai.Embedder
	var classifier ai.Classifier
	var extractor ai.Extractor
	if cfg.AI.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn("gemini client unavailable, running without ai provider", zap.Error(err))
		} else {
			embedder = client
			classifier = client
			extractor = client
		}
	} else {
		logger.Info("no gemini api key configured, running without ai provider")
	}

	candidates := repository.NewPostgresCandidateRepository(db)
	jobs := repository.NewPostgresJobRepository(db)
	candidateSkills := repository.NewPostgresCandidateSkillRepository(db)
	jobSkills := repository.NewPostgresJobSkillRepository(db)
	matches := repository.NewPostgresMatchRepository(db)
	audits := repository.NewPostgresBiasAuditRepository(db)
	jobAudits := repository.NewPostgresJobBiasAuditRepository(db)
	templates := repository.NewPostgresPromptTemplateRepository(db)
	metrics := repository.NewPostgresFairnessMetricRepository(db)

	prompts := usecase.NewPromptUsecase(templates, logger)

	return &Container{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Cache:  redisCache,

		Matching:   usecase.NewMatchingUsecase(jobs, candidates, jobSkills, candidateSkills, matches, embedder, redisCache, logger),
		Bias:       usecase.NewBiasUsecase(candidates, jobs, audits, jobAudits, classifier, logger),
		Prompts:    prompts,
		Fairness:   usecase.NewFairnessUsecase(audits, jobAudits, metrics, logger),
		Extraction: usecase.NewExtractionUsecase(candidates, prompts, extractor, logger),
	}, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
