package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talentmatch/internal/app"
	"talentmatch/internal/config"
	"talentmatch/internal/database/migration"
	"talentmatch/internal/database/seeder"
	"talentmatch/internal/logger"
	"talentmatch/internal/usecase"

	"go.uber.org/zap"
)

func main() {
	seed := flag.Bool("seed", false, "seed baseline skills and prompt templates after migrating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.App.LogJSON, cfg.App.LogDebug)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() {
		_ = zl.Sync()
	}()

	c, err := app.NewContainer(cfg, zl)
	if err != nil {
		zl.Fatal("failed to init container", zap.Error(err))
	}
	defer func() {
		_ = c.Close()
	}()

	migCtx, migCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer migCancel()
	r := migration.Runner{Dir: "migrations"}
	if err := r.Run(migCtx, c.DB.SQLDB()); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}

	if *seed {
		sr := seeder.Runner{Seeders: seeder.Defaults()}
		if err := sr.Run(migCtx, c.DB); err != nil {
			zl.Fatal("seeding failed", zap.Error(err))
		}
		zl.Info("baseline data seeded")
	}

	interval := cfg.Aggregator.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	zl.Info("fairness aggregator started", zap.Duration("interval", interval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshotAll(ctx, c, zl)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			zl.Info("shutting down")
			return
		case <-ticker.C:
			snapshotAll(ctx, c, zl)
		}
	}
}

func snapshotAll(ctx context.Context, c *app.Container, zl *zap.Logger) {
	for _, scope := range []string{usecase.ScopeSystem, usecase.ScopeCandidate, usecase.ScopeJob} {
		snap, err := c.Fairness.Snapshot(ctx, scope, time.Now().UTC())
		if err != nil {
			zl.Error("fairness snapshot failed", zap.String("scope", scope), zap.Error(err))
			continue
		}
		zl.Info("fairness snapshot recorded",
			zap.String("scope", scope),
			zap.String("metric_id", snap.ID.String()),
			zap.Int("total_audits", snap.Data.TotalAudits),
			zap.Float64("bias_rate", snap.Data.BiasRate),
			zap.Float64("trend_delta", snap.Data.TrendDelta))
	}
}
