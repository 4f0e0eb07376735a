package repository

import (
	"context"
	"errors"
	"time"

	"talentmatch/internal/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrMetricNotFound = errors.New("fairness metric not found")

type FairnessMetricRecord struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	MetricType string
	MetricData []byte
}

type FairnessMetricRepository interface {
	// Insert appends a snapshot; metric rows are a write-once time series.
	Insert(ctx context.Context, m FairnessMetricRecord) (uuid.UUID, error)
	Latest(ctx context.Context, metricType string) (FairnessMetricRecord, error)
	ListByType(ctx context.Context, metricType string, limit int) ([]FairnessMetricRecord, error)
}

type PostgresFairnessMetricRepository struct {
	db database.DB
}

func NewPostgresFairnessMetricRepository(db database.DB) *PostgresFairnessMetricRepository {
	return &PostgresFairnessMetricRepository{db: db}
}

func (r *PostgresFairnessMetricRepository) Insert(ctx context.Context, m FairnessMetricRecord) (uuid.UUID, error) {
	id := m.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO fairness_metrics (id, created_at, metric_type, metric_data) VALUES ($1,$2,$3,$4)`,
		id, createdAt, m.MetricType, m.MetricData,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *PostgresFairnessMetricRepository) Latest(ctx context.Context, metricType string) (FairnessMetricRecord, error) {
	var m FairnessMetricRecord
	err := r.db.QueryRow(ctx,
		`SELECT id, created_at, metric_type, metric_data
		 FROM fairness_metrics
		 WHERE metric_type = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		metricType,
	).Scan(&m.ID, &m.CreatedAt, &m.MetricType, &m.MetricData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FairnessMetricRecord{}, ErrMetricNotFound
		}
		return FairnessMetricRecord{}, err
	}
	return m, nil
}

func (r *PostgresFairnessMetricRepository) ListByType(ctx context.Context, metricType string, limit int) ([]FairnessMetricRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, created_at, metric_type, metric_data
		 FROM fairness_metrics
		 WHERE metric_type = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		metricType, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]FairnessMetricRecord, 0)
	for rows.Next() {
		var m FairnessMetricRecord
		if err := rows.Scan(&m.ID, &m.CreatedAt, &m.MetricType, &m.MetricData); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
