package ai

import (
	"context"
	"errors"

	"talentmatch/internal/domain/bias"
)

// Provider failures surface as these sentinels so callers can degrade
// instead of aborting the workflow they are attached to.
var (
	ErrEmbeddingUnavailable      = errors.New("embedding unavailable")
	ErrClassificationUnavailable = errors.New("classification unavailable")
	ErrExtractionFailed          = errors.New("extraction failed")
)

// Embedder produces an embedding vector for a piece of text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Classifier detects bias findings in text beyond what the local lexicons
// cover.
type Classifier interface {
	ClassifyBias(ctx context.Context, text string) ([]bias.Finding, error)
}

// Extractor pulls a structured record out of free text using a prompt
// template.
type Extractor interface {
	ExtractStructured(ctx context.Context, text string, templateText string) (map[string]any, error)
}
