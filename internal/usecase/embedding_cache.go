package usecase

import "context"

// EmbeddingCache fronts the embedding provider with a best-effort store.
// Implementations never fail a lookup; a miss simply means recompute.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, bool)
	SetEmbedding(ctx context.Context, text string, embedding []float32)
}
