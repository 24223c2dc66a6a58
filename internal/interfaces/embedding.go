package interfaces

import "context"

// EmbeddingService maps text to a fixed-dimension float vector.
type EmbeddingService interface {
	ModelName() string
	Dimensions() int
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	IsAvailable(ctx context.Context) bool
}
