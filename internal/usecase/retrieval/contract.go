package retrieval

import (
	"context"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

// Repository defines the corpus-store contract for similarity search.
type Repository interface {
	SearchKNN(ctx context.Context, vector []float32, k int) ([]domain.SearchMatch, error)
}

// Embedder vectorizes question text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
