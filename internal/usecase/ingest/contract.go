package ingest

import (
	"context"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

// Repository is the corpus-store contract for collection lifecycle and writes.
type Repository interface {
	EnsureCollection(ctx context.Context, embeddingModel string) error
	StoredModel(ctx context.Context) (string, error)
	Drop(ctx context.Context) error
	AddDocuments(ctx context.Context, docs []domain.Document) error
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes corpus documents in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
