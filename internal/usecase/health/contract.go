package health

import "context"

// StorePinger checks search-backend availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusCounter reports how many documents the knowledge base holds.
type CorpusCounter interface {
	Count(ctx context.Context) (int, error)
}
