package copilot

import (
	"context"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

// Guardrail classifies questions for clinical scope.
type Guardrail interface {
	Classify(question string) domain.ScopeVerdict
}

// Retriever provides ranked matches and assembled context text for a question.
type Retriever interface {
	Search(ctx context.Context, question string) []domain.SearchMatch
	Context(ctx context.Context, question string) string
}

// HistoryStore records and serves the interaction log.
type HistoryStore interface {
	Append(entry domain.Interaction)
	List(callerID string) []domain.Interaction
	Clear()
	Counts() (total, clinical, guardrailTriggers int)
}

// CorpusReader reports corpus composition for the stats endpoint.
type CorpusReader interface {
	Count(ctx context.Context) (int, error)
	CountByKind(ctx context.Context, kind domain.Kind) (int, error)
}
