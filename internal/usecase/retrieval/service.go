// Package retrieval maps a question to ranked supporting documents via
// vector similarity.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

// NoContextSentinel is returned by Context when nothing usable was retrieved.
const NoContextSentinel = "No relevant clinical information found in the knowledge base."

const contextDelimiter = "\n\n---\n\n"

// Options bound one retrieval pass.
type Options struct {
	SimilarityFloor float64       // matches below are dropped
	TopKResults     int           // cap for Search (the caller-facing source list)
	TopKContext     int           // smaller cap for Context (the synthesis text budget)
	SearchTimeout   time.Duration // bound on one similarity-search round trip
}

// Service retrieves ranked supporting documents for a question. Backend
// failures are recovered locally: callers always get a (possibly empty)
// match list, never an error.
type Service struct {
	repo     Repository
	embed    Embedder
	opts     Options
	failures prometheus.Counter
	logger   *zap.Logger
}

// New creates a retrieval service. failures may be nil.
func New(repo Repository, embed Embedder, opts Options, failures prometheus.Counter, logger *zap.Logger) *Service {
	return &Service{repo: repo, embed: embed, opts: opts, failures: failures, logger: logger}
}

// Search returns matches for the question, at most TopKResults, each at or
// above the similarity floor, with 1-based ranks in similarity-descending
// order. Fail-soft: a backend or embedding failure yields an empty list.
func (s *Service) Search(ctx context.Context, question string) []domain.SearchMatch {
	return s.search(ctx, question, s.opts.TopKResults)
}

// Context assembles the narrative text of the top TopKContext matches,
// separated by a fixed delimiter, or NoContextSentinel when nothing was
// retrieved.
func (s *Service) Context(ctx context.Context, question string) string {
	matches := s.search(ctx, question, s.opts.TopKContext)
	if len(matches) == 0 {
		return NoContextSentinel
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		switch m.Document.Kind {
		case domain.KindProtocol:
			parts = append(parts, fmt.Sprintf("Clinical Protocol: %s\n%s",
				attrOr(m.Document, "title", "Unknown"), m.Document.Text))
		case domain.KindClinicalNote:
			parts = append(parts, fmt.Sprintf("Clinical Case: %s - %s\n%s",
				attrOr(m.Document, "patient_id", "Unknown"),
				attrOr(m.Document, "diagnosis", "Unknown"),
				m.Document.Text))
		default:
			parts = append(parts, m.Document.Text)
		}
	}

	return strings.Join(parts, contextDelimiter)
}

// search runs embed + KNN with the configured timeout and recovers any
// failure as an empty result. "No matches above floor" and "backend
// unavailable" collapse to the same empty list for callers; the distinction
// stays here for logging and metrics.
func (s *Service) search(ctx context.Context, question string, k int) []domain.SearchMatch {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	emb, err := s.embed.Embed(ctx, question)
	if err != nil {
		s.recordFailure(fmt.Errorf("vectorize question: %w: %w", domain.ErrSearchUnavailable, err))
		return nil
	}

	candidates, err := s.repo.SearchKNN(ctx, emb.Embedding, k)
	if err != nil {
		s.recordFailure(fmt.Errorf("search knn: %w: %w", domain.ErrSearchUnavailable, err))
		return nil
	}

	matches := make([]domain.SearchMatch, 0, len(candidates))
	for _, m := range candidates {
		if m.Similarity < s.opts.SimilarityFloor {
			continue
		}
		m.Rank = len(matches) + 1
		matches = append(matches, m)
	}
	return matches
}

func (s *Service) recordFailure(err error) {
	if s.failures != nil {
		s.failures.Inc()
	}
	s.logger.Warn("retrieval failed, returning empty results", zap.Error(err))
}

func attrOr(doc domain.Document, key, fallback string) string {
	if v := doc.Attributes[key]; v != "" {
		return v
	}
	return fallback
}
