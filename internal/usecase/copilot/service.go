// Package copilot orchestrates one question end to end: guardrail, retrieval,
// answer synthesis, confidence fusion and interaction logging.
package copilot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
	"github.com/kailas-cloud/clinicopilot/internal/metrics"
	"github.com/kailas-cloud/clinicopilot/internal/usecase/answer"
	"github.com/kailas-cloud/clinicopilot/internal/usecase/guardrail"
	"github.com/kailas-cloud/clinicopilot/internal/usecase/retrieval"
)

const (
	refusalAnswer = "I only answer clinical questions grounded in ICU protocols. " +
		"Please ask about patient care, clinical protocols, or medical management " +
		"within the ICU/hospital setting."

	refusalSuggestions = 3
)

// Service answers clinical questions. Every call, admitted or rejected, is
// recorded in the interaction log.
type Service struct {
	guard     Guardrail
	retriever Retriever
	history   HistoryStore
	corpus    CorpusReader
	model     string
	logger    *zap.Logger
}

// New creates a copilot service. model is the embedding model id reported in stats.
func New(guard Guardrail, retriever Retriever, history HistoryStore, corpus CorpusReader, model string, logger *zap.Logger) *Service {
	return &Service{
		guard:     guard,
		retriever: retriever,
		history:   history,
		corpus:    corpus,
		model:     model,
		logger:    logger,
	}
}

// Process answers one question for callerID. A blank question goes through
// the classifier like any other (zero words score 0 and are rejected), so it
// still produces a refusal and a logged interaction.
func (s *Service) Process(ctx context.Context, question, callerID string) (domain.FusedResponse, error) {
	verdict := s.guard.Classify(question)

	var resp domain.FusedResponse
	if !verdict.IsClinical {
		metrics.QuestionsTotal.WithLabelValues("rejected").Inc()
		metrics.GuardrailTriggersTotal.Inc()
		resp = s.refuse(verdict)
	} else {
		resp = s.answer(ctx, question, verdict)
	}

	s.record(question, callerID, resp)
	return resp, nil
}

func (s *Service) refuse(verdict domain.ScopeVerdict) domain.FusedResponse {
	suggestions := guardrail.SuggestQuestions()
	if len(suggestions) > refusalSuggestions {
		suggestions = suggestions[:refusalSuggestions]
	}
	return domain.FusedResponse{
		Answer:             refusalAnswer,
		Sources:            []domain.SourceDescriptor{},
		Confidence:         verdict.Confidence,
		GuardrailTriggered: true,
		GuardrailReason:    verdict.Reason,
		Suggestions:        suggestions,
	}
}

func (s *Service) answer(ctx context.Context, question string, verdict domain.ScopeVerdict) domain.FusedResponse {
	contextText := s.retriever.Context(ctx, question)
	matches := s.retriever.Search(ctx, question)

	similarities := make([]float64, len(matches))
	for i, m := range matches {
		similarities[i] = m.Similarity
	}

	outcome := "answered"
	if len(matches) == 0 {
		outcome = "no_context"
	}
	metrics.QuestionsTotal.WithLabelValues(outcome).Inc()

	return domain.FusedResponse{
		Answer:      answer.Synthesize(question, matches),
		Sources:     answer.FormatSources(matches),
		Confidence:  FuseConfidence(verdict.Confidence, similarities),
		ContextUsed: contextText != retrieval.NoContextSentinel,
	}
}

func (s *Service) record(question, callerID string, resp domain.FusedResponse) {
	s.history.Append(domain.Interaction{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		CallerID:   callerID,
		Question:   question,
		Response:   resp,
		IsClinical: !resp.GuardrailTriggered,
	})
}

// History returns the interaction log, optionally filtered by caller.
func (s *Service) History(callerID string) []domain.Interaction {
	return s.history.List(callerID)
}

// ClearHistory wipes the interaction log.
func (s *Service) ClearHistory() {
	s.history.Clear()
}

// Suggestions returns curated example questions.
func (s *Service) Suggestions() ([]string, string) {
	return guardrail.SuggestQuestions(), guardrail.ScopeGuidance()
}

// Stats reports corpus composition and interaction counters. Corpus counts
// degrade to zero when the search backend is unavailable.
func (s *Service) Stats(ctx context.Context) domain.Stats {
	total, clinical, triggers := s.history.Counts()

	st := domain.Stats{
		TotalInteractions: total,
		ClinicalQuestions: clinical,
		GuardrailTriggers: triggers,
	}
	st.Corpus.EmbeddingModel = s.model

	var err error
	if st.Corpus.TotalDocuments, err = s.corpus.Count(ctx); err != nil {
		s.logger.Warn("corpus count unavailable", zap.Error(err))
		return st
	}
	if st.Corpus.Protocols, err = s.corpus.CountByKind(ctx, domain.KindProtocol); err != nil {
		s.logger.Warn("protocol count unavailable", zap.Error(err))
	}
	if st.Corpus.ClinicalNotes, err = s.corpus.CountByKind(ctx, domain.KindClinicalNote); err != nil {
		s.logger.Warn("clinical note count unavailable", zap.Error(err))
	}
	return st
}
