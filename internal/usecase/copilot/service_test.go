package copilot

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
	"github.com/kailas-cloud/clinicopilot/internal/usecase/retrieval"
)

// --- Mocks ---

type mockGuardrail struct {
	verdict domain.ScopeVerdict
}

func (m *mockGuardrail) Classify(_ string) domain.ScopeVerdict { return m.verdict }

type mockRetriever struct {
	matches []domain.SearchMatch
	context string
}

func (m *mockRetriever) Search(_ context.Context, _ string) []domain.SearchMatch {
	return m.matches
}

func (m *mockRetriever) Context(_ context.Context, _ string) string {
	if m.context != "" {
		return m.context
	}
	return retrieval.NoContextSentinel
}

type mockHistory struct {
	entries []domain.Interaction
	cleared bool
}

func (m *mockHistory) Append(in domain.Interaction) { m.entries = append(m.entries, in) }

func (m *mockHistory) List(callerID string) []domain.Interaction {
	if callerID == "" {
		return m.entries
	}
	var out []domain.Interaction
	for _, in := range m.entries {
		if in.CallerID == callerID {
			out = append(out, in)
		}
	}
	return out
}

func (m *mockHistory) Clear() { m.cleared = true; m.entries = nil }

func (m *mockHistory) Counts() (int, int, int) {
	total := len(m.entries)
	clinical, triggers := 0, 0
	for _, in := range m.entries {
		if in.IsClinical {
			clinical++
		}
		if in.Response.GuardrailTriggered {
			triggers++
		}
	}
	return total, clinical, triggers
}

type mockCorpus struct {
	total     int
	protocols int
	notes     int
	err       error
}

func (m *mockCorpus) Count(_ context.Context) (int, error) { return m.total, m.err }

func (m *mockCorpus) CountByKind(_ context.Context, kind domain.Kind) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if kind == domain.KindProtocol {
		return m.protocols, nil
	}
	return m.notes, nil
}

func clinicalVerdict(conf float64) domain.ScopeVerdict {
	return domain.ScopeVerdict{IsClinical: true, Reason: "clinical", Confidence: conf}
}

func rejectedVerdict(conf float64) domain.ScopeVerdict {
	return domain.ScopeVerdict{IsClinical: false, Reason: "off-topic", Confidence: conf}
}

func protocolMatch(sim float64) domain.SearchMatch {
	return domain.SearchMatch{
		Document: domain.Document{
			ID:         "p1",
			Kind:       domain.KindProtocol,
			Text:       "Title: Sepsis Bundle\nSource: SSC\nContent: bundle steps",
			Attributes: map[string]string{"title": "Sepsis Bundle"},
		},
		Similarity: sim,
		Rank:       1,
	}
}

func newTestService(g Guardrail, r Retriever, h HistoryStore, c CorpusReader) *Service {
	return New(g, r, h, c, "text-embedding-3-small", zap.NewNop())
}

// --- Tests ---

func TestProcess_BlankQuestionRefusedAndLogged(t *testing.T) {
	hist := &mockHistory{}
	svc := newTestService(&mockGuardrail{verdict: rejectedVerdict(0)}, &mockRetriever{}, hist, &mockCorpus{})

	resp, err := svc.Process(context.Background(), "   ", "u1")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !resp.GuardrailTriggered {
		t.Error("blank question must be refused by the guardrail")
	}
	if !strings.Contains(resp.Answer, "I only answer clinical questions") {
		t.Errorf("unexpected refusal answer %q", resp.Answer)
	}
	if resp.Confidence != 0 {
		t.Errorf("blank question confidence should be 0, got %g", resp.Confidence)
	}

	if len(hist.entries) != 1 {
		t.Fatalf("blank question must still be recorded, got %d entries", len(hist.entries))
	}
	if e := hist.entries[0]; e.IsClinical || e.Question != "   " {
		t.Errorf("unexpected history entry: %+v", e)
	}
}

func TestProcess_Rejected(t *testing.T) {
	hist := &mockHistory{}
	svc := newTestService(&mockGuardrail{verdict: rejectedVerdict(0.9)}, &mockRetriever{}, hist, &mockCorpus{})

	resp, err := svc.Process(context.Background(), "best pasta recipe", "u1")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !resp.GuardrailTriggered {
		t.Error("expected guardrail trigger")
	}
	if resp.GuardrailReason != "off-topic" {
		t.Errorf("unexpected reason %q", resp.GuardrailReason)
	}
	if !strings.Contains(resp.Answer, "I only answer clinical questions") {
		t.Errorf("unexpected refusal answer %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("refusal must carry no sources, got %d", len(resp.Sources))
	}
	if len(resp.Suggestions) != 3 {
		t.Errorf("expected 3 redirection suggestions, got %d", len(resp.Suggestions))
	}
	if resp.Confidence != 0.9 {
		t.Errorf("refusal confidence should be the verdict confidence, got %g", resp.Confidence)
	}

	if len(hist.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(hist.entries))
	}
	e := hist.entries[0]
	if e.IsClinical {
		t.Error("rejected question recorded as clinical")
	}
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Error("history entry missing id or timestamp")
	}
	if e.CallerID != "u1" || e.Question != "best pasta recipe" {
		t.Errorf("unexpected history entry: %+v", e)
	}
}

func TestProcess_Answered(t *testing.T) {
	hist := &mockHistory{}
	retr := &mockRetriever{
		matches: []domain.SearchMatch{protocolMatch(0.8)},
		context: "Clinical Protocol: Sepsis Bundle\nbundle steps",
	}
	svc := newTestService(&mockGuardrail{verdict: clinicalVerdict(0.6)}, retr, hist, &mockCorpus{})

	resp, err := svc.Process(context.Background(), "how to manage sepsis", "u1")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if resp.GuardrailTriggered {
		t.Error("unexpected guardrail trigger")
	}
	if !strings.Contains(resp.Answer, "Sepsis Bundle") {
		t.Errorf("expected protocol in answer:\n%s", resp.Answer)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(resp.Sources))
	}
	if !resp.ContextUsed {
		t.Error("expected context_used with retrieved matches")
	}

	// 0.5*0.6 + 0.4*0.8 + 0.1
	want := 0.72
	if math.Abs(resp.Confidence-want) > 1e-9 {
		t.Errorf("expected fused confidence %g, got %g", want, resp.Confidence)
	}

	if len(hist.entries) != 1 || !hist.entries[0].IsClinical {
		t.Error("answered question must be recorded as clinical")
	}
}

func TestProcess_AnsweredWithoutKnowledge(t *testing.T) {
	hist := &mockHistory{}
	svc := newTestService(&mockGuardrail{verdict: clinicalVerdict(0.6)}, &mockRetriever{}, hist, &mockCorpus{})

	resp, err := svc.Process(context.Background(), "rare disease protocol", "u1")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if resp.GuardrailTriggered {
		t.Error("unexpected guardrail trigger")
	}
	if !strings.Contains(resp.Answer, "I don't have specific information") {
		t.Errorf("expected no-knowledge answer:\n%s", resp.Answer)
	}
	if resp.ContextUsed {
		t.Error("context_used must be false without matches")
	}
	if math.Abs(resp.Confidence-0.3) > 1e-9 {
		t.Errorf("expected confidence 0.3 (scope term only), got %g", resp.Confidence)
	}
}

func TestHistoryAndClear(t *testing.T) {
	hist := &mockHistory{}
	svc := newTestService(&mockGuardrail{verdict: clinicalVerdict(0.6)}, &mockRetriever{}, hist, &mockCorpus{})

	_, _ = svc.Process(context.Background(), "q1", "alice")
	_, _ = svc.Process(context.Background(), "q2", "bob")

	if got := svc.History("alice"); len(got) != 1 || got[0].Question != "q1" {
		t.Errorf("unexpected filtered history: %+v", got)
	}
	if got := svc.History(""); len(got) != 2 {
		t.Errorf("expected 2 entries, got %d", len(got))
	}

	svc.ClearHistory()
	if !hist.cleared {
		t.Error("expected Clear to be delegated")
	}
}

func TestStats(t *testing.T) {
	hist := &mockHistory{}
	corpus := &mockCorpus{total: 25, protocols: 10, notes: 15}
	svc := newTestService(&mockGuardrail{verdict: rejectedVerdict(0.9)}, &mockRetriever{}, hist, corpus)

	_, _ = svc.Process(context.Background(), "pasta recipe", "u1")

	st := svc.Stats(context.Background())

	if st.Corpus.TotalDocuments != 25 || st.Corpus.Protocols != 10 || st.Corpus.ClinicalNotes != 15 {
		t.Errorf("unexpected corpus stats: %+v", st.Corpus)
	}
	if st.Corpus.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("unexpected model %q", st.Corpus.EmbeddingModel)
	}
	if st.TotalInteractions != 1 || st.GuardrailTriggers != 1 || st.ClinicalQuestions != 0 {
		t.Errorf("unexpected interaction stats: %+v", st)
	}
}

func TestStats_CorpusUnavailable(t *testing.T) {
	corpus := &mockCorpus{err: errors.New("connection refused")}
	svc := newTestService(&mockGuardrail{}, &mockRetriever{}, &mockHistory{}, corpus)

	st := svc.Stats(context.Background())

	if st.Corpus.TotalDocuments != 0 || st.Corpus.Protocols != 0 {
		t.Errorf("expected zeroed corpus stats, got %+v", st.Corpus)
	}
}

func TestSuggestions(t *testing.T) {
	svc := newTestService(&mockGuardrail{}, &mockRetriever{}, &mockHistory{}, &mockCorpus{})

	suggestions, scope := svc.Suggestions()
	if len(suggestions) != 10 {
		t.Errorf("expected 10 suggestions, got %d", len(suggestions))
	}
	if !strings.Contains(scope, "ICU") {
		t.Errorf("unexpected scope guidance: %q", scope)
	}
}
