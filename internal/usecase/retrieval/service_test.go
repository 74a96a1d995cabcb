package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

// --- Mocks ---

type mockRepo struct {
	matches []domain.SearchMatch
	err     error
	gotK    int
}

func (m *mockRepo) SearchKNN(_ context.Context, _ []float32, k int) ([]domain.SearchMatch, error) {
	m.gotK = k
	return m.matches, m.err
}

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

func testOptions() Options {
	return Options{
		SimilarityFloor: 0.15,
		TopKResults:     10,
		TopKContext:     6,
		SearchTimeout:   time.Second,
	}
}

func protocolMatch(id, title string, sim float64) domain.SearchMatch {
	return domain.SearchMatch{
		Document: domain.Document{
			ID:         id,
			Kind:       domain.KindProtocol,
			Text:       "Title: " + title + "\nSource: SSC\nContent: body of " + id,
			Attributes: map[string]string{"title": title},
		},
		Similarity: sim,
	}
}

func noteMatch(id, patient, diagnosis string, sim float64) domain.SearchMatch {
	return domain.SearchMatch{
		Document: domain.Document{
			ID:   id,
			Kind: domain.KindClinicalNote,
			Text: "Patient: " + patient + "\nContent: note body",
			Attributes: map[string]string{
				"patient_id": patient,
				"diagnosis":  diagnosis,
			},
		},
		Similarity: sim,
	}
}

// --- Tests ---

func TestSearch_FloorAndRanks(t *testing.T) {
	repo := &mockRepo{matches: []domain.SearchMatch{
		protocolMatch("p1", "Sepsis Bundle", 0.91),
		protocolMatch("p2", "ARDS Ventilation", 0.40),
		protocolMatch("p3", "Weaning", 0.10), // below floor
	}}
	svc := New(repo, &mockEmbedder{}, testOptions(), nil, zap.NewNop())

	got := svc.Search(context.Background(), "how to manage sepsis")

	if len(got) != 2 {
		t.Fatalf("expected 2 matches above floor, got %d", len(got))
	}
	for i, m := range got {
		if m.Rank != i+1 {
			t.Errorf("match %d: expected rank %d, got %d", i, i+1, m.Rank)
		}
		if m.Similarity < 0.15 {
			t.Errorf("match %d: similarity %g below floor", i, m.Similarity)
		}
	}
	if repo.gotK != 10 {
		t.Errorf("expected k=10, got %d", repo.gotK)
	}
}

func TestSearch_EmbedFailureIsEmpty(t *testing.T) {
	svc := New(&mockRepo{}, &mockEmbedder{err: errors.New("provider down")}, testOptions(), nil, zap.NewNop())

	if got := svc.Search(context.Background(), "sepsis"); len(got) != 0 {
		t.Fatalf("expected empty result, got %d matches", len(got))
	}
}

func TestSearch_BackendFailureIsEmpty(t *testing.T) {
	repo := &mockRepo{err: errors.New("connection refused")}
	svc := New(repo, &mockEmbedder{}, testOptions(), nil, zap.NewNop())

	if got := svc.Search(context.Background(), "sepsis"); len(got) != 0 {
		t.Fatalf("expected empty result, got %d matches", len(got))
	}
}

func TestContext_Sentinel(t *testing.T) {
	svc := New(&mockRepo{}, &mockEmbedder{}, testOptions(), nil, zap.NewNop())

	if got := svc.Context(context.Background(), "sepsis"); got != NoContextSentinel {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestContext_SentinelOnBackendFailure(t *testing.T) {
	repo := &mockRepo{err: errors.New("connection refused")}
	svc := New(repo, &mockEmbedder{}, testOptions(), nil, zap.NewNop())

	if got := svc.Context(context.Background(), "sepsis"); got != NoContextSentinel {
		t.Fatalf("expected sentinel, got %q", got)
	}
}

func TestContext_FormatsByKind(t *testing.T) {
	repo := &mockRepo{matches: []domain.SearchMatch{
		protocolMatch("p1", "Sepsis Bundle", 0.9),
		noteMatch("n1", "PT-007", "Septic shock", 0.8),
	}}
	svc := New(repo, &mockEmbedder{}, testOptions(), nil, zap.NewNop())

	got := svc.Context(context.Background(), "sepsis")

	if !strings.Contains(got, "Clinical Protocol: Sepsis Bundle") {
		t.Errorf("missing protocol heading:\n%s", got)
	}
	if !strings.Contains(got, "Clinical Case: PT-007 - Septic shock") {
		t.Errorf("missing case heading:\n%s", got)
	}
	if !strings.Contains(got, "\n\n---\n\n") {
		t.Errorf("missing delimiter between parts:\n%s", got)
	}
	if repo.gotK != 6 {
		t.Errorf("expected k=6 for context, got %d", repo.gotK)
	}
}

func TestContext_UnknownAttributeFallback(t *testing.T) {
	m := noteMatch("n1", "", "", 0.8)
	repo := &mockRepo{matches: []domain.SearchMatch{m}}
	svc := New(repo, &mockEmbedder{}, testOptions(), nil, zap.NewNop())

	got := svc.Context(context.Background(), "sepsis")

	if !strings.Contains(got, "Clinical Case: Unknown - Unknown") {
		t.Errorf("expected Unknown placeholders:\n%s", got)
	}
}
