package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

// --- Mocks ---

type mockRepo struct {
	storedModel string
	count       int

	ensuredModel string
	dropped      bool
	added        []domain.Document

	storedModelErr error
	addErr         error
}

func (m *mockRepo) EnsureCollection(_ context.Context, model string) error {
	m.ensuredModel = model
	return nil
}

func (m *mockRepo) StoredModel(_ context.Context) (string, error) {
	return m.storedModel, m.storedModelErr
}

func (m *mockRepo) Drop(_ context.Context) error {
	m.dropped = true
	m.storedModel = ""
	m.count = 0
	return nil
}

func (m *mockRepo) AddDocuments(_ context.Context, docs []domain.Document) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, docs...)
	return nil
}

func (m *mockRepo) Count(_ context.Context) (int, error) { return m.count, nil }

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{0.1, 0.2, 0.3}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

// --- Fixtures ---

const protocolsJSON = `{
  "sepsis_bundle": {
    "title": "Sepsis Management Bundle",
    "source": "Surviving Sepsis Campaign",
    "content": "Administer broad-spectrum antibiotics within one hour.",
    "category": "critical_care",
    "keywords": ["sepsis", "antibiotics"]
  },
  "ards_vent": {
    "title": "ARDS Ventilation",
    "source": "ARDSNet",
    "content": "Target tidal volume 6 mL/kg predicted body weight.",
    "keywords": ["ards", "ventilator"]
  }
}`

const notesJSON = `{
  "case_001": {
    "patient_id": "PT-001",
    "icu_unit": "MICU",
    "diagnosis": "Septic shock",
    "keywords": ["sepsis"],
    "clinical_notes": [
      {"timestamp": "2023-01-02", "note_type": "progress", "content": "Weaning norepinephrine."},
      {"timestamp": "2023-01-03", "note_type": "progress", "content": "Lactate cleared."}
    ]
  }
}`

func writeCorpus(t *testing.T, protocols, notes string) string {
	t.Helper()
	dir := t.TempDir()
	if protocols != "" {
		if err := os.WriteFile(filepath.Join(dir, protocolsFile), []byte(protocols), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if notes != "" {
		if err := os.WriteFile(filepath.Join(dir, notesFile), []byte(notes), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestService(repo *mockRepo, embed Embedder, dir string) *Service {
	return New(repo, embed, "text-embedding-3-small", dir, zap.NewNop())
}

// --- Tests ---

func TestLoad_FreshCorpus(t *testing.T) {
	dir := writeCorpus(t, protocolsJSON, notesJSON)
	repo := &mockRepo{}
	svc := newTestService(repo, &mockEmbedder{}, dir)

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if repo.ensuredModel != "text-embedding-3-small" {
		t.Errorf("unexpected ensured model %q", repo.ensuredModel)
	}
	if len(repo.added) != 4 {
		t.Fatalf("expected 4 documents (2 protocols + 2 notes), got %d", len(repo.added))
	}

	byID := make(map[string]domain.Document, len(repo.added))
	for _, d := range repo.added {
		if len(d.Vector) != 3 {
			t.Errorf("document %s missing embedding", d.ID)
		}
		byID[d.ID] = d
	}

	p, ok := byID["protocol_sepsis_bundle"]
	if !ok {
		t.Fatalf("missing protocol document, got ids %v", keys(byID))
	}
	if p.Kind != domain.KindProtocol {
		t.Errorf("unexpected kind %q", p.Kind)
	}
	wantText := "Title: Sepsis Management Bundle\nSource: Surviving Sepsis Campaign\nContent: Administer broad-spectrum antibiotics within one hour."
	if p.Text != wantText {
		t.Errorf("unexpected protocol text:\n%s", p.Text)
	}
	if p.Attributes["keywords"] != "sepsis antibiotics" {
		t.Errorf("unexpected keywords %q", p.Attributes["keywords"])
	}
	if byID["protocol_ards_vent"].Attributes["category"] != "general" {
		t.Errorf("missing category should default to general")
	}

	n, ok := byID["note_case_001_2023-01-02"]
	if !ok {
		t.Fatalf("missing note document, got ids %v", keys(byID))
	}
	if n.Kind != domain.KindClinicalNote {
		t.Errorf("unexpected kind %q", n.Kind)
	}
	if !strings.Contains(n.Text, "Patient: PT-001") || !strings.Contains(n.Text, "Diagnosis: Septic shock") {
		t.Errorf("unexpected note text:\n%s", n.Text)
	}
	if n.Attributes["icu_unit"] != "MICU" || n.Attributes["note_type"] != "progress" {
		t.Errorf("unexpected note attributes: %v", n.Attributes)
	}
}

func TestLoad_Idempotent(t *testing.T) {
	dir := writeCorpus(t, protocolsJSON, notesJSON)
	repo := &mockRepo{storedModel: "text-embedding-3-small", count: 4}
	svc := newTestService(repo, &mockEmbedder{}, dir)

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if repo.dropped {
		t.Error("matching model must not trigger a rebuild")
	}
	if len(repo.added) != 0 {
		t.Errorf("populated corpus must not be reloaded, added %d docs", len(repo.added))
	}
}

func TestLoad_ModelChangeRebuilds(t *testing.T) {
	dir := writeCorpus(t, protocolsJSON, notesJSON)
	repo := &mockRepo{storedModel: "all-MiniLM-L6-v2", count: 4}
	svc := newTestService(repo, &mockEmbedder{}, dir)

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !repo.dropped {
		t.Error("model mismatch must drop the collection")
	}
	if len(repo.added) != 4 {
		t.Errorf("expected full reload after rebuild, got %d docs", len(repo.added))
	}
	if repo.ensuredModel != "text-embedding-3-small" {
		t.Errorf("rebuilt collection must carry the new model, got %q", repo.ensuredModel)
	}
}

func TestLoad_MissingFilesAreSkipped(t *testing.T) {
	dir := writeCorpus(t, protocolsJSON, "") // no notes file
	repo := &mockRepo{}
	svc := newTestService(repo, &mockEmbedder{}, dir)

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(repo.added) != 2 {
		t.Errorf("expected 2 protocol docs, got %d", len(repo.added))
	}
}

func TestLoad_EmptyDirectory(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, &mockEmbedder{}, t.TempDir())

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(repo.added) != 0 {
		t.Errorf("expected empty knowledge base, got %d docs", len(repo.added))
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	dir := writeCorpus(t, "{not json", "")
	svc := newTestService(&mockRepo{}, &mockEmbedder{}, dir)

	err := svc.Load(context.Background())
	if !errors.Is(err, domain.ErrMalformedCorpus) {
		t.Fatalf("expected ErrMalformedCorpus, got %v", err)
	}
}

func TestLoad_MissingRequiredField(t *testing.T) {
	dir := writeCorpus(t, `{"p1": {"source": "x", "content": "y"}}`, "")
	svc := newTestService(&mockRepo{}, &mockEmbedder{}, dir)

	err := svc.Load(context.Background())
	if !errors.Is(err, domain.ErrMalformedCorpus) {
		t.Fatalf("expected ErrMalformedCorpus for missing title, got %v", err)
	}
}

func TestLoad_NoteWithoutContent(t *testing.T) {
	notes := `{"case_001": {"patient_id": "PT-001", "icu_unit": "MICU", "diagnosis": "ARDS",
		"clinical_notes": [{"timestamp": "2023-01-02", "note_type": "progress"}]}}`
	dir := writeCorpus(t, "", notes)
	svc := newTestService(&mockRepo{}, &mockEmbedder{}, dir)

	err := svc.Load(context.Background())
	if !errors.Is(err, domain.ErrMalformedCorpus) {
		t.Fatalf("expected ErrMalformedCorpus for empty note, got %v", err)
	}
}

func TestLoad_EmbedFailureAborts(t *testing.T) {
	dir := writeCorpus(t, protocolsJSON, "")
	repo := &mockRepo{}
	svc := newTestService(repo, &mockEmbedder{err: errors.New("provider down")}, dir)

	if err := svc.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.added) != 0 {
		t.Error("no documents may be stored after an embedding failure")
	}
}

func keys(m map[string]domain.Document) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
