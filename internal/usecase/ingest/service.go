// Package ingest loads the clinical corpus from JSON files into the vector
// store at startup.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

const (
	protocolsFile = "clinical_protocols.json"
	notesFile     = "clinical_notes.json"
)

// Service performs idempotent corpus loading. A changed embedding model
// invalidates the stored vectors, so the collection is dropped and rebuilt.
type Service struct {
	repo   Repository
	embed  Embedder
	model  string
	path   string
	logger *zap.Logger
}

// New creates an ingest service. model is the embedding model id recorded in
// collection metadata; path is the directory holding the corpus JSON files.
func New(repo Repository, embed Embedder, model, path string, logger *zap.Logger) *Service {
	return &Service{repo: repo, embed: embed, model: model, path: path, logger: logger}
}

// Load makes the corpus ready. Already-populated collections built with the
// current embedding model are left untouched; a model mismatch triggers a
// drop and full rebuild.
func (s *Service) Load(ctx context.Context) error {
	stored, err := s.repo.StoredModel(ctx)
	if err != nil {
		return fmt.Errorf("read collection metadata: %w", err)
	}
	if stored != "" && stored != s.model {
		s.logger.Info("embedding model changed, rebuilding corpus",
			zap.String("stored", stored), zap.String("current", s.model))
		if err := s.repo.Drop(ctx); err != nil {
			return fmt.Errorf("drop stale corpus: %w", err)
		}
		stored = ""
	}

	if err := s.repo.EnsureCollection(ctx, s.model); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	if stored != "" {
		count, err := s.repo.Count(ctx)
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}
		if count > 0 {
			s.logger.Info("corpus already loaded", zap.Int("documents", count))
			return nil
		}
	}

	docs, err := s.readCorpus()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		s.logger.Warn("no corpus files found, starting with empty knowledge base",
			zap.String("path", s.path))
		return nil
	}

	if err := s.vectorize(ctx, docs); err != nil {
		return err
	}
	if err := s.repo.AddDocuments(ctx, docs); err != nil {
		return fmt.Errorf("store documents: %w", err)
	}

	s.logger.Info("corpus loaded", zap.Int("documents", len(docs)))
	return nil
}

// readCorpus parses both corpus files. A missing file is skipped; a present
// but malformed file aborts the load.
func (s *Service) readCorpus() ([]domain.Document, error) {
	var docs []domain.Document

	protocols, err := readProtocols(filepath.Join(s.path, protocolsFile))
	if err != nil {
		return nil, err
	}
	docs = append(docs, protocols...)

	notes, err := readNotes(filepath.Join(s.path, notesFile))
	if err != nil {
		return nil, err
	}
	docs = append(docs, notes...)

	return docs, nil
}

func (s *Service) vectorize(ctx context.Context, docs []domain.Document) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	res, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return fmt.Errorf("vectorize corpus: %w", err)
	}
	if len(res.Embeddings) != len(docs) {
		return fmt.Errorf("vectorize corpus: got %d embeddings for %d documents: %w",
			len(res.Embeddings), len(docs), domain.ErrEmbeddingProviderError)
	}

	for i := range docs {
		docs[i].Vector = res.Embeddings[i]
	}
	return nil
}

type protocolRecord struct {
	Title    string   `json:"title"`
	Source   string   `json:"source"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

type noteRecord struct {
	Timestamp string `json:"timestamp"`
	NoteType  string `json:"note_type"`
	Content   string `json:"content"`
}

type caseRecord struct {
	PatientID     string       `json:"patient_id"`
	ICUUnit       string       `json:"icu_unit"`
	Diagnosis     string       `json:"diagnosis"`
	Keywords      []string     `json:"keywords"`
	ClinicalNotes []noteRecord `json:"clinical_notes"`
}

func readProtocols(path string) ([]domain.Document, error) {
	records, err := readJSONMap[protocolRecord](path)
	if err != nil || records == nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(records))
	for _, id := range sortedKeys(records) {
		p := records[id]
		if p.Title == "" || p.Content == "" {
			return nil, fmt.Errorf("protocol %q missing title or content: %w", id, domain.ErrMalformedCorpus)
		}
		docs = append(docs, domain.Document{
			ID:   "protocol_" + id,
			Kind: domain.KindProtocol,
			Text: fmt.Sprintf("Title: %s\nSource: %s\nContent: %s", p.Title, p.Source, p.Content),
			Attributes: map[string]string{
				"title":       p.Title,
				"source_name": p.Source,
				"category":    categoryOr(p.Category),
				"keywords":    strings.Join(p.Keywords, " "),
			},
		})
	}
	return docs, nil
}

func readNotes(path string) ([]domain.Document, error) {
	records, err := readJSONMap[caseRecord](path)
	if err != nil || records == nil {
		return nil, err
	}

	var docs []domain.Document
	for _, caseID := range sortedKeys(records) {
		c := records[caseID]
		if c.PatientID == "" || c.Diagnosis == "" {
			return nil, fmt.Errorf("case %q missing patient_id or diagnosis: %w", caseID, domain.ErrMalformedCorpus)
		}
		for _, n := range c.ClinicalNotes {
			if n.Content == "" {
				return nil, fmt.Errorf("case %q has a note without content: %w", caseID, domain.ErrMalformedCorpus)
			}
			docs = append(docs, domain.Document{
				ID:   fmt.Sprintf("note_%s_%s", caseID, n.Timestamp),
				Kind: domain.KindClinicalNote,
				Text: fmt.Sprintf("Patient: %s\nDate: %s\nType: %s\nDiagnosis: %s\nContent: %s",
					c.PatientID, n.Timestamp, n.NoteType, c.Diagnosis, n.Content),
				Attributes: map[string]string{
					"patient_id": c.PatientID,
					"icu_unit":   c.ICUUnit,
					"diagnosis":  c.Diagnosis,
					"note_type":  n.NoteType,
					"timestamp":  n.Timestamp,
					"keywords":   strings.Join(c.Keywords, " "),
				},
			})
		}
	}
	return docs, nil
}

// readJSONMap returns (nil, nil) for a missing file.
func readJSONMap[T any](path string) (map[string]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var records map[string]T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", filepath.Base(path), domain.ErrMalformedCorpus, err)
	}
	return records, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func categoryOr(c string) string {
	if c == "" {
		return "general"
	}
	return c
}
