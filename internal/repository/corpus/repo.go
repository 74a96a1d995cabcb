package corpus

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/clinicopilot/internal/db"
	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

// Store keys: clinicopilot:corpus:meta, clinicopilot:corpus:idx,
// documents under clinicopilot:corpus:doc:<id>.
const (
	metaKey   = domain.KeyPrefix + "corpus:meta"
	indexName = domain.KeyPrefix + "corpus:idx"
	docPrefix = domain.KeyPrefix + "corpus:doc:"
)

// store is the consumer interface for the corpus repository (ISP).
//
//nolint:interfacebloat // corpus repo owns hash + index + search operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig holds HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo is the corpus store: documents with embedding vectors behind one
// cosine KNN index, plus a metadata hash recording the embedding model the
// index was built with.
type Repo struct {
	store     store
	vectorDim int
	hnsw      HNSWConfig
}

// New creates a corpus repository.
func New(s store, vectorDim int) *Repo {
	return &Repo{store: s, vectorDim: vectorDim, hnsw: HNSWConfig{M: 32, EFConstruct: 400}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// EnsureCollection creates the metadata hash and FT index if absent, stamping
// the embedding model identifier into the metadata. On FT.CREATE failure the
// metadata write is rolled back via DEL.
func (r *Repo) EnsureCollection(ctx context.Context, embeddingModel string) error {
	exists, err := r.store.Exists(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return nil
	}

	indexDef := r.buildIndex()

	if err := r.store.HSet(ctx, metaKey, map[string]string{
		"description":     "Clinical protocols and notes from the MIMIC-IV demo",
		"embedding_model": embeddingModel,
	}); err != nil {
		return fmt.Errorf("hset corpus meta: %w", err)
	}

	if err := r.store.CreateIndex(ctx, indexDef); err != nil && !errors.Is(err, db.ErrIndexExists) {
		cleanupErr := r.store.Del(ctx, metaKey)
		return errors.Join(fmt.Errorf("create corpus index: %w", err), cleanupErr)
	}

	return nil
}

// StoredModel returns the embedding model identifier the index was built
// with, or "" when no collection exists yet.
func (r *Repo) StoredModel(ctx context.Context) (string, error) {
	m, err := r.store.HGetAll(ctx, metaKey)
	if err != nil {
		return "", fmt.Errorf("hgetall corpus meta: %w", err)
	}
	return m["embedding_model"], nil
}

// Drop removes the index, every stored document, and the metadata hash.
// Used when the configured embedding model no longer matches the stored one.
func (r *Repo) Drop(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, indexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop corpus index: %w", err)
	}

	keys, err := r.store.Scan(ctx, docPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan corpus docs: %w", err)
	}
	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("del corpus docs: %w", err)
	}

	if err := r.store.Del(ctx, metaKey); err != nil {
		return fmt.Errorf("del corpus meta: %w", err)
	}
	return nil
}

// AddDocuments stores documents as hashes in one pipelined round-trip.
func (r *Repo) AddDocuments(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("%w: document without id", domain.ErrMalformedCorpus)
		}
		if len(doc.Vector) != r.vectorDim {
			return fmt.Errorf("document %s: vector dim %d, index expects %d",
				doc.ID, len(doc.Vector), r.vectorDim)
		}
		items[i] = db.HashSetItem{
			Key:    docPrefix + doc.ID,
			Fields: documentToHash(doc),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset corpus docs: %w", err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count corpus docs: %w", err)
	}
	return n, nil
}

// CountByKind returns the number of indexed documents of one kind.
func (r *Repo) CountByKind(ctx context.Context, kind domain.Kind) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName, fmt.Sprintf("@kind:{%s}", kind))
	if err != nil {
		return 0, fmt.Errorf("count corpus docs by kind: %w", err)
	}
	return n, nil
}

// SearchKNN returns the k nearest documents to the query vector with their
// cosine similarity. Matches arrive similarity-descending; ranks and the
// similarity floor are the retriever's concern.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, k int) ([]domain.SearchMatch, error) {
	q := &db.KNNQuery{
		IndexName:    indexName,
		VectorField:  fieldVector,
		Vector:       vector,
		K:            k,
		ReturnFields: knnReturnFields(),
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	matches := make([]domain.SearchMatch, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		matches = append(matches, matchFromEntry(entry))
	}
	return matches, nil
}

func (r *Repo) buildIndex() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{docPrefix},
		Fields: []db.IndexField{
			{Name: "kind", Type: db.IndexFieldTag},
			{
				Name:              "__vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}
}
