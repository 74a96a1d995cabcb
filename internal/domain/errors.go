package domain

import "errors"

var (
	// ErrMalformedCorpus signals a corpus record missing required fields.
	// Ingestion aborts on it: a malformed corpus is a deployment defect.
	ErrMalformedCorpus = errors.New("malformed corpus record")
	// ErrSearchUnavailable signals a similarity-search backend failure.
	// Recovered inside the retriever; kept distinct for logging and metrics.
	ErrSearchUnavailable = errors.New("search backend unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
