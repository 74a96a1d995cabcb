package domain

// KeyPrefix namespaces all store keys for this service.
const KeyPrefix = "clinicopilot:"

// Kind classifies a corpus document.
type Kind string

// Corpus document kinds.
const (
	KindProtocol     Kind = "protocol"
	KindClinicalNote Kind = "clinical_note"
)

// Document is an ingested corpus entry. Documents are immutable once ingested;
// the corpus store owns them exclusively.
type Document struct {
	ID         string
	Kind       Kind
	Text       string            // composed narrative, e.g. "Title: ...\nSource: ...\nContent: ..."
	Attributes map[string]string // kind-specific fields (title/category/source_name or patient_id/icu_unit/...)
	Vector     []float32         // not exposed to clients
}

// SearchMatch is a single retrieval hit for a question. Created transiently
// per query; similarity is always at or above the configured floor.
type SearchMatch struct {
	Document   Document
	Similarity float64 // [0,1], 1 = identical
	Rank       int     // 1-based position in the result list
}
