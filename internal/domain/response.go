package domain

import "time"

// ScopeVerdict is the guardrail decision for one question.
type ScopeVerdict struct {
	IsClinical bool
	Reason     string
	Confidence float64 // [0,1]
}

// SourceDescriptor describes one retrieval hit in a response payload.
type SourceDescriptor struct {
	Kind           Kind
	Similarity     float64
	Rank           int
	ContentPreview string // truncated to 200 chars with ellipsis

	// Protocol attributes
	Title      string
	Category   string
	SourceName string

	// Clinical note attributes
	PatientID string
	Diagnosis string
	ICUUnit   string
	NoteType  string
}

// FusedResponse is the assembled answer for one question.
type FusedResponse struct {
	Answer             string
	Sources            []SourceDescriptor
	Confidence         float64 // [0,1]
	GuardrailTriggered bool
	GuardrailReason    string
	ContextUsed        bool
	Suggestions        []string // populated only when rejected
}

// Interaction is one processed question/response pair. Never mutated after
// creation; log lifetime = process lifetime.
type Interaction struct {
	ID         string
	Timestamp  time.Time
	CallerID   string // optional
	Question   string
	Response   FusedResponse
	IsClinical bool
}

// CorpusStats summarizes the ingested corpus.
type CorpusStats struct {
	TotalDocuments int
	Protocols      int
	ClinicalNotes  int
	EmbeddingModel string
}

// Stats is the system-wide statistics payload.
type Stats struct {
	Corpus            CorpusStats
	TotalInteractions int
	ClinicalQuestions int
	GuardrailTriggers int
}
