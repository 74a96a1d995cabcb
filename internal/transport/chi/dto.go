package chi

import (
	"time"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
	healthuc "github.com/kailas-cloud/clinicopilot/internal/usecase/health"
)

type askRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id,omitempty"`
}

type sourceItem struct {
	Type           string  `json:"type"`
	Similarity     float64 `json:"similarity"`
	Rank           int     `json:"rank"`
	ContentPreview string  `json:"content_preview"`
	Title          string  `json:"title,omitempty"`
	Category       string  `json:"category,omitempty"`
	SourceName     string  `json:"source_name,omitempty"`
	PatientID      string  `json:"patient_id,omitempty"`
	Diagnosis      string  `json:"diagnosis,omitempty"`
	ICUUnit        string  `json:"icu_unit,omitempty"`
	NoteType       string  `json:"note_type,omitempty"`
}

type askResponse struct {
	Answer             string       `json:"answer"`
	Sources            []sourceItem `json:"sources"`
	Confidence         float64      `json:"confidence"`
	GuardrailTriggered bool         `json:"guardrail_triggered"`
	GuardrailReason    string       `json:"guardrail_reason,omitempty"`
	ContextUsed        bool         `json:"context_used"`
	Suggestions        []string     `json:"suggestions,omitempty"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
	Scope       string   `json:"scope"`
}

type statsResponse struct {
	KnowledgeBase     knowledgeBaseStats `json:"knowledge_base"`
	TotalInteractions int                `json:"total_interactions"`
	ClinicalQuestions int                `json:"clinical_questions"`
	GuardrailTriggers int                `json:"guardrail_triggers"`
}

type knowledgeBaseStats struct {
	TotalDocuments int    `json:"total_documents"`
	Protocols      int    `json:"protocols"`
	ClinicalNotes  int    `json:"clinical_notes"`
	EmbeddingModel string `json:"embedding_model"`
}

type interactionItem struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	UserID     string      `json:"user_id,omitempty"`
	Question   string      `json:"question"`
	Response   askResponse `json:"response"`
	IsClinical bool        `json:"is_clinical"`
}

type historyResponse struct {
	Interactions []interactionItem `json:"interactions"`
	Total        int               `json:"total"`
}

type healthResponse struct {
	Status            string            `json:"status"`
	Checks            map[string]string `json:"checks"`
	KnowledgeBaseDocs int               `json:"knowledge_base_docs"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func askResponseFromDomain(r domain.FusedResponse) askResponse {
	sources := make([]sourceItem, len(r.Sources))
	for i, s := range r.Sources {
		sources[i] = sourceItem{
			Type:           string(s.Kind),
			Similarity:     s.Similarity,
			Rank:           s.Rank,
			ContentPreview: s.ContentPreview,
			Title:          s.Title,
			Category:       s.Category,
			SourceName:     s.SourceName,
			PatientID:      s.PatientID,
			Diagnosis:      s.Diagnosis,
			ICUUnit:        s.ICUUnit,
			NoteType:       s.NoteType,
		}
	}

	return askResponse{
		Answer:             r.Answer,
		Sources:            sources,
		Confidence:         r.Confidence,
		GuardrailTriggered: r.GuardrailTriggered,
		GuardrailReason:    r.GuardrailReason,
		ContextUsed:        r.ContextUsed,
		Suggestions:        r.Suggestions,
	}
}

func historyFromDomain(entries []domain.Interaction) historyResponse {
	items := make([]interactionItem, len(entries))
	for i, e := range entries {
		items[i] = interactionItem{
			ID:         e.ID,
			Timestamp:  e.Timestamp,
			UserID:     e.CallerID,
			Question:   e.Question,
			Response:   askResponseFromDomain(e.Response),
			IsClinical: e.IsClinical,
		}
	}
	return historyResponse{Interactions: items, Total: len(items)}
}

func statsFromDomain(s domain.Stats) statsResponse {
	return statsResponse{
		KnowledgeBase: knowledgeBaseStats{
			TotalDocuments: s.Corpus.TotalDocuments,
			Protocols:      s.Corpus.Protocols,
			ClinicalNotes:  s.Corpus.ClinicalNotes,
			EmbeddingModel: s.Corpus.EmbeddingModel,
		},
		TotalInteractions: s.TotalInteractions,
		ClinicalQuestions: s.ClinicalQuestions,
		GuardrailTriggers: s.GuardrailTriggers,
	}
}

func healthFromReport(r healthuc.Report) healthResponse {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return healthResponse{
		Status:            string(r.Status),
		Checks:            checks,
		KnowledgeBaseDocs: r.Documents,
	}
}
