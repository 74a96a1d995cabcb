// Package answer turns retrieved documents into a templated, source-grounded
// answer. No generative model is involved.
package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

const (
	// Quotas for the synthesized answer body.
	maxProtocols = 2
	maxCaseNotes = 1

	previewLen = 200

	contentMarker = "Content: "

	noKnowledgeAnswer = "I don't have specific information about this in my current knowledge base. " +
		"This question may be outside my scope or the information may not be available " +
		"in the MIMIC-IV demo data. Please consult current clinical guidelines and protocols."

	disclaimer = "*This response is based on retrieved clinical documentation. " +
		"Always verify with current protocols and use clinical judgment.*"
)

// Synthesize builds an answer from the highest-ranked matches: up to two
// protocol excerpts under their titles, then up to one case note. When no
// matches survive it falls back to a fixed no-knowledge answer. The safety
// disclaimer is always appended.
func Synthesize(question string, matches []domain.SearchMatch) string {
	var protocols, cases []domain.SearchMatch
	for _, m := range matches {
		switch m.Document.Kind {
		case domain.KindProtocol:
			protocols = append(protocols, m)
		case domain.KindClinicalNote:
			cases = append(cases, m)
		}
	}

	var b strings.Builder

	if len(protocols) == 0 && len(cases) == 0 {
		b.WriteString(noKnowledgeAnswer)
	} else {
		b.WriteString(fmt.Sprintf("Based on the available clinical documentation, here's what I found regarding: \"%s\"\n\n", question))

		for i, m := range protocols {
			if i >= maxProtocols {
				break
			}
			title := m.Document.Attributes["title"]
			if title == "" {
				title = "Clinical Protocol"
			}
			b.WriteString(fmt.Sprintf("**%s**\n%s\n\n", title, protocolBody(m.Document.Text)))
		}

		for i, m := range cases {
			if i >= maxCaseNotes {
				break
			}
			patient := attrOr(m.Document, "patient_id", "Unknown")
			diagnosis := attrOr(m.Document, "diagnosis", "Unknown")
			b.WriteString(fmt.Sprintf("**Relevant Clinical Case**\nCase: %s - %s\n%s\n\n",
				patient, diagnosis, protocolBody(m.Document.Text)))
		}
	}

	b.WriteString("\n")
	b.WriteString(disclaimer)
	return b.String()
}

// FormatSources describes every match as a caller-facing source, with the
// document text truncated to a short preview.
func FormatSources(matches []domain.SearchMatch) []domain.SourceDescriptor {
	sources := make([]domain.SourceDescriptor, 0, len(matches))
	for _, m := range matches {
		sources = append(sources, domain.SourceDescriptor{
			Kind:           m.Document.Kind,
			Similarity:     m.Similarity,
			Rank:           m.Rank,
			ContentPreview: preview(m.Document.Text),
			Title:          m.Document.Attributes["title"],
			Category:       m.Document.Attributes["category"],
			SourceName:     m.Document.Attributes["source_name"],
			PatientID:      m.Document.Attributes["patient_id"],
			Diagnosis:      m.Document.Attributes["diagnosis"],
			ICUUnit:        m.Document.Attributes["icu_unit"],
			NoteType:       m.Document.Attributes["note_type"],
		})
	}
	return sources
}

// protocolBody strips the ingestion preamble (Title/Source/Patient lines) by
// cutting at the content marker. Documents without the marker pass through
// whole.
func protocolBody(text string) string {
	if _, after, found := strings.Cut(text, contentMarker); found {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(text)
}

// preview truncates to previewLen characters, never splitting a rune.
func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLen {
		return text
	}
	return string([]rune(text)[:previewLen]) + "..."
}

func attrOr(doc domain.Document, key, fallback string) string {
	if v := doc.Attributes[key]; v != "" {
		return v
	}
	return fallback
}
