package corpus

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/kailas-cloud/clinicopilot/internal/db"
	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

// Reserved hash field names; everything else is a kind-specific attribute.
const (
	fieldContent = "__content"
	fieldVector  = "__vector"
	fieldKind    = "kind"
)

// documentToHash flattens a document into hash fields. The vector is stored
// as a little-endian float32 blob, the layout FT.SEARCH expects.
func documentToHash(doc domain.Document) map[string]string {
	fields := make(map[string]string, len(doc.Attributes)+3)
	for k, v := range doc.Attributes {
		fields[k] = v
	}
	fields[fieldKind] = string(doc.Kind)
	fields[fieldContent] = doc.Text
	fields[fieldVector] = vectorToBlob(doc.Vector)
	return fields
}

// knnReturnFields lists the hash fields a KNN query pulls back. The vector
// blob is excluded; __vector_score is requested for the similarity conversion
// in the db layer.
func knnReturnFields() []string {
	return []string{
		fieldContent, fieldKind, "__vector_score",
		"title", "category", "source_name", "keywords",
		"patient_id", "icu_unit", "diagnosis", "note_type", "timestamp",
	}
}

// matchFromEntry reconstructs a document match from flat hash fields.
func matchFromEntry(entry db.SearchEntry) domain.SearchMatch {
	doc := domain.Document{
		ID:         strings.TrimPrefix(entry.Key, docPrefix),
		Attributes: make(map[string]string),
	}

	for k, v := range entry.Fields {
		switch k {
		case fieldContent:
			doc.Text = v
		case fieldKind:
			doc.Kind = domain.Kind(v)
		case fieldVector:
			// not in the return-field list; never exposed
		default:
			doc.Attributes[k] = v
		}
	}

	return domain.SearchMatch{Document: doc, Similarity: entry.Score}
}

func vectorToBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
