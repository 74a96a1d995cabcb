package db

// KNNQuery is the input for vector similarity search. VectorField names the
// schema field holding the document vectors.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search. Score is a similarity
// in [0,1]: the db layer converts the backend's cosine distance.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
