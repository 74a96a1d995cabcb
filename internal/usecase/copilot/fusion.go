package copilot

// Confidence fusion weights. Scope certainty dominates, retrieval quality
// second, source presence is a small fixed bonus.
const (
	scopeWeight      = 0.5
	similarityWeight = 0.4
	sourcesBonus     = 0.1
)

// FuseConfidence blends the guardrail confidence with the best retrieval
// similarity and a has-sources bonus, clamped to [0, 1].
func FuseConfidence(scopeConfidence float64, similarities []float64) float64 {
	var maxSim float64
	for _, s := range similarities {
		if s > maxSim {
			maxSim = s
		}
	}

	var bonus float64
	if len(similarities) > 0 {
		bonus = sourcesBonus
	}

	fused := scopeWeight*scopeConfidence + similarityWeight*maxSim + bonus
	return min(max(fused, 0.0), 1.0)
}
