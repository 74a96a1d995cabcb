// Package guardrail decides whether a question is within ICU/hospital
// clinical scope before any retrieval happens.
package guardrail

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/clinicopilot/internal/domain"
)

// Admission thresholds. A question is vetoed outright when off-domain
// vocabulary density exceeds nonClinicalVeto, and admitted when the blended
// keyword/pattern score reaches admitThreshold.
const (
	nonClinicalVeto = 0.7
	admitThreshold  = 0.1

	clinicalWeight = 0.6
	patternWeight  = 0.4

	// Keyword hits are scaled by density (hits per word x 10, capped at 1)
	// so short, dense questions score high while long keyword-light ones
	// cannot score on volume alone.
	densityScale = 10.0
)

// Vocabulary is the immutable keyword/pattern configuration a classifier is
// built from. Tests substitute alternate vocabularies through it.
type Vocabulary struct {
	clinicalKeywords    []string
	nonClinicalKeywords []string
	patterns            []*regexp.Regexp
}

// NewVocabulary compiles a vocabulary. Patterns match case-insensitively.
func NewVocabulary(clinical, nonClinical, patterns []string) (Vocabulary, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return Vocabulary{}, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return Vocabulary{
		clinicalKeywords:    clinical,
		nonClinicalKeywords: nonClinical,
		patterns:            compiled,
	}, nil
}

// Classifier scores questions for clinical relevance. Pure and deterministic
// for a fixed vocabulary; performs no I/O.
type Classifier struct {
	vocab Vocabulary
}

// New creates a classifier over the given vocabulary.
func New(vocab Vocabulary) *Classifier {
	return &Classifier{vocab: vocab}
}

// Classify decides whether a question is within clinical scope.
func (c *Classifier) Classify(question string) domain.ScopeVerdict {
	q := strings.ToLower(question)

	// Off-domain vocabulary density veto, regardless of co-occurring
	// clinical terms.
	nonClinicalScore, matched := c.nonClinicalScore(q)
	if nonClinicalScore > nonClinicalVeto {
		return domain.ScopeVerdict{
			IsClinical: false,
			Reason: fmt.Sprintf("Question appears to be about non-clinical topics: %s",
				strings.Join(matched, ", ")),
			Confidence: nonClinicalScore,
		}
	}

	clinicalScore := c.clinicalScore(q)
	patternScore := c.patternScore(q)
	combined := clinicalWeight*clinicalScore + patternWeight*patternScore

	if combined >= admitThreshold {
		return domain.ScopeVerdict{
			IsClinical: true,
			Reason:     fmt.Sprintf("Question contains clinical content (score: %.2f)", combined),
			Confidence: combined,
		}
	}

	return domain.ScopeVerdict{
		IsClinical: false,
		Reason:     fmt.Sprintf("Question does not appear to be clinical in nature (score: %.2f)", combined),
		Confidence: combined,
	}
}

// clinicalScore rewards keyword density: hits normalized by word count,
// scaled and capped at 1.0. An empty question scores 0.
func (c *Classifier) clinicalScore(q string) float64 {
	words := len(strings.Fields(q))
	if words == 0 {
		return 0
	}

	hits := 0
	for _, kw := range c.vocab.clinicalKeywords {
		if strings.Contains(q, kw) {
			hits++
		}
	}

	return min(float64(hits)/float64(words)*densityScale, 1.0)
}

// nonClinicalScore returns the fraction of the off-domain keyword set present
// in the question, plus the matched terms for the rejection reason.
func (c *Classifier) nonClinicalScore(q string) (float64, []string) {
	if len(c.vocab.nonClinicalKeywords) == 0 {
		return 0, nil
	}

	var matched []string
	for _, kw := range c.vocab.nonClinicalKeywords {
		if strings.Contains(q, kw) {
			matched = append(matched, kw)
		}
	}

	return float64(len(matched)) / float64(len(c.vocab.nonClinicalKeywords)), matched
}

// patternScore returns the fraction of question templates that match, capped at 1.0.
func (c *Classifier) patternScore(q string) float64 {
	if len(c.vocab.patterns) == 0 {
		return 0
	}

	matches := 0
	for _, re := range c.vocab.patterns {
		if re.MatchString(q) {
			matches++
		}
	}

	return min(float64(matches)/float64(len(c.vocab.patterns)), 1.0)
}
