package services

import (
	"math"
	"strings"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/entities"
)

// SimilarityCalculator calculates lexical similarity between concepts,
// complementing embedding cosine similarity (valueobjects.Embedding) when no
// embedding is available yet or when label overlap is the more reliable
// signal (e.g. fingerprinting a procedure plan, §4.4).
type SimilarityCalculator interface {
	Calculate(a, b *entities.Concept) float64
	CalculateWithKeywords(concept *entities.Concept, keywords, labels map[string]bool) float64
	CalculateBatch(source *entities.Concept, candidates []*entities.Concept) map[string]float64
}

// SimilarityAlgorithm defines the algorithm to use.
type SimilarityAlgorithm string

const (
	AlgorithmJaccard SimilarityAlgorithm = "jaccard"
	AlgorithmCosine  SimilarityAlgorithm = "cosine"
	AlgorithmHybrid  SimilarityAlgorithm = "hybrid"
)

// SimilarityConfig configures the similarity calculation.
type SimilarityConfig struct {
	Algorithm     SimilarityAlgorithm
	LabelWeight   float64
	KeywordWeight float64
	MinWordLength int
	UseStopWords  bool
}

// DefaultSimilarityConfig returns a balanced default configuration.
func DefaultSimilarityConfig() *SimilarityConfig {
	return &SimilarityConfig{
		Algorithm:     AlgorithmHybrid,
		LabelWeight:   0.3,
		KeywordWeight: 0.7,
		MinWordLength: 3,
		UseStopWords:  true,
	}
}

// DefaultSimilarityCalculator calculates similarity using configurable
// algorithms over a concept's labels and textual properties.
type DefaultSimilarityCalculator struct {
	config       *SimilarityConfig
	textAnalyzer TextAnalyzer
}

func NewDefaultSimilarityCalculator(config *SimilarityConfig, textAnalyzer TextAnalyzer) *DefaultSimilarityCalculator {
	if config == nil {
		config = DefaultSimilarityConfig()
	}
	if textAnalyzer == nil {
		textAnalyzer = NewDefaultTextAnalyzer()
	}

	return &DefaultSimilarityCalculator{
		config:       config,
		textAnalyzer: textAnalyzer,
	}
}

func (sc *DefaultSimilarityCalculator) Calculate(a, b *entities.Concept) float64 {
	if a == nil || b == nil {
		return 0.0
	}

	keywords1 := sc.extractConceptKeywords(a)
	keywords2 := sc.extractConceptKeywords(b)

	labels1 := sc.extractConceptLabels(a)
	labels2 := sc.extractConceptLabels(b)

	keywordSim := sc.calculateSetSimilarity(keywords1, keywords2)
	labelSim := sc.calculateSetSimilarity(labels1, labels2)

	total := (keywordSim * sc.config.KeywordWeight) + (labelSim * sc.config.LabelWeight)
	return math.Min(total, 1.0)
}

func (sc *DefaultSimilarityCalculator) CalculateWithKeywords(concept *entities.Concept, keywords, labels map[string]bool) float64 {
	if concept == nil || (len(keywords) == 0 && len(labels) == 0) {
		return 0.0
	}

	conceptKeywords := sc.extractConceptKeywords(concept)
	conceptLabels := sc.extractConceptLabels(concept)

	keywordSim := sc.calculateSetSimilarity(conceptKeywords, keywords)
	labelSim := sc.calculateSetSimilarity(conceptLabels, labels)

	total := (keywordSim * sc.config.KeywordWeight) + (labelSim * sc.config.LabelWeight)
	return math.Min(total, 1.0)
}

func (sc *DefaultSimilarityCalculator) CalculateBatch(source *entities.Concept, candidates []*entities.Concept) map[string]float64 {
	results := make(map[string]float64)

	if source == nil || len(candidates) == 0 {
		return results
	}

	sourceKeywords := sc.extractConceptKeywords(source)
	sourceLabels := sc.extractConceptLabels(source)

	for _, candidate := range candidates {
		if candidate == nil || candidate.ID().Equals(source.ID()) {
			continue
		}

		sim := sc.CalculateWithKeywords(candidate, sourceKeywords, sourceLabels)
		results[candidate.ID().String()] = sim
	}

	return results
}

func (sc *DefaultSimilarityCalculator) extractConceptKeywords(concept *entities.Concept) map[string]bool {
	text := propertyText(concept)

	if sc.config.UseStopWords {
		keywords := sc.textAnalyzer.ExtractKeywords(text)
		keywordSet := make(map[string]bool)
		for _, kw := range keywords {
			if len(kw) >= sc.config.MinWordLength {
				keywordSet[strings.ToLower(kw)] = true
			}
		}
		return keywordSet
	}

	return sc.textAnalyzer.TokenizeWords(text)
}

func (sc *DefaultSimilarityCalculator) extractConceptLabels(concept *entities.Concept) map[string]bool {
	labelSet := make(map[string]bool)

	for _, label := range concept.Labels() {
		normalized := strings.ToLower(strings.TrimSpace(label))
		if normalized != "" {
			labelSet[normalized] = true
		}
	}

	return labelSet
}

func (sc *DefaultSimilarityCalculator) calculateSetSimilarity(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 0.0
	}

	switch sc.config.Algorithm {
	case AlgorithmJaccard:
		return sc.jaccardSimilarity(set1, set2)
	case AlgorithmCosine:
		return sc.cosineSimilarity(set1, set2)
	case AlgorithmHybrid:
		jaccard := sc.jaccardSimilarity(set1, set2)
		cosine := sc.cosineSimilarity(set1, set2)
		return (jaccard + cosine) / 2.0
	default:
		return sc.jaccardSimilarity(set1, set2)
	}
}

// jaccardSimilarity calculates |A ∩ B| / |A ∪ B|.
func (sc *DefaultSimilarityCalculator) jaccardSimilarity(set1, set2 map[string]bool) float64 {
	intersection := 0
	union := make(map[string]bool)

	for key := range set1 {
		union[key] = true
		if set2[key] {
			intersection++
		}
	}
	for key := range set2 {
		union[key] = true
	}

	if len(union) == 0 {
		return 0.0
	}

	return float64(intersection) / float64(len(union))
}

// cosineSimilarity treats each set as a binary vector.
func (sc *DefaultSimilarityCalculator) cosineSimilarity(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	dotProduct := 0
	for key := range set1 {
		if set2[key] {
			dotProduct++
		}
	}

	magnitude1 := math.Sqrt(float64(len(set1)))
	magnitude2 := math.Sqrt(float64(len(set2)))

	if magnitude1 == 0 || magnitude2 == 0 {
		return 0.0
	}

	return float64(dotProduct) / (magnitude1 * magnitude2)
}

// propertyText concatenates a concept's string-valued properties into one
// blob for keyword extraction.
func propertyText(concept *entities.Concept) string {
	var b strings.Builder
	for _, label := range concept.Labels() {
		b.WriteString(label)
		b.WriteString(" ")
	}
	raw := concept.Properties().Raw()
	for _, v := range raw {
		if s, ok := v.(string); ok {
			b.WriteString(s)
			b.WriteString(" ")
		}
	}
	return b.String()
}
