// Package verdict turns heterogeneous classifier output into the canonical Verdict.
package verdict

import "scam-guard-service/internal/config"

// Policy holds the tunable thresholds and vocabularies used by the Mapper.
// Hints and phrases are matched case-insensitively.
type Policy struct {
	ScamThreshold        float64
	SuspiciousThreshold  float64
	HighRiskConfidence   float64
	MediumRiskConfidence float64

	// ScoreHints name fields that may carry a numeric score or a risk level.
	ScoreHints []string
	// AnalysisHints name prose fields read when no number is present.
	AnalysisHints []string

	// Phrases match anywhere in a value unless one of the two preceding words
	// is a negation. Levels match a whole value, e.g. a "risk_level" of "high".
	HighRiskPhrases   []string
	MediumRiskPhrases []string
	HighRiskLevels    []string
	MediumRiskLevels  []string
	Negations         []string
}

// DefaultPolicy returns the product defaults.
func DefaultPolicy() Policy {
	return Policy{
		ScamThreshold:        0.80,
		SuspiciousThreshold:  0.50,
		HighRiskConfidence:   0.95,
		MediumRiskConfidence: 0.60,
		ScoreHints:           []string{"score", "spam", "probability", "risk", "confidence"},
		AnalysisHints:        []string{"analysis", "result", "label", "verdict", "classification"},
		HighRiskPhrases:      []string{"high risk", "likely scam", "likely a scam", "is a scam", "scam detected", "fraudulent", "likely fraud"},
		MediumRiskPhrases:    []string{"medium risk", "moderate risk", "suspicious"},
		HighRiskLevels:       []string{"high", "critical", "scam", "fraud", "spam"},
		MediumRiskLevels:     []string{"medium", "moderate", "suspicious"},
		Negations:            []string{"not", "no", "isn't", "never", "nothing", "without"},
	}
}

// PolicyFromConfig overlays configured thresholds on the default vocabulary.
func PolicyFromConfig(cfg config.VerdictConfig) Policy {
	p := DefaultPolicy()
	p.ScamThreshold = cfg.ScamThreshold
	p.SuspiciousThreshold = cfg.SuspiciousThreshold
	p.HighRiskConfidence = cfg.HighRiskConfidence
	p.MediumRiskConfidence = cfg.MediumRiskConfidence
	return p
}
