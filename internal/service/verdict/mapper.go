package verdict

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"scam-guard-service/internal/models"
)

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// SignalKind tags how a confidence was obtained.
type SignalKind int

const (
	SignalNoSignal SignalKind = iota
	SignalNumericField
	SignalKeywordFallback
)

func (k SignalKind) String() string {
	switch k {
	case SignalNumericField:
		return "numeric_field"
	case SignalKeywordFallback:
		return "keyword_fallback"
	default:
		return "no_signal"
	}
}

// Signal is the intermediate result between a raw field bag and a Verdict.
// Field is the selected source field, empty when all values were scanned.
type Signal struct {
	Kind       SignalKind
	Field      string
	Confidence float64
}

// Mapper converts RawClassification to Verdict. It is deterministic and never fails.
type Mapper struct {
	policy Policy
}

// NewMapper creates a Mapper with the given policy.
func NewMapper(policy Policy) *Mapper {
	return &Mapper{policy: policy}
}

// Policy returns the mapper's policy.
func (m *Mapper) Policy() Policy {
	return m.policy
}

// Map derives a Verdict from raw classifier output.
func (m *Mapper) Map(raw models.RawClassification) models.Verdict {
	return m.FromSignal(m.Signal(raw))
}

// FromSignal builds the verdict for an extracted signal.
func (m *Mapper) FromSignal(sig Signal) models.Verdict {
	if sig.Kind == SignalNoSignal {
		return models.ListeningVerdict()
	}
	return m.FromConfidence(sig.Confidence)
}

// FromConfidence builds the verdict for an assessed confidence in [0,1].
func (m *Mapper) FromConfidence(confidence float64) models.Verdict {
	confidence = clamp(confidence)
	pct := fmt.Sprintf("%.0f%%", confidence*100)

	v := models.Verdict{Confidence: &confidence}
	switch {
	case confidence >= m.policy.ScamThreshold:
		v.Status = models.StatusScam
		v.Color = models.ColorRed
		v.Message = "Likely scam detected (" + pct + " risk)"
	case confidence >= m.policy.SuspiciousThreshold:
		v.Status = models.StatusSuspicious
		v.Color = models.ColorOrange
		v.Message = "Suspicious call (" + pct + " risk)"
	default:
		v.Status = models.StatusSafe
		v.Color = models.ColorGreen
		v.Message = "No scam indicators (" + pct + " risk)"
	}
	return v
}

// Signal extracts the tagged confidence signal from raw classifier output.
// Sources are tried in order: a score-hinted field holding a number, then any
// percentage value, then keyword heuristics over the hinted fields (all values
// when no field name is recognized).
func (m *Mapper) Signal(raw models.RawClassification) Signal {
	keys := make([]string, 0, len(raw.Fields))
	for k, v := range raw.Fields {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return Signal{Kind: SignalNoSignal}
	}
	sort.Strings(keys)

	scored := nameMatches(keys, m.policy.ScoreHints)
	for _, k := range scored {
		if c, ok := parseNumeric(raw.Fields[k]); ok {
			return Signal{Kind: SignalNumericField, Field: k, Confidence: c}
		}
	}
	for _, k := range keys {
		if !strings.Contains(raw.Fields[k], "%") {
			continue
		}
		if c, ok := parseNumeric(raw.Fields[k]); ok {
			return Signal{Kind: SignalNumericField, Field: k, Confidence: c}
		}
	}

	textKeys := append(scored, nameMatches(keys, m.policy.AnalysisHints)...)
	if len(textKeys) == 0 {
		values := make([]string, len(keys))
		for i, k := range keys {
			values[i] = raw.Fields[k]
		}
		return Signal{Kind: SignalKeywordFallback, Confidence: m.keywordConfidence(values...)}
	}

	var best float64
	for _, k := range textKeys {
		best = math.Max(best, m.keywordConfidence(raw.Fields[k]))
	}
	return Signal{Kind: SignalKeywordFallback, Field: textKeys[0], Confidence: best}
}

// keywordConfidence scores values by whole-value level first, then by
// non-negated phrase. The highest tier found wins.
func (m *Mapper) keywordConfidence(values ...string) float64 {
	var best float64
	for _, v := range values {
		text := strings.ToLower(strings.TrimSpace(v))
		switch {
		case matchesLevel(text, m.policy.HighRiskLevels),
			m.containsPhrase(text, m.policy.HighRiskPhrases):
			return m.policy.HighRiskConfidence
		case matchesLevel(text, m.policy.MediumRiskLevels),
			m.containsPhrase(text, m.policy.MediumRiskPhrases):
			best = math.Max(best, m.policy.MediumRiskConfidence)
		}
	}
	return best
}

// containsPhrase reports whether any phrase occurs in text without a negation
// among the two words before it.
func (m *Mapper) containsPhrase(text string, phrases []string) bool {
	for _, phrase := range phrases {
		phrase = strings.ToLower(phrase)
		if phrase == "" {
			continue
		}
		from := 0
		for {
			i := strings.Index(text[from:], phrase)
			if i < 0 {
				break
			}
			at := from + i
			if !m.negated(text[:at]) {
				return true
			}
			from = at + len(phrase)
		}
	}
	return false
}

func (m *Mapper) negated(prefix string) bool {
	words := strings.FieldsFunc(prefix, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	if len(words) > 2 {
		words = words[len(words)-2:]
	}
	for _, w := range words {
		for _, n := range m.policy.Negations {
			if w == n {
				return true
			}
		}
	}
	return false
}

func matchesLevel(text string, levels []string) bool {
	text = strings.Trim(text, " .!\"'")
	for _, l := range levels {
		if text == strings.ToLower(l) {
			return true
		}
	}
	return false
}

func nameMatches(keys, hints []string) []string {
	var out []string
	for _, k := range keys {
		lower := strings.ToLower(k)
		for _, h := range hints {
			if h != "" && strings.Contains(lower, strings.ToLower(h)) {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// parseNumeric reads the first number in v as a confidence.
// A percent sign or a value above 1 means a percentage.
func parseNumeric(v string) (float64, bool) {
	match := numberPattern.FindString(v)
	if match == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	if strings.Contains(v, "%") || n > 1 {
		n /= 100
	}
	return clamp(n), true
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
