package verdict

import (
	"testing"

	"scam-guard-service/internal/config"
	"scam-guard-service/internal/models"
	"scam-guard-service/internal/service/classifier"
)

func raw(kv ...string) models.RawClassification {
	fields := make(map[string]string)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return models.RawClassification{Fields: fields}
}

func TestMap_Verdicts(t *testing.T) {
	m := NewMapper(DefaultPolicy())

	tests := []struct {
		name       string
		input      models.RawClassification
		status     models.Status
		color      string
		confidence float64
	}{
		{"percent score", raw("spam_score", "92%"), models.StatusScam, models.ColorRed, 0.92},
		{"fraction score", raw("probability", "0.55"), models.StatusSuspicious, models.ColorOrange, 0.55},
		{"whole number score", raw("risk", "85"), models.StatusScam, models.ColorRed, 0.85},
		{"score above 100 clamps", raw("score", "250"), models.StatusScam, models.ColorRed, 1.0},
		{"medium risk keyword", raw("result", "medium risk"), models.StatusSuspicious, models.ColorOrange, 0.60},
		{"high risk keyword", raw("label", "High Risk"), models.StatusScam, models.ColorRed, 0.95},
		{"percent in unnamed field", raw("foo", "about 70% likely"), models.StatusSuspicious, models.ColorOrange, 0.70},
		{"unrecognized fields", raw("foo", "bar"), models.StatusSafe, models.ColorGreen, 0.0},
		{"keyword across all values", raw("notes", "caller is suspicious"), models.StatusSuspicious, models.ColorOrange, 0.60},
		{"score field wins over analysis", raw("analysis", "scam", "score", "10"), models.StatusSafe, models.ColorGreen, 0.10},
		{"boundary scam", raw("confidence", "0.8"), models.StatusScam, models.ColorRed, 0.80},
		{"boundary suspicious", raw("confidence", "50%"), models.StatusSuspicious, models.ColorOrange, 0.50},
		{"numeric score behind level field", raw("risk_level", "high", "spam_score", "92%"), models.StatusScam, models.ColorRed, 0.92},
		{"level only", raw("risk_level", "high", "analysis", "Caller wants a callback."), models.StatusScam, models.ColorRed, 0.95},
		{"medium level", raw("risk_level", "Medium"), models.StatusSuspicious, models.ColorOrange, 0.60},
		{"level with prose analysis", raw("risk_level", "low", "analysis", "This is a scam targeting seniors."), models.StatusScam, models.ColorRed, 0.95},
		{"negated scam prose", raw("analysis", "This call is not a scam, just a friend checking in."), models.StatusSafe, models.ColorGreen, 0.0},
		{"negated likely scam", raw("analysis", "Not likely a scam."), models.StatusSafe, models.ColorGreen, 0.0},
		{"no indicators prose", raw("analysis", "no scam indicators found"), models.StatusSafe, models.ColorGreen, 0.0},
		{"negated suspicious", raw("notes", "nothing suspicious here, caller is not suspicious"), models.StatusSafe, models.ColorGreen, 0.0},
		{"contraction negation", raw("result", "it isn't high risk"), models.StatusSafe, models.ColorGreen, 0.0},
		{"affirmed scam prose", raw("analysis", "This is a scam: the caller wants gift cards."), models.StatusScam, models.ColorRed, 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Map(tt.input)
			if got.Status != tt.status {
				t.Errorf("status = %s, want %s", got.Status, tt.status)
			}
			if got.Color != tt.color {
				t.Errorf("color = %s, want %s", got.Color, tt.color)
			}
			if got.Confidence == nil {
				t.Fatal("expected confidence to be set")
			}
			if diff := *got.Confidence - tt.confidence; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidence = %v, want %v", *got.Confidence, tt.confidence)
			}
		})
	}
}

func TestMap_ClassifierReplies(t *testing.T) {
	m := NewMapper(DefaultPolicy())

	tests := []struct {
		name       string
		reply      string
		status     models.Status
		confidence float64
	}{
		{"prompt shaped json", `{"spam_score": "92%", "risk_level": "high", "analysis": "Caller demands gift cards."}`, models.StatusScam, 0.92},
		{"prompt shaped low score", `{"spam_score": "8%", "risk_level": "low", "analysis": "Friendly reminder about dinner."}`, models.StatusSafe, 0.08},
		{"fenced json", "```json\n{\"spam_score\": \"65%\", \"risk_level\": \"medium\", \"analysis\": \"Unusual payment request.\"}\n```", models.StatusSuspicious, 0.65},
		{"level without score", `{"risk_level": "high", "analysis": "Caller impersonates the bank."}`, models.StatusScam, 0.95},
		{"negated prose reply", "This call is not a scam, just a friend checking in.", models.StatusSafe, 0.0},
		{"affirmed prose reply", "This is a scam. The caller demands a wire transfer.", models.StatusScam, 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Map(classifier.ParseFields(tt.reply))
			if got.Status != tt.status {
				t.Errorf("status = %s, want %s (%q)", got.Status, tt.status, got.Message)
			}
			if got.Confidence == nil {
				t.Fatal("expected confidence to be set")
			}
			if diff := *got.Confidence - tt.confidence; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidence = %v, want %v", *got.Confidence, tt.confidence)
			}
		})
	}
}

func TestMap_NoSignal(t *testing.T) {
	m := NewMapper(DefaultPolicy())

	for _, input := range []models.RawClassification{
		{},
		raw(),
		raw("analysis", "   ", "score", ""),
	} {
		got := m.Map(input)
		if got != models.ListeningVerdict() {
			t.Errorf("Map(%v) = %+v, want listening verdict", input.Fields, got)
		}
		if got.HasConfidence() {
			t.Errorf("expected no confidence for %v", input.Fields)
		}
	}
}

func TestMap_MessageEmbedsPercentage(t *testing.T) {
	m := NewMapper(DefaultPolicy())

	got := m.Map(raw("spam_score", "92%"))
	if got.Message != "Likely scam detected (92% risk)" {
		t.Errorf("unexpected message %q", got.Message)
	}
}

func TestMap_Idempotent(t *testing.T) {
	m := NewMapper(DefaultPolicy())
	input := raw("analysis", "possible fraud", "label", "medium risk", "spam", "n/a", "zz", "12%")

	first := m.Map(input)
	for i := 0; i < 20; i++ {
		got := m.Map(input)
		if got.Status != first.Status || got.Message != first.Message || *got.Confidence != *first.Confidence {
			t.Fatalf("iteration %d: %+v differs from %+v", i, got, first)
		}
	}
}

func TestSignal_Kinds(t *testing.T) {
	m := NewMapper(DefaultPolicy())

	tests := []struct {
		name  string
		input models.RawClassification
		kind  SignalKind
		field string
	}{
		{"numeric", raw("spam_score", "92%"), SignalNumericField, "spam_score"},
		{"keyword on selected", raw("verdict", "scam"), SignalKeywordFallback, "verdict"},
		{"score hint without number", raw("risk_level", "high", "spam_score", "92%"), SignalNumericField, "spam_score"},
		{"level field before analysis", raw("risk_level", "high", "analysis", "ok"), SignalKeywordFallback, "risk_level"},
		{"keyword on all", raw("foo", "bar"), SignalKeywordFallback, ""},
		{"no signal", raw(), SignalNoSignal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Signal(tt.input)
			if got.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", got.Kind, tt.kind)
			}
			if got.Field != tt.field {
				t.Errorf("field = %q, want %q", got.Field, tt.field)
			}
		})
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		found bool
	}{
		{"92%", 0.92, true},
		{"0.3", 0.3, true},
		{"1", 1.0, true},
		{"42.5", 0.425, true},
		{"score: 7 out of 10", 0.07, true},
		{"high", 0, false},
	}

	for _, tt := range tests {
		got, found := parseNumeric(tt.in)
		if found != tt.found {
			t.Errorf("parseNumeric(%q) found = %v, want %v", tt.in, found, tt.found)
			continue
		}
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("parseNumeric(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.VerdictConfig{
		ScamThreshold:        0.9,
		SuspiciousThreshold:  0.4,
		HighRiskConfidence:   0.99,
		MediumRiskConfidence: 0.45,
	})

	m := NewMapper(p)
	if got := m.Map(raw("score", "85%")); got.Status != models.StatusSuspicious {
		t.Errorf("expected SUSPICIOUS under raised scam threshold, got %s", got.Status)
	}
	if got := m.Map(raw("result", "medium risk")); got.Status != models.StatusSuspicious || *got.Confidence != 0.45 {
		t.Errorf("expected configured medium confidence, got %+v", got)
	}
	if len(p.ScoreHints) == 0 || len(p.HighRiskPhrases) == 0 {
		t.Error("expected default vocabulary to be kept")
	}
}
