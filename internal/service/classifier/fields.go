package classifier

import (
	"strings"

	"github.com/tidwall/gjson"

	"scam-guard-service/internal/models"
)

// FallbackField holds the whole reply when an LLM answers in prose.
const FallbackField = "analysis"

// Prompt asks an LLM for a compact JSON verdict the mapper can read.
const Prompt = `You screen live phone calls for scams. Read the transcript and answer with a single JSON object and nothing else:
{"spam_score": "<0-100>%", "risk_level": "low|medium|high", "analysis": "<one sentence>"}`

// ParseFields flattens an LLM reply into a field bag.
// JSON objects (optionally wrapped in a code fence or surrounding prose) become
// one field per leaf, nested keys joined with dots. Anything else is kept whole
// under FallbackField.
func ParseFields(reply string) models.RawClassification {
	text := strings.TrimSpace(stripFence(reply))
	fields := make(map[string]string)
	if text == "" {
		return models.RawClassification{Fields: fields}
	}

	obj := extractObject(text)
	if obj == "" {
		fields[FallbackField] = text
		return models.RawClassification{Fields: fields}
	}

	flatten("", gjson.Parse(obj), fields)
	if len(fields) == 0 {
		fields[FallbackField] = text
	}
	return models.RawClassification{Fields: fields}
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func extractObject(s string) string {
	if gjson.Valid(s) && gjson.Parse(s).IsObject() {
		return s
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	candidate := s[start : end+1]
	if gjson.Valid(candidate) && gjson.Parse(candidate).IsObject() {
		return candidate
	}
	return ""
}

func flatten(prefix string, v gjson.Result, out map[string]string) {
	v.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		switch {
		case value.IsObject():
			flatten(name, value, out)
		case value.Type == gjson.String:
			out[name] = value.String()
		case value.Type == gjson.Null:
			out[name] = ""
		default:
			out[name] = value.Raw
		}
		return true
	})
}
