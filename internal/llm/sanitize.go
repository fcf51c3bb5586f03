package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// CleanModelJSON strips Markdown fences and any text around the outermost JSON object.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// ```json ... ``` or ``` ... ```
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

// ParseFieldAnswer cleans, validates and decodes a model reply. The returned bytes are
// the cleaned JSON.
func ParseFieldAnswer(raw string) (FieldAnswer, []byte, error) {
	clean := []byte(CleanModelJSON(raw))
	if err := ValidateFieldAnswer(clean); err != nil {
		return FieldAnswer{}, clean, fmt.Errorf("schema validation failed: %w", err)
	}
	var out FieldAnswer
	if err := json.Unmarshal(clean, &out); err != nil {
		return FieldAnswer{}, clean, fmt.Errorf("unmarshal answer: %w", err)
	}
	return out, clean, nil
}

var (
	nonAnswers = map[string]struct{}{
		"unknown":       {}, "n/a": {}, "na": {}, "none": {}, "null": {}, "not found": {},
		"not provided":  {}, "not specified": {}, "not stated": {}, "not available": {},
		"not mentioned": {}, "tba": {}, "tbd": {}, "staff": {}, "-": {},
	}
	reAlternatives = regexp.MustCompile(`(?i)\s+or\s+|;|\s/\s|\band/or\b`)
)

// AcceptAnswer returns the value to store when the answer is a direct, single value.
// Anything else (not found, placeholders, alternatives, several lines) is rejected
// and the caller records "Unknown".
func AcceptAnswer(a FieldAnswer) (string, bool) {
	v := strings.TrimSpace(a.Value)
	if !a.Found || v == "" {
		return "", false
	}
	if strings.ContainsAny(v, "\r\n") {
		return "", false
	}
	if _, bad := nonAnswers[strings.ToLower(strings.Trim(v, " .\"'"))]; bad {
		return "", false
	}
	if reAlternatives.MatchString(v) {
		return "", false
	}
	return strings.Join(strings.Fields(v), " "), true
}
