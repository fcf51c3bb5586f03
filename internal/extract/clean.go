package extract

import (
	"regexp"
	"strings"
	"unicode"
)

var placeholders = map[string]struct{}{
	"tba":        {}, "tbd": {}, "staff": {}, "n/a": {}, "na": {}, "none listed": {},
	"various":    {}, "to be announced": {}, "to be determined": {}, "see below": {},
	"see canvas": {}, "unknown": {},
}

func isPlaceholder(v string) bool {
	_, ok := placeholders[strings.ToLower(strings.Trim(v, " .:-"))]
	return ok
}

var reNameStop = regexp.MustCompile(`(?i)(?:\s*[|;(<\[\t]|\s+[-–]\s+|,\s*(?:e-?mail|office|phone|tel|ph\.?\s?d|ed\.?\s?d)|\s+(?:e-?mail|office|phone|tel)\b).*$`)

// cleanPersonName keeps the name part of an instructor line: contact details,
// degrees after a comma and anything after a separator are dropped.
func cleanPersonName(v string) string {
	v = reEmail.ReplaceAllString(v, "")
	v = reNameStop.ReplaceAllString(v, "")
	v = strings.Trim(v, " :-–,")
	if v == "" || isPlaceholder(v) || !hasLetter(v) {
		return ""
	}
	if len(strings.Fields(v)) > 6 {
		return ""
	}
	return v
}

// cleanValue trims separators and rejects placeholders such as "TBA".
func cleanValue(v string) string {
	v = strings.Trim(v, " :-–,;")
	if v == "" || isPlaceholder(v) || !hasLetterOrDigit(v) {
		return ""
	}
	return v
}

func cleanEmail(v string) string {
	return strings.ToLower(strings.Trim(v, " .,;:<>()[]"))
}

var reNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

func cleanNumber(v string) string {
	return reNumber.FindString(v)
}

// cleanTerm normalizes "FALL  2024" to "Fall 2024".
func cleanTerm(v string) string {
	words := strings.Fields(v)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return cleanValue(strings.Join(words, " "))
}

func titleWord(w string) string {
	r := []rune(strings.ToLower(w))
	if len(r) == 0 {
		return w
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func hasLetterOrDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0
}
