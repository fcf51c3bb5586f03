package llm

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/syllabus-review/constants"
)

// fieldGuides describe what a fallback-eligible field looks like in a syllabus.
var fieldGuides = map[constants.Field]string{
	constants.CourseNameNumber: "the course designation: subject code and number followed by the course title " +
		"when it is given (for example \"ENG 101 Composition I\"). Do not return a section number, CRN, room or term.",
	constants.FacultyName: "the full name of the instructor of record, with a title such as \"Dr.\" only if the " +
		"document uses one. Do not return teaching assistants, department chairs or staff.",
}

// BuildSystemPrompt composes the fixed instruction for a single field.
func BuildSystemPrompt(req FieldRequest) string {
	guide, ok := fieldGuides[req.Field]
	if !ok {
		guide = "the value for the column \"" + req.Column + "\"."
	}
	parts := []string{
		"You review course syllabi for compliance. Return ONLY JSON that matches the provided JSON Schema.",
		"Find " + guide,
		"Answer with {\"value\": \"...\", \"found\": true} only when the document states it directly.",
		"If it is missing, unclear, or more than one candidate fits, answer {\"value\": \"\", \"found\": false}.",
		"Never guess. Never list alternatives. Copy the value as written, on one line.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the filename hint and the document excerpt.
func BuildUserPrompt(req FieldRequest) string {
	var b strings.Builder
	if name := strings.TrimSpace(req.Filename); name != "" {
		b.WriteString("Filename: ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString("Column: ")
	b.WriteString(req.Column)
	b.WriteString("\n\nSyllabus text:\n")
	b.WriteString(strings.TrimSpace(req.Excerpt))
	return b.String()
}

// Excerpt returns at most max characters of text, cut at a line break when one is
// close to the limit.
func Excerpt(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	r := []rune(text)[:max]
	cut := string(r)
	if i := strings.LastIndexByte(cut, '\n'); i > len(cut)*3/4 {
		cut = cut[:i]
	}
	return cut + "\n…(truncated)"
}
