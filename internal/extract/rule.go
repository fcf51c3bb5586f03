package extract

import (
	"path"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/syllabus-review/constants"
)

// RuleKind names how a rule looks for evidence.
type RuleKind string

const (
	// KindLabel matches a labeled line ("Instructor: ...") within the first WithinLines
	// lines. Capture group 1 is the value. With NextLine, an empty capture takes the
	// next non-empty line. More than one distinct value is ambiguous and does not match.
	KindLabel RuleKind = "label"
	// KindKeyword answers "Yes" when any phrase occurs as whole words, ignoring case.
	KindKeyword RuleKind = "keyword"
	// KindPattern runs a regex over the whole text. With a capture group it yields the
	// single distinct captured value; without one it answers "Yes" on any match.
	KindPattern RuleKind = "pattern"
	// KindFilename runs a regex over the document's base filename.
	KindFilename RuleKind = "filename"
	// KindEmail yields the only distinct e-mail address in the text.
	KindEmail RuleKind = "email"
	// KindCustom delegates to Fn.
	KindCustom RuleKind = "custom"
)

// Rule is one piece of evidence a column can be filled from.
type Rule struct {
	Kind        RuleKind
	Pattern     *regexp.Regexp
	Keywords    []string
	WithinLines int
	NextLine    bool
	MaxLen      int
	// Clean post-processes a captured value; an empty result means no match.
	Clean func(string) string
	Fn    func(in *Input) (string, bool)

	keywordRes []*regexp.Regexp
}

// Input is a document prepared once for all rules.
type Input struct {
	Text     string
	Lines    []string
	Filename string // base name without directories
}

func newInput(text, filename string) *Input {
	return &Input{
		Text:     text,
		Lines:    strings.Split(text, "\n"),
		Filename: path.Base(strings.ReplaceAll(filename, "\\", "/")),
	}
}

var reEmail = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// compile prepares keyword matchers. Catalogs compile every rule once, before use.
func (r *Rule) compile() {
	if r.Kind != KindKeyword || len(r.keywordRes) == len(r.Keywords) {
		return
	}
	r.keywordRes = make([]*regexp.Regexp, 0, len(r.Keywords))
	for _, kw := range r.Keywords {
		r.keywordRes = append(r.keywordRes, phraseRegexp(kw))
	}
}

// phraseRegexp matches kw as whole words with flexible inner whitespace.
func phraseRegexp(kw string) *regexp.Regexp {
	words := strings.Fields(strings.ToLower(kw))
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN])` + strings.Join(words, `\s+`) + `(?:$|[^\pL\pN])`)
}

// Apply evaluates the rule against in.
func (r *Rule) Apply(in *Input) (string, bool) {
	switch r.Kind {
	case KindLabel:
		return r.applyLabel(in)
	case KindKeyword:
		for _, re := range r.keywordRes {
			if re.MatchString(in.Text) {
				return constants.ValueYes, true
			}
		}
		return "", false
	case KindPattern:
		return r.applyPattern(in.Text)
	case KindFilename:
		name := strings.TrimSuffix(in.Filename, path.Ext(in.Filename))
		return r.applyPattern(name)
	case KindEmail:
		return single(r.finish, reEmail.FindAllString(in.Text, -1))
	case KindCustom:
		if r.Fn == nil {
			return "", false
		}
		return r.Fn(in)
	}
	return "", false
}

func (r *Rule) applyLabel(in *Input) (string, bool) {
	lines := in.Lines
	if r.WithinLines > 0 && len(lines) > r.WithinLines {
		lines = lines[:r.WithinLines]
	}
	var found []string
	for i, line := range lines {
		m := r.Pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v := ""
		if len(m) > 1 {
			v = strings.TrimSpace(m[1])
		}
		if v == "" && r.NextLine {
			v = nextNonEmpty(in.Lines, i+1)
		}
		found = append(found, v)
	}
	return single(r.finish, found)
}

func (r *Rule) applyPattern(s string) (string, bool) {
	if r.Pattern.NumSubexp() == 0 {
		if r.Pattern.MatchString(s) {
			return constants.ValueYes, true
		}
		return "", false
	}
	var found []string
	for _, m := range r.Pattern.FindAllStringSubmatch(s, -1) {
		found = append(found, m[1])
	}
	return single(r.finish, found)
}

// finish trims, cleans and bounds a captured value.
func (r *Rule) finish(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	if r.Clean != nil {
		v = r.Clean(v)
	}
	v = strings.TrimSpace(v)
	if r.MaxLen > 0 && len([]rune(v)) > r.MaxLen {
		return ""
	}
	return v
}

// single returns the only distinct non-empty value (case-insensitive), if exactly one.
func single(finish func(string) string, raw []string) (string, bool) {
	var (
		out  string
		seen = map[string]struct{}{}
	)
	for _, v := range raw {
		v = finish(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if out == "" {
			out = v
		}
	}
	if len(seen) != 1 {
		return "", false
	}
	return out, true
}

// reLabelLine matches a line that opens with its own label ("Email: ...").
var reLabelLine = regexp.MustCompile(`^\s*[\pL .]{1,40}:`)

// nextNonEmpty returns the first non-empty line among the next three, unless that
// line carries a label of its own.
func nextNonEmpty(lines []string, from int) string {
	for i := from; i < len(lines) && i < from+3; i++ {
		s := strings.TrimSpace(lines[i])
		if s == "" {
			continue
		}
		if reLabelLine.MatchString(s) {
			return ""
		}
		return s
	}
	return ""
}

// Label builds a KindLabel rule. pattern is compiled case-insensitively.
func Label(pattern string, within int, nextLine bool, maxLen int, clean func(string) string) Rule {
	return Rule{
		Kind:        KindLabel,
		Pattern:     regexp.MustCompile(`(?i)` + pattern),
		WithinLines: within,
		NextLine:    nextLine,
		MaxLen:      maxLen,
		Clean:       clean,
	}
}

// Keywords builds a KindKeyword rule.
func Keywords(phrases ...string) Rule {
	r := Rule{Kind: KindKeyword, Keywords: phrases}
	r.compile()
	return r
}

// Pattern builds a KindPattern rule from a compiled regex.
func Pattern(re *regexp.Regexp, maxLen int, clean func(string) string) Rule {
	return Rule{Kind: KindPattern, Pattern: re, MaxLen: maxLen, Clean: clean}
}

// Filename builds a KindFilename rule.
func Filename(re *regexp.Regexp, clean func(string) string) Rule {
	return Rule{Kind: KindFilename, Pattern: re, Clean: clean}
}

// Email builds a KindEmail rule.
func Email() Rule {
	return Rule{Kind: KindEmail, Clean: strings.ToLower}
}

// Custom builds a KindCustom rule.
func Custom(fn func(in *Input) (string, bool)) Rule {
	return Rule{Kind: KindCustom, Fn: fn}
}
