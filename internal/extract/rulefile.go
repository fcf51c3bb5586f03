package extract

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/syllabus-review/constants"
)

// RuleFile is the YAML shape for site-specific columns:
//
//	columns:
//	  - name: Mental Health Resources
//	    aliases: [wellness]
//	    rules:
//	      - kind: keyword
//	        keywords: [counseling center, mental health]
//	      - kind: label
//	        pattern: '^wellness\s*:\s*(.*)$'
//	        within_lines: 30
type RuleFile struct {
	Columns []RuleFileColumn `yaml:"columns"`
}

type RuleFileColumn struct {
	Name    string         `yaml:"name" json:"name"`
	Aliases []string       `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Rules   []RuleFileRule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

type RuleFileRule struct {
	Kind          RuleKind `yaml:"kind" json:"kind"`
	Pattern       string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Keywords      []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	WithinLines   int      `yaml:"within_lines,omitempty" json:"within_lines,omitempty"`
	NextLine      bool     `yaml:"next_line,omitempty" json:"next_line,omitempty"`
	MaxLen        int      `yaml:"max_len,omitempty" json:"max_len,omitempty"`
	CaseSensitive bool     `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
}

// LoadRuleFile parses custom column entries.
func LoadRuleFile(r io.Reader) ([]Entry, error) {
	var rf RuleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode rule file: %w", err)
	}

	entries := make([]Entry, 0, len(rf.Columns))
	for i, col := range rf.Columns {
		e, err := col.Entry()
		if err != nil {
			return nil, fmt.Errorf("rule file: columns[%d]: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Entry compiles the column into a catalog entry. It is a custom field until
// Catalog.Extend finds a fallback-eligible built-in column with the same name.
func (col RuleFileColumn) Entry() (Entry, error) {
	name := strings.TrimSpace(col.Name)
	if name == "" {
		return Entry{}, fmt.Errorf("name is required")
	}
	if len(col.Rules) == 0 {
		return Entry{}, fmt.Errorf("%s: at least one rule is required", name)
	}
	e := Entry{Field: constants.CustomField, Name: name, Aliases: col.Aliases}
	for j, fr := range col.Rules {
		rule, err := fr.build()
		if err != nil {
			return Entry{}, fmt.Errorf("%s: rules[%d]: %w", name, j, err)
		}
		e.Rules = append(e.Rules, rule)
	}
	return e, nil
}

// LoadRuleFilePath reads a rule file from disk. An empty path yields no entries.
func LoadRuleFilePath(path string) ([]Entry, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule file: %w", err)
	}
	defer f.Close()
	return LoadRuleFile(f)
}

func (fr RuleFileRule) build() (Rule, error) {
	compile := func() (*regexp.Regexp, error) {
		if fr.Pattern == "" {
			return nil, fmt.Errorf("%s rule needs a pattern", fr.Kind)
		}
		p := fr.Pattern
		if !fr.CaseSensitive {
			p = "(?i)" + p
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern: %w", err)
		}
		if re.NumSubexp() > 1 {
			return nil, fmt.Errorf("pattern may have at most one capture group")
		}
		return re, nil
	}

	switch fr.Kind {
	case KindKeyword:
		if len(fr.Keywords) == 0 {
			return Rule{}, fmt.Errorf("keyword rule needs keywords")
		}
		return Keywords(fr.Keywords...), nil
	case KindLabel:
		re, err := compile()
		if err != nil {
			return Rule{}, err
		}
		if re.NumSubexp() != 1 {
			return Rule{}, fmt.Errorf("label pattern needs one capture group")
		}
		return Rule{Kind: KindLabel, Pattern: re, WithinLines: fr.WithinLines, NextLine: fr.NextLine, MaxLen: fr.MaxLen, Clean: cleanValue}, nil
	case KindPattern:
		re, err := compile()
		if err != nil {
			return Rule{}, err
		}
		return Pattern(re, fr.MaxLen, cleanValue), nil
	case KindFilename:
		re, err := compile()
		if err != nil {
			return Rule{}, err
		}
		return Filename(re, cleanValue), nil
	case KindEmail:
		return Email(), nil
	default:
		return Rule{}, fmt.Errorf("unknown rule kind %q", fr.Kind)
	}
}
