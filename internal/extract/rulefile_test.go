package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/syllabus-review/constants"
)

const customRules = `
columns:
  - name: Mental Health Resources
    aliases: [wellness]
    rules:
      - kind: keyword
        keywords: [counseling center, mental health]
  - name: Modality
    rules:
      - kind: label
        pattern: '^\s*modality\s*:\s*(.*)$'
        within_lines: 20
        max_len: 30
`

func TestLoadRuleFile(t *testing.T) {
	entries, err := LoadRuleFile(strings.NewReader(customRules))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	cat := DefaultCatalog().Extend(entries...)
	ex := NewExtractor(cat, nil)
	text := "Modality: Hybrid\nVisit the Counseling Center for support.\n"
	row := ex.Extract(text, "x.txt", []string{"Mental Health Resources", "Wellness", "Modality"})

	assert.Equal(t, constants.ValueYes, row.Values["Mental Health Resources"])
	assert.Equal(t, constants.ValueYes, row.Values["Wellness"])
	assert.Equal(t, "Hybrid", row.Values["Modality"])

	row = ex.Extract("nothing", "x.txt", []string{"Modality"})
	assert.Empty(t, row.Pending, "custom columns never use the fallback")
}

func TestLoadRuleFile_Errors(t *testing.T) {
	tests := map[string]string{
		"missing name":  "columns:\n  - rules:\n      - kind: email\n",
		"no rules":      "columns:\n  - name: X\n",
		"bad kind":      "columns:\n  - name: X\n    rules:\n      - kind: magic\n",
		"bad regex":     "columns:\n  - name: X\n    rules:\n      - kind: pattern\n        pattern: '('\n",
		"label group":   "columns:\n  - name: X\n    rules:\n      - kind: label\n        pattern: '^x$'\n",
		"unknown field": "columns:\n  - name: X\n    colour: red\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRuleFile(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadRuleFilePath_Empty(t *testing.T) {
	entries, err := LoadRuleFilePath("")
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestExtend_FallbackColumnKeepsField(t *testing.T) {
	entries, err := LoadRuleFile(strings.NewReader(`
columns:
  - name: Faculty Name
    rules:
      - kind: label
        pattern: '^\s*lead\s*:\s*(.*)$'
`))
	require.NoError(t, err)
	ex := NewExtractor(DefaultCatalog().Extend(entries...), nil)

	plan := ex.Plan([]string{"Faculty Name"})
	assert.Equal(t, constants.FacultyName, plan[0].Field)
	assert.True(t, plan[0].Fallback)

	row := ex.Extract("Lead: Dr. Ada Byron\n", "x.txt", []string{"Faculty Name"})
	assert.Equal(t, "Dr. Ada Byron", row.Values["Faculty Name"])

	row = ex.Extract("Instructor: Dr. Jane Doe\n", "x.txt", []string{"Faculty Name"})
	assert.Equal(t, "Dr. Jane Doe", row.Values["Faculty Name"], "built-in rules still apply")

	row = ex.Extract("no names here\n", "x.txt", []string{"Faculty Name"})
	assert.Equal(t, "", row.Values["Faculty Name"])
	assert.Equal(t, []string{"Faculty Name"}, row.Pending)
}
