package table

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/common"
)

var cols = []string{"Course Name & Number", "Faculty Name"}

func okResult(name, course, faculty, text string) DocumentResult {
	return DocumentResult{
		SourceName: name,
		Status:     constants.DocumentStatusOK,
		Text:       text,
		Values:     map[string]string{"Course Name & Number": course, "Faculty Name": faculty},
		Origins: map[string]constants.Origin{
			"Course Name & Number": constants.OriginLLM,
			"Faculty Name":         constants.OriginPattern,
		},
	}
}

func TestBuild(t *testing.T) {
	results := []DocumentResult{
		okResult("a.txt", "ENG 101", "Dr. Jane Doe", "Instructor: Dr. Jane Doe"),
		FailedResult("bundle.zip/b.pdf", common.UnreadableDocumentError("bundle.zip/b.pdf", "corrupt pdf", errors.New("bad xref"))),
		okResult("a.txt", "BIO 210", "Unknown", "other"),
		okResult("A.TXT", "", "", "x"),
	}
	tbl := Build(cols, results, []string{"bundle.zip: skipped logo.png"}, Options{})

	require.Len(t, tbl.Rows, 4)
	assert.Equal(t, 4, tbl.DocumentCount)
	assert.Equal(t, []string{"Course Name & Number", "Faculty Name", "Source File", "Text Preview"}, tbl.Header())

	assert.Equal(t, "a.txt", tbl.Rows[0].DisplayName)
	assert.Equal(t, "a.txt (2)", tbl.Rows[2].DisplayName)
	assert.Equal(t, "A.TXT (3)", tbl.Rows[3].DisplayName)
	assert.Equal(t, "a.txt", tbl.Rows[2].SourceName)

	failed := tbl.Rows[1]
	assert.Equal(t, constants.DocumentStatusFailed, failed.Status)
	assert.Equal(t, common.CodeUnreadableDocument, failed.ErrorCode)
	assert.Equal(t, "", failed.Values["Course Name & Number"])
	assert.Equal(t, "", failed.Values["Faculty Name"])
	assert.True(t, strings.HasPrefix(failed.Preview, "[unreadable document] "), failed.Preview)
	assert.Contains(t, failed.Preview, "corrupt pdf")

	recs := tbl.Records()
	require.Len(t, recs, 4)
	for _, r := range recs {
		assert.Len(t, r, len(tbl.Header()))
	}
	assert.Equal(t, []string{"ENG 101", "Dr. Jane Doe", "a.txt", "Instructor: Dr. Jane Doe"}, recs[0])
	assert.Equal(t, []string{"bundle.zip: skipped logo.png"}, tbl.Warnings)
}

func TestBuild_DisplayNamesAreUnique(t *testing.T) {
	tests := map[string]struct {
		in   []string
		want []string
	}{
		"suffixed upload after duplicates": {
			in:   []string{"a.txt", "a.txt", "a.txt (2)"},
			want: []string{"a.txt", "a.txt (2)", "a.txt (2) (2)"},
		},
		"suffixed upload first": {
			in:   []string{"a.txt (2)", "a.txt", "a.txt", "a.txt"},
			want: []string{"a.txt (2)", "a.txt", "a.txt (3)", "a.txt (4)"},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			results := make([]DocumentResult, 0, len(tt.in))
			for _, n := range tt.in {
				results = append(results, okResult(n, "", "", "x"))
			}
			tbl := Build(cols, results, nil, Options{})
			got := make([]string, 0, len(tbl.Rows))
			for _, r := range tbl.Rows {
				got = append(got, r.DisplayName)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_Preview(t *testing.T) {
	text := strings.Repeat("é", 2500)
	tbl := Build(cols, []DocumentResult{okResult("a.txt", "", "", text)}, nil, Options{})
	assert.Equal(t, 2000, len([]rune(tbl.Rows[0].Preview)))
	assert.Equal(t, text, tbl.Rows[0].Text)

	tbl = Build(cols, []DocumentResult{okResult("a.txt", "", "", text)}, nil, Options{PreviewChars: 10})
	assert.Equal(t, strings.Repeat("é", 10), tbl.Rows[0].Preview)
}

func TestBuild_Empty(t *testing.T) {
	tbl := Build(cols, nil, nil, Options{})
	assert.Empty(t, tbl.Rows)
	assert.Empty(t, tbl.Records())
	assert.Equal(t, 0, tbl.DocumentCount)
}

func TestSetCell(t *testing.T) {
	tbl := Build(cols, []DocumentResult{okResult("a.txt", "", "Unknown", "x")}, nil, Options{})

	row, err := tbl.SetCell(0, "Faculty Name", "Dr. Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ada Lovelace", row.Values["Faculty Name"])
	assert.Equal(t, constants.OriginUser, row.Origins["Faculty Name"])

	_, err = tbl.SetCell(0, constants.ProvenanceColumn, "x")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = tbl.SetCell(0, "Reviewer", "x")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = tbl.SetCell(5, "Faculty Name", "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
