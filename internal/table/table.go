package table

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/common"
)

// DocumentResult is everything the pipeline learned about one document.
type DocumentResult struct {
	SourceName string
	Status     constants.DocumentStatus
	ErrorCode  string
	Note       string // diagnostic message for failed documents
	Text       string
	Pages      int
	Values     map[string]string
	Origins    map[string]constants.Origin
}

// Row is one document in the review table.
type Row struct {
	Index       int                         `json:"index"`
	SourceName  string                      `json:"source_name"`
	DisplayName string                      `json:"display_name"`
	Status      constants.DocumentStatus    `json:"status"`
	ErrorCode   string                      `json:"error_code,omitempty"`
	Note        string                      `json:"note,omitempty"`
	Pages       int                         `json:"pages,omitempty"`
	Values      map[string]string           `json:"values"`
	Origins     map[string]constants.Origin `json:"origins"`
	Preview     string                      `json:"preview"`
	Text        string                      `json:"-"`
}

// ResultTable is the ordered, editable outcome of one batch.
type ResultTable struct {
	Columns       []string `json:"columns"`
	Rows          []*Row   `json:"rows"`
	Warnings      []string `json:"warnings,omitempty"`
	DocumentCount int      `json:"document_count"`
}

// Options tunes Build.
type Options struct {
	PreviewChars int // 0 means constants.DefaultPreviewChars
}

// Build assembles the table in input order, one row per result. Template columns are
// copied into every row so the header is identical across rows.
func Build(columns []string, results []DocumentResult, warnings []string, opts Options) *ResultTable {
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = constants.DefaultPreviewChars
	}
	t := &ResultTable{
		Columns:       append([]string(nil), columns...),
		Rows:          make([]*Row, 0, len(results)),
		Warnings:      append([]string(nil), warnings...),
		DocumentCount: len(results),
	}
	seen := &names{count: make(map[string]int, len(results)), used: make(map[string]struct{}, len(results))}
	for i, res := range results {
		row := &Row{
			Index:       i,
			SourceName:  res.SourceName,
			DisplayName: seen.displayName(res.SourceName),
			Status:      res.Status,
			ErrorCode:   res.ErrorCode,
			Note:        res.Note,
			Pages:       res.Pages,
			Values:      make(map[string]string, len(columns)),
			Origins:     make(map[string]constants.Origin, len(columns)),
			Text:        res.Text,
		}
		if row.Status == "" {
			row.Status = constants.DocumentStatusOK
		}
		for _, col := range columns {
			if row.Status == constants.DocumentStatusOK {
				row.Values[col] = res.Values[col]
				row.Origins[col] = res.Origins[col]
			} else {
				row.Values[col] = ""
				row.Origins[col] = constants.OriginNone
			}
		}
		if row.Status == constants.DocumentStatusOK {
			row.Preview = Preview(res.Text, opts.PreviewChars)
		} else {
			row.Preview = diagnostic(res)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// FailedResult is the result for a document the loader could not read.
func FailedResult(name string, err error) DocumentResult {
	return DocumentResult{
		SourceName: name,
		Status:     constants.DocumentStatusFailed,
		ErrorCode:  common.CodeOf(err),
		Note:       common.MessageOf(err),
	}
}

// names tracks display names handed out so far, case-insensitively.
type names struct {
	count map[string]int
	used  map[string]struct{}
}

// displayName returns name for its first occurrence and "name (n)" after that,
// bumping n past any display name already in use.
func (ns *names) displayName(name string) string {
	key := strings.ToLower(name)
	n := ns.count[key] + 1
	out := name
	if n > 1 {
		out = fmt.Sprintf("%s (%d)", name, n)
	}
	for {
		if _, taken := ns.used[strings.ToLower(out)]; !taken {
			break
		}
		n++
		out = fmt.Sprintf("%s (%d)", name, n)
	}
	ns.count[key] = n
	ns.used[strings.ToLower(out)] = struct{}{}
	return out
}

func diagnostic(res DocumentResult) string {
	label := "could not read document"
	switch res.ErrorCode {
	case common.CodeUnsupportedFormat:
		label = "unsupported format"
	case common.CodeUnreadableDocument:
		label = "unreadable document"
	}
	if res.Note == "" {
		return "[" + label + "]"
	}
	return "[" + label + "] " + res.Note
}

// Preview returns the first n characters of text.
func Preview(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

// Header is the template columns, then the provenance and preview columns.
func (t *ResultTable) Header() []string {
	h := make([]string, 0, len(t.Columns)+2)
	h = append(h, t.Columns...)
	return append(h, constants.ProvenanceColumn, constants.PreviewColumn)
}

// Records returns one string slice per row in Header order.
func (t *ResultTable) Records() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make([]string, 0, len(t.Columns)+2)
		for _, col := range t.Columns {
			rec = append(rec, r.Values[col])
		}
		rec = append(rec, r.DisplayName, r.Preview)
		out = append(out, rec)
	}
	return out
}

// Row returns the row at index i.
func (t *ResultTable) Row(i int) (*Row, error) {
	if i < 0 || i >= len(t.Rows) {
		return nil, common.NewAppError(common.CodeNotFound, fmt.Sprintf("row %d does not exist", i), common.ErrNotFound)
	}
	return t.Rows[i], nil
}

// HasColumn reports whether column is a template column.
func (t *ResultTable) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// SetCell overwrites one template cell and marks it as edited by the user. The
// provenance and preview columns are read-only.
func (t *ResultTable) SetCell(row int, column, value string) (*Row, error) {
	r, err := t.Row(row)
	if err != nil {
		return nil, err
	}
	if constants.IsReservedColumn(column) {
		return nil, common.NewAppError(common.CodeInvalidInput, fmt.Sprintf("column %q is read-only", column), common.ErrInvalidInput)
	}
	if !t.HasColumn(column) {
		return nil, common.NewAppError(common.CodeNotFound, fmt.Sprintf("column %q is not in the template", column), common.ErrNotFound)
	}
	r.Values[column] = value
	r.Origins[column] = constants.OriginUser
	return r, nil
}
