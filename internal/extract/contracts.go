package extract

import "github.com/joseph-ayodele/syllabus-review/constants"

// FieldExtractor fills template columns from document text: text -> row.
type FieldExtractor interface {
	Extract(text, filename string, columns []string) Row
}

// Row is the pattern-extraction result for one document. Every template column has
// an entry in Values, blank when no rule matched.
type Row struct {
	Values  map[string]string
	Origins map[string]constants.Origin
	// Pending lists fallback-eligible columns left blank, in template order.
	Pending []string
}

// ColumnPlan is how one template column resolved against the catalog.
type ColumnPlan struct {
	Column   string          `json:"column"`
	Field    constants.Field `json:"field,omitempty"`
	Rules    int             `json:"rules"`
	Fallback bool            `json:"fallback"`
}
