package extract

import (
	"log/slog"

	"github.com/joseph-ayodele/syllabus-review/constants"
)

// Extractor fills template columns from document text using a Catalog. It is safe
// for concurrent use; rules are compiled before the first call.
type Extractor struct {
	catalog *Catalog
	logger  *slog.Logger
}

func NewExtractor(catalog *Catalog, logger *slog.Logger) *Extractor {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{catalog: catalog, logger: logger}
}

// Plan reports how each template column resolves, in template order.
func (e *Extractor) Plan(columns []string) []ColumnPlan {
	out := make([]ColumnPlan, 0, len(columns))
	for _, col := range columns {
		p := ColumnPlan{Column: col}
		if entry, ok := e.catalog.Resolve(col); ok {
			p.Field = entry.Field
			p.Rules = len(entry.Rules)
			p.Fallback = entry.Fallback()
		}
		out = append(out, p)
	}
	return out
}

// Extract evaluates each column's rules in order and keeps the first match. Columns
// without a match stay blank; blank fallback-eligible columns are listed in Pending.
// The result depends only on the arguments.
func (e *Extractor) Extract(text, filename string, columns []string) Row {
	in := newInput(text, filename)
	row := Row{
		Values:  make(map[string]string, len(columns)),
		Origins: make(map[string]constants.Origin, len(columns)),
	}
	for _, col := range columns {
		row.Values[col] = ""
		row.Origins[col] = constants.OriginNone

		entry, ok := e.catalog.Resolve(col)
		if !ok {
			e.logger.Debug("extract.column.no_rules", "column", col)
			continue
		}
		for i := range entry.Rules {
			if v, ok := entry.Rules[i].Apply(in); ok {
				row.Values[col] = v
				row.Origins[col] = constants.OriginPattern
				e.logger.Debug("extract.column.match", "column", col, "field", entry.Field, "rule", i+1, "kind", entry.Rules[i].Kind)
				break
			}
		}
		if row.Values[col] == "" && entry.Fallback() {
			row.Pending = append(row.Pending, col)
		}
	}
	return row
}
