package template

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/extract"
)

// Template is the output schema of a review: ordered column names. YAML templates may
// also carry rules for columns the built-in catalog does not know.
type Template struct {
	Name    string                   `json:"name"`
	Format  string                   `json:"format"`
	Columns []string                 `json:"columns"`
	Rules   []extract.RuleFileColumn `json:"rules,omitempty"`
}

// Entries compiles the template's own rules into catalog entries.
func (t *Template) Entries() ([]extract.Entry, error) {
	out := make([]extract.Entry, 0, len(t.Rules))
	for _, col := range t.Rules {
		e, err := col.Entry()
		if err != nil {
			return nil, common.TemplateSchemaError("%s: %v", t.Name, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Parse reads a template by extension: .xlsx (first sheet, first non-empty row),
// .csv (first non-empty record) or .yaml/.yml. Every failure is a TemplateSchemaError.
func Parse(name string, data []byte) (*Template, error) {
	ext := constants.NormalizeExt(filepath.Ext(name))
	t := &Template{Name: filepath.Base(name), Format: ext}

	var (
		cells []string
		err   error
	)
	switch ext {
	case "xlsx":
		cells, err = xlsxHeader(data)
	case "csv":
		cells, err = csvHeader(data)
	case "yaml", "yml":
		cells, t.Rules, err = yamlHeader(data)
	default:
		return nil, common.TemplateSchemaError("%s: template extension %q is not supported (use .xlsx, .csv or .yaml)", t.Name, ext)
	}
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, common.TemplateSchemaError("%s: %v", t.Name, err)
	}

	t.Columns, err = validateHeader(t.Name, cells)
	if err != nil {
		return nil, err
	}
	if _, err := t.Entries(); err != nil {
		return nil, err
	}
	return t, nil
}

// New validates a column list built in code.
func New(name string, columns []string) (*Template, error) {
	cols, err := validateHeader(name, columns)
	if err != nil {
		return nil, err
	}
	return &Template{Name: name, Format: "inline", Columns: cols}, nil
}

func xlsxHeader(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unreadable workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
		}
		if !allBlank(cols) {
			return cols, nil
		}
	}
	return nil, rows.Error()
}

func csvHeader(data []byte) ([]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("malformed csv: %w", err)
		}
		if !allBlank(rec) {
			return rec, nil
		}
	}
}

// yamlColumn accepts either a bare name or a mapping with rules.
type yamlColumn struct {
	extract.RuleFileColumn
	hasRules bool
}

func (c *yamlColumn) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		c.Name = n.Value
		return nil
	}
	if err := n.Decode(&c.RuleFileColumn); err != nil {
		return err
	}
	c.hasRules = len(c.Rules) > 0
	return nil
}

func yamlHeader(data []byte) ([]string, []extract.RuleFileColumn, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("malformed yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil, nil
	}
	body := root.Content[0]

	var cols []yamlColumn
	switch body.Kind {
	case yaml.SequenceNode:
		if err := body.Decode(&cols); err != nil {
			return nil, nil, fmt.Errorf("malformed yaml: %w", err)
		}
	case yaml.MappingNode:
		var doc struct {
			Columns []yamlColumn `yaml:"columns"`
		}
		if err := body.Decode(&doc); err != nil {
			return nil, nil, fmt.Errorf("malformed yaml: %w", err)
		}
		cols = doc.Columns
	default:
		return nil, nil, fmt.Errorf("expected a list of columns or a 'columns' key")
	}

	names := make([]string, 0, len(cols))
	var rules []extract.RuleFileColumn
	for _, c := range cols {
		names = append(names, c.Name)
		if c.hasRules {
			rc := c.RuleFileColumn
			rc.Name = strings.TrimSpace(rc.Name)
			rules = append(rules, rc)
		}
	}
	return names, rules, nil
}

// validateHeader trims cells, drops trailing blanks and rejects headers that cannot
// define a table.
func validateHeader(name string, cells []string) ([]string, error) {
	cols := make([]string, len(cells))
	for i, c := range cells {
		cols[i] = strings.TrimSpace(c)
	}
	for len(cols) > 0 && cols[len(cols)-1] == "" {
		cols = cols[:len(cols)-1]
	}
	if len(cols) == 0 {
		return nil, common.TemplateSchemaError("%s: no header row", name)
	}

	seen := make(map[string]int, len(cols))
	for i, c := range cols {
		if c == "" {
			return nil, common.TemplateSchemaError("%s: header cell %d is blank", name, i+1)
		}
		if constants.IsReservedColumn(c) {
			return nil, common.TemplateSchemaError("%s: column %q is reserved", name, c)
		}
		key := strings.ToLower(c)
		if prev, dup := seen[key]; dup {
			return nil, common.TemplateSchemaError("%s: column %q repeats column %d", name, c, prev+1)
		}
		seen[key] = i
	}
	return cols, nil
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
