package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/syllabus-review/internal/table"
)

const (
	reviewSheet   = "Review"
	warningsSheet = "Warnings"
	originsSheet  = "Provenance"

	// Excel rejects longer cell text.
	maxCellChars = 32767
)

// Options tunes the workbook.
type Options struct {
	PreviewChars    int  // 0 keeps the table's preview as-is
	IncludeWarnings bool // add a Warnings sheet when the table has warnings
	IncludeOrigins  bool // add a Provenance sheet with the origin of every filled cell
}

// Service produces XLSX bytes for review tables.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportXLSX returns the table as a workbook: sheet "Review" with the table header in
// order and one row per document.
func (s *Service) ExportXLSX(ctx context.Context, tbl *table.ResultTable, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", reviewSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	header := tbl.Header()
	if err := writeRow(f, reviewSheet, 1, header); err != nil {
		return nil, err
	}
	for i, rec := range tbl.Records() {
		if opts.PreviewChars > 0 {
			rec[len(rec)-1] = table.Preview(rec[len(rec)-1], opts.PreviewChars)
		}
		if err := writeRow(f, reviewSheet, i+2, rec); err != nil {
			return nil, err
		}
	}
	if err := styleHeader(f, reviewSheet, len(header)); err != nil {
		return nil, err
	}

	// Widen columns: template columns, then source file, then preview.
	for i := range header {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := 24.0
		switch i {
		case len(header) - 2:
			width = 36
		case len(header) - 1:
			width = 80
		}
		_ = f.SetColWidth(reviewSheet, col, col, width)
	}

	if opts.IncludeWarnings && len(tbl.Warnings) > 0 {
		if err := addListSheet(f, warningsSheet, []string{"Warning"}, warningRows(tbl)); err != nil {
			return nil, err
		}
	}
	if opts.IncludeOrigins {
		if err := addListSheet(f, originsSheet, []string{"Source File", "Column", "Origin"}, originRows(tbl)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(tbl.Rows),
		"columns", len(header),
		"warnings", len(tbl.Warnings),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = truncate(v, maxCellChars)
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("xlsx row %d: %w", row, err)
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(cols)
	if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func addListSheet(f *excelize.File, sheet string, header []string, rows [][]string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, r := range rows {
		if err := writeRow(f, sheet, i+2, r); err != nil {
			return err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	_ = f.SetColWidth(sheet, "A", last, 48)
	return styleHeader(f, sheet, len(header))
}

func warningRows(tbl *table.ResultTable) [][]string {
	out := make([][]string, 0, len(tbl.Warnings))
	for _, w := range tbl.Warnings {
		out = append(out, []string{w})
	}
	return out
}

func originRows(tbl *table.ResultTable) [][]string {
	var out [][]string
	for _, r := range tbl.Rows {
		for _, col := range tbl.Columns {
			if o := r.Origins[col]; o != "" {
				out = append(out, []string{r.DisplayName, col, string(o)})
			}
		}
		if r.Note != "" {
			out = append(out, []string{r.DisplayName, "", "error " + r.ErrorCode + " (row " + strconv.Itoa(r.Index+1) + ")"})
		}
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 1 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-1]) + "…"
}
