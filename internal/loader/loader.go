package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/common"
)

// Config tunes bundle expansion.
type Config struct {
	MaxMemberBytes int64 // 0 means unlimited
}

type pdfReader func(data []byte, logger *slog.Logger) (string, int, error)

// Loader turns uploads into plain text documents. It keeps no state between calls.
type Loader struct {
	cfg     Config
	logger  *slog.Logger
	readPDF pdfReader
}

func New(cfg Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cfg: cfg, logger: logger, readPDF: extractPDF}
}

// Expand turns a ZIP upload into its supported members. Any other upload is returned
// as-is. Skipped members are reported as warnings. A corrupt archive fails with an
// UnreadableDocument error for the archive itself.
func (l *Loader) Expand(up Upload) ([]Upload, []string, error) {
	if constants.MapExtToFormat(filepath.Ext(up.Name)) != constants.ZIP {
		return []Upload{up}, nil, nil
	}
	members, warnings, err := expandZip(up.Name, up.Data, l.cfg.MaxMemberBytes)
	if err != nil {
		l.logger.Warn("loader.zip.unreadable", "doc", up.Name, "error", err)
		return nil, nil, common.UnreadableDocumentError(up.Name, "corrupt zip archive", err)
	}
	for _, w := range warnings {
		l.logger.Warn("loader.zip.member_skipped", "doc", up.Name, "detail", w)
	}
	l.logger.Info("loader.zip.expanded", "doc", up.Name, "members", len(members), "skipped", len(warnings))
	return members, warnings, nil
}

// Load detects the upload's format from its extension and extracts normalized text.
// It fails with UnsupportedFormat for unknown extensions (ZIP included, expand first)
// and UnreadableDocument for corrupt files or files without a text layer.
func (l *Loader) Load(ctx context.Context, up Upload) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(up.Name))
	format := constants.MapExtToFormat(ext)
	doc := Document{Name: up.Name, Format: format}

	var (
		raw string
		err error
	)
	switch format {
	case constants.PDF:
		err = guard(func() (err error) {
			raw, doc.Pages, err = l.readPDF(up.Data, l.logger.With("doc", up.Name))
			return err
		})
	case constants.DOCX:
		err = guard(func() (err error) {
			raw, err = extractDOCX(up.Data)
			return err
		})
	case constants.TXT:
		raw = extractText(up.Data)
	default:
		l.logger.Warn("loader.unsupported_format", "doc", up.Name, "ext", ext)
		return doc, common.UnsupportedFormatError(up.Name, ext)
	}
	if err != nil {
		l.logger.Warn("loader.unreadable", "doc", up.Name, "format", format, "error", err)
		return doc, common.UnreadableDocumentError(up.Name, "corrupt "+strings.ToLower(string(format)), err)
	}

	doc.Text = Normalize(raw)
	if doc.Text == "" {
		reason := "no extractable text"
		if format == constants.PDF {
			reason = "no text layer (scanned or image-only pdf)"
		}
		l.logger.Warn("loader.empty_text", "doc", up.Name, "format", format, "pages", doc.Pages)
		return doc, common.UnreadableDocumentError(up.Name, reason, nil)
	}

	l.logger.Debug("loader.ok",
		"doc", up.Name,
		"format", format,
		"pages", doc.Pages,
		"text_len", len(doc.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// guard turns a parser panic into an error so one malformed file stays one failed row.
func guard(read func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return read()
}
