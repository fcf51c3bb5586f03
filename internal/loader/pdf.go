package loader

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disablePDFConfigDir sync.Once

// pdfConfig returns a relaxed pdfcpu configuration that never touches the user config dir.
func pdfConfig() *model.Configuration {
	disablePDFConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// extractPDF validates the file structure with pdfcpu and then reads the text layer
// page by page. Pages are joined by "\n". A file that pdfcpu rejects is corrupt; a file
// with no text on any page is image-only.
func extractPDF(data []byte, logger *slog.Logger) (text string, pages int, err error) {
	// pdfcpu and the text reader both panic on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	pages, err = api.PageCount(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return "", 0, fmt.Errorf("validate pdf: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", pages, fmt.Errorf("open pdf: %w", err)
	}

	parts := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, perr := p.GetPlainText(nil)
		if perr != nil {
			logger.Warn("loader.pdf.page_error", "page", i, "error", perr)
			continue
		}
		if strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n"), pages, nil
}
