package constants

import "strings"

// Format is the detected document format of an upload.
type Format string

const (
	PDF  Format = "PDF"
	DOCX Format = "DOCX"
	TXT  Format = "TXT"
	ZIP  Format = "ZIP"
)

// FileTypes holds the formats a single document can have once bundles are expanded.
// Markdown and .text files load as TXT.
var FileTypes = []Format{PDF, DOCX, TXT}

// AllowedExtensions holds the extensions accepted for upload, bundles included.
var AllowedExtensions = map[string]Format{
	"pdf":  PDF,
	"docx": DOCX,
	"txt":  TXT,
	"text": TXT,
	"md":   TXT,
	"zip":  ZIP,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns the format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) Format {
	return AllowedExtensions[NormalizeExt(ext)]
}
