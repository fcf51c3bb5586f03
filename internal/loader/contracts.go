package loader

import (
	"context"

	"github.com/joseph-ayodele/syllabus-review/constants"
)

// Upload is one file as received, before format detection.
type Upload struct {
	Name string
	Data []byte
}

// Document is a loaded source document with its extracted plain text.
type Document struct {
	Name   string
	Format constants.Format
	Text   string
	Pages  int // PDF only
}

// TextLoader turns an upload into a Document.
type TextLoader interface {
	Load(ctx context.Context, up Upload) (Document, error)
}
