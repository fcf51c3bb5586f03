package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

var errNoDocumentPart = errors.New("missing " + docxBodyPart)

// extractDOCX returns the non-empty paragraphs of the main document part joined by "\n".
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open package: %w", err)
	}
	var part *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", errNoDocumentPart
	}
	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", docxBodyPart, err)
	}
	defer rc.Close()

	paragraphs, err := readParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", docxBodyPart, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// readParagraphs walks WordprocessingML tokens. Text runs (w:t) are collected per
// paragraph (w:p); w:tab and w:br/w:cr inside a run (w:r) become a tab and a
// newline. Tab stop definitions under w:pPr/w:tabs are not content.
func readParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    []string
		cur    strings.Builder
		inText bool
		depth  int // nested w:p (text boxes)
		runs   int // open w:r
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
			case "r":
				runs++
			case "t":
				inText = true
			case "tab":
				if runs > 0 {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if runs > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				if runs > 0 {
					runs--
				}
			case "t":
				inText = false
			case "p":
				depth--
				if depth <= 0 {
					depth = 0
					if p := cur.String(); strings.TrimSpace(p) != "" {
						out = append(out, p)
					}
					cur.Reset()
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if p := cur.String(); strings.TrimSpace(p) != "" {
		out = append(out, p)
	}
	return out, nil
}
