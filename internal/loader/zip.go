package loader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/joseph-ayodele/syllabus-review/constants"
)

// expandZip returns the supported members of a ZIP bundle in archive order.
// Members that cannot become documents are reported as warnings.
func expandZip(name string, data []byte, maxMemberBytes int64) ([]Upload, []string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, err
	}

	var (
		out      []Upload
		warnings []string
	)
	skip := func(member, reason string) {
		warnings = append(warnings, fmt.Sprintf("%s: skipped %s: %s", name, member, reason))
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		base := path.Base(f.Name)
		if strings.HasPrefix(f.Name, "__MACOSX/") || strings.HasPrefix(base, ".") {
			skip(f.Name, "hidden or metadata file")
			continue
		}
		format := constants.MapExtToFormat(path.Ext(base))
		if format == constants.ZIP {
			skip(f.Name, "nested archives are not expanded")
			continue
		}
		if !slices.Contains(constants.FileTypes, format) {
			skip(f.Name, "unsupported format")
			continue
		}
		if maxMemberBytes > 0 && f.UncompressedSize64 > uint64(maxMemberBytes) {
			skip(f.Name, fmt.Sprintf("larger than %d bytes", maxMemberBytes))
			continue
		}

		b, err := readMember(f, maxMemberBytes)
		if err != nil {
			skip(f.Name, err.Error())
			continue
		}
		out = append(out, Upload{Name: name + "/" + base, Data: b})
	}
	return out, warnings, nil
}

func readMember(f *zip.File, maxBytes int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open member: %w", err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if maxBytes > 0 {
		r = io.LimitReader(rc, maxBytes+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read member: %w", err)
	}
	if maxBytes > 0 && int64(len(b)) > maxBytes {
		return nil, fmt.Errorf("larger than %d bytes", maxBytes)
	}
	return b, nil
}
