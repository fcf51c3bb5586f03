package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/loader"
)

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned int
	Matched int
	Skipped int
	Failed  int
}

// Options tunes CollectDirectory.
type Options struct {
	SkipHidden bool
	Recursive  bool
	MaxBytes   int64 // files above this size are skipped; 0 means unlimited
}

// CollectDirectory reads every supported file under root into uploads, sorted by
// relative path so batch order does not depend on the filesystem. Names are paths
// relative to root. Unreadable files are reported as warnings and skipped.
func CollectDirectory(ctx context.Context, root string, opts Options, logger *slog.Logger) ([]loader.Upload, []string, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, nil, stats, errors.New("root path is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, stats, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil, stats, fmt.Errorf("%s is not a directory", root)
	}

	var (
		paths    []string
		warnings []string
	)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			stats.Failed++
			warnings = append(warnings, fmt.Sprintf("%s: %v", path, walkErr))
			return nil
		}
		if path == root {
			return nil
		}
		if opts.SkipHidden && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		stats.Scanned++
		if constants.MapExtToFormat(filepath.Ext(path)) == "" {
			stats.Skipped++
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, warnings, stats, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(paths)

	uploads := make([]loader.Upload, 0, len(paths))
	for _, path := range paths {
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if opts.MaxBytes > 0 {
			if fi, err := os.Stat(path); err == nil && fi.Size() > opts.MaxBytes {
				stats.Skipped++
				warnings = append(warnings, fmt.Sprintf("%s: %d bytes exceeds the %d byte limit", rel, fi.Size(), opts.MaxBytes))
				continue
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			stats.Failed++
			warnings = append(warnings, fmt.Sprintf("%s: %v", rel, err))
			logger.Warn("ingest.file.unreadable", "path", path, "error", err)
			continue
		}
		stats.Matched++
		uploads = append(uploads, loader.Upload{Name: rel, Data: data})
	}
	logger.Info("ingest.directory.scanned",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return uploads, warnings, stats, nil
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
