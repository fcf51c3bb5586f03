package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/core"
	"github.com/joseph-ayodele/syllabus-review/internal/export"
	"github.com/joseph-ayodele/syllabus-review/internal/ingest"
	repo "github.com/joseph-ayodele/syllabus-review/internal/repository"
	"github.com/joseph-ayodele/syllabus-review/internal/services/session"
	"github.com/joseph-ayodele/syllabus-review/internal/template"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir       = flag.String("dir", "", "directory of syllabi to review (required)")
		tplPath   = flag.String("template", "", "template file: .xlsx, .csv or .yaml (required)")
		out       = flag.String("out", "", "output XLSX file path (optional, defaults to <dir>/../syllabus-review.xlsx)")
		recursive = flag.Bool("recursive", true, "descend into subdirectories")
		warnings  = flag.Bool("warnings", true, "add a Warnings sheet")
		origins   = flag.Bool("origins", false, "add a Provenance sheet")
	)
	flag.Parse()

	if *dir == "" || *tplPath == "" {
		printError("Error: --dir and --template are required\n")
		flag.Usage()
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "syllabus-review.xlsx")
	}

	_ = godotenv.Load(".env")
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, err := os.ReadFile(*tplPath)
	if err != nil {
		printError("Error: read template: %v\n", err)
		os.Exit(1)
	}
	tpl, err := template.Parse(*tplPath, raw)
	if err != nil {
		printError("Error: %s\n", common.MessageOf(err))
		os.Exit(1)
	}

	uploads, scanWarnings, stats, err := ingest.CollectDirectory(ctx, *dir, ingest.Options{
		SkipHidden: true,
		Recursive:  *recursive,
		MaxBytes:   cfg.Batch.ZipMaxMemberBytes,
	}, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	for _, w := range scanWarnings {
		logger.Warn("ingest.skipped", "detail", w)
	}
	fmt.Printf("Found %d files\n", len(uploads))

	// One throwaway session, same path as the server.
	drv, err := repo.Open(ctx, repo.Config{}, logger)
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer repo.Close(drv, logger)

	pipeline, err := core.NewPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	sessions := session.NewService(
		repo.NewSessionRepository(drv, logger),
		repo.NewDocumentRepository(drv, logger),
		pipeline.Processor,
		pipeline.Catalog,
		export.NewService(logger),
		common.SessionConfig{MaxSessions: 1},
		logger,
	)

	sess, err := sessions.Create(ctx, tpl)
	if err != nil {
		printError("Error: %s\n", common.MessageOf(err))
		os.Exit(1)
	}
	tbl, err := sessions.ProcessIntake(ctx, sess.ID, uploads, scanWarnings)
	if err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
	xlsx, err := sessions.Export(ctx, sess.ID, export.Options{IncludeWarnings: *warnings, IncludeOrigins: *origins})
	if err != nil {
		logger.Error("failed to export review table", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	failed, unknown := 0, 0
	for _, row := range tbl.Rows {
		if row.Status != constants.DocumentStatusOK {
			failed++
			continue
		}
		for _, origin := range row.Origins {
			if origin == constants.OriginUnknown {
				unknown++
			}
		}
	}

	fmt.Printf("Batch review complete!\n")
	fmt.Printf("- Files scanned: %d (skipped %d)\n", stats.Scanned, stats.Skipped+stats.Failed)
	fmt.Printf("- Documents: %d\n", len(tbl.Rows))
	fmt.Printf("- Unreadable: %d\n", failed)
	fmt.Printf("- Unknown cells: %d\n", unknown)
	fmt.Printf("- Warnings: %d\n", len(tbl.Warnings))
	fmt.Printf("- Output: %s\n", *out)
}
