package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/core"
	"github.com/joseph-ayodele/syllabus-review/internal/extract"
	"github.com/joseph-ayodele/syllabus-review/internal/llm"
	"github.com/joseph-ayodele/syllabus-review/internal/loader"
)

// llm asks the configured provider for one column of one syllabus and prints the raw
// answer next to what the resolver would keep. Useful for tuning prompts.
func main() {
	times := flag.Int("times", 1, "number of calls")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: llm [--times N] <file> <column>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}
	path, column := flag.Arg(0), flag.Arg(1)

	_ = godotenv.Load(".env")
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	provider, err := core.NewProvider(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Error("provider setup failed", "error", err)
		os.Exit(1)
	}
	if provider == nil {
		logger.Error("no LLM provider configured", "provider", cfg.LLM.Provider)
		os.Exit(2)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}
	name := filepath.Base(path)
	doc, err := loader.New(loader.Config{}, logger).Load(ctx, loader.Upload{Name: name, Data: data})
	if err != nil {
		logger.Error("load document", "path", path, "error", err)
		os.Exit(1)
	}

	plan := extract.NewExtractor(nil, logger).Plan([]string{column})[0]
	if !plan.Fallback {
		logger.Warn("column is not fallback-eligible, the pipeline would never ask", "column", column, "field", plan.Field)
	}
	req := llm.FieldRequest{
		Field:    plan.Field,
		Column:   column,
		Filename: name,
		Excerpt:  llm.Excerpt(doc.Text, cfg.LLM.ExcerptChars),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for i := 1; i <= *times; i++ {
		callCtx, cancelCall := context.WithTimeout(ctx, cfg.LLM.Timeout)
		start := time.Now()
		ans, raw, err := provider.ResolveField(callCtx, req)
		cancelCall()
		if err != nil {
			logger.Error("llm.run.error", "iter", i, "kind", llm.ClassifyError(err), "error", err)
			continue
		}
		kept, ok := llm.AcceptAnswer(ans)
		_ = enc.Encode(map[string]any{
			"iter":       i,
			"provider":   provider.Name(),
			"answer":     ans,
			"raw":        string(raw),
			"accepted":   ok,
			"cell":       cellValue(kept, ok),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	}
}

func cellValue(v string, ok bool) string {
	if ok {
		return v
	}
	return constants.ValueUnknown
}
