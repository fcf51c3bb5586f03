package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/syllabus-review/internal/llm"
)

// Config for the Gemini client.
type Config struct {
	APIKey      string
	Model       string // e.g., "gemini-2.0-flash"
	Temperature float32
	BaseURL     string // optional endpoint override
}

// Client implements llm.Provider on the Gemini Developer API.
type Client struct {
	cfg    Config
	genai  *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{cfg: cfg, genai: gc, logger: logger}, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) ResolveField(ctx context.Context, req llm.FieldRequest) (llm.FieldAnswer, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.resolve.start",
		"req_id", rid,
		"provider", c.Name(),
		"model", c.cfg.Model,
		"field", req.Field,
		"doc", req.Filename,
		"excerpt_len", len(req.Excerpt),
	)

	conf := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(c.cfg.Temperature),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(llm.BuildSystemPrompt(req), genai.RoleUser),
	}
	resp, err := c.genai.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(llm.BuildUserPrompt(req)), conf)
	if err != nil {
		c.logger.Warn("llm.resolve.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.FieldAnswer{}, nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return llm.FieldAnswer{}, nil, fmt.Errorf("gemini: empty response from model")
	}
	out, content, err := llm.ParseFieldAnswer(text)
	if err != nil {
		c.logger.Error("llm.resolve.schema_validation_failed",
			"req_id", rid, "error", err, "content", string(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.FieldAnswer{}, content, err
	}

	c.logger.Info("llm.resolve.ok",
		"req_id", rid,
		"provider", c.Name(),
		"field", req.Field,
		"found", out.Found,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, content, nil
}
