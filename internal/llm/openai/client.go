package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/syllabus-review/internal/llm"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
)

// Config for the chat/completions client. Timeout bounds one HTTP exchange;
// the resolver applies its own per-attempt deadline on top.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg    Config
	poster llm.JSONPoster
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		poster: llm.JSONPoster{Provider: "openai", Client: &http.Client{Timeout: cfg.Timeout}, Logger: logger},
		logger: logger,
	}
}

func (c *Client) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float32           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []chatMessage     `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ResolveField asks for one field in JSON mode and validates the reply
// against the field answer schema.
func (c *Client) ResolveField(ctx context.Context, req llm.FieldRequest) (llm.FieldAnswer, []byte, error) {
	start := time.Now()
	schema, _ := json.Marshal(llm.BuildFieldJSONSchema())
	body := chatRequest{
		Model:          c.cfg.Model,
		Temperature:    c.cfg.Temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: llm.BuildSystemPrompt(req) + "\nJSON Schema: " + string(schema)},
			{Role: "user", Content: llm.BuildUserPrompt(req)},
		},
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	raw, err := c.poster.Post(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", body, header)
	if err != nil {
		return llm.FieldAnswer{}, nil, err
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return llm.FieldAnswer{}, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return llm.FieldAnswer{}, raw, errors.New("no choices in openai response")
	}

	ans, content, err := llm.ParseFieldAnswer(cr.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("llm.openai.bad_answer", "field", req.Field, "doc", req.Filename, "error", err)
		return llm.FieldAnswer{}, content, err
	}
	c.logger.Debug("llm.openai.answer",
		"field", req.Field,
		"doc", req.Filename,
		"found", ans.Found,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ans, content, nil
}
