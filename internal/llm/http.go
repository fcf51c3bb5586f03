package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxReplyBytes caps how much of a provider reply is read into memory.
const maxReplyBytes = 4 << 20

// JSONPoster posts JSON bodies for one HTTP provider. Non-2xx replies come
// back as *StatusError so ClassifyError can decide on a retry.
type JSONPoster struct {
	Provider string
	Client   *http.Client
	Logger   *slog.Logger
}

// Post sends body to url and returns the raw reply body.
func (p JSONPoster) Post(ctx context.Context, url string, body any, header http.Header) ([]byte, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s encode request: %w", p.Provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("%s build request: %w", p.Provider, err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("llm.http.send_error", "provider", p.Provider, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%s http error: %w", p.Provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", p.Provider, err)
	}
	logger.Debug("llm.http.response",
		"provider", p.Provider,
		"status", resp.StatusCode,
		"request_bytes", len(bs),
		"reply_bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, &StatusError{Provider: p.Provider, Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
