// Package ollama implements the summarizer backend for a locally-hosted
// ollama server. Local inference needs no API key and tolerates longer
// timeouts than the cloud backends.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/chatflow/summarizer"
	"github.com/BaSui01/chatflow/types"
)

const systemPrompt = "You compress chat transcripts into faithful summaries. Output only the summary text."

// Provider talks to an ollama /api/chat endpoint.
type Provider struct {
	cfg    summarizer.OllamaConfig
	client *http.Client
	logger *zap.Logger
}

// New creates an ollama summarizer.
func New(cfg summarizer.OllamaConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "summarizer.ollama")),
	}
}

func (p *Provider) ID() string { return "ollama" }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Summarize sends the excerpt to the local server as a non-streaming
// chat request.
func (p *Provider) Summarize(ctx context.Context, req summarizer.Request) (*summarizer.Summary, error) {
	body := ollamaRequest{
		Model: p.cfg.Model,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: summarizer.BuildPrompt(req)},
		},
		Stream:  false,
		Options: ollamaOptions{NumPredict: summarizer.MaxSummaryTokens(req)},
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/api/chat", strings.TrimRight(p.cfg.BaseURL, "/"))

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, summarizer.MapTransportError(err, p.ID())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, summarizer.MapHTTPError(resp.StatusCode, string(data), p.ID())
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to decode response").
			WithRetryable(true).
			WithProvider(p.ID()).
			WithCause(err)
	}

	summary := strings.TrimSpace(out.Message.Content)
	if summary == "" {
		return nil, summarizer.ErrEmpty(p.ID())
	}

	return &summarizer.Summary{
		Text:       summary,
		ProviderID: p.ID(),
		Model:      out.Model,
	}, nil
}
