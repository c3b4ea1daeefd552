// Package openai implements the summarizer backend for OpenAI-compatible
// chat completion gateways. OpenAI itself, OpenRouter and Together all
// accept the same request shape, so the gateway is selected purely by
// BaseURL.
package openai

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

// Provider talks to an OpenAI-compatible chat completions endpoint.
type Provider struct {
	cfg    summarizer.OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// New creates an OpenAI-compatible summarizer.
func New(cfg summarizer.OpenAIConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "summarizer.openai")),
	}
}

func (p *Provider) ID() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatErrorResp struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Summarize sends the excerpt through the chat completions endpoint.
func (p *Provider) Summarize(ctx context.Context, req summarizer.Request) (*summarizer.Summary, error) {
	body := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: summarizer.BuildPrompt(req)},
		},
		MaxTokens: summarizer.MaxSummaryTokens(req),
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/v1/chat/completions", strings.TrimRight(p.cfg.BaseURL, "/"))

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, summarizer.MapTransportError(err, p.ID())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, summarizer.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), p.ID())
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to decode response").
			WithRetryable(true).
			WithProvider(p.ID()).
			WithCause(err)
	}

	if len(out.Choices) == 0 {
		return nil, summarizer.ErrEmpty(p.ID())
	}
	summary := strings.TrimSpace(out.Choices[0].Message.Content)
	if summary == "" {
		return nil, summarizer.ErrEmpty(p.ID())
	}

	return &summarizer.Summary{
		Text:       summary,
		ProviderID: p.ID(),
		Model:      out.Model,
	}, nil
}

func readErrMsg(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "unreadable error body"
	}
	var e chatErrorResp
	if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return string(data)
}
