// Package anthropic implements the summarizer backend for the Anthropic
// messages API. Differences from the OpenAI dialect: authentication uses
// the x-api-key header, the system prompt travels in its own field, and
// content blocks are arrays.
package anthropic

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

// Provider talks to the Anthropic messages API.
type Provider struct {
	cfg    summarizer.AnthropicConfig
	client *http.Client
	logger *zap.Logger
}

// New creates an Anthropic summarizer.
func New(cfg summarizer.AnthropicConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
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
		logger: logger.With(zap.String("component", "summarizer.anthropic")),
	}
}

func (p *Provider) ID() string { return "anthropic" }

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Content []anthropicContent `json:"content"`
	Model   string             `json:"model"`
}

type anthropicErrorResp struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// Summarize sends the excerpt to the messages API as a single user turn.
func (p *Provider) Summarize(ctx context.Context, req summarizer.Request) (*summarizer.Summary, error) {
	body := anthropicRequest{
		Model:  p.cfg.Model,
		System: systemPrompt,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicContent{{Type: "text", Text: summarizer.BuildPrompt(req)}},
		}},
		MaxTokens: summarizer.MaxSummaryTokens(req),
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/v1/messages", strings.TrimRight(p.cfg.BaseURL, "/"))

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, summarizer.MapTransportError(err, p.ID())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, summarizer.MapHTTPError(resp.StatusCode, readErrMsg(resp.Body), p.ID())
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to decode response").
			WithRetryable(true).
			WithProvider(p.ID()).
			WithCause(err)
	}

	var text strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	summary := strings.TrimSpace(text.String())
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
	var e anthropicErrorResp
	if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return string(data)
}
