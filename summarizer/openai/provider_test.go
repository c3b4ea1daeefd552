package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/chatflow/summarizer"
	"github.com/BaSui01/chatflow/types"
)

func sampleRequest() summarizer.Request {
	return summarizer.Request{
		Messages: []types.Message{
			{ID: "m1", Role: types.RoleUser, Text: "what did we decide about caching", Seq: 1, TokenCount: 8},
			{ID: "m2", Role: types.RoleModel, Text: "redis with a day of ttl", Seq: 2, TokenCount: 7},
		},
		TargetRetention: 0.5,
		SourceTokens:    800,
	}
}

func newTestProvider(url string) *Provider {
	return New(summarizer.OpenAIConfig{APIKey: "sk-test", BaseURL: url}, nil)
}

func TestSummarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 400, body.MaxTokens)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Contains(t, body.Messages[1].Content, "50%")

		json.NewEncoder(w).Encode(chatResponse{
			ID:    "chatcmpl-1",
			Model: "gpt-4o-mini",
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{
				{Message: chatMessage{Role: "assistant", Content: "They settled on redis with a 24h TTL."}},
			},
		})
	}))
	defer server.Close()

	sum, err := newTestProvider(server.URL).Summarize(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "They settled on redis with a 24h TTL.", sum.Text)
	assert.Equal(t, "openai", sum.ProviderID)
	assert.Equal(t, "gpt-4o-mini", sum.Model)
}

func TestSummarizeHTTPErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode types.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, types.ErrAuthentication},
		{"rate limited", http.StatusTooManyRequests, types.ErrRateLimited},
		{"gateway timeout", http.StatusGatewayTimeout, types.ErrTimeout},
		{"server error", http.StatusBadGateway, types.ErrUpstreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"message": "nope", "type": "api_error"},
				})
			}))
			defer server.Close()

			_, err := newTestProvider(server.URL).Summarize(context.Background(), sampleRequest())
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, types.GetErrorCode(err))
			assert.True(t, types.IsProvider(err))
		})
	}
}

func TestSummarizeNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{ID: "chatcmpl-1"})
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Summarize(context.Background(), sampleRequest())
	assert.Equal(t, types.ErrEmptySummary, types.GetErrorCode(err))
}

func TestSummarizeMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Summarize(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}
