package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/chatflow/summarizer"
	"github.com/BaSui01/chatflow/types"
)

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		wantID   string
	}{
		{"anthropic", "anthropic"},
		{"openai", "openai"},
		{"ollama", "ollama"},
		{"", "ollama"},
	}

	for _, tt := range tests {
		cfg := summarizer.DefaultConfig()
		cfg.Provider = tt.provider

		p, err := New(cfg, nil)
		require.NoError(t, err, "provider %q", tt.provider)
		assert.Equal(t, tt.wantID, p.ID())

		// The default config carries a rate limit, so the adapter comes
		// back wrapped.
		_, wrapped := p.(*summarizer.RateLimited)
		assert.True(t, wrapped)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	cfg := summarizer.DefaultConfig()
	cfg.Provider = "bard"

	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderNotFound, types.GetErrorCode(err))
	assert.True(t, types.IsConfiguration(err))
}

func TestNewWithoutRateLimit(t *testing.T) {
	cfg := summarizer.DefaultConfig()
	cfg.Provider = "ollama"
	cfg.RequestsPerSecond = 0

	p, err := New(cfg, nil)
	require.NoError(t, err)
	_, wrapped := p.(*summarizer.RateLimited)
	assert.False(t, wrapped)
}
