// Package registry constructs summarizer providers from configuration.
// It lives apart from package summarizer so the capability interface
// stays import-cycle free for the concrete adapters.
package registry

import (
	"go.uber.org/zap"

	"github.com/BaSui01/chatflow/summarizer"
	"github.com/BaSui01/chatflow/summarizer/anthropic"
	"github.com/BaSui01/chatflow/summarizer/ollama"
	"github.com/BaSui01/chatflow/summarizer/openai"
	"github.com/BaSui01/chatflow/types"
)

// New builds the provider selected by cfg.Provider, wrapped with the
// configured rate limiter.
func New(cfg summarizer.Config, logger *zap.Logger) (summarizer.Provider, error) {
	var p summarizer.Provider

	switch cfg.Provider {
	case "anthropic":
		p = anthropic.New(cfg.Anthropic, logger)
	case "openai":
		p = openai.New(cfg.OpenAI, logger)
	case "ollama", "":
		p = ollama.New(cfg.Ollama, logger)
	default:
		return nil, types.NewError(types.ErrProviderNotFound,
			"unknown summarizer provider: "+cfg.Provider)
	}

	return summarizer.WithRateLimit(p, cfg.RequestsPerSecond, cfg.Burst), nil
}
