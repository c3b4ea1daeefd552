package summarizer

import "time"

// AnthropicConfig configures the Anthropic summarizer.
type AnthropicConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// OpenAIConfig configures the OpenAI-compatible gateway summarizer.
// BaseURL selects the gateway (OpenAI itself, OpenRouter, Together and
// friends all speak the same chat completions dialect).
type OpenAIConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// OllamaConfig configures the locally-hosted ollama summarizer.
type OllamaConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Config selects and configures the summary backend.
type Config struct {
	// Provider id: "anthropic", "openai" or "ollama".
	Provider string `json:"provider" yaml:"provider"`

	Anthropic AnthropicConfig `json:"anthropic" yaml:"anthropic"`
	OpenAI    OpenAIConfig    `json:"openai" yaml:"openai"`
	Ollama    OllamaConfig    `json:"ollama" yaml:"ollama"`

	// RequestsPerSecond caps outbound summarization calls. Zero
	// disables provider-side rate limiting.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// DefaultConfig returns a local-first default: ollama with no API keys.
func DefaultConfig() Config {
	return Config{
		Provider: "ollama",
		Anthropic: AnthropicConfig{
			BaseURL: "https://api.anthropic.com",
			Model:   "claude-3-5-haiku-latest",
			Timeout: 60 * time.Second,
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com",
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.1",
			Timeout: 120 * time.Second,
		},
		RequestsPerSecond: 2,
		Burst:             4,
	}
}
