// Package summarizer defines the capability interface for summary
// backends and utilities shared by the concrete adapters (anthropic,
// openai-compatible gateways, ollama). Adapters are selected by
// configuration id, never by type switches in the engine.
package summarizer
