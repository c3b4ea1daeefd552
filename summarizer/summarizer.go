package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/chatflow/types"
)

// Request asks a provider to compress a batch of messages into a
// shorter summary at the target retention ratio.
type Request struct {
	Messages []types.Message

	// TargetRetention is the fraction of the source length the summary
	// should approximate. Providers treat it as best effort; the engine
	// re-measures the returned text.
	TargetRetention float64

	// SourceTokens is the measured token count of Messages, used to
	// derive the output token ceiling.
	SourceTokens int

	// Hint carries extra context for the call, e.g. the previous
	// rolling summary during iterative refinement.
	Hint string
}

// Summary is a provider's output before the engine re-measures it and
// turns it into a cache record.
type Summary struct {
	Text       string
	ProviderID string
	Model      string
}

// Provider is the summarization backend capability interface.
// Implementations must report failures (auth, rate limit, timeout,
// empty output) as typed *types.Error values, never as an empty
// summary.
type Provider interface {
	// ID identifies the provider for cache keys and diagnostics.
	ID() string

	// Summarize compresses the request's messages into a summary.
	Summarize(ctx context.Context, req Request) (*Summary, error)
}

// MaxSummaryTokens derives the output token ceiling for a request.
// Providers need a hard cap; the ratio alone is not enforceable.
func MaxSummaryTokens(req Request) int {
	n := int(float64(req.SourceTokens) * req.TargetRetention)
	if n < 64 {
		n = 64
	}
	return n
}

// BuildPrompt renders the shared summarization prompt. The exact wording
// is provider-agnostic; adapters may prepend their own system text.
func BuildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Condense the following conversation excerpt to roughly %d%% of its length. ",
		int(req.TargetRetention*100))
	b.WriteString("Preserve named entities, decisions, open questions and emotional tone. ")
	b.WriteString("Write flowing prose in chronological order, no preamble.\n\n")

	if req.Hint != "" {
		b.WriteString("Summary of everything before this excerpt:\n")
		b.WriteString(req.Hint)
		b.WriteString("\n\n")
	}

	b.WriteString("Conversation excerpt:\n")
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Text)
	}
	return b.String()
}
