package compaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/chatflow/summarizer"
	"github.com/BaSui01/chatflow/types"
)

func flatConfig() Config {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyFlat
	cfg.ChunkSize = 2000
	return cfg
}

func TestFlatFoldsUntilFit(t *testing.T) {
	provider := &fakeProvider{}
	engine, _ := newTestEngine(t, provider)

	msgs := genMessages(30, 100)
	budget := Budget{MaxContextTokens: 1200}

	res, err := engine.Compact(context.Background(), msgs, budget, flatConfig())
	require.NoError(t, err)

	assert.LessOrEqual(t, res.TotalTokens, 1200)
	assert.False(t, res.Diagnostics.StillOverBudget)

	// One rolling summary followed by the unfolded tail, chronological.
	require.Len(t, res.Summaries(), 1)
	assert.Equal(t, BlockSummary, res.Blocks[0].Kind)
	assert.Equal(t, msgs[25:], res.Messages())

	rec := res.Summaries()[0]
	assert.Equal(t, int64(1), rec.Range.First, "rolling summary covers from the start")
	assert.Equal(t, int64(25), rec.Range.Last)
}

func TestFlatFeedsRollingSummaryAsHint(t *testing.T) {
	provider := &fakeProvider{}
	engine, _ := newTestEngine(t, provider)

	msgs := genMessages(30, 100)
	budget := Budget{MaxContextTokens: 1200}

	_, err := engine.Compact(context.Background(), msgs, budget, flatConfig())
	require.NoError(t, err)

	require.GreaterOrEqual(t, provider.callCount(), 2)
	assert.Empty(t, provider.calls[0].Hint, "first fold has no prior summary")
	for i := 1; i < len(provider.calls); i++ {
		assert.NotEmpty(t, provider.calls[i].Hint, "call %d must carry the rolling summary", i)
		// The hint is the text the previous call produced, so each fold
		// compresses its batch together with everything before it.
		prevSource := provider.calls[i-1].SourceTokens
		prevLen := 4 * int(float64(prevSource)*0.5)
		assert.Len(t, provider.calls[i].Hint, prevLen)
	}

	// Each batch starts where the previous one ended.
	var prevLast int64
	for i, call := range provider.calls {
		require.NotEmpty(t, call.Messages)
		assert.Equal(t, prevLast+1, call.Messages[0].Seq, "call %d", i)
		prevLast = call.Messages[len(call.Messages)-1].Seq
	}
}

func TestFlatDegradesToTrimOnFailure(t *testing.T) {
	var calls int
	provider := &fakeProvider{
		fail: func(summarizer.Request) error {
			calls++
			if calls >= 2 {
				return types.NewError(types.ErrProviderUnavailable, "upstream down")
			}
			return nil
		},
	}
	engine, _ := newTestEngine(t, provider)

	msgs := genMessages(30, 100)
	budget := Budget{MaxContextTokens: 1200}

	res, err := engine.Compact(context.Background(), msgs, budget, flatConfig())
	require.NoError(t, err, "mid-fold provider outage degrades instead of failing")

	assert.Equal(t, 1, res.Diagnostics.Fallbacks)
	assert.NotEmpty(t, res.Diagnostics.ProviderErrors)

	// The first fold's summary survives and the remainder is trimmed
	// into the leftover allowance.
	require.Len(t, res.Summaries(), 1)
	assert.LessOrEqual(t, res.TotalTokens, 1200)
	assert.False(t, res.Diagnostics.StillOverBudget)

	kept := res.Messages()
	require.NotEmpty(t, kept)
	assert.Equal(t, msgs[len(msgs)-len(kept):], kept, "trim keeps the newest suffix")
}

func TestFlatRepeatCallServedFromCache(t *testing.T) {
	provider := &fakeProvider{}
	engine, _ := newTestEngine(t, provider)

	msgs := genMessages(30, 100)
	budget := Budget{MaxContextTokens: 1200}

	first, err := engine.Compact(context.Background(), msgs, budget, flatConfig())
	require.NoError(t, err)
	callsAfterFirst := provider.callCount()

	second, err := engine.Compact(context.Background(), msgs, budget, flatConfig())
	require.NoError(t, err)

	assert.Equal(t, callsAfterFirst, provider.callCount())
	assert.Zero(t, second.Diagnostics.CacheMisses)
	assert.Equal(t, first.Summaries()[0].SummaryText, second.Summaries()[0].SummaryText)
}
