package compaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/chatflow/types"
)

func TestChunkByChars(t *testing.T) {
	msgs := genMessages(10, 100) // 400 chars each

	chunks := chunkByChars(msgs, 1000)
	require.Len(t, chunks, 4)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[3], 1)

	// Chunks concatenate back to the input.
	var joined []types.Message
	for _, c := range chunks {
		joined = append(joined, c...)
	}
	assert.Equal(t, msgs, joined)

	// A message larger than the chunk size still gets its own chunk.
	chunks = chunkByChars(msgs, 1)
	assert.Len(t, chunks, 10)

	assert.Nil(t, chunkByChars(nil, 1000))
}

func TestTrimToLimit(t *testing.T) {
	msgs := genMessages(10, 100)

	kept, fits := trimToLimit(msgs, 350)
	assert.True(t, fits)
	assert.Equal(t, msgs[7:], kept)

	kept, fits = trimToLimit(msgs, 2000)
	assert.True(t, fits)
	assert.Equal(t, msgs, kept)

	// Nothing fits: the newest message is kept anyway.
	kept, fits = trimToLimit(msgs, 50)
	assert.False(t, fits)
	assert.Equal(t, msgs[9:], kept)

	kept, fits = trimToLimit(nil, 50)
	assert.True(t, fits)
	assert.Empty(t, kept)
}

func TestTrimToLimitProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 100).Draw(t, "n")
		msgs := make([]types.Message, n)
		for i := range msgs {
			msgs[i] = types.Message{Seq: int64(i + 1), TokenCount: rapid.IntRange(1, 200).Draw(t, "tokens")}
		}
		limit := rapid.IntRange(0, 5000).Draw(t, "limit")

		kept, fits := trimToLimit(msgs, limit)

		// Always the newest suffix, never empty for non-empty input.
		require.NotEmpty(t, kept)
		require.Equal(t, msgs[len(msgs)-len(kept):], kept)

		if fits {
			require.LessOrEqual(t, types.TotalTokens(kept), limit)
			// Maximal: one more message would overflow.
			if len(kept) < len(msgs) {
				extra := msgs[len(msgs)-len(kept)-1].TokenCount
				require.Greater(t, types.TotalTokens(kept)+extra, limit)
			}
		} else {
			require.Len(t, kept, 1)
			require.Greater(t, kept[0].TokenCount, limit)
		}
	})
}

func TestTrimStrategy(t *testing.T) {
	s := &trimStrategy{logger: zap.NewNop()}
	msgs := genMessages(20, 100)

	res := &Result{StrategyUsed: StrategyTrim}
	err := s.run(context.Background(), msgs, Budget{}, 500, res)
	require.NoError(t, err)

	res.recomputeTotal()
	assert.Equal(t, msgs[15:], res.Messages())
	assert.Equal(t, 500, res.TotalTokens)
	assert.Empty(t, res.Summaries())
	assert.False(t, res.Diagnostics.StillOverBudget)

	// Oversized single message: kept whole with a warning.
	res = &Result{StrategyUsed: StrategyTrim}
	err = s.run(context.Background(), msgs, Budget{}, 10, res)
	require.NoError(t, err)
	assert.Equal(t, msgs[19:], res.Messages())
	assert.True(t, res.Diagnostics.StillOverBudget)
}
