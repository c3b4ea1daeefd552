package compaction

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/chatflow/summarizer"
	"github.com/BaSui01/chatflow/summarycache"
	"github.com/BaSui01/chatflow/tokenizer"
	"github.com/BaSui01/chatflow/types"
)

// flatStrategy folds the oldest messages into a single rolling summary,
// one chunk-sized provider call at a time, until the transcript fits.
// Each call receives the previous rolling summary as context input, so
// information survives successive compaction rounds (iterative
// refinement, not independent chunk summaries). The rolling summary is
// compressed at the mid-term retention level.
type flatStrategy struct {
	cfg      Config
	counter  *tokenizer.Counter
	cache    *summarycache.Cache
	provider summarizer.Provider
	logger   *zap.Logger
}

func (s *flatStrategy) kind() StrategyKind { return StrategyFlat }

func (s *flatStrategy) run(ctx context.Context, msgs []types.Message, _ Budget, limit int, res *Result) error {
	retention := s.cfg.Levels.MidTermRetention
	stats := res.Diagnostics.zone(ZoneMidTerm)

	var rolling *summarycache.Record
	rollingTokens := 0
	foldedEnd := 0 // index of the first unfolded message
	failed := false

	for foldedEnd < len(msgs) {
		if rollingTokens+types.TotalTokens(msgs[foldedEnd:]) <= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			res.Diagnostics.DeadlineExceeded = true
			failed = true
			break
		}

		// Take the oldest unfolded batch of roughly ChunkSize characters.
		batchEnd := foldedEnd + 1
		chars := len(msgs[foldedEnd].Text)
		for batchEnd < len(msgs) && chars < s.cfg.ChunkSize {
			chars += len(msgs[batchEnd].Text)
			batchEnd++
		}
		batch := msgs[foldedEnd:batchEnd]

		// The rolling summary covers everything from the transcript
		// start through the batch, so that is what the key addresses.
		covered := msgs[:batchEnd]
		key := summarycache.Key(s.provider.ID(), retention, covered)

		hint := ""
		if rolling != nil {
			hint = rolling.SummaryText
		}
		sourceTokens := rollingTokens + types.TotalTokens(batch)

		start := time.Now()
		cctx, cancel := context.WithTimeout(ctx, s.cfg.providerTimeout())
		rec, hit, err := s.cache.GetOrCompute(cctx, key, func(cctx context.Context) (*summarycache.Record, error) {
			sum, err := s.provider.Summarize(cctx, summarizer.Request{
				Messages:        batch,
				TargetRetention: retention,
				SourceTokens:    sourceTokens,
				Hint:            hint,
			})
			if err != nil {
				return nil, err
			}
			n, _ := s.counter.Count(sum.Text)
			return &summarycache.Record{
				Range:             types.RangeOf(covered),
				SummaryText:       sum.Text,
				SourceTokenCount:  sourceTokens,
				SummaryTokenCount: n,
				ProducedAt:        time.Now(),
				ProviderID:        sum.ProviderID,
				TargetRetention:   retention,
			}, nil
		})
		cancel()
		stats.Latency += time.Since(start)

		if err != nil {
			s.logger.Warn("rolling summarization failed, degrading to trim",
				zap.Int("folded_messages", foldedEnd),
				zap.Error(err))
			res.Diagnostics.ProviderErrors = append(res.Diagnostics.ProviderErrors, err.Error())
			res.Diagnostics.Fallbacks++
			failed = true
			break
		}

		if hit {
			res.Diagnostics.CacheHits++
		} else {
			res.Diagnostics.CacheMisses++
		}
		stats.Chunks++
		stats.Summarized += len(batch)

		rolling = rec
		rollingTokens = rec.SummaryTokenCount
		foldedEnd = batchEnd
	}

	remaining := msgs[foldedEnd:]
	if failed {
		// Provider outage mid-fold: keep whatever summary exists and
		// trim the unfolded remainder into the leftover allowance.
		kept, fits := trimToLimit(remaining, limit-rollingTokens)
		if !fits {
			res.Diagnostics.StillOverBudget = true
		}
		remaining = kept
	}

	if rolling != nil {
		res.Blocks = append(res.Blocks, Block{Kind: BlockSummary, Zone: ZoneMidTerm, Summary: rolling})
		stats.Tokens = rollingTokens
	}
	res.appendMessages(ZoneRecent, remaining)
	res.Diagnostics.zone(ZoneRecent).Tokens = types.TotalTokens(remaining)

	if rollingTokens+types.TotalTokens(remaining) > limit {
		res.Diagnostics.StillOverBudget = true
	}
	return nil
}
