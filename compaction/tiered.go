package compaction

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/chatflow/summarizer"
	"github.com/BaSui01/chatflow/summarycache"
	"github.com/BaSui01/chatflow/tokenizer"
	"github.com/BaSui01/chatflow/types"
)

// tieredStrategy partitions the transcript into zones and summarizes
// MidTerm and Archive independently, each at its own retention level.
// Zone chunks are dispatched as a scatter/gather: one task per chunk,
// bounded by the concurrency limit, joined before assembly so the final
// order is always chronological regardless of completion order. Recent
// messages pass through unmodified.
type tieredStrategy struct {
	cfg      Config
	counter  *tokenizer.Counter
	cache    *summarycache.Cache
	provider summarizer.Provider
	logger   *zap.Logger
}

func (s *tieredStrategy) kind() StrategyKind { return StrategyTiered }

type chunkJob struct {
	zone      ZoneKind
	retention float64
	msgs      []types.Message
}

type chunkOutcome struct {
	rec     *summarycache.Record
	hit     bool
	err     error
	latency time.Duration

	// fallback holds the raw messages used in place of a summary when
	// the provider call failed, trimmed to the chunk's token allowance.
	fallback []types.Message
}

func (s *tieredStrategy) run(ctx context.Context, msgs []types.Message, budget Budget, _ int, res *Result) error {
	p := PartitionZones(msgs, budget)
	res.Diagnostics.RecentOverflow = p.RecentOverflow

	prefix := msgs[:len(msgs)-len(p.Recent)]
	if p.AllFit {
		// The older prefix fits the remaining budget; include everything.
		res.appendMessages(ZoneRecent, prefix)
		res.appendMessages(ZoneRecent, p.Recent)
		res.Diagnostics.zone(ZoneRecent).Tokens = types.TotalTokens(msgs)
		return nil
	}

	// Chronological job order: archive chunks first, then mid-term.
	var jobs []chunkJob
	for _, chunk := range chunkByChars(p.Archive, s.cfg.ChunkSize) {
		jobs = append(jobs, chunkJob{zone: ZoneArchive, retention: s.cfg.Levels.ArchiveRetention, msgs: chunk})
	}
	for _, chunk := range chunkByChars(p.MidTerm, s.cfg.ChunkSize) {
		jobs = append(jobs, chunkJob{zone: ZoneMidTerm, retention: s.cfg.Levels.MidTermRetention, msgs: chunk})
	}

	outcomes := make([]chunkOutcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.concurrency())
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			outcomes[i] = s.summarizeChunk(gctx, job)
			// Chunk failures degrade to fallbacks; they never abort the
			// other chunks.
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		res.Diagnostics.DeadlineExceeded = true
	}

	for i, out := range outcomes {
		job := jobs[i]
		stats := res.Diagnostics.zone(job.zone)
		stats.Chunks++
		if out.latency > stats.Latency {
			stats.Latency = out.latency
		}

		if out.err != nil {
			res.Diagnostics.ProviderErrors = append(res.Diagnostics.ProviderErrors, out.err.Error())
			res.Diagnostics.Fallbacks++
			res.appendMessages(job.zone, out.fallback)
			stats.Tokens += types.TotalTokens(out.fallback)
			continue
		}

		if out.hit {
			res.Diagnostics.CacheHits++
		} else {
			res.Diagnostics.CacheMisses++
		}
		stats.Summarized += len(job.msgs)
		stats.Tokens += out.rec.SummaryTokenCount
		res.Blocks = append(res.Blocks, Block{Kind: BlockSummary, Zone: job.zone, Summary: out.rec})
	}

	res.appendMessages(ZoneRecent, p.Recent)
	res.Diagnostics.zone(ZoneRecent).Tokens = types.TotalTokens(p.Recent)

	if s.cfg.Debug {
		s.logger.Debug("tiered compaction complete",
			zap.Int("archive_messages", len(p.Archive)),
			zap.Int("mid_term_messages", len(p.MidTerm)),
			zap.Int("recent_messages", len(p.Recent)),
			zap.Int("chunks", len(jobs)),
			zap.Int("fallbacks", res.Diagnostics.Fallbacks))
	}
	return nil
}

// summarizeChunk resolves one chunk through the cache, dispatching a
// provider call on miss. A failed call yields a trimmed-raw fallback
// sized to the chunk's token allowance.
func (s *tieredStrategy) summarizeChunk(ctx context.Context, job chunkJob) chunkOutcome {
	start := time.Now()

	cctx, cancel := context.WithTimeout(ctx, s.cfg.providerTimeout())
	defer cancel()

	sourceTokens := types.TotalTokens(job.msgs)
	key := summarycache.Key(s.provider.ID(), job.retention, job.msgs)

	rec, hit, err := s.cache.GetOrCompute(cctx, key, func(cctx context.Context) (*summarycache.Record, error) {
		sum, serr := s.provider.Summarize(cctx, summarizer.Request{
			Messages:        job.msgs,
			TargetRetention: job.retention,
			SourceTokens:    sourceTokens,
		})
		if serr != nil {
			return nil, serr
		}
		n, _ := s.counter.Count(sum.Text)
		return &summarycache.Record{
			Range:             types.RangeOf(job.msgs),
			SummaryText:       sum.Text,
			SourceTokenCount:  sourceTokens,
			SummaryTokenCount: n,
			ProducedAt:        time.Now(),
			ProviderID:        sum.ProviderID,
			TargetRetention:   job.retention,
		}, nil
	})

	out := chunkOutcome{rec: rec, hit: hit, err: err, latency: time.Since(start)}
	if err != nil {
		allowance := int(float64(sourceTokens) * job.retention)
		kept, _ := trimToLimit(job.msgs, allowance)
		out.fallback = kept
	}
	return out
}
