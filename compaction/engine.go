package compaction

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/chatflow/internal/metrics"
	"github.com/BaSui01/chatflow/summarizer"
	"github.com/BaSui01/chatflow/summarycache"
	"github.com/BaSui01/chatflow/tokenizer"
	"github.com/BaSui01/chatflow/types"
)

// approximateMargin is the budget fraction reserved when token counts
// come from the estimator instead of the exact tokenizer.
const approximateMargin = 0.05

// Engine is the public entry point: it takes an unbounded transcript
// plus a budget and strategy configuration, and produces a bounded
// context payload. The summary cache is the only state it shares
// across invocations; transcripts and budgets are per-call immutable
// inputs, and the engine never writes back to the conversation store.
type Engine struct {
	counter  *tokenizer.Counter
	cache    *summarycache.Cache
	provider summarizer.Provider
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   *zap.Logger
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithMetrics attaches a prometheus collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine. counter and provider are required;
// cache may be nil for an in-memory default.
func NewEngine(counter *tokenizer.Counter, cache *summarycache.Cache, provider summarizer.Provider, logger *zap.Logger, opts ...Option) *Engine {
	if cache == nil {
		cache = summarycache.New(nil, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		counter:  counter,
		cache:    cache,
		provider: provider,
		tracer:   otel.Tracer("github.com/BaSui01/chatflow/compaction"),
		logger:   logger.With(zap.String("component", "compaction")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compact bounds the transcript to the budget using the configured
// strategy.
//
// Configuration errors abort before any I/O. Provider errors never do:
// they degrade to per-chunk fallbacks, so a single provider outage can
// never take away the user's ability to send a message. If the ctx
// deadline expires mid-run, the best-effort result assembled from
// whatever completed is returned with a diagnostic flag rather than an
// error.
func (e *Engine) Compact(ctx context.Context, transcript []types.Message, budget Budget, cfg Config) (*Result, error) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "compaction.Compact",
		trace.WithAttributes(
			attribute.String("strategy", string(cfg.Strategy)),
			attribute.Int("messages", len(transcript)),
			attribute.Int("max_context_tokens", budget.MaxContextTokens),
		))
	defer span.End()

	if err := budget.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateTranscript(transcript); err != nil {
		return nil, err
	}
	if cfg.Strategy != StrategyTrim && e.provider == nil {
		return nil, types.NewError(types.ErrProviderNotFound, "no summarizer provider configured")
	}

	msgs := e.countTokens(transcript)

	res := &Result{StrategyUsed: cfg.Strategy}
	res.Diagnostics.ApproximateCounts = e.counter.Approximate()

	limit := budget.MaxContextTokens
	if res.Diagnostics.ApproximateCounts {
		// Estimated counts cannot back hard budget enforcement; plan
		// against a reduced ceiling instead.
		limit = int(float64(limit) * (1 - approximateMargin))
	}

	// Identity: a transcript that already fits is returned unchanged,
	// strategy-independent.
	if types.TotalTokens(msgs) <= limit {
		res.appendMessages(ZoneRecent, msgs)
		res.Diagnostics.zone(ZoneRecent).Tokens = types.TotalTokens(msgs)
		res.recomputeTotal()
		e.record(res, "ok", time.Since(start))
		return res, nil
	}

	if err := e.buildStrategy(cfg).run(ctx, msgs, budget, limit, res); err != nil {
		e.record(res, "error", time.Since(start))
		return nil, err
	}

	res.recomputeTotal()
	if res.TotalTokens > budget.MaxContextTokens {
		res.Diagnostics.StillOverBudget = true
	}

	span.SetAttributes(
		attribute.Int("result_tokens", res.TotalTokens),
		attribute.Int("cache_hits", res.Diagnostics.CacheHits),
		attribute.Int("cache_misses", res.Diagnostics.CacheMisses),
		attribute.Int("fallbacks", res.Diagnostics.Fallbacks),
	)

	e.logger.Info("compaction complete",
		zap.String("strategy", string(cfg.Strategy)),
		zap.Int("input_messages", len(transcript)),
		zap.Int("result_tokens", res.TotalTokens),
		zap.Int("cache_hits", res.Diagnostics.CacheHits),
		zap.Int("cache_misses", res.Diagnostics.CacheMisses),
		zap.Int("fallbacks", res.Diagnostics.Fallbacks),
		zap.Duration("elapsed", time.Since(start)))

	e.record(res, "ok", time.Since(start))
	return res, nil
}

// InvalidateRange evicts cached summaries overlapping the given message
// range. The conversation store calls this when messages are edited or
// deleted.
func (e *Engine) InvalidateRange(ctx context.Context, r types.SeqRange) error {
	_, err := e.cache.InvalidateRange(ctx, r)
	return err
}

// ClearCache drops every cached summary.
func (e *Engine) ClearCache(ctx context.Context) error {
	return e.cache.Clear(ctx)
}

func (e *Engine) buildStrategy(cfg Config) strategy {
	switch cfg.Strategy {
	case StrategyFlat:
		return &flatStrategy{cfg: cfg, counter: e.counter, cache: e.cache, provider: e.provider, logger: e.logger}
	case StrategyTiered:
		return &tieredStrategy{cfg: cfg, counter: e.counter, cache: e.cache, provider: e.provider, logger: e.logger}
	default:
		return &trimStrategy{logger: e.logger}
	}
}

// countTokens returns a copy of transcript with token counts filled in.
// Messages that already carry a count keep it; the engine never mutates
// caller-owned messages.
func (e *Engine) countTokens(transcript []types.Message) []types.Message {
	msgs := make([]types.Message, len(transcript))
	copy(msgs, transcript)
	for i := range msgs {
		if msgs[i].TokenCount == 0 && msgs[i].Text != "" {
			n, _ := e.counter.Count(msgs[i].Text)
			msgs[i].TokenCount = n
		}
	}
	return msgs
}

func (e *Engine) record(res *Result, status string, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordCompaction(string(res.StrategyUsed), status, elapsed, res.TotalTokens)
	for i := 0; i < res.Diagnostics.CacheHits; i++ {
		e.metrics.RecordCacheHit("summary")
	}
	for i := 0; i < res.Diagnostics.CacheMisses; i++ {
		e.metrics.RecordCacheMiss("summary")
	}
	e.metrics.RecordFallbacks(string(res.StrategyUsed), res.Diagnostics.Fallbacks)
}

// validateTranscript checks chronological ordering and token count
// sanity. The conversation store owns ordering; a violation here is a
// caller bug surfaced as a configuration-class error before any I/O.
func validateTranscript(msgs []types.Message) error {
	for i := range msgs {
		if msgs[i].TokenCount < 0 {
			return types.NewError(types.ErrInvalidTranscript,
				fmt.Sprintf("message %q has negative token count", msgs[i].ID))
		}
		if i > 0 && msgs[i].Seq <= msgs[i-1].Seq {
			return types.NewError(types.ErrInvalidTranscript,
				fmt.Sprintf("message %q out of order: seq %d after %d",
					msgs[i].ID, msgs[i].Seq, msgs[i-1].Seq))
		}
	}
	return nil
}
