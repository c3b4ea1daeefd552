package compaction

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/chatflow/types"
)

// trimStrategy drops oldest messages (whole messages only) until the
// transcript fits the limit. Deterministic, no I/O, no failure mode:
// when nothing is left to drop while still over budget it returns the
// newest message with a StillOverBudget diagnostic instead of failing,
// and the caller decides how to proceed.
type trimStrategy struct {
	logger *zap.Logger
}

func (s *trimStrategy) kind() StrategyKind { return StrategyTrim }

func (s *trimStrategy) run(_ context.Context, msgs []types.Message, _ Budget, limit int, res *Result) error {
	kept, fits := trimToLimit(msgs, limit)
	if !fits {
		res.Diagnostics.StillOverBudget = true
	}

	res.appendMessages(ZoneRecent, kept)
	res.Diagnostics.zone(ZoneRecent).Tokens = types.TotalTokens(kept)

	s.logger.Debug("trimmed transcript",
		zap.Int("input_messages", len(msgs)),
		zap.Int("kept_messages", len(kept)),
		zap.Int("limit", limit))
	return nil
}
