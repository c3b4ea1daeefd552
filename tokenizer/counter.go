package tokenizer

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Counter counts tokens for transcript text with a graceful fallback.
// It prefers an exact tokenizer; when that is unavailable it falls back
// to the estimator and remembers that counts are now approximate, so the
// engine can reserve a safety margin instead of treating estimates as
// exact for hard budget enforcement.
type Counter struct {
	exact  Tokenizer
	est    *EstimatorTokenizer
	logger *zap.Logger

	approximate atomic.Bool
	warned      atomic.Bool
}

// NewCounter creates a counter for the given model. The exact tokenizer
// may be nil, in which case every count is approximate from the start.
func NewCounter(model string, exact Tokenizer, logger *zap.Logger) *Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Counter{
		exact:  exact,
		est:    NewEstimatorTokenizer(model, 0),
		logger: logger.With(zap.String("component", "tokenizer")),
	}
	if exact == nil {
		c.approximate.Store(true)
	}
	return c
}

// NewDefaultCounter creates a counter backed by tiktoken for the model.
func NewDefaultCounter(model string, logger *zap.Logger) *Counter {
	return NewCounter(model, NewTiktokenTokenizer(model), logger)
}

// Count returns the token count for text and whether the count is
// approximate. Counts are deterministic for a given text, never negative,
// and never zero for non-empty text.
func (c *Counter) Count(text string) (int, bool) {
	if c.exact != nil {
		n, err := c.exact.CountTokens(text)
		if err == nil {
			if n == 0 && text != "" {
				n = 1
			}
			return n, false
		}
		c.approximate.Store(true)
		if c.warned.CompareAndSwap(false, true) {
			c.logger.Warn("exact tokenizer unavailable, falling back to estimator",
				zap.String("tokenizer", c.exact.Name()),
				zap.Error(err))
		}
	}

	n, _ := c.est.CountTokens(text)
	return n, true
}

// Approximate reports whether any count so far was estimated rather
// than exact.
func (c *Counter) Approximate() bool {
	return c.approximate.Load()
}
