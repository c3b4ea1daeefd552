package compaction

import (
	"fmt"
	"time"

	"github.com/BaSui01/chatflow/types"
)

// Budget bounds the assembled context.
type Budget struct {
	// MaxContextTokens is the hard ceiling for the assembled context.
	MaxContextTokens int `json:"max_context_tokens" yaml:"max_context_tokens"`

	// RecentZoneTokens is the protection floor: the newest suffix of at
	// least this many tokens is included verbatim and never summarized.
	RecentZoneTokens int `json:"recent_zone_tokens" yaml:"recent_zone_tokens"`
}

// Validate checks the budget invariants.
func (b Budget) Validate() error {
	if b.MaxContextTokens <= 0 {
		return types.NewError(types.ErrInvalidBudget,
			fmt.Sprintf("max_context_tokens must be positive, got %d", b.MaxContextTokens))
	}
	if b.RecentZoneTokens < 0 {
		return types.NewError(types.ErrInvalidBudget,
			fmt.Sprintf("recent_zone_tokens must be non-negative, got %d", b.RecentZoneTokens))
	}
	if b.RecentZoneTokens > b.MaxContextTokens {
		return types.NewError(types.ErrInvalidBudget,
			fmt.Sprintf("recent_zone_tokens %d exceeds max_context_tokens %d",
				b.RecentZoneTokens, b.MaxContextTokens))
	}
	return nil
}

// CompressionLevels sets the target retention ratio per zone. Archive
// must compress at least as aggressively as mid-term; violating configs
// are rejected at validation time, never clamped mid-run.
type CompressionLevels struct {
	MidTermRetention float64 `json:"mid_term_retention" yaml:"mid_term_retention"`
	ArchiveRetention float64 `json:"archive_retention" yaml:"archive_retention"`
}

// Validate checks the retention invariants.
func (c CompressionLevels) Validate() error {
	if c.MidTermRetention < 0.3 || c.MidTermRetention > 0.7 {
		return types.NewError(types.ErrInvalidRetention,
			fmt.Sprintf("mid_term_retention must be in [0.3, 0.7], got %.2f", c.MidTermRetention))
	}
	if c.ArchiveRetention < 0.1 || c.ArchiveRetention > 0.4 {
		return types.NewError(types.ErrInvalidRetention,
			fmt.Sprintf("archive_retention must be in [0.1, 0.4], got %.2f", c.ArchiveRetention))
	}
	if c.ArchiveRetention > c.MidTermRetention {
		return types.NewError(types.ErrInvalidRetention,
			fmt.Sprintf("archive_retention %.2f must not exceed mid_term_retention %.2f",
				c.ArchiveRetention, c.MidTermRetention))
	}
	return nil
}

// StrategyKind selects the compaction algorithm.
type StrategyKind string

const (
	StrategyTrim   StrategyKind = "trim"
	StrategyFlat   StrategyKind = "flat_summarize"
	StrategyTiered StrategyKind = "tiered_summarize"
)

// Config is the per-invocation strategy configuration, supplied by the
// settings surface and validated before any I/O.
type Config struct {
	Strategy StrategyKind `json:"strategy" yaml:"strategy"`

	// ChunkSize is the approximate character size of one summarization
	// batch (one provider call).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	Levels CompressionLevels `json:"levels" yaml:"levels"`

	// ProviderTimeout bounds each individual summarization call.
	ProviderTimeout time.Duration `json:"provider_timeout" yaml:"provider_timeout"`

	// MaxConcurrency bounds parallel summarization calls so provider
	// rate limits are respected.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// Debug enables verbose per-zone logging.
	Debug bool `json:"debug" yaml:"debug"`
}

// DefaultConfig returns the default strategy configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:  StrategyTiered,
		ChunkSize: 4000,
		Levels: CompressionLevels{
			MidTermRetention: 0.5,
			ArchiveRetention: 0.25,
		},
		ProviderTimeout: 30 * time.Second,
		MaxConcurrency:  3,
	}
}

// Validate checks the strategy configuration.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyTrim, StrategyFlat, StrategyTiered:
	default:
		return types.NewError(types.ErrInvalidStrategy,
			fmt.Sprintf("unknown strategy: %q", c.Strategy))
	}

	if c.Strategy != StrategyTrim {
		if c.ChunkSize <= 0 {
			return types.NewError(types.ErrInvalidStrategy,
				fmt.Sprintf("chunk_size must be positive, got %d", c.ChunkSize))
		}
		if err := c.Levels.Validate(); err != nil {
			return err
		}
	}
	if c.MaxConcurrency < 0 {
		return types.NewError(types.ErrInvalidStrategy,
			fmt.Sprintf("max_concurrency must be non-negative, got %d", c.MaxConcurrency))
	}
	return nil
}

// concurrency returns the effective parallel call limit.
func (c Config) concurrency() int {
	if c.MaxConcurrency <= 0 {
		return 3
	}
	return c.MaxConcurrency
}

// providerTimeout returns the effective per-call timeout.
func (c Config) providerTimeout() time.Duration {
	if c.ProviderTimeout <= 0 {
		return 30 * time.Second
	}
	return c.ProviderTimeout
}
