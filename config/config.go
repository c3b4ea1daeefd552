package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/chatflow/compaction"
	"github.com/BaSui01/chatflow/summarizer"
	"github.com/BaSui01/chatflow/summarycache"
)

// Config is the complete chatflow configuration.
type Config struct {
	// Model names the chat model; it selects the tokenizer and, when no
	// budget override is set, the caller derives the context window
	// from the model catalog.
	Model string `yaml:"model"`

	Budget     compaction.Budget `yaml:"budget"`
	Compaction compaction.Config `yaml:"compaction"`
	Summarizer summarizer.Config `yaml:"summarizer"`
	Cache      CacheConfig       `yaml:"cache"`
	Log        LogConfig         `yaml:"log"`
}

// CacheConfig selects the summary cache backend.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string                   `yaml:"backend"`
	Redis   summarycache.RedisConfig `yaml:"redis"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format: json or console.
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model: "gpt-4o-mini",
		Budget: compaction.Budget{
			MaxContextTokens: 30000,
			RecentZoneTokens: 8000,
		},
		Compaction: compaction.DefaultConfig(),
		Summarizer: summarizer.DefaultConfig(),
		Cache: CacheConfig{
			Backend: "memory",
			Redis:   summarycache.DefaultRedisConfig(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the full configuration.
func (c *Config) Validate() error {
	if err := c.Budget.Validate(); err != nil {
		return err
	}
	if err := c.Compaction.Validate(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}
	return nil
}

// BuildLogger constructs a zap logger from the log configuration.
func (c LogConfig) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if c.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
