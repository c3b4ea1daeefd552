package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/chatflow/compaction"
)

// Loader loads configuration with the precedence
// defaults -> YAML file -> environment variables.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("chatflow.yaml").
//	    WithEnvPrefix("CHATFLOW").
//	    Load()
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with no file and the CHATFLOW env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "CHATFLOW"}
}

// WithConfigPath sets the YAML file to load. A missing file is only an
// error when a path was explicitly set.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides the settings most commonly set per deployment.
func (l *Loader) applyEnv(cfg *Config) {
	l.envString("MODEL", &cfg.Model)
	l.envInt("MAX_CONTEXT_TOKENS", &cfg.Budget.MaxContextTokens)
	l.envInt("RECENT_ZONE_TOKENS", &cfg.Budget.RecentZoneTokens)

	var strategy string
	if l.envString("STRATEGY", &strategy) {
		cfg.Compaction.Strategy = compaction.StrategyKind(strategy)
	}
	l.envInt("CHUNK_SIZE", &cfg.Compaction.ChunkSize)
	l.envFloat("MID_TERM_RETENTION", &cfg.Compaction.Levels.MidTermRetention)
	l.envFloat("ARCHIVE_RETENTION", &cfg.Compaction.Levels.ArchiveRetention)
	l.envDuration("PROVIDER_TIMEOUT", &cfg.Compaction.ProviderTimeout)
	l.envBool("DEBUG", &cfg.Compaction.Debug)

	l.envString("PROVIDER", &cfg.Summarizer.Provider)
	l.envString("ANTHROPIC_API_KEY", &cfg.Summarizer.Anthropic.APIKey)
	l.envString("OPENAI_API_KEY", &cfg.Summarizer.OpenAI.APIKey)
	l.envString("OPENAI_BASE_URL", &cfg.Summarizer.OpenAI.BaseURL)
	l.envString("OLLAMA_BASE_URL", &cfg.Summarizer.Ollama.BaseURL)

	l.envString("CACHE_BACKEND", &cfg.Cache.Backend)
	l.envString("REDIS_ADDR", &cfg.Cache.Redis.Addr)
	l.envString("REDIS_PASSWORD", &cfg.Cache.Redis.Password)

	l.envString("LOG_LEVEL", &cfg.Log.Level)
	l.envString("LOG_FORMAT", &cfg.Log.Format)
}

func (l *Loader) lookup(key string) (string, bool) {
	return os.LookupEnv(l.envPrefix + "_" + key)
}

func (l *Loader) envString(key string, dst *string) bool {
	if v, ok := l.lookup(key); ok {
		*dst = v
		return true
	}
	return false
}

func (l *Loader) envInt(key string, dst *int) {
	if v, ok := l.lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (l *Loader) envFloat(key string, dst *float64) {
	if v, ok := l.lookup(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func (l *Loader) envBool(key string, dst *bool) {
	if v, ok := l.lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func (l *Loader) envDuration(key string, dst *time.Duration) {
	if v, ok := l.lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
