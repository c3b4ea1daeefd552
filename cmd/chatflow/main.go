// =============================================================================
// chatflow entry point
// =============================================================================
// Offline driver for the context compaction engine: feed it a transcript
// dump and a config, inspect what the model would actually receive.
//
// Usage:
//
//	chatflow compact --transcript chat.json                # default config
//	chatflow compact --config chatflow.yaml --transcript chat.json
//	chatflow compact --transcript chat.json --strategy trim
//	chatflow version
// =============================================================================
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/chatflow/compaction"
	"github.com/BaSui01/chatflow/config"
	"github.com/BaSui01/chatflow/summarizer/registry"
	"github.com/BaSui01/chatflow/summarycache"
	"github.com/BaSui01/chatflow/tokenizer"
	"github.com/BaSui01/chatflow/types"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "compact":
		if err := runCompact(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "version":
		fmt.Println("chatflow", version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: chatflow <compact|version> [flags]")
}

func runCompact(args []string) error {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	transcriptPath := fs.String("transcript", "", "path to transcript JSON file (required)")
	strategy := fs.String("strategy", "", "override strategy: trim, flat_summarize, tiered_summarize")
	timeout := fs.Duration("timeout", 2*time.Minute, "overall compaction deadline")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *transcriptPath == "" {
		return fmt.Errorf("--transcript is required")
	}

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if *strategy != "" {
		cfg.Compaction.Strategy = compaction.StrategyKind(*strategy)
		if err := cfg.Compaction.Validate(); err != nil {
			return err
		}
	}

	logger, err := cfg.Log.BuildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	transcript, err := loadTranscript(*transcriptPath)
	if err != nil {
		return err
	}

	var store summarycache.Store
	if cfg.Cache.Backend == "redis" {
		rs, err := summarycache.NewRedisStore(cfg.Cache.Redis, logger)
		if err != nil {
			return err
		}
		defer rs.Close()
		store = rs
	}
	cache := summarycache.New(store, logger)

	provider, err := registry.New(cfg.Summarizer, logger)
	if err != nil {
		return err
	}

	counter := tokenizer.NewDefaultCounter(cfg.Model, logger)
	engine := compaction.NewEngine(counter, cache, provider, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := engine.Compact(ctx, transcript, cfg.Budget, cfg.Compaction)
	if err != nil {
		return err
	}

	return printResult(result)
}

// loadTranscript reads a JSON array of messages, filling in missing ids
// and sequence positions.
func loadTranscript(path string) ([]types.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	var msgs []types.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}

	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].ID = uuid.NewString()
		}
		if msgs[i].Seq == 0 {
			msgs[i].Seq = int64(i + 1)
		}
	}
	return msgs, nil
}

func printResult(result *compaction.Result) error {
	fmt.Printf("strategy: %s\n", result.StrategyUsed)
	fmt.Printf("total tokens: %d\n", result.TotalTokens)
	fmt.Printf("blocks: %d (%d summaries, %d messages)\n",
		len(result.Blocks), len(result.Summaries()), len(result.Messages()))

	diag, err := json.MarshalIndent(result.Diagnostics, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println("diagnostics:")
	fmt.Println(string(diag))
	return nil
}
