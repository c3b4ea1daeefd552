package compaction

import (
	"time"

	"github.com/BaSui01/chatflow/summarycache"
	"github.com/BaSui01/chatflow/types"
)

// BlockKind distinguishes verbatim messages from injected summaries.
type BlockKind string

const (
	BlockMessage BlockKind = "message"
	BlockSummary BlockKind = "summary"
)

// Block is one entry of the assembled context, in chronological
// position. The prompt builder treats message blocks as verbatim turns
// and summary blocks as injected narrative context.
type Block struct {
	Kind    BlockKind             `json:"kind"`
	Zone    ZoneKind              `json:"zone"`
	Message *types.Message        `json:"message,omitempty"`
	Summary *summarycache.Record  `json:"summary,omitempty"`
}

// Tokens returns the token count of the block's content.
func (b Block) Tokens() int {
	switch b.Kind {
	case BlockMessage:
		return b.Message.TokenCount
	case BlockSummary:
		return b.Summary.SummaryTokenCount
	}
	return 0
}

// ZoneStats holds per-zone diagnostics.
type ZoneStats struct {
	Tokens     int           `json:"tokens"`
	Chunks     int           `json:"chunks"`
	Summarized int           `json:"summarized"`
	Latency    time.Duration `json:"latency"`
}

// Diagnostics is the observability side-channel attached to every
// result. It backs the application's debug mode; nothing here is
// required for correct prompt assembly.
type Diagnostics struct {
	CacheHits   int `json:"cache_hits"`
	CacheMisses int `json:"cache_misses"`

	// ProviderErrors lists typed provider failures that were degraded
	// to per-chunk fallbacks.
	ProviderErrors []string `json:"provider_errors,omitempty"`

	// Fallbacks counts chunks that fell back to raw trimmed content.
	Fallbacks int `json:"fallbacks"`

	// StillOverBudget warns that even after compaction the result
	// exceeds the budget (e.g. one oversized protected message). It is
	// a warning, not an error.
	StillOverBudget bool `json:"still_over_budget"`

	// DeadlineExceeded means the outer deadline expired and the result
	// was assembled best-effort from whatever completed.
	DeadlineExceeded bool `json:"deadline_exceeded"`

	// ApproximateCounts means the exact tokenizer was unavailable and
	// counts come from the character heuristic; the engine reserved a
	// safety margin, and callers must not treat totals as exact.
	ApproximateCounts bool `json:"approximate_counts"`

	// RecentOverflow warns that a single protected message exceeds the
	// recent-zone floor on its own.
	RecentOverflow bool `json:"recent_overflow"`

	Zones map[ZoneKind]*ZoneStats `json:"zones,omitempty"`
}

// zone returns the stats bucket for kind, creating it on first use.
func (d *Diagnostics) zone(kind ZoneKind) *ZoneStats {
	if d.Zones == nil {
		d.Zones = make(map[ZoneKind]*ZoneStats)
	}
	if _, ok := d.Zones[kind]; !ok {
		d.Zones[kind] = &ZoneStats{}
	}
	return d.Zones[kind]
}

// Result is the bounded context produced by one compaction.
type Result struct {
	Blocks       []Block      `json:"blocks"`
	TotalTokens  int          `json:"total_tokens"`
	StrategyUsed StrategyKind `json:"strategy_used"`
	Diagnostics  Diagnostics  `json:"diagnostics"`
}

// Messages returns the verbatim messages of the result, in order.
func (r *Result) Messages() []types.Message {
	var out []types.Message
	for _, b := range r.Blocks {
		if b.Kind == BlockMessage {
			out = append(out, *b.Message)
		}
	}
	return out
}

// Summaries returns the summary records of the result, in order.
func (r *Result) Summaries() []*summarycache.Record {
	var out []*summarycache.Record
	for _, b := range r.Blocks {
		if b.Kind == BlockSummary {
			out = append(out, b.Summary)
		}
	}
	return out
}

// recomputeTotal refreshes TotalTokens from the blocks.
func (r *Result) recomputeTotal() {
	total := 0
	for _, b := range r.Blocks {
		total += b.Tokens()
	}
	r.TotalTokens = total
}

// appendMessages appends msgs as verbatim blocks for the given zone.
func (r *Result) appendMessages(zone ZoneKind, msgs []types.Message) {
	for i := range msgs {
		r.Blocks = append(r.Blocks, Block{Kind: BlockMessage, Zone: zone, Message: &msgs[i]})
	}
}
