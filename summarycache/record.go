package summarycache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/chatflow/types"
)

// Record is a cached summary of a message range at a target retention.
type Record struct {
	Key               string         `json:"key"`
	Range             types.SeqRange `json:"range"`
	SummaryText       string         `json:"summary_text"`
	SourceTokenCount  int            `json:"source_token_count"`
	SummaryTokenCount int            `json:"summary_token_count"`
	ProducedAt        time.Time      `json:"produced_at"`
	ProviderID        string         `json:"provider_id"`
	TargetRetention   float64        `json:"target_retention"`
}

// Key computes the content-addressed cache key for summarizing msgs at
// targetRetention with the given provider. The key covers every message
// id in the range, so an edit that replaces a message (new id, same seq)
// changes the key even before explicit invalidation runs.
func Key(providerID string, targetRetention float64, msgs []types.Message) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%.4f|", providerID, targetRetention)
	r := types.RangeOf(msgs)
	fmt.Fprintf(h, "%d..%d|", r.First, r.Last)
	var ids strings.Builder
	for _, m := range msgs {
		ids.WriteString(m.ID)
		ids.WriteByte('\n')
	}
	h.Write([]byte(ids.String()))
	return hex.EncodeToString(h.Sum(nil))
}
