package compaction

import (
	"github.com/BaSui01/chatflow/types"
)

// ZoneKind identifies a transcript zone.
type ZoneKind string

const (
	ZoneRecent  ZoneKind = "recent"
	ZoneMidTerm ZoneKind = "mid_term"
	ZoneArchive ZoneKind = "archive"
)

// Partition is the zone split of a transcript. Recent is never empty
// for a non-empty transcript; MidTerm and Archive are empty when the
// whole prefix already fits the budget.
type Partition struct {
	Recent  []types.Message
	MidTerm []types.Message
	Archive []types.Message

	// AllFit means the non-recent prefix fits the remaining budget and
	// no summarization is needed.
	AllFit bool

	// RecentOverflow means a single protected message alone exceeds the
	// recent-zone floor. Protection is never partially honored by
	// truncating a message, so this surfaces as a diagnostic warning.
	RecentOverflow bool
}

// PartitionZones splits msgs into Recent / MidTerm / Archive.
//
// The recent zone is the newest suffix accumulating at least
// budget.RecentZoneTokens. If the remaining prefix fits within
// maxContextTokens - recentZoneTokens, everything fits. Otherwise the
// prefix is split in two by token mass: walking newest to oldest, the
// boundary falls where half of the prefix's tokens are accumulated; the
// newer half is MidTerm, the older half Archive. Splitting by tokens
// rather than message count keeps the two summary workloads balanced
// when message lengths are skewed. MidTerm messages are always strictly
// newer than all Archive messages, and both halves are non-empty
// whenever the prefix has more than one message.
//
// Pure and non-blocking; msgs must be chronological with token counts
// already filled in.
func PartitionZones(msgs []types.Message, budget Budget) Partition {
	var p Partition
	if len(msgs) == 0 {
		p.AllFit = true
		return p
	}

	// Walk newest to oldest until the protection floor is met.
	recentStart := len(msgs)
	recentTokens := 0
	for recentStart > 0 && recentTokens < budget.RecentZoneTokens {
		recentStart--
		recentTokens += msgs[recentStart].TokenCount
	}
	// A transcript always has a recent zone, even with a zero floor.
	if recentStart == len(msgs) {
		recentStart--
	}

	p.Recent = msgs[recentStart:]
	if len(p.Recent) == 1 && p.Recent[0].TokenCount > budget.RecentZoneTokens && budget.RecentZoneTokens > 0 {
		p.RecentOverflow = true
	}

	prefix := msgs[:recentStart]
	if types.TotalTokens(prefix) <= budget.MaxContextTokens-budget.RecentZoneTokens {
		// Everything fits; callers include the prefix verbatim.
		p.AllFit = true
		return p
	}

	if len(prefix) == 1 {
		// A single-message prefix cannot be split; it is archive-aged
		// but there is nothing newer to hold apart from it.
		p.MidTerm = prefix
		return p
	}

	prefixTokens := types.TotalTokens(prefix)
	boundary := len(prefix)
	acc := 0
	for boundary > 1 && acc < prefixTokens/2 {
		boundary--
		acc += prefix[boundary].TokenCount
	}
	if boundary == len(prefix) {
		boundary--
	}

	p.Archive = prefix[:boundary]
	p.MidTerm = prefix[boundary:]
	return p
}
