package compaction

import (
	"context"

	"github.com/BaSui01/chatflow/types"
)

// strategy is the internal algorithm contract. Strategies carry no
// state between invocations except via the summary cache; each run is a
// pure function of (transcript, budget, config, cache state).
//
// limit is the effective token ceiling: the budget's maximum, reduced
// by the safety margin when token counts are approximate.
type strategy interface {
	kind() StrategyKind
	run(ctx context.Context, msgs []types.Message, budget Budget, limit int, res *Result) error
}

// chunkByChars splits msgs into consecutive batches of roughly
// chunkSize characters each. Every chunk holds at least one message;
// messages are never split.
func chunkByChars(msgs []types.Message, chunkSize int) [][]types.Message {
	if len(msgs) == 0 {
		return nil
	}
	var chunks [][]types.Message
	start := 0
	chars := 0
	for i, m := range msgs {
		chars += len(m.Text)
		if chars >= chunkSize && i+1 > start {
			chunks = append(chunks, msgs[start:i+1])
			start = i + 1
			chars = 0
		}
	}
	if start < len(msgs) {
		chunks = append(chunks, msgs[start:])
	}
	return chunks
}

// trimToLimit keeps the newest suffix of msgs whose tokens fit within
// limit. If even the newest message alone exceeds the limit it is kept
// anyway (whole messages only, never partial) and fits is false.
func trimToLimit(msgs []types.Message, limit int) (kept []types.Message, fits bool) {
	if len(msgs) == 0 {
		return nil, true
	}

	start := len(msgs)
	total := 0
	for start > 0 && total+msgs[start-1].TokenCount <= limit {
		start--
		total += msgs[start].TokenCount
	}

	if start == len(msgs) {
		// Nothing fits; keep the newest message and report overflow.
		return msgs[len(msgs)-1:], false
	}
	return msgs[start:], true
}
