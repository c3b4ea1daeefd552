package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeqRangeOverlaps(t *testing.T) {
	a := SeqRange{First: 10, Last: 20}

	assert.True(t, a.Overlaps(SeqRange{First: 15, Last: 25}))
	assert.True(t, a.Overlaps(SeqRange{First: 20, Last: 30}), "inclusive bounds")
	assert.True(t, a.Overlaps(SeqRange{First: 1, Last: 10}))
	assert.True(t, a.Overlaps(SeqRange{First: 12, Last: 18}), "containment")
	assert.True(t, a.Overlaps(SeqRange{First: 1, Last: 100}))

	assert.False(t, a.Overlaps(SeqRange{First: 21, Last: 30}))
	assert.False(t, a.Overlaps(SeqRange{First: 1, Last: 9}))
}

func TestRangeOf(t *testing.T) {
	msgs := []Message{{Seq: 5}, {Seq: 6}, {Seq: 9}}
	assert.Equal(t, SeqRange{First: 5, Last: 9}, RangeOf(msgs))
	assert.Equal(t, SeqRange{}, RangeOf(nil))
}

func TestTotalTokens(t *testing.T) {
	msgs := []Message{{TokenCount: 10}, {TokenCount: 20}, {TokenCount: 30}}
	assert.Equal(t, 60, TotalTokens(msgs))
	assert.Zero(t, TotalTokens(nil))
}
