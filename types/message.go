package types

import (
	"time"
)

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// Message is a single transcript entry. Messages are owned by the
// conversation store; the engine only reads them, never mutates them.
//
// Seq is the monotonic position of the message inside its conversation.
// Insertion order equals chronological order.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// TokenCount is computed once and cached on the message. Zero means
	// "not counted yet"; the engine fills it in before planning.
	TokenCount int `json:"token_count,omitempty"`
}

// NewMessage creates a message with the given role, text and sequence position.
func NewMessage(role Role, text string, seq int64) Message {
	return Message{
		Role:      role,
		Text:      text,
		Seq:       seq,
		CreatedAt: time.Now(),
	}
}

// SeqRange is an inclusive, chronological message range identified by
// sequence positions.
type SeqRange struct {
	First int64 `json:"first"`
	Last  int64 `json:"last"`
}

// Overlaps reports whether two ranges share at least one position.
func (r SeqRange) Overlaps(other SeqRange) bool {
	return r.First <= other.Last && other.First <= r.Last
}

// RangeOf returns the sequence range covered by msgs.
// Messages must be in chronological order.
func RangeOf(msgs []Message) SeqRange {
	if len(msgs) == 0 {
		return SeqRange{}
	}
	return SeqRange{First: msgs[0].Seq, Last: msgs[len(msgs)-1].Seq}
}

// TotalTokens sums the cached token counts of msgs.
func TotalTokens(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += m.TokenCount
	}
	return total
}
