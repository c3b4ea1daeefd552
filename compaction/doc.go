// Package compaction bounds an unbounded conversation transcript to a
// token budget before it is sent to a language model. Three strategies
// are available: dropping oldest messages (trim), folding the oldest
// messages into a single rolling summary (flat), and zone-based tiered
// summarization where older zones are compressed more aggressively
// while a protected recent zone passes through verbatim.
package compaction
