// Package tokenizer provides token counting for transcript messages.
package tokenizer
