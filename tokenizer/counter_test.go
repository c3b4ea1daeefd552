package tokenizer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTokenizer struct {
	perCall int
	err     error
}

func (s *stubTokenizer) CountTokens(text string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.perCall, nil
}

func (s *stubTokenizer) MaxTokens() int { return 1000 }
func (s *stubTokenizer) Name() string   { return "stub" }

func TestCounterExact(t *testing.T) {
	c := NewCounter("test", &stubTokenizer{perCall: 42}, zap.NewNop())

	n, approx := c.Count("hello world")
	assert.Equal(t, 42, n)
	assert.False(t, approx)
	assert.False(t, c.Approximate())
}

func TestCounterFallsBackToEstimator(t *testing.T) {
	c := NewCounter("test", &stubTokenizer{err: fmt.Errorf("encoding unavailable")}, zap.NewNop())

	n, approx := c.Count("hello world, this is a longer sentence")
	assert.Greater(t, n, 0)
	assert.True(t, approx)
	assert.True(t, c.Approximate(), "approximation is sticky once it happens")
}

func TestCounterNilExactIsApproximateFromStart(t *testing.T) {
	c := NewCounter("test", nil, zap.NewNop())
	assert.True(t, c.Approximate())

	n, approx := c.Count("hello")
	assert.True(t, approx)
	assert.Greater(t, n, 0)
}

func TestCounterNonEmptyTextNeverZero(t *testing.T) {
	c := NewCounter("test", &stubTokenizer{perCall: 0}, zap.NewNop())
	n, _ := c.Count("x")
	assert.Equal(t, 1, n)
}

func TestEstimatorDeterministic(t *testing.T) {
	e := NewEstimatorTokenizer("test", 0)

	text := "The quick brown fox jumps over the lazy dog."
	a, err := e.CountTokens(text)
	require.NoError(t, err)
	b, err := e.CountTokens(text)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Greater(t, a, 0)

	n, err := e.CountTokens("")
	require.NoError(t, err)
	assert.Zero(t, n)

	// Single characters still count.
	n, err = e.CountTokens("a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEstimatorCJKDensity(t *testing.T) {
	e := NewEstimatorTokenizer("test", 0)

	// Same character count, but CJK text carries more tokens per char.
	ascii, err := e.CountTokens("abcdefghij")
	require.NoError(t, err)
	cjk, err := e.CountTokens("你好世界你好世界你好")
	require.NoError(t, err)
	assert.Greater(t, cjk, ascii)
}

func TestTokenizerRegistry(t *testing.T) {
	stub := &stubTokenizer{perCall: 7}
	RegisterTokenizer("my-model", stub)

	got, err := GetTokenizer("my-model")
	require.NoError(t, err)
	assert.Equal(t, Tokenizer(stub), got)

	// Prefix matching covers versioned model names.
	got, err = GetTokenizer("my-model-2026-01")
	require.NoError(t, err)
	assert.Equal(t, Tokenizer(stub), got)

	_, err = GetTokenizer("unknown-model")
	assert.Error(t, err)
}

func TestTiktokenTokenizerModelTable(t *testing.T) {
	tk := NewTiktokenTokenizer("gpt-4o-mini")
	assert.Equal(t, 128000, tk.MaxTokens())
	assert.Equal(t, "tiktoken[o200k_base]", tk.Name())

	// Unknown models fall back to cl100k_base.
	tk = NewTiktokenTokenizer("mystery-model")
	assert.Equal(t, "tiktoken[cl100k_base]", tk.Name())
	assert.Equal(t, 8192, tk.MaxTokens())
}
