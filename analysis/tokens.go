package analysis

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer defines the interface for token counting
type Tokenizer interface {
	CountTokens(text string) int
}

// tiktokenWrapper wraps tiktoken to implement our Tokenizer interface
type tiktokenWrapper struct {
	*tiktoken.Tiktoken
}

func (t *tiktokenWrapper) CountTokens(text string) int {
	return len(t.Encode(text, nil, nil))
}

// TokenCounter counts prompt tokens for logging and the optional
// context bound. The encoding is fetched lazily by tiktoken and may be
// unavailable offline, so construction can fail; callers treat a nil
// counter as "counting disabled".
type TokenCounter struct {
	encoding Tokenizer
}

// NewTokenCounter creates a token counter using the cl100k_base
// encoding, which matches the OpenAI-family models the default
// endpoint serves.
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	if err != nil {
		return nil, fmt.Errorf("failed to load token encoding: %w", err)
	}
	return &TokenCounter{encoding: &tiktokenWrapper{encoding}}, nil
}

// Count returns the number of tokens in text.
func (tc *TokenCounter) Count(text string) int {
	return tc.encoding.CountTokens(text)
}
