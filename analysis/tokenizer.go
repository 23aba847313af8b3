package analysis

import (
	"context"
	"strings"
	"unicode"
)

// Tokenizer splits post content into countable terms. Implementations may
// call out to external morphological analyzers, so the method takes a
// context and may fail.
type Tokenizer interface {
	Tokenize(ctx context.Context, text string) ([]string, error)
}

// SimpleTokenizer lowercases input and splits on any rune that is neither a
// letter nor a digit. Single ASCII characters are dropped as noise; CJK
// runes survive because a one-rune token is a real word there.
type SimpleTokenizer struct{}

func (SimpleTokenizer) Tokenize(_ context.Context, text string) ([]string, error) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens, nil
}
