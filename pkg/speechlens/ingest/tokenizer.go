package ingest

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into lowercase word tokens.
// No stemming is applied and, unless a stoplist is configured, every
// token is kept, including articles.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a new tokenizer with the given stopword list
func NewTokenizer(stopwords []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: stops}
}

// Tokenize splits text at every rune that is not a letter or digit.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := current.String()
		current.Reset()
		if !t.isStopword(word) {
			tokens = append(tokens, word)
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()

	return tokens
}

func (t *Tokenizer) isStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// Strip removes stopwords from already normalized segments, so the
// embedding stream sees the same vocabulary as Tokenize.
func (t *Tokenizer) Strip(segments [][]string) [][]string {
	if len(t.stopwords) == 0 {
		return segments
	}
	out := make([][]string, len(segments))
	for i, seg := range segments {
		kept := make([]string, 0, len(seg))
		for _, w := range seg {
			if !t.isStopword(w) {
				kept = append(kept, w)
			}
		}
		out[i] = kept
	}
	return out
}
