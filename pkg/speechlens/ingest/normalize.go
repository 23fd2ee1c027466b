package ingest

import (
	"strings"
	"unicode"

	"github.com/cognicore/speechlens/pkg/speechlens/corpus"
)

// Normalize lowercases text, replaces every rune that is not a letter or
// digit with a space and collapses runs of spaces. The result has no
// leading or trailing space. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false

	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Fields splits normalized text into its tokens.
func Fields(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

// NormalizeGroup normalizes each document and returns one token segment per
// document, in document order.
func NormalizeGroup(docs []corpus.Document) [][]string {
	segments := make([][]string, 0, len(docs))
	for _, d := range docs {
		segments = append(segments, Fields(Normalize(d.Text)))
	}
	return segments
}
