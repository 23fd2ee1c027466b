package ingest

import "github.com/cognicore/speechlens/pkg/speechlens/corpus"

// Key identifies a (group, word) cell.
type Key struct {
	Group, Word string
}

// Counter aggregates raw token counts per group
type Counter struct {
	counts map[Key]int64
	totals map[string]int64
	groups []string            // first-seen order
	words  map[string][]string // per-group first-encounter order
}

// NewCounter creates an empty counter
func NewCounter() *Counter {
	return &Counter{
		counts: make(map[Key]int64),
		totals: make(map[string]int64),
		words:  make(map[string][]string),
	}
}

// Add counts the tokens of one document for a group.
func (c *Counter) Add(group string, tokens []string) {
	if _, ok := c.totals[group]; !ok {
		c.totals[group] = 0
		c.groups = append(c.groups, group)
	}
	for _, tok := range tokens {
		k := Key{Group: group, Word: tok}
		if c.counts[k] == 0 {
			c.words[group] = append(c.words[group], tok)
		}
		c.counts[k]++
		c.totals[group]++
	}
}

// AddCorpus tokenizes and counts every document of a corpus.
func (c *Counter) AddCorpus(t *Tokenizer, docs []corpus.Document) {
	for _, d := range docs {
		c.Add(d.Group, t.Tokenize(d.Text))
	}
}

// Count returns the raw count of a word in a group.
func (c *Counter) Count(group, word string) int64 {
	return c.counts[Key{Group: group, Word: word}]
}

// Total returns the number of tokens counted for a group.
func (c *Counter) Total(group string) int64 {
	return c.totals[group]
}

// Groups returns the groups in the order they were first added.
func (c *Counter) Groups() []string {
	out := make([]string, len(c.groups))
	copy(out, c.groups)
	return out
}

// Words returns a group's distinct words in first-encounter order.
func (c *Counter) Words(group string) []string {
	out := make([]string, len(c.words[group]))
	copy(out, c.words[group])
	return out
}

// Counts returns a copy of the (group, word) -> count mapping.
func (c *Counter) Counts() map[Key]int64 {
	out := make(map[Key]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
