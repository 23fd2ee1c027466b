package cooccur

// Vocabulary maps surviving words to dense ids 0..N-1.
type Vocabulary struct {
	words  []string
	index  map[string]int
	counts []int64
}

// BuildVocabulary counts the tokens of all segments and keeps the words
// seen at least minCount times. Ids follow first-encounter order.
func BuildVocabulary(segments [][]string, minCount int) *Vocabulary {
	freq := make(map[string]int64)
	var order []string
	for _, seg := range segments {
		for _, tok := range seg {
			if tok == "" {
				continue
			}
			if freq[tok] == 0 {
				order = append(order, tok)
			}
			freq[tok]++
		}
	}

	v := &Vocabulary{index: make(map[string]int)}
	for _, w := range order {
		if freq[w] < int64(minCount) {
			continue
		}
		v.index[w] = len(v.words)
		v.words = append(v.words, w)
		v.counts = append(v.counts, freq[w])
	}
	return v
}

// Len returns the vocabulary size.
func (v *Vocabulary) Len() int { return len(v.words) }

// ID returns the id of a word.
func (v *Vocabulary) ID(word string) (int, bool) {
	id, ok := v.index[word]
	return id, ok
}

// Word returns the word for an id.
func (v *Vocabulary) Word(id int) string { return v.words[id] }

// Count returns the corpus frequency of the word with the given id.
func (v *Vocabulary) Count(id int) int64 { return v.counts[id] }

// Words returns the words ordered by id.
func (v *Vocabulary) Words() []string {
	out := make([]string, len(v.words))
	copy(out, v.words)
	return out
}
