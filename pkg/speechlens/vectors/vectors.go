// Package vectors holds trained word vectors and answers cosine
// nearest-neighbor queries.
package vectors

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
)

// DefaultTopN is the number of neighbors returned by default.
const DefaultTopN = 10

// Table maps each vocabulary word of one group to a dense vector.
// A table is not modified after construction.
type Table struct {
	group   string
	words   []string
	index   map[string]int
	vectors [][]float64
	dim     int
}

// NewTable builds a table; words and vecs must have equal length and every
// vector the same dimension.
func NewTable(group string, words []string, vecs [][]float64) (*Table, error) {
	if len(words) != len(vecs) {
		return nil, fmt.Errorf("%w: %d words but %d vectors", internalerr.ErrInvalidInput, len(words), len(vecs))
	}
	t := &Table{
		group:   group,
		words:   make([]string, len(words)),
		index:   make(map[string]int, len(words)),
		vectors: make([][]float64, len(vecs)),
	}
	for i, w := range words {
		if _, dup := t.index[w]; dup {
			return nil, fmt.Errorf("%w: duplicate word %q", internalerr.ErrInvalidInput, w)
		}
		if i == 0 {
			t.dim = len(vecs[i])
		} else if len(vecs[i]) != t.dim {
			return nil, fmt.Errorf("%w: vector %q has dimension %d, want %d", internalerr.ErrInvalidInput, w, len(vecs[i]), t.dim)
		}
		t.words[i] = w
		t.index[w] = i
		t.vectors[i] = append([]float64(nil), vecs[i]...)
	}
	return t, nil
}

// Group returns the group the table was trained for.
func (t *Table) Group() string { return t.group }

// Len returns the number of words.
func (t *Table) Len() int { return len(t.words) }

// Dim returns the vector dimension.
func (t *Table) Dim() int { return t.dim }

// Words returns the words in table order.
func (t *Table) Words() []string {
	out := make([]string, len(t.words))
	copy(out, t.words)
	return out
}

// Lookup returns a copy of a word's vector.
func (t *Table) Lookup(word string) ([]float64, bool) {
	i, ok := t.index[word]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), t.vectors[i]...), true
}

// Scale returns a new table with every vector multiplied by k.
func (t *Table) Scale(k float64) *Table {
	out := &Table{
		group:   t.group,
		words:   t.words,
		index:   t.index,
		vectors: make([][]float64, len(t.vectors)),
		dim:     t.dim,
	}
	for i, v := range t.vectors {
		s := make([]float64, len(v))
		for d, x := range v {
			s[d] = x * k
		}
		out.vectors[i] = s
	}
	return out
}

// Norm returns the L2 norm of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Cosine returns dot(a,b) / (|a| |b|). A zero-norm operand yields
// ErrNumericDegeneracy.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension %d vs %d", internalerr.ErrInvalidInput, len(a), len(b))
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, internalerr.ErrNumericDegeneracy
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (na * nb), nil
}

// Neighbor is one ranked word.
type Neighbor struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
}

// Ranking is the answer to a nearest-neighbor query.
type Ranking struct {
	Query     string     `json:"query"`
	Neighbors []Neighbor `json:"neighbors"`
	// Degenerate lists candidates skipped because their vector is zero.
	Degenerate []string `json:"degenerate,omitempty"`
}

// Nearest ranks the table's words by cosine similarity to word, keeping
// topN (all when topN <= 0). With includeSelf the query word takes part in
// the ranking and normally comes first with similarity 1. Ties keep table
// order.
func (t *Table) Nearest(word string, topN int, includeSelf bool) (Ranking, error) {
	qi, ok := t.index[word]
	if !ok {
		return Ranking{}, fmt.Errorf("%w: %q in group %s", internalerr.ErrVocabularyMiss, word, t.group)
	}
	q := t.vectors[qi]
	qn := Norm(q)
	if qn == 0 {
		return Ranking{}, fmt.Errorf("%w: zero vector for %q in group %s", internalerr.ErrNumericDegeneracy, word, t.group)
	}

	r := Ranking{Query: word}
	for i, v := range t.vectors {
		if i == qi && !includeSelf {
			continue
		}
		vn := Norm(v)
		if vn == 0 {
			r.Degenerate = append(r.Degenerate, t.words[i])
			continue
		}
		var dot float64
		for d := range q {
			dot += q[d] * v[d]
		}
		sim := dot / (qn * vn)
		if i == qi {
			sim = 1
		}
		r.Neighbors = append(r.Neighbors, Neighbor{Word: t.words[i], Similarity: sim})
	}

	sort.SliceStable(r.Neighbors, func(a, b int) bool {
		return r.Neighbors[a].Similarity > r.Neighbors[b].Similarity
	})
	if topN > 0 && len(r.Neighbors) > topN {
		r.Neighbors = r.Neighbors[:topN]
	}
	return r, nil
}
