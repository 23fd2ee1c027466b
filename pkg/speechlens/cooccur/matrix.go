package cooccur

import (
	"sort"

	"github.com/cognicore/speechlens/pkg/speechlens/pmi"
)

// pair is an unordered id pair with I < J.
type pair struct {
	I, J int
}

func newPair(a, b int) pair {
	if a > b {
		a, b = b, a
	}
	return pair{I: a, J: b}
}

// Entry is one non-zero cell.
type Entry struct {
	I, J  int
	Count float64
}

// Matrix is a sparse symmetric co-occurrence matrix. The diagonal is
// always zero.
type Matrix struct {
	n     int
	cells map[pair]float64
	rows  []float64 // marginal weight per id
	total float64
}

// NewMatrix creates an empty n×n matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{
		n:     n,
		cells: make(map[pair]float64),
		rows:  make([]float64, n),
	}
}

// Size returns the matrix dimension.
func (m *Matrix) Size() int { return m.n }

// Add increments cells (i,j) and (j,i) by w. Diagonal increments are ignored.
func (m *Matrix) Add(i, j int, w float64) {
	if i == j {
		return
	}
	m.cells[newPair(i, j)] += w
	m.rows[i] += w
	m.rows[j] += w
	m.total += 2 * w
}

// Get returns cell (i,j).
func (m *Matrix) Get(i, j int) float64 {
	if i == j {
		return 0
	}
	return m.cells[newPair(i, j)]
}

// NNZ returns the number of non-zero cells, counting both triangles.
func (m *Matrix) NNZ() int { return 2 * len(m.cells) }

// Entries returns every non-zero cell, both (i,j) and (j,i), sorted by
// row then column.
func (m *Matrix) Entries() []Entry {
	out := make([]Entry, 0, 2*len(m.cells))
	for p, c := range m.cells {
		out = append(out, Entry{I: p.I, J: p.J, Count: c}, Entry{I: p.J, J: p.I, Count: c})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].I != out[b].I {
			return out[a].I < out[b].I
		}
		return out[a].J < out[b].J
	})
	return out
}

// PMI returns the smoothed pointwise mutual information of ids i and j
// computed from windowed counts.
func (m *Matrix) PMI(calc *pmi.Calculator, i, j int) float64 {
	return calc.PMI(m.Get(i, j), m.rows[i], m.rows[j], m.total)
}

// NPMI returns the normalized PMI of ids i and j, in [-1, 1].
func (m *Matrix) NPMI(calc *pmi.Calculator, i, j int) float64 {
	return calc.NPMI(m.Get(i, j), m.rows[i], m.rows[j], m.total)
}

// Neighbor is a count-based neighbor of a word.
type Neighbor struct {
	ID    int
	Score float64
}

// TopPMI ranks the co-occurring ids of i by PMI, or by NPMI when
// normalized is set, keeping k results.
func (m *Matrix) TopPMI(calc *pmi.Calculator, i, k int, normalized bool) []Neighbor {
	score := m.PMI
	if normalized {
		score = m.NPMI
	}
	var out []Neighbor
	for p := range m.cells {
		var other int
		switch i {
		case p.I:
			other = p.J
		case p.J:
			other = p.I
		default:
			continue
		}
		out = append(out, Neighbor{ID: other, Score: score(calc, i, other)})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].ID < out[b].ID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
