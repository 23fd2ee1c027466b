// Package glove trains GloVe word vectors from a co-occurrence matrix using
// AdaGrad on the weighted least-squares objective
//
//	J = Σ f(X_ij) (w_i·c_j + b_i + b̃_j − log X_ij)²
//
// with f(x) = min(1, (x/x_max)^α).
package glove

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/cognicore/speechlens/pkg/speechlens/cooccur"
	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
	"github.com/cognicore/speechlens/pkg/speechlens/vectors"
)

// Defaults
const (
	DefaultDim           = 50
	DefaultXMax          = 10.0
	DefaultAlpha         = 0.75
	DefaultLearningRate  = 0.15
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-5
)

// Options controls training.
type Options struct {
	Dim           int
	XMax          float64
	Alpha         float64
	LearningRate  float64
	MaxIterations int
	// Tolerance stops training once the relative loss improvement of an
	// epoch falls below it.
	Tolerance float64

	// Rand drives initialization and the per-epoch shuffle. When nil a
	// generator seeded with Seed is used.
	Rand *rand.Rand
	Seed uint64

	Logger *slog.Logger
}

// DefaultOptions returns the reference settings.
func DefaultOptions() Options {
	return Options{
		Dim:           DefaultDim,
		XMax:          DefaultXMax,
		Alpha:         DefaultAlpha,
		LearningRate:  DefaultLearningRate,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		Seed:          1,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	switch {
	case o.Dim < 1:
		return fmt.Errorf("dim must be >= 1, got %d", o.Dim)
	case o.XMax <= 0:
		return fmt.Errorf("x_max must be > 0, got %g", o.XMax)
	case o.Alpha <= 0:
		return fmt.Errorf("alpha must be > 0, got %g", o.Alpha)
	case o.LearningRate <= 0:
		return fmt.Errorf("learning rate must be > 0, got %g", o.LearningRate)
	case o.MaxIterations < 1:
		return fmt.Errorf("max iterations must be >= 1, got %d", o.MaxIterations)
	case o.Tolerance < 0:
		return fmt.Errorf("tolerance must be >= 0, got %g", o.Tolerance)
	}
	return nil
}

// Stats describes a training run.
type Stats struct {
	Iterations int       `json:"iterations"`
	Losses     []float64 `json:"losses"`
	Converged  bool      `json:"converged"`
}

// FinalLoss returns the loss of the last epoch.
func (s Stats) FinalLoss() float64 {
	if len(s.Losses) == 0 {
		return 0
	}
	return s.Losses[len(s.Losses)-1]
}

// Weight is the GloVe weighting function.
func Weight(x, xMax, alpha float64) float64 {
	if x >= xMax {
		return 1
	}
	return math.Pow(x/xMax, alpha)
}

type model struct {
	dim    int
	w, c   [][]float64
	bw, bc []float64
	gw, gc [][]float64 // AdaGrad accumulators
	gbw    []float64
	gbc    []float64
}

func newModel(n, dim int, rng *rand.Rand) *model {
	m := &model{
		dim: dim,
		w:   make([][]float64, n),
		c:   make([][]float64, n),
		bw:  make([]float64, n),
		bc:  make([]float64, n),
		gw:  make([][]float64, n),
		gc:  make([][]float64, n),
		gbw: make([]float64, n),
		gbc: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		m.w[i] = make([]float64, dim)
		m.c[i] = make([]float64, dim)
		m.gw[i] = make([]float64, dim)
		m.gc[i] = make([]float64, dim)
		for d := 0; d < dim; d++ {
			m.w[i][d] = (rng.Float64() - 0.5) / float64(dim)
			m.c[i][d] = (rng.Float64() - 0.5) / float64(dim)
			m.gw[i][d] = 1
			m.gc[i][d] = 1
		}
		m.bw[i] = (rng.Float64() - 0.5) / float64(dim)
		m.bc[i] = (rng.Float64() - 0.5) / float64(dim)
		m.gbw[i] = 1
		m.gbc[i] = 1
	}
	return m
}

type cell struct {
	i, j   int
	logX   float64
	weight float64
}

// Train fits vectors for every vocabulary word of m and returns the
// element-wise sum of main and context vectors. The context is checked
// between epochs.
func Train(ctx context.Context, group string, vocab *cooccur.Vocabulary, m *cooccur.Matrix, opts Options) (*vectors.Table, Stats, error) {
	var stats Stats
	if err := opts.Validate(); err != nil {
		return nil, stats, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if vocab.Len() != m.Size() {
		return nil, stats, fmt.Errorf("%w: vocabulary has %d words, matrix %d", internalerr.ErrInvalidInput, vocab.Len(), m.Size())
	}

	entries := m.Entries()
	if len(entries) == 0 {
		return nil, stats, fmt.Errorf("%w: group %s has no co-occurrences to train on", internalerr.ErrInvalidInput, group)
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cells := make([]cell, len(entries))
	for k, e := range entries {
		cells[k] = cell{i: e.I, j: e.J, logX: math.Log(e.Count), weight: Weight(e.Count, opts.XMax, opts.Alpha)}
	}

	mod := newModel(vocab.Len(), opts.Dim, rng)
	prev := math.Inf(1)

	for it := 0; it < opts.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		rng.Shuffle(len(cells), func(a, b int) { cells[a], cells[b] = cells[b], cells[a] })
		loss := mod.epoch(cells, opts.LearningRate)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, stats, fmt.Errorf("%w: loss diverged at iteration %d for group %s", internalerr.ErrNumericDegeneracy, it+1, group)
		}

		stats.Iterations = it + 1
		stats.Losses = append(stats.Losses, loss)
		logger.Debug("glove epoch", "group", group, "iteration", it+1, "loss", loss)

		if !math.IsInf(prev, 1) && prev > 0 && (prev-loss)/prev < opts.Tolerance {
			stats.Converged = true
			break
		}
		prev = loss
	}

	words := vocab.Words()
	vecs := make([][]float64, len(words))
	for i := range words {
		v := make([]float64, opts.Dim)
		for d := 0; d < opts.Dim; d++ {
			v[d] = mod.w[i][d] + mod.c[i][d]
		}
		vecs[i] = v
	}

	table, err := vectors.NewTable(group, words, vecs)
	if err != nil {
		return nil, stats, err
	}
	return table, stats, nil
}

// epoch runs one AdaGrad pass and returns the weighted loss accumulated
// over the pass.
func (m *model) epoch(cells []cell, lr float64) float64 {
	var loss float64
	for _, c := range cells {
		wi, cj := m.w[c.i], m.c[c.j]

		diff := m.bw[c.i] + m.bc[c.j] - c.logX
		for d := 0; d < m.dim; d++ {
			diff += wi[d] * cj[d]
		}
		fdiff := c.weight * diff
		loss += 0.5 * fdiff * diff

		gwi, gcj := m.gw[c.i], m.gc[c.j]
		for d := 0; d < m.dim; d++ {
			gw := fdiff * cj[d]
			gc := fdiff * wi[d]
			wi[d] -= lr * gw / math.Sqrt(gwi[d])
			cj[d] -= lr * gc / math.Sqrt(gcj[d])
			gwi[d] += gw * gw
			gcj[d] += gc * gc
		}

		m.bw[c.i] -= lr * fdiff / math.Sqrt(m.gbw[c.i])
		m.bc[c.j] -= lr * fdiff / math.Sqrt(m.gbc[c.j])
		m.gbw[c.i] += fdiff * fdiff
		m.gbc[c.j] += fdiff * fdiff
	}
	return loss
}
