// Package cooccur builds windowed word co-occurrence matrices.
package cooccur

import "fmt"

// Weighting selects how a pair within the window is counted.
type Weighting string

const (
	// Uniform adds one per co-occurrence within the window.
	Uniform Weighting = "uniform"
	// InverseDistance adds 1/d for tokens d positions apart.
	InverseDistance Weighting = "inverse_distance"
)

// Defaults
const (
	DefaultMinCount = 5
	DefaultWindow   = 10
)

// Options controls matrix construction.
type Options struct {
	MinCount  int
	Window    int
	Weighting Weighting
	// RespectBoundaries keeps windows inside each segment. When false, a
	// group's segments are concatenated first, so words at the end of one
	// speech co-occur with words at the start of the next.
	RespectBoundaries bool
}

// DefaultOptions returns the reference settings.
func DefaultOptions() Options {
	return Options{
		MinCount:  DefaultMinCount,
		Window:    DefaultWindow,
		Weighting: Uniform,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Window < 1 {
		return fmt.Errorf("window must be >= 1, got %d", o.Window)
	}
	if o.MinCount < 1 {
		return fmt.Errorf("min count must be >= 1, got %d", o.MinCount)
	}
	switch o.Weighting {
	case Uniform, InverseDistance, "":
	default:
		return fmt.Errorf("unknown weighting %q", o.Weighting)
	}
	return nil
}

// Result holds a group's vocabulary and matrix.
type Result struct {
	Vocab  *Vocabulary
	Matrix *Matrix
}

// Build prunes the vocabulary and scans every segment with a symmetric
// window. Pruned words keep their positions, so distances are measured in
// the original token stream.
func Build(segments [][]string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	vocab := BuildVocabulary(segments, opts.MinCount)
	m := NewMatrix(vocab.Len())

	streams := segments
	if !opts.RespectBoundaries {
		var joined []string
		for _, seg := range segments {
			joined = append(joined, seg...)
		}
		streams = [][]string{joined}
	}

	for _, stream := range streams {
		ids := make([]int, len(stream))
		for p, tok := range stream {
			id, ok := vocab.ID(tok)
			if !ok {
				id = -1
			}
			ids[p] = id
		}

		// Looking only forward and adding both directions gives the
		// symmetric ±window count.
		for p, i := range ids {
			if i < 0 {
				continue
			}
			for d := 1; d <= opts.Window && p+d < len(ids); d++ {
				j := ids[p+d]
				if j < 0 {
					continue
				}
				w := 1.0
				if opts.Weighting == InverseDistance {
					w = 1.0 / float64(d)
				}
				m.Add(i, j, w)
			}
		}
	}

	return &Result{Vocab: vocab, Matrix: m}, nil
}
