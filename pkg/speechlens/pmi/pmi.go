package pmi

import "math"

// Calculator handles PMI (Pointwise Mutual Information) calculations
// over windowed co-occurrence counts.
type Calculator struct {
	epsilon float64 // smoothing constant
}

// NewCalculator creates a new PMI calculator with the given epsilon.
// Non-positive epsilon falls back to 1.0.
func NewCalculator(epsilon float64) *Calculator {
	if epsilon <= 0 {
		epsilon = 1.0
	}
	return &Calculator{epsilon: epsilon}
}

// PMI calculates the pointwise mutual information between two words
//
// PMI(a,b) = log((N_ab + ε) * N / ((N_a + ε)(N_b + ε)))
//
// Where:
//   - N_ab = co-occurrence weight of a and b
//   - N_a, N_b = marginal co-occurrence weight of each word
//   - N = total co-occurrence weight
//   - ε = smoothing constant
func (c *Calculator) PMI(nAB, nA, nB, n float64) float64 {
	if n == 0 {
		return 0
	}

	numerator := (nAB + c.epsilon) * n
	denominator := (nA + c.epsilon) * (nB + c.epsilon)

	return math.Log(numerator / denominator)
}

// NPMI calculates normalized PMI (range: -1 to 1)
// NPMI(a,b) = PMI(a,b) / -log(P(a,b))
func (c *Calculator) NPMI(nAB, nA, nB, n float64) float64 {
	if n == 0 || nAB == 0 {
		return 0
	}

	pAB := (nAB + c.epsilon) / (n + c.epsilon)
	logPAB := math.Log(pAB)
	if logPAB == 0 {
		return 0
	}

	npmi := c.PMI(nAB, nA, nB, n) / -logPAB
	return math.Max(-1, math.Min(1, npmi))
}
