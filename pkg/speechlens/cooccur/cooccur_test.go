package cooccur

import (
	"math"
	"strings"
	"testing"

	"github.com/cognicore/speechlens/pkg/speechlens/pmi"
)

func split(s string) []string { return strings.Fields(s) }

func mustID(t *testing.T, v *Vocabulary, w string) int {
	t.Helper()
	id, ok := v.ID(w)
	if !ok {
		t.Fatalf("%q missing from vocabulary", w)
	}
	return id
}

func TestBuildAdjacentWindow(t *testing.T) {
	res, err := Build([][]string{split("a b c b a")}, Options{MinCount: 1, Window: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if res.Vocab.Len() != 3 {
		t.Fatalf("expected vocabulary {a,b,c}, got %v", res.Vocab.Words())
	}
	a, b, c := mustID(t, res.Vocab, "a"), mustID(t, res.Vocab, "b"), mustID(t, res.Vocab, "c")
	if a != 0 || b != 1 || c != 2 {
		t.Errorf("ids should follow encounter order, got a=%d b=%d c=%d", a, b, c)
	}

	if got := res.Matrix.Get(a, b); got != 2 {
		t.Errorf("(a,b) = %v, want 2", got)
	}
	if got := res.Matrix.Get(b, c); got != 2 {
		t.Errorf("(b,c) = %v, want 2", got)
	}
	if got := res.Matrix.Get(a, c); got != 0 {
		t.Errorf("(a,c) = %v, want 0 for window 1", got)
	}
	for i := 0; i < 3; i++ {
		if res.Matrix.Get(i, i) != 0 {
			t.Errorf("diagonal (%d,%d) should be zero", i, i)
		}
	}
}

func TestBuildSymmetric(t *testing.T) {
	text := "the general assembly affirms the right of every nation to peace and the right to development of every people"
	res, err := Build([][]string{split(text)}, Options{MinCount: 1, Window: 3, Weighting: InverseDistance})
	if err != nil {
		t.Fatal(err)
	}

	n := res.Vocab.Len()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if res.Matrix.Get(i, j) != res.Matrix.Get(j, i) {
				t.Fatalf("matrix not symmetric at (%d,%d)", i, j)
			}
			if res.Matrix.Get(i, j) < 0 {
				t.Fatalf("negative entry at (%d,%d)", i, j)
			}
		}
	}

	entries := res.Matrix.Entries()
	if len(entries) != res.Matrix.NNZ() {
		t.Errorf("entries %d != nnz %d", len(entries), res.Matrix.NNZ())
	}
	for _, e := range entries {
		if e.I == e.J {
			t.Error("entries must not contain the diagonal")
		}
	}
}

func TestBuildMinCountPruning(t *testing.T) {
	res, err := Build([][]string{split("x y x y x z")}, Options{MinCount: 2, Window: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Vocab.ID("z"); ok {
		t.Error("z appears once and should be pruned")
	}
	x, y := mustID(t, res.Vocab, "x"), mustID(t, res.Vocab, "y")
	if res.Vocab.Count(x) != 3 {
		t.Errorf("x count = %d, want 3", res.Vocab.Count(x))
	}
	if got := res.Matrix.Get(x, y); got != 4 {
		t.Errorf("(x,y) = %v, want 4", got)
	}
}

func TestBuildInverseDistance(t *testing.T) {
	res, err := Build([][]string{split("a b c")}, Options{MinCount: 1, Window: 2, Weighting: InverseDistance})
	if err != nil {
		t.Fatal(err)
	}
	a, c := mustID(t, res.Vocab, "a"), mustID(t, res.Vocab, "c")
	if got := res.Matrix.Get(a, c); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("(a,c) = %v, want 0.5", got)
	}
}

func TestBuildBoundaries(t *testing.T) {
	segments := [][]string{split("a b"), split("c d")}

	joined, err := Build(segments, Options{MinCount: 1, Window: 1})
	if err != nil {
		t.Fatal(err)
	}
	b, c := mustID(t, joined.Vocab, "b"), mustID(t, joined.Vocab, "c")
	if joined.Matrix.Get(b, c) != 1 {
		t.Error("concatenated segments should co-occur at the splice point")
	}

	separate, err := Build(segments, Options{MinCount: 1, Window: 1, RespectBoundaries: true})
	if err != nil {
		t.Fatal(err)
	}
	b, c = mustID(t, separate.Vocab, "b"), mustID(t, separate.Vocab, "c")
	if separate.Matrix.Get(b, c) != 0 {
		t.Error("segments should not co-occur across boundaries")
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	bad := []Options{
		{MinCount: 1, Window: 0},
		{MinCount: 0, Window: 1},
		{MinCount: 1, Window: 1, Weighting: "harmonic"},
	}
	for _, o := range bad {
		if _, err := Build(nil, o); err == nil {
			t.Errorf("expected error for %+v", o)
		}
	}
}

func TestTopPMI(t *testing.T) {
	res, err := Build([][]string{split("war peace war peace war peace trade economy trade economy")}, Options{MinCount: 1, Window: 1})
	if err != nil {
		t.Fatal(err)
	}
	calc := pmi.NewCalculator(1.0)
	war := mustID(t, res.Vocab, "war")

	neighbors := res.Matrix.TopPMI(calc, war, 5, false)
	if len(neighbors) == 0 {
		t.Fatal("expected neighbors for war")
	}
	if res.Vocab.Word(neighbors[0].ID) != "peace" {
		t.Errorf("top neighbor of war should be peace, got %s", res.Vocab.Word(neighbors[0].ID))
	}
	for _, n := range neighbors {
		if n.ID == war {
			t.Error("word must not be its own neighbor")
		}
	}
}

func TestTopPMINormalized(t *testing.T) {
	res, err := Build([][]string{split("war peace war peace war peace trade economy trade economy")}, Options{MinCount: 1, Window: 2})
	if err != nil {
		t.Fatal(err)
	}
	calc := pmi.NewCalculator(1.0)
	peace := mustID(t, res.Vocab, "peace")

	raw := res.Matrix.TopPMI(calc, peace, 0, false)
	norm := res.Matrix.TopPMI(calc, peace, 0, true)
	if len(raw) != len(norm) {
		t.Fatalf("both rankings should cover the same neighbors: %d vs %d", len(raw), len(norm))
	}
	for _, n := range norm {
		if n.Score < -1 || n.Score > 1 {
			t.Errorf("NPMI score %v outside [-1, 1]", n.Score)
		}
		if want := res.Matrix.NPMI(calc, peace, n.ID); n.Score != want {
			t.Errorf("score for %s = %v, want %v", res.Vocab.Word(n.ID), n.Score, want)
		}
	}
}
