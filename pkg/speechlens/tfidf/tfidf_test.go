package tfidf

import (
	"errors"
	"math"
	"testing"

	"github.com/cognicore/speechlens/pkg/speechlens/ingest"
	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
)

func counterFor(docs map[string][]string, order []string) *ingest.Counter {
	c := ingest.NewCounter()
	for _, g := range order {
		c.Add(g, docs[g])
	}
	return c
}

func TestScoreBasic(t *testing.T) {
	c := counterFor(map[string][]string{
		"A": {"the", "climate", "the", "economy"},
		"B": {"the", "growth"},
	}, []string{"A", "B"})

	table, err := Score(c, 0)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	climate, ok := table.Lookup("A", "climate")
	if !ok {
		t.Fatal("climate should be scored")
	}
	if math.Abs(climate.TF-0.25) > 1e-12 {
		t.Errorf("tf = %f, want 0.25", climate.TF)
	}
	if math.Abs(climate.IDF-math.Log(2)) > 1e-12 {
		t.Errorf("idf = %f, want ln 2", climate.IDF)
	}
	if math.Abs(climate.TFIDF-0.25*math.Log(2)) > 1e-12 {
		t.Errorf("tf_idf = %f", climate.TFIDF)
	}

	the, _ := table.Lookup("A", "the")
	if the.IDF != 0 || the.TFIDF != 0 {
		t.Errorf("word in every group should have idf 0, got %+v", the)
	}
	records := table.Records["A"]
	if records[len(records)-1].Word != "the" {
		t.Errorf("shared word should rank last, got %v", records)
	}
}

func TestScoreSharedWordsZero(t *testing.T) {
	c := counterFor(map[string][]string{
		"A": {"peace", "security", "peace"},
		"B": {"security", "peace", "trade"},
		"C": {"peace", "security"},
	}, []string{"A", "B", "C"})

	table, err := Score(c, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range table.Groups {
		for _, r := range table.Records[g] {
			if r.TFIDF < 0 {
				t.Errorf("negative tf_idf %+v", r)
			}
			if r.Word == "peace" || r.Word == "security" {
				if r.IDF != 0 || r.TFIDF != 0 {
					t.Errorf("%s in all groups should score 0: %+v", r.Word, r)
				}
			}
		}
	}
}

func TestScoreTopKAndTieBreak(t *testing.T) {
	c := counterFor(map[string][]string{
		"A": {"zeta", "alpha", "mid", "mid", "shared"},
		"B": {"shared"},
	}, []string{"A", "B"})

	table, err := Score(c, 3)
	if err != nil {
		t.Fatal(err)
	}
	records := table.Records["A"]
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Word != "mid" {
		t.Errorf("highest score should be mid, got %s", records[0].Word)
	}
	if records[1].Word != "zeta" || records[2].Word != "alpha" {
		t.Errorf("ties should keep encounter order, got %s, %s", records[1].Word, records[2].Word)
	}
}

func TestScoreOrderInvariant(t *testing.T) {
	docsA := [][]string{{"climate", "change"}, {"economy", "climate"}}
	docsB := [][]string{{"economy", "growth"}, {"trade"}}

	forward := ingest.NewCounter()
	for _, d := range docsA {
		forward.Add("A", d)
	}
	for _, d := range docsB {
		forward.Add("B", d)
	}

	reverse := ingest.NewCounter()
	for i := len(docsB) - 1; i >= 0; i-- {
		reverse.Add("B", docsB[i])
	}
	for i := len(docsA) - 1; i >= 0; i-- {
		reverse.Add("A", docsA[i])
	}

	t1, err := Score(forward, 0)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := Score(reverse, 0)
	if err != nil {
		t.Fatal(err)
	}

	for _, g := range []string{"A", "B"} {
		for _, r := range t1.Records[g] {
			other, ok := t2.Lookup(g, r.Word)
			if !ok || math.Abs(other.TFIDF-r.TFIDF) > 1e-12 {
				t.Errorf("%s/%s: scores differ across load order", g, r.Word)
			}
		}
		// Ranking by score must agree on strictly ordered scores.
		for i := 1; i < len(t2.Records[g]); i++ {
			if t2.Records[g][i-1].TFIDF < t2.Records[g][i].TFIDF {
				t.Errorf("group %s not sorted descending", g)
			}
		}
	}
}

func TestScoreSingleGroup(t *testing.T) {
	c := counterFor(map[string][]string{
		"A": {"climate", "change", "economy"},
	}, []string{"A"})

	table, err := Score(c, 0)
	if err != nil {
		t.Fatal(err)
	}
	r, ok := table.Lookup("A", "climate")
	if !ok {
		t.Fatal("climate missing")
	}
	if r.IDF != 0 {
		t.Errorf("single loaded group gives idf ln(1/1) = 0, got %f", r.IDF)
	}
}

func TestScoreEmptyGroup(t *testing.T) {
	c := ingest.NewCounter()
	c.Add("A", []string{"word"})
	c.Add("B", nil)

	table, err := Score(c, 0)
	if !errors.Is(err, internalerr.ErrNumericDegeneracy) {
		t.Fatalf("expected ErrNumericDegeneracy, got %v", err)
	}
	if len(table.Records["A"]) != 1 {
		t.Error("non-empty group should still be scored")
	}
	if _, ok := table.Records["B"]; ok {
		t.Error("empty group should not be scored")
	}
}
