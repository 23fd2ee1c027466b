// Package storetest holds behavior tests shared by store implementations.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
	"github.com/cognicore/speechlens/pkg/speechlens/store"
	"github.com/cognicore/speechlens/pkg/speechlens/tfidf"
	"github.com/cognicore/speechlens/pkg/speechlens/vectors"
)

// Run exercises a store created by open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("Runs", func(t *testing.T) { testRuns(t, open(t)) })
	t.Run("TFIDF", func(t *testing.T) { testTFIDF(t, open(t)) })
	t.Run("Vectors", func(t *testing.T) { testVectors(t, open(t)) })
	t.Run("Rankings", func(t *testing.T) { testRankings(t, open(t)) })
}

func seedRun(t *testing.T, st store.Store, id string, at time.Time) {
	t.Helper()
	run := store.Run{
		ID:        id,
		CreatedAt: at,
		CorpusDir: "/data/speeches",
		Groups:    []string{"USA", "CHN"},
		MinYear:   2000,
		Documents: 38,
		Config:    "tfidf:\n  top_k: 15\n",
	}
	if err := st.SaveRun(context.Background(), run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
}

func testRuns(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	base := time.Date(2024, 9, 24, 10, 0, 0, 0, time.UTC)

	seedRun(t, st, "run-1", base)
	seedRun(t, st, "run-2", base.Add(time.Hour))

	got, err := st.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.MinYear != 2000 || got.Documents != 38 || len(got.Groups) != 2 || got.Groups[1] != "CHN" {
		t.Errorf("unexpected run %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, base)
	}

	runs, err := st.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Errorf("runs should be newest first, got %+v", runs)
	}

	if _, err := st.GetRun(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.SaveRun(ctx, store.Run{}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty id, got %v", err)
	}
}

func testTFIDF(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	seedRun(t, st, "run-1", time.Now())

	records := []tfidf.Record{
		{Group: "USA", Word: "terrorism", Count: 12, TF: 0.012, IDF: 0.69, TFIDF: 0.0083},
		{Group: "USA", Word: "freedom", Count: 8, TF: 0.008, IDF: 0.69, TFIDF: 0.0055},
		{Group: "CHN", Word: "hegemony", Count: 5, TF: 0.005, IDF: 0.69, TFIDF: 0.0035},
	}
	if err := st.SaveTFIDF(ctx, "run-1", records); err != nil {
		t.Fatalf("SaveTFIDF: %v", err)
	}

	usa, err := st.GetTFIDF(ctx, "run-1", "USA")
	if err != nil {
		t.Fatalf("GetTFIDF: %v", err)
	}
	if len(usa) != 2 || usa[0].Word != "terrorism" || usa[1].Word != "freedom" {
		t.Errorf("records should keep rank order, got %+v", usa)
	}
	if usa[0] != records[0] {
		t.Errorf("record round trip mismatch: %+v", usa[0])
	}

	resaved := []tfidf.Record{{Group: "USA", Word: "sovereignty", Count: 3, TF: 0.003, IDF: 0.69, TFIDF: 0.0021}}
	if err := st.SaveTFIDF(ctx, "run-1", resaved); err != nil {
		t.Fatalf("SaveTFIDF again: %v", err)
	}
	usa, err = st.GetTFIDF(ctx, "run-1", "USA")
	if err != nil || len(usa) != 1 || usa[0] != resaved[0] {
		t.Errorf("saving a group again should replace its records, got %+v %v", usa, err)
	}
	chn, err := st.GetTFIDF(ctx, "run-1", "CHN")
	if err != nil || len(chn) != 1 {
		t.Errorf("other groups must be left alone, got %+v %v", chn, err)
	}

	none, err := st.GetTFIDF(ctx, "run-1", "FRA")
	if err != nil || len(none) != 0 {
		t.Errorf("unknown group should return no records, got %v %v", none, err)
	}
}

func testVectors(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	seedRun(t, st, "run-1", time.Now())

	table, err := vectors.NewTable("USA", []string{"peace", "war", "trade"}, [][]float64{
		{0.5, -0.25, 1},
		{-0.5, 0.25, -1},
		{0.125, 2, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SaveVectors(ctx, "run-1", table); err != nil {
		t.Fatalf("SaveVectors: %v", err)
	}

	loaded, err := st.LoadVectors(ctx, "run-1", "USA")
	if err != nil {
		t.Fatalf("LoadVectors: %v", err)
	}
	if loaded.Len() != 3 || loaded.Dim() != 3 || loaded.Group() != "USA" {
		t.Fatalf("unexpected table shape")
	}
	words := loaded.Words()
	if words[0] != "peace" || words[2] != "trade" {
		t.Errorf("word order not preserved: %v", words)
	}
	v, _ := loaded.Lookup("trade")
	if v[0] != 0.125 || v[1] != 2 {
		t.Errorf("vector mismatch: %v", v)
	}

	if _, err := st.LoadVectors(ctx, "run-1", "CHN"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testRankings(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	seedRun(t, st, "run-1", time.Now())

	rankings := []vectors.Ranking{
		{Query: "security", Neighbors: []vectors.Neighbor{{Word: "security", Similarity: 1}, {Word: "council", Similarity: 0.8}}},
		{Query: "climate", Neighbors: []vectors.Neighbor{{Word: "climate", Similarity: 1}}, Degenerate: []string{"void"}},
	}
	for _, r := range rankings {
		if err := st.SaveRanking(ctx, "run-1", "USA", r); err != nil {
			t.Fatalf("SaveRanking: %v", err)
		}
	}

	got, err := st.GetRankings(ctx, "run-1", "USA")
	if err != nil {
		t.Fatalf("GetRankings: %v", err)
	}
	if len(got) != 2 || got[0].Query != "climate" || got[1].Query != "security" {
		t.Fatalf("rankings should be ordered by query, got %+v", got)
	}
	if len(got[1].Neighbors) != 2 || got[1].Neighbors[1].Word != "council" || got[1].Neighbors[1].Similarity != 0.8 {
		t.Errorf("neighbors mismatch: %+v", got[1].Neighbors)
	}
	if len(got[0].Degenerate) != 1 || got[0].Degenerate[0] != "void" {
		t.Errorf("degenerate mismatch: %v", got[0].Degenerate)
	}
}
