package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/cognicore/speechlens/pkg/speechlens/corpus"
	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
	"github.com/cognicore/speechlens/pkg/speechlens/store"
	"github.com/cognicore/speechlens/pkg/speechlens/store/sqlite"
	"github.com/cognicore/speechlens/pkg/speechlens/vectors"
)

func main() {
	var (
		dbPath      = flag.String("db", "", "Database path (required)")
		runID       = flag.String("run", "", "Run id (default: latest run)")
		group       = flag.String("group", "", "Group code (required)")
		word        = flag.String("word", "", "One-shot query word (non-interactive mode)")
		topN        = flag.Int("topn", vectors.DefaultTopN, "Number of neighbors to return")
		excludeSelf = flag.Bool("exclude-self", false, "Leave the query word out of the ranking")
		listRuns    = flag.Bool("runs", false, "List stored runs and exit")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}

	ctx := context.Background()
	st, err := sqlite.OpenSQLite(ctx, *dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if *listRuns {
		if err := printRuns(ctx, os.Stdout, st); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *group == "" {
		log.Fatal("--group required")
	}

	id, err := resolveRun(ctx, st, *runID)
	if err != nil {
		log.Fatal(err)
	}
	table, err := st.LoadVectors(ctx, id, corpus.CanonicalGroup(*group))
	if err != nil {
		log.Fatalf("load vectors: %v", err)
	}

	// One-shot query mode
	if *word != "" {
		if err := executeQuery(os.Stdout, table, *word, *topN, !*excludeSelf); err != nil {
			log.Fatal(err)
		}
		return
	}

	fmt.Printf("run %s, group %s, %d words (Ctrl+D to exit)\n", id, table.Group(), table.Len())
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		w := strings.TrimSpace(scanner.Text())
		if w == "" {
			continue
		}
		if err := executeQuery(os.Stdout, table, w, *topN, !*excludeSelf); err != nil {
			// Misses are per query; keep the session going.
			fmt.Printf("  %v\n", err)
		}
	}
}

func resolveRun(ctx context.Context, st store.Store, id string) (string, error) {
	if id != "" {
		if _, err := st.GetRun(ctx, id); err != nil {
			return "", err
		}
		return id, nil
	}
	runs, err := st.ListRuns(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w: no runs stored", internalerr.ErrNotFound)
	}
	return runs[0].ID, nil
}

func printRuns(ctx context.Context, w io.Writer, st store.Store) error {
	runs, err := st.ListRuns(ctx, 50)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  groups=%s min_year=%d docs=%d\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), strings.Join(r.Groups, ","), r.MinYear, r.Documents)
	}
	return nil
}

func executeQuery(w io.Writer, table *vectors.Table, word string, topN int, includeSelf bool) error {
	ranking, err := table.Nearest(strings.ToLower(word), topN, includeSelf)
	if err != nil {
		if errors.Is(err, internalerr.ErrVocabularyMiss) {
			return fmt.Errorf("%q is not in the %s vocabulary (pruned or absent)", word, table.Group())
		}
		return err
	}
	for i, n := range ranking.Neighbors {
		fmt.Fprintf(w, "%2d. %-24s %.4f\n", i+1, n.Word, n.Similarity)
	}
	if len(ranking.Degenerate) > 0 {
		fmt.Fprintf(w, "skipped zero vectors: %s\n", strings.Join(ranking.Degenerate, ", "))
	}
	return nil
}
