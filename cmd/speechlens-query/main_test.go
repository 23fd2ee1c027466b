package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
	"github.com/cognicore/speechlens/pkg/speechlens/store"
	"github.com/cognicore/speechlens/pkg/speechlens/store/memstore"
	"github.com/cognicore/speechlens/pkg/speechlens/vectors"
)

func TestExecuteQuery(t *testing.T) {
	table, err := vectors.NewTable("USA", []string{"peace", "security", "trade"}, [][]float64{
		{1, 0}, {0.9, 0.1}, {0, 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := executeQuery(&buf, table, "Peace", 2, true); err != nil {
		t.Fatalf("executeQuery: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "peace") || !strings.Contains(lines[1], "security") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	if err := executeQuery(&buf, table, "nuclear", 2, true); err == nil || !strings.Contains(err.Error(), "not in the USA vocabulary") {
		t.Errorf("expected vocabulary miss message, got %v", err)
	}
}

func TestResolveRun(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	if _, err := resolveRun(ctx, st, ""); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound with no runs, got %v", err)
	}

	now := time.Now()
	st.SaveRun(ctx, store.Run{ID: "old", CreatedAt: now.Add(-time.Hour)})
	st.SaveRun(ctx, store.Run{ID: "new", CreatedAt: now})

	id, err := resolveRun(ctx, st, "")
	if err != nil || id != "new" {
		t.Errorf("latest run = %q (%v), want new", id, err)
	}
	if id, err := resolveRun(ctx, st, "old"); err != nil || id != "old" {
		t.Errorf("explicit run = %q (%v)", id, err)
	}
	if _, err := resolveRun(ctx, st, "missing"); err == nil {
		t.Error("unknown run should fail")
	}

	var buf bytes.Buffer
	if err := printRuns(ctx, &buf, st); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "new") {
		t.Errorf("runs should be listed newest first:\n%s", buf.String())
	}
}
