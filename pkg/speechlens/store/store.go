package store

import (
	"context"
	"time"

	"github.com/cognicore/speechlens/pkg/speechlens/tfidf"
	"github.com/cognicore/speechlens/pkg/speechlens/vectors"
)

// Store persists analysis runs and their tabular outputs
type Store interface {
	Close() error

	// Runs
	SaveRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// TF-IDF
	SaveTFIDF(ctx context.Context, runID string, records []tfidf.Record) error
	GetTFIDF(ctx context.Context, runID, group string) ([]tfidf.Record, error)

	// Embeddings
	SaveVectors(ctx context.Context, runID string, t *vectors.Table) error
	LoadVectors(ctx context.Context, runID, group string) (*vectors.Table, error)

	// Similarity queries
	SaveRanking(ctx context.Context, runID, group string, r vectors.Ranking) error
	GetRankings(ctx context.Context, runID, group string) ([]vectors.Ranking, error)
}

// Run describes one analysis pass
type Run struct {
	ID        string
	CreatedAt time.Time
	CorpusDir string
	Groups    []string
	MinYear   int
	Documents int
	// Config is the YAML rendering of the configuration used.
	Config string
}
