package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
	"github.com/cognicore/speechlens/pkg/speechlens/store"
	"github.com/cognicore/speechlens/pkg/speechlens/tfidf"
	"github.com/cognicore/speechlens/pkg/speechlens/vectors"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	corpus_dir TEXT,
	groups_json TEXT,
	min_year INTEGER,
	documents INTEGER,
	config TEXT
);

CREATE TABLE IF NOT EXISTS tfidf (
	run_id TEXT NOT NULL,
	grp TEXT NOT NULL,
	rank INTEGER NOT NULL,
	word TEXT NOT NULL,
	count INTEGER NOT NULL,
	tf REAL NOT NULL,
	idf REAL NOT NULL,
	score REAL NOT NULL,
	PRIMARY KEY(run_id, grp, word),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS word_vectors (
	run_id TEXT NOT NULL,
	grp TEXT NOT NULL,
	idx INTEGER NOT NULL,
	word TEXT NOT NULL,
	vector TEXT NOT NULL,
	PRIMARY KEY(run_id, grp, word),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS rankings (
	run_id TEXT NOT NULL,
	grp TEXT NOT NULL,
	query TEXT NOT NULL,
	neighbors TEXT NOT NULL,
	degenerate TEXT,
	PRIMARY KEY(run_id, grp, query),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tfidf_group ON tfidf(run_id, grp, rank);
CREATE INDEX IF NOT EXISTS idx_vectors_group ON word_vectors(run_id, grp, idx);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun inserts or replaces a run record
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", internalerr.ErrInvalidInput)
	}
	groups, err := json.Marshal(r.Groups)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs(id, created_at, corpus_dir, groups_json, min_year, documents, config)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	created_at = excluded.created_at,
	corpus_dir = excluded.corpus_dir,
	groups_json = excluded.groups_json,
	min_year = excluded.min_year,
	documents = excluded.documents,
	config = excluded.config;
`, r.ID, r.CreatedAt.UTC().Format(time.RFC3339Nano), r.CorpusDir, string(groups), r.MinYear, r.Documents, r.Config)
	return err
}

// GetRun loads a run by id
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, created_at, corpus_dir, groups_json, min_year, documents, config
FROM runs WHERE id = ?;
`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("%w: run %s", internalerr.ErrNotFound, id)
	}
	return r, err
}

// ListRuns returns the most recent runs first
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, created_at, corpus_dir, groups_json, min_year, documents, config
FROM runs ORDER BY created_at DESC, id DESC LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (store.Run, error) {
	var (
		r       store.Run
		created string
		groups  string
	)
	if err := sc.Scan(&r.ID, &created, &r.CorpusDir, &groups, &r.MinYear, &r.Documents, &r.Config); err != nil {
		return store.Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return store.Run{}, err
	}
	r.CreatedAt = t
	if groups != "" {
		if err := json.Unmarshal([]byte(groups), &r.Groups); err != nil {
			return store.Run{}, err
		}
	}
	return r, nil
}

// SaveTFIDF stores records, preserving their order as rank. Each group in
// records replaces what was stored for it before.
func (s *sqliteStore) SaveTFIDF(ctx context.Context, runID string, records []tfidf.Record) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		cleared := make(map[string]bool)
		for _, rec := range records {
			if cleared[rec.Group] {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM tfidf WHERE run_id = ? AND grp = ?;`, runID, rec.Group); err != nil {
				return err
			}
			cleared[rec.Group] = true
		}

		stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO tfidf(run_id, grp, rank, word, count, tf, idf, score)
VALUES(?, ?, ?, ?, ?, ?, ?, ?);
`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		rank := make(map[string]int)
		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx, runID, rec.Group, rank[rec.Group], rec.Word, rec.Count, rec.TF, rec.IDF, rec.TFIDF); err != nil {
				return err
			}
			rank[rec.Group]++
		}
		return nil
	})
}

// GetTFIDF returns a group's records in rank order
func (s *sqliteStore) GetTFIDF(ctx context.Context, runID, group string) ([]tfidf.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT grp, word, count, tf, idf, score FROM tfidf
WHERE run_id = ? AND grp = ? ORDER BY rank;
`, runID, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tfidf.Record
	for rows.Next() {
		var r tfidf.Record
		if err := rows.Scan(&r.Group, &r.Word, &r.Count, &r.TF, &r.IDF, &r.TFIDF); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveVectors stores a group's word vectors as JSON arrays
func (s *sqliteStore) SaveVectors(ctx context.Context, runID string, t *vectors.Table) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM word_vectors WHERE run_id = ? AND grp = ?;`, runID, t.Group()); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO word_vectors(run_id, grp, idx, word, vector) VALUES(?, ?, ?, ?, ?);
`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, w := range t.Words() {
			v, _ := t.Lookup(w)
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, runID, t.Group(), i, w, string(data)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadVectors rebuilds a group's vector table
func (s *sqliteStore) LoadVectors(ctx context.Context, runID, group string) (*vectors.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT word, vector FROM word_vectors WHERE run_id = ? AND grp = ? ORDER BY idx;
`, runID, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		words []string
		vecs  [][]float64
	)
	for rows.Next() {
		var w, raw string
		if err := rows.Scan(&w, &raw); err != nil {
			return nil, err
		}
		var v []float64
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode vector %q: %w", w, err)
		}
		words = append(words, w)
		vecs = append(vecs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: vectors for run %s group %s", internalerr.ErrNotFound, runID, group)
	}
	return vectors.NewTable(group, words, vecs)
}

// SaveRanking stores one query result
func (s *sqliteStore) SaveRanking(ctx context.Context, runID, group string, r vectors.Ranking) error {
	neighbors, err := json.Marshal(r.Neighbors)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO rankings(run_id, grp, query, neighbors, degenerate) VALUES(?, ?, ?, ?, ?);
`, runID, group, r.Query, string(neighbors), strings.Join(r.Degenerate, ","))
	return err
}

// GetRankings returns a group's stored query results ordered by query
func (s *sqliteStore) GetRankings(ctx context.Context, runID, group string) ([]vectors.Ranking, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT query, neighbors, degenerate FROM rankings WHERE run_id = ? AND grp = ? ORDER BY query;
`, runID, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []vectors.Ranking
	for rows.Next() {
		var (
			r          vectors.Ranking
			neighbors  string
			degenerate sql.NullString
		)
		if err := rows.Scan(&r.Query, &neighbors, &degenerate); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(neighbors), &r.Neighbors); err != nil {
			return nil, err
		}
		if degenerate.Valid && degenerate.String != "" {
			r.Degenerate = strings.Split(degenerate.String, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
