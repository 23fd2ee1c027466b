// Package speechlens runs the speech analysis pipeline: TF-IDF term
// weighting over all groups, and per group a GloVe embedding with
// nearest-neighbor queries.
package speechlens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/speechlens/pkg/speechlens/config"
	"github.com/cognicore/speechlens/pkg/speechlens/cooccur"
	"github.com/cognicore/speechlens/pkg/speechlens/corpus"
	"github.com/cognicore/speechlens/pkg/speechlens/glove"
	"github.com/cognicore/speechlens/pkg/speechlens/ingest"
	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
	"github.com/cognicore/speechlens/pkg/speechlens/pmi"
	"github.com/cognicore/speechlens/pkg/speechlens/store"
	"github.com/cognicore/speechlens/pkg/speechlens/tfidf"
	"github.com/cognicore/speechlens/pkg/speechlens/vectors"
)

// Analyzer wires the pipeline stages together
type Analyzer struct {
	cfg         *config.Config
	tokenizer   *ingest.Tokenizer
	store       store.Store
	logger      *slog.Logger
	parallelism int
	ids         *runIDs
	now         func() time.Time
}

// Options configures an Analyzer
type Options struct {
	Config    *config.Config
	Tokenizer *ingest.Tokenizer
	// Store receives the run's outputs; nil keeps them in the report only.
	Store  store.Store
	Logger *slog.Logger
	// Parallelism bounds concurrently processed groups; <= 0 uses GOMAXPROCS.
	Parallelism int
}

// New creates an Analyzer with the given dependencies
func New(opts Options) *Analyzer {
	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	tok := opts.Tokenizer
	if tok == nil {
		tok = ingest.NewTokenizer(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	par := opts.Parallelism
	if par <= 0 {
		par = runtime.GOMAXPROCS(0)
	}
	return &Analyzer{
		cfg:         cfg,
		tokenizer:   tok,
		store:       opts.Store,
		logger:      logger,
		parallelism: par,
		ids:         newRunIDs(),
		now:         time.Now,
	}
}

// Report is the tabular output of one run
type Report struct {
	RunID     string         `json:"run_id"`
	CreatedAt time.Time      `json:"created_at"`
	Filter    string         `json:"filter"`
	Documents int            `json:"documents"`
	Groups    []*GroupResult `json:"groups"`
	TFIDFErr  string         `json:"tfidf_error,omitempty"`
}

// GroupResult holds one group's outputs. Err is set when the group's
// embedding could not be built; other groups are unaffected.
type GroupResult struct {
	Group      string         `json:"group"`
	Documents  int            `json:"documents"`
	Tokens     int64          `json:"tokens"`
	TFIDF      []tfidf.Record `json:"tfidf"`
	Vocabulary int            `json:"vocabulary"`
	Pairs      int            `json:"pairs"`
	Training   glove.Stats    `json:"training"`
	Queries    []QueryResult  `json:"queries"`
	Err        error          `json:"-"`
	Error      string         `json:"error,omitempty"`

	table  *vectors.Table
	matrix *cooccur.Result
}

// Table returns the group's trained vectors, or nil if training failed.
func (g *GroupResult) Table() *vectors.Table { return g.table }

// QueryResult is one nearest-neighbor query. Err carries a vocabulary miss
// or a degenerate vector for this query only.
type QueryResult struct {
	Word    string             `json:"word"`
	Ranking vectors.Ranking    `json:"ranking"`
	PMI     []vectors.Neighbor `json:"pmi_neighbors,omitempty"`
	Err     error              `json:"-"`
	Error   string             `json:"error,omitempty"`
}

// Group returns the result for a group.
func (r *Report) Group(name string) (*GroupResult, bool) {
	name = corpus.CanonicalGroup(name)
	for _, g := range r.Groups {
		if g.Group == name {
			return g, true
		}
	}
	return nil, false
}

// Load reads and filters the corpus configured for this analyzer.
func (a *Analyzer) Load(ctx context.Context) (*corpus.Corpus, error) {
	loader := &corpus.Loader{SkipMalformed: a.cfg.Corpus.SkipMalformed, Logger: a.logger}
	return loader.Load(ctx, a.cfg.Corpus.Dir, a.filter())
}

func (a *Analyzer) filter() corpus.Filter {
	return corpus.Filter{Groups: a.cfg.Filter.Groups, MinYear: a.cfg.Filter.MinYear}
}

// Run analyzes an already loaded corpus.
func (a *Analyzer) Run(ctx context.Context, c *corpus.Corpus) (*Report, error) {
	if c == nil || c.Len() == 0 {
		return nil, fmt.Errorf("%w: nothing to analyze for filter %s", internalerr.ErrEmptyCorpus, a.filter())
	}

	created := a.now()
	report := &Report{
		RunID:     a.ids.next(created),
		CreatedAt: created,
		Filter:    a.filter().String(),
		Documents: c.Len(),
	}
	logger := a.logger.With("run_id", report.RunID)
	logger.Info("analysis started", "documents", c.Len(), "groups", len(c.Groups()))

	// TF-IDF needs every group's counts at once.
	counter := ingest.NewCounter()
	counter.AddCorpus(a.tokenizer, c.Docs())
	table, err := tfidf.Score(counter, a.cfg.TFIDF.TopK)
	if err != nil {
		report.TFIDFErr = err.Error()
		logger.Warn("tfidf incomplete", "error", err)
	}

	groups := c.Groups()
	report.Groups = make([]*GroupResult, 0, len(groups))
	for _, g := range groups {
		report.Groups = append(report.Groups, &GroupResult{
			Group:     g,
			Documents: len(c.ByGroup(g)),
			Tokens:    counter.Total(g),
			TFIDF:     table.Records[g],
		})
	}
	// A requested group without documents is reported, not dropped.
	for _, g := range a.filter().Missing(groups) {
		err := fmt.Errorf("%w: group %s matched no documents for filter %s", internalerr.ErrEmptyCorpus, g, a.filter())
		report.Groups = append(report.Groups, &GroupResult{Group: g, Err: err, Error: err.Error()})
		logger.Warn("group skipped", "group", g, "error", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.parallelism)
	for _, gr := range report.Groups {
		if gr.Err != nil {
			continue
		}
		docs := c.ByGroup(gr.Group)
		eg.Go(func() error {
			a.embedGroup(egCtx, logger, gr, docs)
			// Group failures stay in the result; only cancellation stops the run.
			if errors.Is(gr.Err, context.Canceled) || errors.Is(gr.Err, context.DeadlineExceeded) {
				return gr.Err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if a.store != nil {
		if err := a.persist(ctx, report); err != nil {
			return report, fmt.Errorf("persist run %s: %w", report.RunID, err)
		}
	}

	logger.Info("analysis finished", "groups", len(report.Groups))
	return report, nil
}

func (a *Analyzer) embedGroup(ctx context.Context, logger *slog.Logger, gr *GroupResult, docs []corpus.Document) {
	logger = logger.With("group", gr.Group)
	fail := func(stage string, err error) {
		gr.Err = fmt.Errorf("group %s: %s: %w", gr.Group, stage, err)
		gr.Error = gr.Err.Error()
		logger.Error("group failed", "stage", stage, "error", err)
	}

	segments := a.tokenizer.Strip(ingest.NormalizeGroup(docs))
	res, err := cooccur.Build(segments, a.cfg.CooccurOptions())
	if err != nil {
		fail("cooccur", err)
		return
	}
	gr.matrix = res
	gr.Vocabulary = res.Vocab.Len()
	gr.Pairs = res.Matrix.NNZ()
	logger.Debug("co-occurrence built", "vocabulary", gr.Vocabulary, "pairs", gr.Pairs)

	opts := a.cfg.GloveOptions()
	opts.Logger = logger
	table, stats, err := glove.Train(ctx, gr.Group, res.Vocab, res.Matrix, opts)
	gr.Training = stats
	if err != nil {
		fail("train", err)
		return
	}
	gr.table = table
	logger.Info("embedding trained", "iterations", stats.Iterations, "loss", stats.FinalLoss(), "converged", stats.Converged)

	for _, w := range a.cfg.Query.Words {
		gr.Queries = append(gr.Queries, a.query(gr, w))
	}
}

// Query answers a nearest-neighbor query against a group's trained vectors.
func (a *Analyzer) Query(gr *GroupResult, word string) QueryResult {
	return a.query(gr, word)
}

func (a *Analyzer) query(gr *GroupResult, word string) QueryResult {
	qr := QueryResult{Word: word}
	if gr.table == nil {
		qr.Err = fmt.Errorf("%w: group %s has no trained vectors", internalerr.ErrNotFound, gr.Group)
		qr.Error = qr.Err.Error()
		return qr
	}

	ranking, err := gr.table.Nearest(word, a.cfg.Query.TopN, a.cfg.Query.IncludeSelf)
	if err != nil {
		qr.Err = err
		qr.Error = err.Error()
		a.logger.Warn("query failed", "group", gr.Group, "word", word, "error", err)
		return qr
	}
	qr.Ranking = ranking

	if a.cfg.Query.PMIBaseline && gr.matrix != nil {
		if id, ok := gr.matrix.Vocab.ID(word); ok {
			calc := pmi.NewCalculator(1.0)
			for _, n := range gr.matrix.Matrix.TopPMI(calc, id, a.cfg.Query.TopN, a.cfg.Query.PMINormalized) {
				qr.PMI = append(qr.PMI, vectors.Neighbor{Word: gr.matrix.Vocab.Word(n.ID), Similarity: n.Score})
			}
		}
	}
	return qr
}

func (a *Analyzer) persist(ctx context.Context, r *Report) error {
	cfgYAML, err := yaml.Marshal(a.cfg)
	if err != nil {
		return err
	}
	groups := make([]string, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = g.Group
	}
	if err := a.store.SaveRun(ctx, store.Run{
		ID:        r.RunID,
		CreatedAt: r.CreatedAt,
		CorpusDir: a.cfg.Corpus.Dir,
		Groups:    groups,
		MinYear:   a.cfg.Filter.MinYear,
		Documents: r.Documents,
		Config:    string(cfgYAML),
	}); err != nil {
		return err
	}

	var errs []error
	for _, g := range r.Groups {
		if len(g.TFIDF) > 0 {
			if err := a.store.SaveTFIDF(ctx, r.RunID, g.TFIDF); err != nil {
				errs = append(errs, err)
			}
		}
		if g.table == nil {
			continue
		}
		if err := a.store.SaveVectors(ctx, r.RunID, g.table); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, q := range g.Queries {
			if q.Err != nil {
				continue
			}
			if err := a.store.SaveRanking(ctx, r.RunID, g.Group, q.Ranking); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
