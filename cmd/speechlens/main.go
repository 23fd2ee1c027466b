package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/cognicore/speechlens/internal/logger"
	"github.com/cognicore/speechlens/pkg/speechlens"
	"github.com/cognicore/speechlens/pkg/speechlens/config"
	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
	"github.com/cognicore/speechlens/pkg/speechlens/store"
	"github.com/cognicore/speechlens/pkg/speechlens/store/sqlite"
)

type flags struct {
	configPath string
	dir        string
	groups     string
	minYear    int
	queries    string
	dbPath     string
	stoplist   string
	logLevel   string
	workers    int
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("speechlens", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.dir, "dir", "", "Directory of speech files (overrides corpus.dir)")
	fs.StringVar(&f.groups, "groups", "", "Comma-separated group codes (overrides filter.groups)")
	fs.IntVar(&f.minYear, "min-year", -1, "Minimum speech year (overrides filter.min_year)")
	fs.StringVar(&f.queries, "query", "", "Comma-separated query words (overrides query.words)")
	fs.StringVar(&f.dbPath, "db", "", "SQLite database for results (overrides store.path)")
	fs.StringVar(&f.stoplist, "stoplist", "", "Optional stoplist file")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.IntVar(&f.workers, "workers", 0, "Groups processed concurrently (0 = GOMAXPROCS)")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	return f, nil
}

func (f flags) apply(cfg *config.Config) {
	if f.dir != "" {
		cfg.Corpus.Dir = f.dir
	}
	if f.groups != "" {
		cfg.Filter.Groups = splitList(f.groups)
	}
	if f.minYear >= 0 {
		cfg.Filter.MinYear = f.minYear
	}
	if f.queries != "" {
		cfg.Query.Words = splitList(f.queries)
	}
	if f.dbPath != "" {
		cfg.Store.Path = f.dbPath
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	components, err := (&config.Loader{ConfigPath: f.configPath, StoplistPath: f.stoplist}).Load()
	if err != nil {
		log.Fatalf("load configs: %v", err)
	}
	cfg := components.Config
	f.apply(cfg)
	if cfg.Corpus.Dir == "" {
		log.Fatal("--dir or corpus.dir required")
	}

	lg := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var st store.Store
	if cfg.Store.Path != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
		defer st.Close()
	}

	analyzer := speechlens.New(speechlens.Options{
		Config:      cfg,
		Tokenizer:   components.Tokenizer,
		Store:       st,
		Logger:      lg,
		Parallelism: f.workers,
	})

	corp, err := analyzer.Load(ctx)
	if err != nil {
		if errors.Is(err, internalerr.ErrEmptyCorpus) {
			log.Fatalf("nothing to analyze: %v", err)
		}
		log.Fatalf("load corpus: %v", err)
	}

	report, err := analyzer.Run(ctx, corp)
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("marshal report: %v", err)
	}
	fmt.Println(string(out))
}
