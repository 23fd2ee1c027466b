package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/speechlens/pkg/speechlens/cooccur"
	"github.com/cognicore/speechlens/pkg/speechlens/glove"
	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
	"github.com/cognicore/speechlens/pkg/speechlens/tfidf"
	"github.com/cognicore/speechlens/pkg/speechlens/vectors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SPEECHLENS_"

// Config is the full analysis configuration.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Filter    FilterConfig    `yaml:"filter"`
	TFIDF     TFIDFConfig     `yaml:"tfidf"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Query     QueryConfig     `yaml:"query"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
}

// CorpusConfig locates the speech files.
type CorpusConfig struct {
	Dir           string `yaml:"dir"`
	SkipMalformed bool   `yaml:"skip_malformed"`
	// StoplistPath names a YAML stoplist. Its words are removed from both
	// the TF-IDF counts and the embedding stream.
	StoplistPath string `yaml:"stoplist"`
}

// FilterConfig selects documents.
type FilterConfig struct {
	MinYear int      `yaml:"min_year"`
	Groups  []string `yaml:"groups"`
}

// TFIDFConfig controls term weighting.
type TFIDFConfig struct {
	TopK int `yaml:"top_k"`
}

// EmbeddingConfig controls co-occurrence and GloVe training.
type EmbeddingConfig struct {
	MinTermCount         int     `yaml:"min_term_count"`
	WindowSize           int     `yaml:"window_size"`
	Weighting            string  `yaml:"weighting"`
	RespectBoundaries    bool    `yaml:"respect_boundaries"`
	VectorDim            int     `yaml:"vector_dim"`
	XMax                 float64 `yaml:"x_max"`
	Alpha                float64 `yaml:"alpha"`
	LearningRate         float64 `yaml:"learning_rate"`
	MaxIterations        int     `yaml:"max_iterations"`
	ConvergenceTolerance float64 `yaml:"convergence_tolerance"`
	Seed                 uint64  `yaml:"seed"`
}

// QueryConfig lists the nearest-neighbor queries.
type QueryConfig struct {
	Words       []string `yaml:"words"`
	TopN        int      `yaml:"top_n"`
	IncludeSelf bool     `yaml:"include_self"`
	PMIBaseline bool     `yaml:"pmi_baseline"`
	// PMINormalized scores the baseline with NPMI so it shares the [-1, 1]
	// range of cosine similarity.
	PMINormalized bool `yaml:"pmi_normalized"`
}

// StoreConfig selects where results are persisted. An empty path keeps
// results in memory only.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the reference configuration.
func Default() Config {
	emb := glove.DefaultOptions()
	co := cooccur.DefaultOptions()
	return Config{
		TFIDF: TFIDFConfig{TopK: tfidf.DefaultTopK},
		Embedding: EmbeddingConfig{
			MinTermCount:         co.MinCount,
			WindowSize:           co.Window,
			Weighting:            string(co.Weighting),
			VectorDim:            emb.Dim,
			XMax:                 emb.XMax,
			Alpha:                emb.Alpha,
			LearningRate:         emb.LearningRate,
			MaxIterations:        emb.MaxIterations,
			ConvergenceTolerance: emb.Tolerance,
			Seed:                 emb.Seed,
		},
		Query: QueryConfig{TopN: vectors.DefaultTopN, IncludeSelf: true, PMINormalized: true},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML config over the defaults. An empty path yields the
// defaults. Environment overrides are applied afterwards, including values
// from a .env file in the working directory when present.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	setString(&c.Corpus.Dir, "CORPUS_DIR")
	setString(&c.Corpus.StoplistPath, "STOPLIST")
	setString(&c.Store.Path, "STORE_PATH")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	if v, ok := lookup("GROUPS"); ok {
		c.Filter.Groups = splitList(v)
	}
	if v, ok := lookup("QUERY_WORDS"); ok {
		c.Query.Words = splitList(v)
	}
	errs = append(errs,
		setInt(&c.Filter.MinYear, "MIN_YEAR"),
		setInt(&c.TFIDF.TopK, "TOP_K"),
		setInt(&c.Embedding.MinTermCount, "MIN_TERM_COUNT"),
		setInt(&c.Embedding.WindowSize, "WINDOW_SIZE"),
		setInt(&c.Embedding.VectorDim, "VECTOR_DIM"),
		setInt(&c.Embedding.MaxIterations, "MAX_ITERATIONS"),
		setInt(&c.Query.TopN, "TOP_N"),
		setFloat(&c.Embedding.XMax, "X_MAX"),
		setFloat(&c.Embedding.ConvergenceTolerance, "CONVERGENCE_TOLERANCE"),
	)
	if v, ok := lookup("SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %sSEED: %v", internalerr.ErrInvalidConfig, EnvPrefix, err))
		} else {
			c.Embedding.Seed = seed
		}
	}
	return errors.Join(errs...)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.TFIDF.TopK < 0 {
		errs = append(errs, fmt.Errorf("tfidf.top_k must be >= 0"))
	}
	if c.Query.TopN < 0 {
		errs = append(errs, fmt.Errorf("query.top_n must be >= 0"))
	}
	if err := c.CooccurOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.GloveOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	return nil
}

// CooccurOptions maps the embedding section to builder options.
func (c *Config) CooccurOptions() cooccur.Options {
	return cooccur.Options{
		MinCount:          c.Embedding.MinTermCount,
		Window:            c.Embedding.WindowSize,
		Weighting:         cooccur.Weighting(c.Embedding.Weighting),
		RespectBoundaries: c.Embedding.RespectBoundaries,
	}
}

// GloveOptions maps the embedding section to trainer options.
func (c *Config) GloveOptions() glove.Options {
	return glove.Options{
		Dim:           c.Embedding.VectorDim,
		XMax:          c.Embedding.XMax,
		Alpha:         c.Embedding.Alpha,
		LearningRate:  c.Embedding.LearningRate,
		MaxIterations: c.Embedding.MaxIterations,
		Tolerance:     c.Embedding.ConvergenceTolerance,
		Seed:          c.Embedding.Seed,
	}
}

func lookup(key string) (string, bool) {
	v := os.Getenv(EnvPrefix + key)
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s%s: %v", internalerr.ErrInvalidConfig, EnvPrefix, key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %s%s: %v", internalerr.ErrInvalidConfig, EnvPrefix, key, err)
	}
	*dst = f
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}
