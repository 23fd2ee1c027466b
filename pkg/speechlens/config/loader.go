package config

import (
	"fmt"

	"github.com/cognicore/speechlens/pkg/speechlens/ingest"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	ConfigPath string
	// StoplistPath overrides corpus.stoplist from the config file.
	StoplistPath string
}

// Components holds all loaded configuration components
type Components struct {
	Config    *Config
	Tokenizer *ingest.Tokenizer
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	cfg, err := Load(l.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	comp := &Components{Config: cfg}

	stoplistPath := cfg.Corpus.StoplistPath
	if l.StoplistPath != "" {
		stoplistPath = l.StoplistPath
	}

	if stoplistPath != "" {
		stoplist, err := LoadStoplist(stoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Tokenizer = ingest.NewTokenizer(stoplist.Terms)
	} else {
		comp.Tokenizer = ingest.NewTokenizer([]string{})
	}

	return comp, nil
}
