// Package config loads and validates the four configuration options a Sail
// deployment supplies: the index directory (or an in-memory fallback for
// tests), the analyzer, and the incomplete-query-handling policy.
package config

import (
	"github.com/blevesearch/bleve/v2"

	"github.com/kreuzverweis/lucenesail/internal/errs"
)

// DefaultAnalyzer is used when no analyzer is configured: bleve's standard,
// language-agnostic analyzer.
const DefaultAnalyzer = "standard"

// Config holds the four configuration options a deployment supplies.
type Config struct {
	// LuceneDir is the on-disk directory for the index. Mutually exclusive
	// with UseRAMDir.
	LuceneDir string `yaml:"lucenedir"`

	// UseRAMDir selects an in-memory directory, for testing. Mutually
	// exclusive with LuceneDir.
	UseRAMDir bool `yaml:"useramdir"`

	// Analyzer names the textual analyzer plug-in. Defaults to
	// DefaultAnalyzer.
	Analyzer string `yaml:"analyzer"`

	// IncompleteQueryFail selects the textual sub-query validation
	// severity: true fails fast on an invalid QuerySpec, false logs and
	// skips it. Defaults to true.
	IncompleteQueryFail bool `yaml:"incompletequeryfail"`
}

// Load builds a Config from a string-keyed option map, the conventional
// shape Sail configuration is supplied in, applying defaults and then
// validating. IncompleteQueryFail defaults to true unless explicitly set to
// "false".
func Load(options map[string]string) (*Config, error) {
	cfg := &Config{
		Analyzer:            DefaultAnalyzer,
		IncompleteQueryFail: true,
	}

	if v, ok := options["lucenedir"]; ok {
		cfg.LuceneDir = v
	}
	if v, ok := options["useramdir"]; ok {
		cfg.UseRAMDir = v == "true"
	}
	if v, ok := options["analyzer"]; ok && v != "" {
		cfg.Analyzer = v
	}
	if v, ok := options["incompletequeryfail"]; ok {
		cfg.IncompleteQueryFail = v != "false"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that exactly one of LuceneDir or UseRAMDir is set.
func (c *Config) Validate() error {
	if c == nil {
		return errs.NewConfigError("config is nil")
	}

	hasDir := c.LuceneDir != ""
	if hasDir == c.UseRAMDir {
		if hasDir {
			return errs.NewConfigError("exactly one of lucenedir or useramdir must be set, both were given")
		}
		return errs.NewConfigError("exactly one of lucenedir or useramdir must be set, neither was given")
	}

	if c.Analyzer == "" {
		c.Analyzer = DefaultAnalyzer
	}

	return validateAnalyzer(c.Analyzer)
}

// validateAnalyzer rejects an unknown analyzer name by reusing bleve's own
// mapping validation rather than hand-maintaining an allow-list: a
// throwaway mapping with name set as its default analyzer fails Validate
// exactly the way a real bleve.New/bleve.Open call would fail later, just
// far earlier and with a typed error.
func validateAnalyzer(name string) error {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = name
	if err := m.Validate(); err != nil {
		return errs.NewConfigError("unknown analyzer class " + name + ": " + err.Error())
	}
	return nil
}
