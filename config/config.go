// Package config loads the YAML configuration that drives one run of the
// slicer: which offsets to track, which functions to exempt from pruning,
// and the set of slicing problems (criteria) to mark and slice.
package config

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

var configFile string

// SetGlobalConfig sets the filename LoadGlobal will read.
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file set by SetGlobalConfig.
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Options holds the scalar settings of a Config; split out from Config so a
// caller building one programmatically (as opposed to from YAML) can embed
// just the flat part.
type Options struct {
	// MaxOffset caps offset arithmetic in the points-to engine; 0 means use
	// offset.DefaultMaxOffset.
	MaxOffset uint64 `yaml:"max-offset"`

	// InvalidateNodes enables the engine's CALL_RETURN invalidation step
	// (Engine.InvalidateNodes).
	InvalidateNodes bool `yaml:"invalidate-nodes"`

	// ReportsDir is loaded from YAML but cmd/slicer does not read it: the
	// optional DOT dump is always written next to the input.
	ReportsDir string `yaml:"reports-dir"`

	// DumpDot requests a textual Graphviz DOT dump of the sliced dependence
	// graph alongside the sliced output.
	DumpDot bool `yaml:"dump-dot"`

	// LogLevel controls verbosity; see the LogLevel constants.
	LogLevel int `yaml:"log-level"`
}

// SlicingSpec names the criteria for one slicing problem: the program
// points to keep live, and which functions are exempt from pruning
// entirely (Slicer.KeepFunctionUntouched).
type SlicingSpec struct {
	// Criteria lists the slicing criteria in the form
	// slicer.ResolveCriterion accepts: a function name, or the literal
	// "ret". cmd/slicer takes its criterion from the command line and does
	// not read this field.
	Criteria []string `yaml:"criteria"`

	// UntouchedFunctions lists functions whose bodies Slice must never
	// prune, regardless of whether Mark reached any of their nodes.
	UntouchedFunctions []string `yaml:"untouched-functions"`
}

// Config is the full configuration for one slicer run, loaded from YAML.
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// SlicingProblems lists the slicing problems. cmd/slicer reads only the
	// UntouchedFunctions of every entry; its single criterion comes from the
	// -c/-crit/-slice flag, and no list is synthesized when no config file
	// is given.
	SlicingProblems []SlicingSpec `yaml:"slicing-problems"`
}

// NewDefault returns a Config with the tool's built-in defaults.
func NewDefault() *Config {
	return &Config{
		Options: Options{
			LogLevel: int(InfoLevel),
		},
	}
}

// Load reads and parses the YAML config at filename, filling in defaults
// for anything the file left zero.
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}
	cfg.sourceFile = filename

	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	return cfg, nil
}

// RelPath resolves filename relative to the directory the config was loaded
// from.
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// Verbose reports whether the configured log level is Debug or above.
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
