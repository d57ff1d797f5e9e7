// Package config loads hgsim run configuration from YAML files and
// environment variables. Files are checked against an embedded CUE schema
// before they are decoded.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/hgsim/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// Config contains all settings of a simulation run.
type Config struct {
	// Seed seeds the random source. Same seed, same run.
	Seed int64 `json:"seed" yaml:"seed"`

	// Steps is the step budget.
	Steps int `json:"steps" yaml:"steps"`

	// PatternSize is the maxSize passed to neighborhood search.
	PatternSize int `json:"pattern_size" yaml:"pattern_size"`

	// RecencyWindow is how many steps a freshly added node is protected
	// from compaction.
	RecencyWindow int `json:"recency_window" yaml:"recency_window"`

	// InitialSelfLoops is the number of self edges on the initial node.
	InitialSelfLoops int `json:"initial_self_loops" yaml:"initial_self_loops"`

	// SampleSize is the number of edges shown in each status line.
	SampleSize int `json:"sample_size" yaml:"sample_size"`

	// ToggleRemoveTarget is "pattern" (remove the matched edge) or
	// "self_loop" (remove the checked node's self edge).
	ToggleRemoveTarget string `json:"toggle_remove_target" yaml:"toggle_remove_target"`

	// Database is the SQLite run log path. Empty disables recording.
	Database string `json:"database,omitempty" yaml:"database,omitempty"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with the reference run settings.
func Default() *Config {
	return &Config{
		Seed:               42,
		Steps:              30,
		PatternSize:        1,
		RecencyWindow:      10,
		InitialSelfLoops:   2,
		SampleSize:         5,
		ToggleRemoveTarget: "pattern",
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load returns the configuration from path, or the defaults when path is
// empty, with environment overrides applied.
// Order: defaults -> file -> environment variables
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys absent
// from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates data against the schema and decodes it over the defaults.
func Parse(data []byte) (*Config, error) {
	if err := ValidateYAML(data); err != nil {
		return nil, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// ValidateYAML checks a YAML document against the embedded CUE schema.
// An empty document is valid.
func ValidateYAML(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", c.Steps)
	}
	if c.PatternSize < 1 {
		return fmt.Errorf("pattern_size must be at least 1, got %d", c.PatternSize)
	}
	if c.RecencyWindow < 0 {
		return fmt.Errorf("recency_window must be non-negative, got %d", c.RecencyWindow)
	}
	if c.InitialSelfLoops < 0 {
		return fmt.Errorf("initial_self_loops must be non-negative, got %d", c.InitialSelfLoops)
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("sample_size must be non-negative, got %d", c.SampleSize)
	}

	validTargets := map[string]bool{"pattern": true, "self_loop": true}
	if !validTargets[c.ToggleRemoveTarget] {
		return fmt.Errorf("invalid toggle_remove_target: %s (valid: pattern, self_loop)", c.ToggleRemoveTarget)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// Params returns the parameters that determine a run.
func (c *Config) Params() ir.RunParams {
	return ir.RunParams{
		Seed:               c.Seed,
		Steps:              c.Steps,
		PatternSize:        c.PatternSize,
		RecencyWindow:      c.RecencyWindow,
		InitialSelfLoops:   c.InitialSelfLoops,
		ToggleRemoveTarget: c.ToggleRemoveTarget,
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
// Unparseable numbers are ignored.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HGSIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}

	if v := os.Getenv("HGSIM_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Steps = n
		}
	}

	if v := os.Getenv("HGSIM_DB"); v != "" {
		cfg.Database = v
	}

	if v := os.Getenv("HGSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
