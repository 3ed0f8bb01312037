package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/graphrw/anvil/internal/rewrite"
)

// Scenario defines a canonicalization conformance scenario: an input
// graph, an optional driver setup, and the expected shape of the run.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the
	// golden file when the scenario runs through RunWithGolden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Input is the textual form of the graph to canonicalize.
	Input string `yaml:"input"`

	// Config overrides driver configuration fields. Nil keeps the
	// defaults of rewrite.DefaultConfig.
	Config *ConfigBlock `yaml:"config,omitempty"`

	// Filters restricts the pattern registry by name.
	Filters *FilterBlock `yaml:"filters,omitempty"`

	// Expect declares the expected outcome of the run.
	Expect ExpectBlock `yaml:"expect"`
}

// ConfigBlock mirrors the driver configuration knobs. Pointer fields
// distinguish "absent" from an explicit zero value.
type ConfigBlock struct {
	// Direction is "bottom-up" (default) or "top-down".
	Direction string `yaml:"direction,omitempty"`

	// RegionSimplify toggles region cleanup between rounds.
	RegionSimplify *bool `yaml:"region_simplify,omitempty"`

	// MaxIterations bounds the number of rounds. -1 is unlimited.
	MaxIterations *int `yaml:"max_iterations,omitempty"`

	// MaxRewrites bounds the total rewrite count. -1 is unlimited.
	MaxRewrites *int `yaml:"max_rewrites,omitempty"`

	// VerifyEach re-verifies the graph after every applied rewrite.
	VerifyEach bool `yaml:"verify_each,omitempty"`
}

// FilterBlock selects patterns by registered name.
type FilterBlock struct {
	Enabled  []string `yaml:"enabled,omitempty"`
	Disabled []string `yaml:"disabled,omitempty"`
}

// ExpectBlock declares assertions on the canonicalized run.
type ExpectBlock struct {
	// Outcome is the expected stop reason:
	// "converged", "iteration-limit", or "rewrite-limit".
	Outcome string `yaml:"outcome"`

	// Rewrites is the exact expected rewrite count. Nil skips the check.
	Rewrites *int `yaml:"rewrites,omitempty"`

	// Output is the exact expected printed form of the final graph.
	// Empty skips the check.
	Output string `yaml:"output,omitempty"`

	// OpCount maps op names to their expected occurrence count in the
	// final graph.
	OpCount map[string]int `yaml:"op_count,omitempty"`

	// OpAbsent lists ops that must not appear in the final graph.
	OpAbsent []string `yaml:"op_absent,omitempty"`
}

// Outcome names accepted in expect.outcome, matching the String form
// of rewrite.Outcome.
var validOutcomes = map[string]rewrite.Outcome{
	rewrite.Converged.String():      rewrite.Converged,
	rewrite.IterationLimit.String(): rewrite.IterationLimit,
	rewrite.RewriteLimit.String():   rewrite.RewriteLimit,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Input == "" {
		return fmt.Errorf("input graph is required")
	}

	if s.Config != nil {
		if err := validateConfig(s.Config); err != nil {
			return err
		}
	}

	if s.Filters != nil {
		for i, name := range s.Filters.Enabled {
			if name == "" {
				return fmt.Errorf("filters.enabled[%d]: pattern name must not be empty", i)
			}
		}
		for i, name := range s.Filters.Disabled {
			if name == "" {
				return fmt.Errorf("filters.disabled[%d]: pattern name must not be empty", i)
			}
		}
	}

	return validateExpect(&s.Expect)
}

// validateConfig checks driver overrides before they reach the driver.
func validateConfig(c *ConfigBlock) error {
	switch c.Direction {
	case "", "bottom-up", "top-down":
	default:
		return fmt.Errorf(`config.direction: must be "bottom-up" or "top-down", got %q`, c.Direction)
	}
	if c.MaxIterations != nil && *c.MaxIterations < rewrite.Unlimited {
		return fmt.Errorf("config.max_iterations: must be -1 (unlimited) or non-negative, got %d", *c.MaxIterations)
	}
	if c.MaxRewrites != nil && *c.MaxRewrites < rewrite.Unlimited {
		return fmt.Errorf("config.max_rewrites: must be -1 (unlimited) or non-negative, got %d", *c.MaxRewrites)
	}
	return nil
}

// validateExpect checks the assertion block.
func validateExpect(e *ExpectBlock) error {
	if e.Outcome == "" {
		return fmt.Errorf("expect.outcome is required")
	}
	if _, ok := validOutcomes[e.Outcome]; !ok {
		return fmt.Errorf("expect.outcome: unknown outcome %q", e.Outcome)
	}

	if e.Rewrites != nil && *e.Rewrites < 0 {
		return fmt.Errorf("expect.rewrites: must be non-negative, got %d", *e.Rewrites)
	}

	for op, count := range e.OpCount {
		if op == "" {
			return fmt.Errorf("expect.op_count: op name must not be empty")
		}
		if count < 0 {
			return fmt.Errorf("expect.op_count[%s]: count must be non-negative, got %d", op, count)
		}
	}

	for i, op := range e.OpAbsent {
		if op == "" {
			return fmt.Errorf("expect.op_absent[%d]: op name must not be empty", i)
		}
	}

	return nil
}

// driverConfig maps the scenario's config block onto a driver
// configuration, starting from the defaults.
func (s *Scenario) driverConfig() rewrite.Config {
	cfg := rewrite.DefaultConfig()
	c := s.Config
	if c == nil {
		return cfg
	}
	if c.Direction == "top-down" {
		cfg.TopDown = true
	}
	if c.RegionSimplify != nil {
		cfg.RegionSimplify = *c.RegionSimplify
	}
	if c.MaxIterations != nil {
		cfg.MaxIterations = *c.MaxIterations
	}
	if c.MaxRewrites != nil {
		cfg.MaxRewrites = *c.MaxRewrites
	}
	cfg.VerifyEach = c.VerifyEach
	return cfg
}
