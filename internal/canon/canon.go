// Package canon assembles dialect pattern contributions into one
// compiled registry and drives graphs to fixed point with it.
//
// A Canonicalizer is built once from the PatternSources of the
// dialects in play and reused across any number of graphs. Name
// filtering (enable/disable) is resolved at construction, so a bad
// pattern name fails New instead of a later run.
package canon

import (
	"errors"
	"fmt"

	"github.com/graphrw/anvil/internal/ir"
	"github.com/graphrw/anvil/internal/rewrite"
)

// PatternSource is one dialect's contribution to the registry.
//
// General patterns register before the op-anchored ones, and sources
// register in caller order. Registration order breaks equal-benefit
// ties, so a fixed source order keeps runs reproducible.
type PatternSource struct {
	// Dialect is the namespace the patterns belong to.
	Dialect string

	// General holds dialect-wide rewrites, typically anchored on
	// rewrite.AnyOp and gated on traits.
	General []rewrite.Pattern

	// PerOp holds op-anchored canonicalizations.
	PerOp []rewrite.Pattern
}

// Canonicalizer holds a compiled pattern registry and a driver
// configuration. Safe for concurrent use on independent graphs.
type Canonicalizer struct {
	frozen *rewrite.FrozenSet
	cfg    rewrite.Config

	enabled         []string
	disabled        []string
	testConvergence bool
}

// Option configures a Canonicalizer at construction time.
type Option func(*Canonicalizer)

// WithConfig replaces the whole driver configuration. The default is
// rewrite.DefaultConfig.
func WithConfig(cfg rewrite.Config) Option {
	return func(c *Canonicalizer) {
		c.cfg = cfg
	}
}

// WithReporter sets the driver event reporter on the held config.
func WithReporter(r rewrite.Reporter) Option {
	return func(c *Canonicalizer) {
		c.cfg.Reporter = r
	}
}

// WithEnabledPatterns restricts the registry to the named patterns.
// A name matching no registered pattern fails New.
func WithEnabledPatterns(names ...string) Option {
	return func(c *Canonicalizer) {
		c.enabled = append(c.enabled, names...)
	}
}

// WithDisabledPatterns removes the named patterns from the registry.
// A name matching no registered pattern fails New.
func WithDisabledPatterns(names ...string) Option {
	return func(c *Canonicalizer) {
		c.disabled = append(c.disabled, names...)
	}
}

// WithTestConvergence makes Canonicalize return a *ConvergenceError
// whenever a run stops on a budget instead of converging. The default
// treats budget stops as ordinary results.
func WithTestConvergence() Option {
	return func(c *Canonicalizer) {
		c.testConvergence = true
	}
}

// New compiles the pattern contributions of the given sources into a
// reusable Canonicalizer.
func New(sources []PatternSource, opts ...Option) (*Canonicalizer, error) {
	c := &Canonicalizer{cfg: rewrite.DefaultConfig()}
	for _, opt := range opts {
		opt(c)
	}

	set := rewrite.NewPatternSet()
	for _, src := range sources {
		set.Add(src.General...)
		set.Add(src.PerOp...)
	}

	var fopts []rewrite.FreezeOption
	if len(c.enabled) > 0 {
		fopts = append(fopts, rewrite.WithEnabled(c.enabled...))
	}
	if len(c.disabled) > 0 {
		fopts = append(fopts, rewrite.WithDisabled(c.disabled...))
	}
	frozen, err := rewrite.Freeze(set, fopts...)
	if err != nil {
		return nil, fmt.Errorf("compile pattern registry: %w", err)
	}
	c.frozen = frozen
	return c, nil
}

// Canonicalize drives root to fixed point and reports the outcome.
// Budget stops come back in the Result, not as errors, unless
// WithTestConvergence is in force.
func (c *Canonicalizer) Canonicalize(root *ir.Node) (rewrite.Result, error) {
	res, err := rewrite.Run(root, c.frozen, c.cfg)
	if err != nil {
		return res, err
	}
	if c.testConvergence && res.Outcome != rewrite.Converged {
		return res, &ConvergenceError{
			Outcome:    res.Outcome,
			Iterations: res.Iterations,
			Rewrites:   res.Rewrites,
		}
	}
	return res, nil
}

// Patterns returns the compiled registry in frozen selection order.
func (c *Canonicalizer) Patterns() []rewrite.Pattern {
	return c.frozen.Selected()
}

// Config returns the driver configuration runs will use.
func (c *Canonicalizer) Config() rewrite.Config {
	return c.cfg
}

// ConvergenceError reports a run that stopped on a budget while
// WithTestConvergence was in force. The graph holds every rewrite
// performed before the stop.
type ConvergenceError struct {
	Outcome    rewrite.Outcome
	Iterations int
	Rewrites   int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("canonicalization did not converge: %s after %d iterations (%d rewrites)",
		e.Outcome, e.Iterations, e.Rewrites)
}

// IsNonConvergence reports whether err is a ConvergenceError.
func IsNonConvergence(err error) bool {
	var ce *ConvergenceError
	return errors.As(err, &ce)
}
