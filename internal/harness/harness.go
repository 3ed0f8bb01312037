package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/graphrw/anvil/internal/canon"
	"github.com/graphrw/anvil/internal/dialect/arith"
	"github.com/graphrw/anvil/internal/dialect/core"
	"github.com/graphrw/anvil/internal/ir"
	"github.com/graphrw/anvil/internal/rewrite"
)

// Harness executes one scenario against a fresh context and a registry
// compiled from the scenario's filters.
type Harness struct {
	ctx    *ir.Context
	canon  *canon.Canonicalizer
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh context and graph for isolation.
//
// Execution flow:
//  1. Register the core and arith dialects in a fresh context
//  2. Compile the pattern registry with the scenario's config and filters
//  3. Parse the input graph and canonicalize it
//  4. Re-verify the graph and evaluate the expect block
//  5. Rerun converged scenarios to prove idempotence
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}
	return h.run(scenario)
}

func newHarness(scenario *Scenario) (*Harness, error) {
	ctx := ir.NewContext()
	if err := core.Register(ctx); err != nil {
		return nil, fmt.Errorf("register core dialect: %w", err)
	}
	if err := arith.Register(ctx); err != nil {
		return nil, fmt.Errorf("register arith dialect: %w", err)
	}

	opts := []canon.Option{canon.WithConfig(scenario.driverConfig())}
	if f := scenario.Filters; f != nil {
		if len(f.Enabled) > 0 {
			opts = append(opts, canon.WithEnabledPatterns(f.Enabled...))
		}
		if len(f.Disabled) > 0 {
			opts = append(opts, canon.WithDisabledPatterns(f.Disabled...))
		}
	}
	c, err := canon.New([]canon.PatternSource{core.Patterns(), arith.Patterns()}, opts...)
	if err != nil {
		return nil, err
	}

	return &Harness{
		ctx:    ctx,
		canon:  c,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}, nil
}

func (h *Harness) run(scenario *Scenario) (*Result, error) {
	_, root, err := ir.Parse(h.ctx, scenario.Input)
	if err != nil {
		return nil, fmt.Errorf("parse input graph: %w", err)
	}

	result := NewResult()
	result.FingerprintBefore = ir.Fingerprint(root)

	res, err := h.canon.Canonicalize(root)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}

	result.Outcome = res.Outcome.String()
	result.Iterations = res.Iterations
	result.Rewrites = res.Rewrites
	result.Folds = res.Folds
	result.Applied = res.Applied
	result.Changed = res.Changed
	result.Output = ir.Print(root)
	result.FingerprintAfter = ir.Fingerprint(root)

	// Use lists and types must survive every run, whatever the
	// scenario expects.
	if err := ir.Verify(root); err != nil {
		return nil, fmt.Errorf("graph invalid after canonicalization: %w", err)
	}

	for _, msg := range evaluateExpect(&scenario.Expect, res, root, result.Output) {
		result.AddError(msg)
	}

	h.logger.Info("scenario canonicalized",
		"scenario", scenario.Name,
		"outcome", result.Outcome,
		"iterations", result.Iterations,
		"rewrites", result.Rewrites,
	)

	// A converged graph is a fixed point: canonicalizing it again
	// must change nothing.
	if res.Outcome == rewrite.Converged {
		if err := h.recheck(root, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// recheck reruns canonicalization on an already-converged graph and
// fails the result unless the rerun is a no-op.
func (h *Harness) recheck(root *ir.Node, result *Result) error {
	second, err := h.canon.Canonicalize(root)
	if err != nil {
		return fmt.Errorf("idempotence rerun: %w", err)
	}
	result.RecheckRewrites = second.Rewrites

	if second.Rewrites != 0 || second.Changed {
		result.AddError((&AssertionError{
			Check:    "idempotence",
			Expected: "zero rewrites on rerun",
			Actual:   fmt.Sprintf("%d rewrites (changed=%t)", second.Rewrites, second.Changed),
			Output:   ir.Print(root),
		}).Error())
	}
	if after := ir.Fingerprint(root); after != result.FingerprintAfter {
		result.AddError((&AssertionError{
			Check:    "idempotence",
			Expected: "fingerprint unchanged on rerun",
			Actual:   fmt.Sprintf("%s != %s", after, result.FingerprintAfter),
			Output:   ir.Print(root),
		}).Error())
	}
	if err := ir.Verify(root); err != nil {
		return fmt.Errorf("graph invalid after idempotence rerun: %w", err)
	}
	return nil
}
