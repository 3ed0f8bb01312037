package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/graphrw/anvil/internal/canon"
	"github.com/graphrw/anvil/internal/ir"
	"github.com/graphrw/anvil/internal/rewrite"
	"github.com/graphrw/anvil/internal/trace"
)

// CanonicalizeOptions holds flags for the canonicalize command.
type CanonicalizeOptions struct {
	*RootOptions
	filterFlags

	TopDown         bool
	RegionSimplify  bool
	MaxIterations   int
	MaxRewrites     int
	TestConvergence bool
	Verify          bool
	TraceDB         string
	Output          string
}

// CanonicalizeReport is the canonicalize command's JSON payload.
type CanonicalizeReport struct {
	Input             string `json:"input"`
	Outcome           string `json:"outcome"`
	Iterations        int    `json:"iterations"`
	Rewrites          int    `json:"rewrites"`
	Folds             int    `json:"folds"`
	Applied           int    `json:"applied"`
	Changed           bool   `json:"changed"`
	FingerprintBefore string `json:"fingerprint_before"`
	FingerprintAfter  string `json:"fingerprint_after"`
	RunID             string `json:"run_id,omitempty"`
	Graph             string `json:"graph"`
}

// NewCanonicalizeCommand creates the canonicalize command.
func NewCanonicalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CanonicalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "canonicalize [file]",
		Short: "Drive a graph to canonical form",
		Long: `Canonicalize a graph in textual form.

The graph is parsed, driven to a fixed point with the registered
dialect patterns, and printed back. Reads from stdin when no file is
given or the file is "-".

A budget stop is reported as a notice and still exits 0; pass
--test-convergence to turn it into a failure.

Exit codes:
  0 - Canonicalization finished
  1 - Verification failed, or --test-convergence and the run hit a budget
  2 - Command error (unreadable input, bad manifest, unknown pattern)

Examples:
  anvil canonicalize graph.anvil
  cat graph.anvil | anvil canonicalize - --top-down
  anvil canonicalize graph.anvil --disabled-patterns arith.mul-identity
  anvil canonicalize graph.anvil --manifest pipeline.cue --trace-db runs.db
  anvil canonicalize graph.anvil -o canonical.anvil --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runCanonicalize(opts, path, cmd)
		},
	}

	opts.filterFlags.register(cmd)
	cmd.Flags().BoolVar(&opts.TopDown, "top-down", false, "seed the worklist top-down instead of bottom-up")
	cmd.Flags().BoolVar(&opts.RegionSimplify, "region-simplify", true, "run region simplification after each round")
	cmd.Flags().IntVar(&opts.MaxIterations, "max-iterations", rewrite.DefaultMaxIterations, "round budget (-1 for unlimited)")
	cmd.Flags().IntVar(&opts.MaxRewrites, "max-rewrites", rewrite.Unlimited, "total rewrite budget (-1 for unlimited)")
	cmd.Flags().BoolVar(&opts.TestConvergence, "test-convergence", false, "fail when the run stops on a budget")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify the graph before and after canonicalization")
	cmd.Flags().StringVar(&opts.TraceDB, "trace-db", env.Str("ANVIL_TRACE_DB", ""), "record the run to this SQLite journal")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the canonicalized graph to this file")

	return cmd
}

func runCanonicalize(opts *CanonicalizeOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Diagnostics go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, enabled, disabled, err := resolvePipeline(cmd, &opts.filterFlags)
	if err != nil {
		_ = formatter.Error(ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}

	source, name, err := readGraphInput(cmd, path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}
	formatter.VerboseLog("Parsing %s", name)

	irCtx, err := newContext()
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to set up dialects", err)
	}

	_, root, err := ir.Parse(irCtx, source)
	if err != nil {
		_ = formatter.Error(ErrCodeParseFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to parse %s", name), err)
	}

	if opts.Verify {
		if err := ir.Verify(root); err != nil {
			_ = formatter.Error(ErrCodeVerifyFailed, fmt.Sprintf("input graph invalid: %v", err), nil)
			return WrapExitError(ExitFailure, "input graph failed verification", err)
		}
		formatter.VerboseLog("Input graph verified")
	}

	// Use the command's context if available (for testing).
	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}

	reporter, recorder, cleanup, err := buildReporters(runCtx, opts, cmd, root, cfg)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open trace journal", err)
	}
	defer cleanup()

	var extra []canon.Option
	if reporter != nil {
		extra = append(extra, canon.WithReporter(reporter))
	}
	if opts.TestConvergence {
		extra = append(extra, canon.WithTestConvergence())
	}

	c, err := newCanonicalizer(cfg, enabled, disabled, extra...)
	if err != nil {
		_ = formatter.Error(ErrCodeRegistry, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to compile pattern registry", err)
	}
	formatter.VerboseLog("Compiled %d pattern(s)", len(c.Patterns()))

	before := ir.Fingerprint(root)
	res, err := c.Canonicalize(root)
	if err != nil {
		if canon.IsNonConvergence(err) {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitFailure, "canonicalization did not converge", err)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "canonicalization failed", err)
	}

	if recorder != nil {
		if jerr := recorder.Err(); jerr != nil {
			_ = formatter.Error(ErrCodeJournal, jerr.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record run", jerr)
		}
		formatter.VerboseLog("Recorded run %s", recorder.RunID())
	}

	if opts.Verify {
		if err := ir.Verify(root); err != nil {
			_ = formatter.Error(ErrCodeVerifyFailed, fmt.Sprintf("canonicalized graph invalid: %v", err), nil)
			return WrapExitError(ExitFailure, "canonicalized graph failed verification", err)
		}
		formatter.VerboseLog("Canonicalized graph verified")
	}

	printed := ir.Print(root)

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(printed), 0644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	}

	report := CanonicalizeReport{
		Input:             name,
		Outcome:           res.Outcome.String(),
		Iterations:        res.Iterations,
		Rewrites:          res.Rewrites,
		Folds:             res.Folds,
		Applied:           res.Applied,
		Changed:           res.Changed,
		FingerprintBefore: before,
		FingerprintAfter:  ir.Fingerprint(root),
		Graph:             printed,
	}
	if recorder != nil {
		report.RunID = recorder.RunID()
	}

	return outputCanonicalizeResult(formatter, opts, report)
}

// buildReporters assembles the run reporter from the verbose flag and
// the trace journal, fanning out when both are active. The returned
// cleanup closes the journal and is always safe to call.
func buildReporters(ctx context.Context, opts *CanonicalizeOptions, cmd *cobra.Command, root *ir.Node, cfg rewrite.Config) (rewrite.Reporter, *trace.Recorder, func(), error) {
	var reporters []rewrite.Reporter
	cleanup := func() {}

	if opts.Verbose {
		handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		reporters = append(reporters, trace.NewLogger(slog.New(handler)))
	}

	var recorder *trace.Recorder
	if opts.TraceDB != "" {
		journal, err := trace.Open(opts.TraceDB)
		if err != nil {
			return nil, nil, cleanup, err
		}
		cleanup = func() {
			if cerr := journal.Close(); cerr != nil {
				slog.Error("error closing trace journal", "error", cerr)
			}
		}
		recorder = journal.Begin(ctx, root, cfg)
		reporters = append(reporters, recorder)
	}

	switch len(reporters) {
	case 0:
		return nil, nil, cleanup, nil
	case 1:
		return reporters[0], recorder, cleanup, nil
	default:
		return trace.Multi(reporters), recorder, cleanup, nil
	}
}

// outputCanonicalizeResult writes the final report in the configured
// format.
func outputCanonicalizeResult(formatter *OutputFormatter, opts *CanonicalizeOptions, report CanonicalizeReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	if opts.Output != "" {
		fmt.Fprintf(w, "✓ Wrote canonicalized graph to %s (%s, %d iteration(s), %d rewrite(s))\n",
			opts.Output, report.Outcome, report.Iterations, report.Rewrites)
	} else {
		fmt.Fprint(w, report.Graph)
	}

	if report.Outcome != rewrite.Converged.String() {
		fmt.Fprintf(formatter.ErrWriter, "note: stopped at %s after %d iteration(s); pass --test-convergence to fail on this\n",
			report.Outcome, report.Iterations)
	}

	formatter.VerboseLog("Outcome: %s, iterations: %d, rewrites: %d, folds: %d, patterns applied: %d",
		report.Outcome, report.Iterations, report.Rewrites, report.Folds, report.Applied)
	if report.RunID != "" {
		formatter.VerboseLog("Run recorded as %s", report.RunID)
	}
	return nil
}
