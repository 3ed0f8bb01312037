package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/markkurossi/tabulate"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/graphrw/anvil/internal/trace"
)

// TraceOptions holds flags for the trace command family.
type TraceOptions struct {
	*RootOptions
	Database string
}

// RunRow is one journal run in CLI output.
type RunRow struct {
	RunID      string `json:"run_id"`
	Started    string `json:"started_at"`
	Finished   string `json:"finished_at"`
	RootOp     string `json:"root_op"`
	Outcome    string `json:"outcome"`
	Iterations int    `json:"iterations"`
	Rewrites   int    `json:"rewrites"`
	Folds      int    `json:"folds"`
	Applied    int    `json:"applied"`
	Changed    bool   `json:"changed"`
}

// PatternRow is one per-pattern fire count in CLI output.
type PatternRow struct {
	Pattern string `json:"pattern"`
	Fired   int    `json:"fired"`
}

// SummaryReport is the trace summary JSON payload.
type SummaryReport struct {
	Run               RunRow       `json:"run"`
	Config            string       `json:"config"`
	FingerprintBefore string       `json:"fingerprint_before"`
	FingerprintAfter  string       `json:"fingerprint_after"`
	Patterns          []PatternRow `json:"patterns"`
}

// NewTraceCommand creates the trace command with its subcommands.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query a rewrite journal",
		Long: `Query the SQLite journal written by canonicalize --trace-db.

The journal keeps one row per run plus one row per applied rewrite, so
a run can be inspected long after the graph is gone.

Examples:
  anvil trace runs --db runs.db
  anvil trace summary 0190f7a2-… --db runs.db
  ANVIL_TRACE_DB=runs.db anvil trace runs --format json`,
	}

	// ANVIL_TRACE_DB supplies the default so a session pinned to one
	// journal does not repeat --db.
	cmd.PersistentFlags().StringVar(&opts.Database, "db", env.Str("ANVIL_TRACE_DB", ""), "path to the SQLite journal")

	cmd.AddCommand(newTraceRunsCommand(opts))
	cmd.AddCommand(newTraceSummaryCommand(opts))

	return cmd
}

func newTraceRunsCommand(opts *TraceOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "runs",
		Short:         "List recorded runs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceRuns(opts, cmd)
		},
	}
}

func newTraceSummaryCommand(opts *TraceOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "summary <run-id>",
		Short:         "Show one run and its per-pattern fire counts",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceSummary(opts, args[0], cmd)
		},
	}
}

// openJournal validates the --db flag and opens the journal read path.
func openJournal(opts *TraceOptions, formatter *OutputFormatter) (*trace.Journal, error) {
	if opts.Database == "" {
		msg := "no journal path: set --db or ANVIL_TRACE_DB"
		_ = formatter.Error(ErrCodeJournal, msg, nil)
		return nil, NewExitError(ExitCommandError, msg)
	}
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		msg := fmt.Sprintf("journal not found: %s", opts.Database)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return nil, NewExitError(ExitCommandError, msg)
	}

	journal, err := trace.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return journal, nil
}

func runTraceRuns(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	journal, err := openJournal(opts, formatter)
	if err != nil {
		return err
	}
	defer journal.Close()

	runs, err := journal.Runs(cmdContext(cmd))
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to query runs", err)
	}

	rows := make([]RunRow, len(runs))
	for i, info := range runs {
		rows[i] = runRow(info)
	}

	if formatter.Format == "json" {
		return formatter.Success(rows)
	}

	return outputRunsTable(formatter, rows)
}

func runTraceSummary(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	journal, err := openJournal(opts, formatter)
	if err != nil {
		return err
	}
	defer journal.Close()

	sum, err := journal.Summary(cmdContext(cmd), runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg := fmt.Sprintf("run not found: %s", runID)
			_ = formatter.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to summarize run", err)
	}

	report := SummaryReport{
		Run:               runRow(sum.Run),
		Config:            sum.Run.Config,
		FingerprintBefore: sum.Run.FingerprintBefore,
		FingerprintAfter:  sum.Run.FingerprintAfter,
		Patterns:          make([]PatternRow, len(sum.Patterns)),
	}
	for i, pc := range sum.Patterns {
		report.Patterns[i] = PatternRow{Pattern: pc.Pattern, Fired: pc.Count}
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	return outputSummaryText(formatter, report)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runRow(info trace.RunInfo) RunRow {
	return RunRow{
		RunID:      info.RunID,
		Started:    info.StartedAt.Format(time.RFC3339),
		Finished:   info.FinishedAt.Format(time.RFC3339),
		RootOp:     string(info.RootOp),
		Outcome:    info.Outcome,
		Iterations: info.Iterations,
		Rewrites:   info.Rewrites,
		Folds:      info.Folds,
		Applied:    info.Applied,
		Changed:    info.Changed,
	}
}

// outputRunsTable renders the run list as a table.
func outputRunsTable(formatter *OutputFormatter, rows []RunRow) error {
	w := formatter.Writer

	if len(rows) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Run").SetAlign(tabulate.ML)
	tab.Header("Started").SetAlign(tabulate.ML)
	tab.Header("Root").SetAlign(tabulate.ML)
	tab.Header("Outcome").SetAlign(tabulate.ML)
	tab.Header("Iter").SetAlign(tabulate.MR)
	tab.Header("Rewrites").SetAlign(tabulate.MR)
	tab.Header("Changed").SetAlign(tabulate.ML)

	for _, row := range rows {
		r := tab.Row()
		r.Column(row.RunID)
		r.Column(row.Started)
		r.Column(row.RootOp)
		r.Column(row.Outcome)
		r.Column(strconv.Itoa(row.Iterations))
		r.Column(strconv.Itoa(row.Rewrites))
		r.Column(strconv.FormatBool(row.Changed))
	}
	tab.Print(w)

	fmt.Fprintf(w, "%d run(s)\n", len(rows))
	return nil
}

// outputSummaryText renders one run summary as text.
func outputSummaryText(formatter *OutputFormatter, report SummaryReport) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Run: %s\n", report.Run.RunID)
	fmt.Fprintf(w, "Root: %s\n", report.Run.RootOp)
	fmt.Fprintf(w, "Started: %s\n", report.Run.Started)
	fmt.Fprintf(w, "Finished: %s\n", report.Run.Finished)
	fmt.Fprintf(w, "Outcome: %s\n", report.Run.Outcome)
	fmt.Fprintf(w, "Iterations: %d, rewrites: %d, folds: %d, patterns applied: %d\n",
		report.Run.Iterations, report.Run.Rewrites, report.Run.Folds, report.Run.Applied)
	fmt.Fprintf(w, "Changed: %v\n", report.Run.Changed)
	if formatter.Verbose {
		fmt.Fprintf(w, "Config: %s\n", report.Config)
		fmt.Fprintf(w, "Fingerprint before: %s\n", report.FingerprintBefore)
		fmt.Fprintf(w, "Fingerprint after:  %s\n", report.FingerprintAfter)
	}
	fmt.Fprintln(w)

	if len(report.Patterns) == 0 {
		fmt.Fprintln(w, "No patterns fired.")
		return nil
	}

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Pattern").SetAlign(tabulate.ML)
	tab.Header("Fired").SetAlign(tabulate.MR)
	for _, pr := range report.Patterns {
		r := tab.Row()
		r.Column(pr.Pattern)
		r.Column(strconv.Itoa(pr.Fired))
	}
	tab.Print(w)

	return nil
}
