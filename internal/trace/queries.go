package trace

import (
	"context"
	"fmt"
	"time"

	"github.com/graphrw/anvil/internal/ir"
)

// RunInfo is one recorded run.
type RunInfo struct {
	RunID             string
	StartedAt         time.Time
	FinishedAt        time.Time
	RootOp            ir.OpName
	Config            string // JSON as stored
	Outcome           string
	Iterations        int
	Rewrites          int
	Folds             int
	Applied           int
	Changed           bool
	FingerprintBefore string
	FingerprintAfter  string
}

// PatternCount is the number of times one pattern fired in a run.
type PatternCount struct {
	Pattern string
	Count   int
}

// RunSummary is one run plus its per-pattern fire counts.
type RunSummary struct {
	Run      RunInfo
	Patterns []PatternCount
}

const runColumns = `run_id, started_at, finished_at, root_op, config, outcome, iterations, rewrites, folds, applied, changed, fingerprint_before, fingerprint_after`

// Runs returns every recorded run, newest first. UUIDv7 run tokens
// sort by creation time, which breaks started_at ties.
func (j *Journal) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, run_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	// Return empty slice instead of nil
	if runs == nil {
		runs = []RunInfo{}
	}
	return runs, nil
}

// Run retrieves a single run by ID. Returns sql.ErrNoRows if there is
// no such run.
func (j *Journal) Run(ctx context.Context, runID string) (RunInfo, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE run_id = ?
	`, runID)
	return scanRun(row)
}

// Summary returns one run and how often each pattern fired in it,
// most frequent first. Returns sql.ErrNoRows if there is no such run.
func (j *Journal) Summary(ctx context.Context, runID string) (RunSummary, error) {
	info, err := j.Run(ctx, runID)
	if err != nil {
		return RunSummary{}, fmt.Errorf("summarize run %s: %w", runID, err)
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT pattern, COUNT(*) AS fired
		FROM rewrites
		WHERE run_id = ? AND pattern IS NOT NULL
		GROUP BY pattern
		ORDER BY fired DESC, pattern ASC
	`, runID)
	if err != nil {
		return RunSummary{}, fmt.Errorf("summarize run %s: query patterns: %w", runID, err)
	}
	defer rows.Close()

	sum := RunSummary{Run: info, Patterns: []PatternCount{}}
	for rows.Next() {
		var pc PatternCount
		if err := rows.Scan(&pc.Pattern, &pc.Count); err != nil {
			return RunSummary{}, fmt.Errorf("summarize run %s: scan pattern: %w", runID, err)
		}
		sum.Patterns = append(sum.Patterns, pc)
	}
	if err := rows.Err(); err != nil {
		return RunSummary{}, fmt.Errorf("summarize run %s: iterate patterns: %w", runID, err)
	}
	return sum, nil
}

// rowScanner covers sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunInfo, error) {
	var info RunInfo
	var started, finished, rootOp string
	err := row.Scan(
		&info.RunID,
		&started,
		&finished,
		&rootOp,
		&info.Config,
		&info.Outcome,
		&info.Iterations,
		&info.Rewrites,
		&info.Folds,
		&info.Applied,
		&info.Changed,
		&info.FingerprintBefore,
		&info.FingerprintAfter,
	)
	if err != nil {
		return RunInfo{}, err
	}
	if info.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return RunInfo{}, fmt.Errorf("parse started_at: %w", err)
	}
	if info.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return RunInfo{}, fmt.Errorf("parse finished_at: %w", err)
	}
	info.RootOp = ir.OpName(rootOp)
	return info, nil
}
