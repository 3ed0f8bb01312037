// Package trace observes greedy rewrite runs: a slog reporter for
// development, a fan-out combinator, and a SQLite journal keeping a
// queryable history of runs and the rewrites inside them.
package trace

import (
	"log/slog"

	"github.com/graphrw/anvil/internal/rewrite"
)

// Logger reports driver events through slog. Per-event records log at
// debug level, the final result at info.
type Logger struct {
	log *slog.Logger
}

// NewLogger returns a reporter logging through log. Nil selects
// slog.Default.
func NewLogger(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log}
}

func (l *Logger) RoundStarted(round, pending int) {
	l.log.Debug("round started", "round", round, "pending", pending)
}

func (l *Logger) RewriteApplied(ev rewrite.Event) {
	if ev.Kind == rewrite.EventPattern {
		l.log.Debug("pattern applied",
			"round", ev.Round,
			"pattern", ev.Pattern,
			"op", ev.Op,
			"node", ev.Node.String(),
		)
		return
	}
	l.log.Debug("folded",
		"round", ev.Round,
		"op", ev.Op,
		"node", ev.Node.String(),
	)
}

func (l *Logger) RegionsSimplified(round int, stats rewrite.SimplifyStats) {
	if !stats.Changed() {
		return
	}
	l.log.Debug("regions simplified",
		"round", round,
		"unreachable_blocks", stats.UnreachableBlocks,
		"dead_nodes", stats.DeadNodes,
		"merged_blocks", stats.MergedBlocks,
	)
}

func (l *Logger) RoundFinished(round int, changed bool) {
	l.log.Debug("round finished", "round", round, "changed", changed)
}

func (l *Logger) Finished(res rewrite.Result) {
	l.log.Info("run finished",
		"outcome", res.Outcome.String(),
		"iterations", res.Iterations,
		"rewrites", res.Rewrites,
		"folds", res.Folds,
		"patterns", res.Applied,
		"changed", res.Changed,
	)
}

// Multi fans every event out to each reporter in order.
type Multi []rewrite.Reporter

func (m Multi) RoundStarted(round, pending int) {
	for _, r := range m {
		r.RoundStarted(round, pending)
	}
}

func (m Multi) RewriteApplied(ev rewrite.Event) {
	for _, r := range m {
		r.RewriteApplied(ev)
	}
}

func (m Multi) RegionsSimplified(round int, stats rewrite.SimplifyStats) {
	for _, r := range m {
		r.RegionsSimplified(round, stats)
	}
}

func (m Multi) RoundFinished(round int, changed bool) {
	for _, r := range m {
		r.RoundFinished(round, changed)
	}
}

func (m Multi) Finished(res rewrite.Result) {
	for _, r := range m {
		r.Finished(res)
	}
}
