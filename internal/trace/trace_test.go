package trace

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/graphrw/anvil/internal/rewrite"
)

func newBufLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewLogger(slog.New(h)), &buf
}

func TestLogger_LogsPatternAndFoldEvents(t *testing.T) {
	l, buf := newBufLogger()

	l.RewriteApplied(rewrite.Event{
		Round:   1,
		Kind:    rewrite.EventPattern,
		Op:      "arith.mul",
		Pattern: "arith.mul-zero",
	})
	l.RewriteApplied(rewrite.Event{
		Round: 2,
		Kind:  rewrite.EventFold,
		Op:    "arith.add",
	})

	out := buf.String()
	assert.Contains(t, out, "pattern applied")
	assert.Contains(t, out, "pattern=arith.mul-zero")
	assert.Contains(t, out, "folded")
	assert.Contains(t, out, "op=arith.add")
}

func TestLogger_QuietWhenSimplifyChangedNothing(t *testing.T) {
	l, buf := newBufLogger()

	l.RegionsSimplified(1, rewrite.SimplifyStats{})
	assert.Empty(t, buf.String())

	l.RegionsSimplified(2, rewrite.SimplifyStats{DeadNodes: 3})
	assert.Contains(t, buf.String(), "dead_nodes=3")
}

func TestLogger_FinishedLogsResult(t *testing.T) {
	l, buf := newBufLogger()

	l.Finished(rewrite.Result{
		Outcome:    rewrite.Converged,
		Iterations: 2,
		Rewrites:   3,
		Changed:    true,
	})

	out := buf.String()
	assert.Contains(t, out, "run finished")
	assert.Contains(t, out, "outcome=converged")
	assert.Contains(t, out, "iterations=2")
}

// countingReporter tallies calls per callback.
type countingReporter struct {
	rounds, events, simplifies, finishes int
}

func (c *countingReporter) RoundStarted(round, pending int) { c.rounds++ }

func (c *countingReporter) RewriteApplied(ev rewrite.Event) { c.events++ }

func (c *countingReporter) RegionsSimplified(round int, stats rewrite.SimplifyStats) {
	c.simplifies++
}

func (c *countingReporter) RoundFinished(round int, changed bool) {}

func (c *countingReporter) Finished(res rewrite.Result) { c.finishes++ }

func TestMulti_FansOutToEveryReporter(t *testing.T) {
	a := &countingReporter{}
	b := &countingReporter{}
	m := Multi{a, b}

	m.RoundStarted(1, 4)
	m.RewriteApplied(rewrite.Event{Kind: rewrite.EventFold, Op: "arith.add"})
	m.RegionsSimplified(1, rewrite.SimplifyStats{DeadNodes: 1})
	m.RoundFinished(1, true)
	m.Finished(rewrite.Result{Outcome: rewrite.Converged})

	for _, r := range []*countingReporter{a, b} {
		assert.Equal(t, 1, r.rounds)
		assert.Equal(t, 1, r.events)
		assert.Equal(t, 1, r.simplifies)
		assert.Equal(t, 1, r.finishes)
	}
}

// Multi satisfies the reporter contract itself, so fan-outs nest.
func TestMulti_Nests(t *testing.T) {
	inner := &countingReporter{}
	outer := Multi{Multi{inner}}

	outer.Finished(rewrite.Result{})
	assert.Equal(t, 1, inner.finishes)
}
