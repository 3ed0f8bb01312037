// Package rewrite implements worklist-driven greedy rewriting over ir
// graphs: benefit-ordered pattern sets frozen for dispatch, per-node
// constant folding, and region cleanup, run to a fixed point under
// iteration and rewrite budgets.
//
// Determinism: a run is single-writer over one graph. Pattern order,
// worklist order, and round structure are deterministic for a given
// graph and configuration, so two runs over equal graphs produce
// equal results.
package rewrite

import (
	"github.com/graphrw/anvil/internal/ir"
)

// AnyOp anchors a pattern to every op. Wildcard patterns rank after
// anchor-specific ones at equal benefit.
const AnyOp ir.OpName = ""

// Pattern is one rewrite rule. Match must be pure: it inspects the
// node and decides applicability without touching the graph. Apply
// performs the rewrite through the Rewriter and must succeed once
// Match has returned true.
type Pattern interface {
	// Name identifies the pattern for filters, reports, and logs.
	Name() string

	// Anchor returns the op the pattern is indexed under, or AnyOp.
	Anchor() ir.OpName

	// Benefit orders patterns at the same anchor; higher runs first.
	Benefit() int

	// Match reports whether the pattern applies to n.
	Match(n *ir.Node) bool

	// Apply rewrites n. The rewriter's insertion point is set
	// immediately before n.
	Apply(n *ir.Node, rw *Rewriter) error
}

// MatchFn is a pure applicability check.
type MatchFn func(n *ir.Node) bool

// ApplyFn performs a rewrite after its MatchFn accepted the node.
type ApplyFn func(n *ir.Node, rw *Rewriter) error

// NewPattern builds a Pattern from plain functions.
func NewPattern(name string, anchor ir.OpName, benefit int, match MatchFn, apply ApplyFn) Pattern {
	return &fnPattern{name: name, anchor: anchor, benefit: benefit, match: match, apply: apply}
}

type fnPattern struct {
	name    string
	anchor  ir.OpName
	benefit int
	match   MatchFn
	apply   ApplyFn
}

func (p *fnPattern) Name() string      { return p.name }
func (p *fnPattern) Anchor() ir.OpName { return p.anchor }
func (p *fnPattern) Benefit() int      { return p.benefit }

func (p *fnPattern) Match(n *ir.Node) bool {
	return p.match(n)
}

func (p *fnPattern) Apply(n *ir.Node, rw *Rewriter) error {
	return p.apply(n, rw)
}
