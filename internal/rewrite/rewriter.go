package rewrite

import (
	"fmt"

	"github.com/graphrw/anvil/internal/ir"
)

// Rewriter is the mutation surface handed to Pattern.Apply. It routes
// every change through the graph so listener notifications, and with
// them worklist upkeep, cannot be skipped. During a run the driver
// positions the insertion point immediately before the matched node.
type Rewriter struct {
	g *ir.Graph
	b *ir.Builder

	// materialize is the driver's cached constant materializer. Nil
	// outside a run; materializeDirect is used then.
	materialize func(anchor *ir.Node, attr ir.Attr, typ ir.Type) (ir.ValueID, error)
}

// NewRewriter returns a standalone rewriter for applying patterns
// outside a driver run. Constant materialization goes through the
// dialect hook without caching.
func NewRewriter(g *ir.Graph) *Rewriter {
	return &Rewriter{g: g, b: ir.NewBuilder(g)}
}

// Graph returns the graph under rewrite.
func (rw *Rewriter) Graph() *ir.Graph { return rw.g }

// Context returns the op registry of the graph under rewrite.
func (rw *Rewriter) Context() *ir.Context { return rw.g.Context() }

// Builder exposes the insertion-point builder for multi-node
// rewrites that need to place nodes at several spots.
func (rw *Rewriter) Builder() *ir.Builder { return rw.b }

// Create builds a node at the current insertion point.
func (rw *Rewriter) Create(def ir.NodeDef) (*ir.Node, error) {
	return rw.b.Create(def)
}

// Replace rewires all uses of n's results to the given values, then
// erases n. Value count and types must line up with n's results.
func (rw *Rewriter) Replace(n *ir.Node, with ...ir.ValueID) error {
	return rw.g.ReplaceNode(n.ID(), with)
}

// Erase removes n and everything nested under it. Fails while any
// result, or any value defined under n, has outside uses.
func (rw *Rewriter) Erase(n *ir.Node) error {
	return rw.g.EraseNode(n.ID())
}

// ReplaceAllUses rewires every use of old to new and reports how many
// operand edges moved.
func (rw *Rewriter) ReplaceAllUses(old, new ir.ValueID) (int, error) {
	return rw.g.ReplaceAllUses(old, new)
}

// SetOperand swaps n's i-th operand.
func (rw *Rewriter) SetOperand(n *ir.Node, i int, v ir.ValueID) error {
	return rw.g.SetOperand(n.ID(), i, v)
}

// SetOperands replaces n's leading operand list.
func (rw *Rewriter) SetOperands(n *ir.Node, operands []ir.ValueID) error {
	return rw.g.SetOperands(n.ID(), operands)
}

// SetSuccessor redirects n's i-th successor edge.
func (rw *Rewriter) SetSuccessor(n *ir.Node, i int, s ir.SuccessorDef) error {
	return rw.g.SetSuccessor(n.ID(), i, s)
}

// SetAttr sets or removes (nil attr) one attribute on n.
func (rw *Rewriter) SetAttr(n *ir.Node, key string, attr ir.Attr) error {
	return rw.g.SetAttr(n.ID(), key, attr)
}

// MoveBefore detaches n and reinserts it before ref.
func (rw *Rewriter) MoveBefore(n, ref *ir.Node) error {
	return rw.g.MoveNodeBefore(n.ID(), ref.ID())
}

// MoveToEnd detaches n and appends it to blk.
func (rw *Rewriter) MoveToEnd(n *ir.Node, blk ir.BlockID) error {
	return rw.g.MoveNodeToEnd(n.ID(), blk)
}

// MaterializeConstant returns a value holding attr with the given
// type, usable at anchor. Inside a run materialized constants are
// cached per region entry block and reused; standalone rewriters
// create a fresh node at the entry block start each call. The
// dialect consulted is the anchor op's dialect.
func (rw *Rewriter) MaterializeConstant(anchor *ir.Node, attr ir.Attr, typ ir.Type) (ir.ValueID, error) {
	if rw.materialize != nil {
		return rw.materialize(anchor, attr, typ)
	}
	n, err := materializeDirect(rw.g, anchor, attr, typ)
	if err != nil {
		return ir.ValueID{}, err
	}
	return n.Result(0), nil
}

// materializeDirect creates a constant node at the start of anchor's
// region entry block through the anchor dialect's hook.
func materializeDirect(g *ir.Graph, anchor *ir.Node, attr ir.Attr, typ ir.Type) (*ir.Node, error) {
	blk := anchor.Parent()
	if blk == nil {
		return nil, fmt.Errorf("rewrite: materialize anchor %s is detached", anchor.Op())
	}
	entry := blk.Region().Entry()
	if entry == nil {
		return nil, fmt.Errorf("rewrite: materialize anchor %s sits in an empty region", anchor.Op())
	}
	d := g.Context().DialectByName(anchor.Op().Dialect())
	if d == nil || d.MaterializeConstant == nil {
		return nil, fmt.Errorf("rewrite: dialect %q cannot materialize constants", anchor.Op().Dialect())
	}
	b := ir.NewBuilder(g)
	b.SetInsertionPointStart(entry.ID())
	n, err := d.MaterializeConstant(b, attr, typ)
	if err != nil {
		return nil, fmt.Errorf("rewrite: materialize %s as %s: %w", attr, typ, err)
	}
	if n == nil {
		return nil, fmt.Errorf("rewrite: dialect %q declined to materialize %s as %s", anchor.Op().Dialect(), attr, typ)
	}
	if n.NumResults() != 1 {
		return nil, fmt.Errorf("rewrite: materialized %s has %d results, want 1", n.Op(), n.NumResults())
	}
	if got := n.ResultValue(0).Type(); got != typ {
		return nil, fmt.Errorf("rewrite: materialized %s has type %s, want %s", n.Op(), got, typ)
	}
	if _, ok := n.IsConstant(); !ok {
		return nil, fmt.Errorf("rewrite: materialized %s is not constant-like", n.Op())
	}
	return n, nil
}
