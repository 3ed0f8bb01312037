package rewrite

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphrw/anvil/internal/ir"
)

// Test helper to build a context with a small self-contained dialect:
// a module container, foldable arithmetic, an opaque producer and a
// side-effecting sink, and branches. test.mul deliberately has no
// fold hook so pattern tests are not shadowed by folding.
func newTestContext(t *testing.T) *ir.Context {
	t.Helper()
	ctx := ir.NewContext()
	err := ctx.RegisterDialect(ir.Dialect{
		Name: "test",
		Ops: []ir.OpSpec{
			{Name: "test.module", Traits: ir.TraitNoTerminatorRequired, NumRegions: 1},
			{Name: "test.const", Traits: ir.TraitConstantLike | ir.TraitPure},
			{Name: "test.add", Traits: ir.TraitPure | ir.TraitCommutative, Fold: foldTestAdd},
			{Name: "test.mul", Traits: ir.TraitPure | ir.TraitCommutative},
			{Name: "test.f", Traits: ir.TraitPure},
			{Name: "test.src", Traits: ir.TraitPure},
			{Name: "test.sink"},
			{Name: "test.loop", NumRegions: 1},
			{Name: "test.ret", Traits: ir.TraitTerminator},
			{Name: "test.br", Traits: ir.TraitTerminator},
			{Name: "test.cond_br", Traits: ir.TraitTerminator},
		},
		MaterializeConstant: materializeTestConst,
	})
	require.NoError(t, err)
	return ctx
}

func foldTestAdd(n *ir.Node, operands []ir.Attr) ([]ir.OpFoldResult, bool) {
	lhs, lok := operands[0].(ir.IntAttr)
	rhs, rok := operands[1].(ir.IntAttr)
	if !lok || !rok {
		return nil, false
	}
	sum := ir.IntAttr{Value: lhs.Value + rhs.Value, Type: lhs.Type}
	return []ir.OpFoldResult{ir.FoldAttr(sum)}, true
}

func materializeTestConst(b *ir.Builder, attr ir.Attr, typ ir.Type) (*ir.Node, error) {
	return b.Create(ir.NodeDef{
		Op:          "test.const",
		Attrs:       ir.AttrMap{ir.AttrKeyValue: attr},
		ResultTypes: []ir.Type{typ},
	})
}

// Test helper to parse a module and fail the test on error.
func parseModule(t *testing.T, ctx *ir.Context, src string) (*ir.Graph, *ir.Node) {
	t.Helper()
	g, root, err := ir.Parse(ctx, src)
	require.NoError(t, err)
	return g, root
}

// Test helper to count nodes with the given op under root.
func countOps(root *ir.Node, op ir.OpName) int {
	n := 0
	ir.Walk(root, ir.PostOrder, func(c *ir.Node) bool {
		if c.Op() == op {
			n++
		}
		return true
	})
	return n
}

// mulIdentity rewrites x * 1 to x. The constant must sit on the
// right so tests can control matching precisely.
func mulIdentity(benefit int) Pattern {
	return NewPattern("mul-identity", "test.mul", benefit,
		func(n *ir.Node) bool {
			if n.NumOperands() != 2 {
				return false
			}
			def := n.OperandValue(1).DefiningNode()
			if def == nil {
				return false
			}
			a, ok := def.IsConstant()
			if !ok {
				return false
			}
			ia, ok := a.(ir.IntAttr)
			return ok && ia.Value == 1
		},
		func(n *ir.Node, rw *Rewriter) error {
			return rw.Replace(n, n.Operand(0))
		})
}

// recordingReporter captures the reporter stream as flat strings.
type recordingReporter struct {
	events []string
}

func (r *recordingReporter) RoundStarted(round, pending int) {
	r.events = append(r.events, fmt.Sprintf("round:%d:%d", round, pending))
}

func (r *recordingReporter) RewriteApplied(ev Event) {
	if ev.Kind == EventPattern {
		r.events = append(r.events, fmt.Sprintf("pattern:%s:%s", ev.Pattern, ev.Op))
		return
	}
	r.events = append(r.events, fmt.Sprintf("fold:%s", ev.Op))
}

func (r *recordingReporter) RegionsSimplified(round int, stats SimplifyStats) {
	if stats.Changed() {
		r.events = append(r.events, fmt.Sprintf("simplify:%d:%d:%d", stats.UnreachableBlocks, stats.DeadNodes, stats.MergedBlocks))
	}
}

func (r *recordingReporter) RoundFinished(round int, changed bool) {
	r.events = append(r.events, fmt.Sprintf("done:%d:%v", round, changed))
}

func (r *recordingReporter) Finished(res Result) {
	r.events = append(r.events, fmt.Sprintf("finished:%s", res.Outcome))
}
