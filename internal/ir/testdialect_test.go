package ir

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test helper to build a context with a small self-contained dialect:
// a module container, constants, pure arithmetic, and branches.
func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx := NewContext()
	err := ctx.RegisterDialect(Dialect{
		Name: "test",
		Ops: []OpSpec{
			{Name: "test.module", Traits: TraitNoTerminatorRequired, NumRegions: 1},
			{Name: "test.const", Traits: TraitConstantLike | TraitPure},
			{Name: "test.add", Traits: TraitPure | TraitCommutative, Verify: verifyTestAdd},
			{Name: "test.use", Traits: TraitPure},
			{Name: "test.loop", NumRegions: 1},
			{Name: "test.ret", Traits: TraitTerminator},
			{Name: "test.br", Traits: TraitTerminator},
			{Name: "test.cond_br", Traits: TraitTerminator},
		},
	})
	require.NoError(t, err)
	return ctx
}

func verifyTestAdd(n *Node) error {
	if n.NumOperands() != 2 || n.NumResults() != 1 {
		return fmt.Errorf("test.add wants 2 operands and 1 result")
	}
	lhs := n.OperandValue(0)
	rhs := n.OperandValue(1)
	res := n.ResultValue(0)
	if lhs.Type() != rhs.Type() || lhs.Type() != res.Type() {
		return fmt.Errorf("test.add operand and result types must agree")
	}
	return nil
}

// Test helper to build a module with one entry block and return the
// graph, the module node, and its body block.
func newTestModule(t *testing.T, ctx *Context) (*Graph, *Node, *Block) {
	t.Helper()
	g := NewGraph(ctx)
	mod, err := g.NewNode(NodeDef{Op: "test.module"})
	require.NoError(t, err)
	body, err := g.AddBlock(mod.Region(0), nil)
	require.NoError(t, err)
	return g, mod, body
}

// Test helper to append a test.const producing the given value.
func appendConst(t *testing.T, g *Graph, b *Block, value int64) *Node {
	t.Helper()
	n, err := g.NewNode(NodeDef{
		Op:          "test.const",
		Attrs:       AttrMap{AttrKeyValue: IntAttr{Value: value, Type: I64}},
		ResultTypes: []Type{I64},
	})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAtEnd(n.ID(), b.ID()))
	return n
}

// Test helper to append a test.add over two values.
func appendAdd(t *testing.T, g *Graph, b *Block, lhs, rhs ValueID) *Node {
	t.Helper()
	n, err := g.NewNode(NodeDef{
		Op:          "test.add",
		Operands:    []ValueID{lhs, rhs},
		ResultTypes: []Type{I64},
	})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAtEnd(n.ID(), b.ID()))
	return n
}

// recordingListener captures mutation notifications in order.
type recordingListener struct {
	events []string
}

func (l *recordingListener) NodeInserted(n *Node) {
	l.events = append(l.events, "insert:"+string(n.Op()))
}

func (l *recordingListener) NodeErased(n *Node) {
	l.events = append(l.events, "erase:"+string(n.Op()))
}

func (l *recordingListener) NodeReplaced(n *Node, with []ValueID) {
	l.events = append(l.events, fmt.Sprintf("replace:%s:%d", n.Op(), len(with)))
}

func (l *recordingListener) OperandsChanged(n *Node) {
	l.events = append(l.events, "modify:"+string(n.Op()))
}
