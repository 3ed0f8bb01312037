package core

import (
	"github.com/graphrw/anvil/internal/canon"
	"github.com/graphrw/anvil/internal/ir"
	"github.com/graphrw/anvil/internal/rewrite"
)

// Patterns returns the dialect's canonicalization patterns.
func Patterns() canon.PatternSource {
	return canon.PatternSource{
		Dialect: "core",
		PerOp: []rewrite.Pattern{
			constCondBr(),
			sameDestCondBr(),
		},
	}
}

// constCondBr turns a conditional branch on a constant condition into
// an unconditional branch to the taken side. The untaken block loses a
// predecessor and region simplification collects it if nothing else
// reaches it.
func constCondBr() rewrite.Pattern {
	return rewrite.NewPattern("core.const-cond-br", OpCondBr, 20,
		func(n *ir.Node) bool {
			_, ok := constCondition(n)
			return ok
		},
		func(n *ir.Node, rw *rewrite.Rewriter) error {
			taken, _ := constCondition(n)
			s := n.Successor(0)
			if !taken {
				s = n.Successor(1)
			}
			if _, err := rw.Create(ir.NodeDef{
				Op:         OpBr,
				Successors: []ir.SuccessorDef{{Block: s.Block, Args: s.Args}},
			}); err != nil {
				return err
			}
			return rw.Replace(n)
		})
}

// sameDestCondBr drops the condition when both edges lead to the same
// block with the same arguments.
func sameDestCondBr() rewrite.Pattern {
	return rewrite.NewPattern("core.same-dest-cond-br", OpCondBr, 10,
		func(n *ir.Node) bool {
			if n.NumSuccessors() != 2 {
				return false
			}
			t, f := n.Successor(0), n.Successor(1)
			if t.Block != f.Block || len(t.Args) != len(f.Args) {
				return false
			}
			for i := range t.Args {
				if t.Args[i] != f.Args[i] {
					return false
				}
			}
			return true
		},
		func(n *ir.Node, rw *rewrite.Rewriter) error {
			s := n.Successor(0)
			if _, err := rw.Create(ir.NodeDef{
				Op:         OpBr,
				Successors: []ir.SuccessorDef{{Block: s.Block, Args: s.Args}},
			}); err != nil {
				return err
			}
			return rw.Replace(n)
		})
}

// constCondition reads a constant branch condition. Both bool and
// integer constants count; any nonzero integer is taken.
func constCondition(n *ir.Node) (taken bool, ok bool) {
	if n.NumOperands() != 1 {
		return false, false
	}
	def := n.OperandValue(0).DefiningNode()
	if def == nil {
		return false, false
	}
	a, ok := def.IsConstant()
	if !ok {
		return false, false
	}
	switch c := a.(type) {
	case ir.BoolAttr:
		return bool(c), true
	case ir.IntAttr:
		return c.Value != 0, true
	}
	return false, false
}
