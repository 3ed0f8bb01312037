package arith

import (
	"github.com/graphrw/anvil/internal/canon"
	"github.com/graphrw/anvil/internal/ir"
	"github.com/graphrw/anvil/internal/rewrite"
)

// Patterns returns the dialect's canonicalization patterns.
func Patterns() canon.PatternSource {
	return canon.PatternSource{
		Dialect: "arith",
		General: []rewrite.Pattern{
			commuteConstRight(),
		},
		PerOp: []rewrite.Pattern{
			mulZero(),
			mulIdentity(),
			addIdentity(),
			addReassoc(),
			subSelf(),
			xorSelf(),
		},
	}
}

// commuteConstRight moves the constant operand of a commutative
// binary node to the right, so the value patterns below only need to
// look one way. Trait-gated, which puts commutative ops of other
// dialects into normal form too.
func commuteConstRight() rewrite.Pattern {
	return rewrite.NewPattern("arith.commute-const-right", rewrite.AnyOp, 5,
		func(n *ir.Node) bool {
			if !n.HasTrait(ir.TraitCommutative) || n.NumOperands() != 2 {
				return false
			}
			return isConstOperand(n, 0) && !isConstOperand(n, 1)
		},
		func(n *ir.Node, rw *rewrite.Rewriter) error {
			return rw.SetOperands(n, []ir.ValueID{n.Operand(1), n.Operand(0)})
		})
}

// mulZero rewrites x * 0 to the zero operand itself, which already
// dominates the node.
func mulZero() rewrite.Pattern {
	return rewrite.NewPattern("arith.mul-zero", OpMul, 15, matchRhsInt(0), replaceWithRhs)
}

// mulIdentity rewrites x * 1 to x.
func mulIdentity() rewrite.Pattern {
	return rewrite.NewPattern("arith.mul-identity", OpMul, 10, matchRhsInt(1), replaceWithLhs)
}

// addIdentity rewrites x + 0 to x.
func addIdentity() rewrite.Pattern {
	return rewrite.NewPattern("arith.add-identity", OpAdd, 10, matchRhsInt(0), replaceWithLhs)
}

// subSelf rewrites x - x to the constant 0.
func subSelf() rewrite.Pattern {
	return rewrite.NewPattern("arith.sub-self", OpSub, 15, matchSelfPair, replaceWithZero)
}

// xorSelf rewrites x ^ x to the constant 0.
func xorSelf() rewrite.Pattern {
	return rewrite.NewPattern("arith.xor-self", OpXor, 15, matchSelfPair, replaceWithZero)
}

// addReassoc folds the two constants of (x + c1) + c2 into one,
// shortening constant chains one level per application.
func addReassoc() rewrite.Pattern {
	return rewrite.NewPattern("arith.add-reassoc", OpAdd, 8,
		func(n *ir.Node) bool {
			if _, ok := intConstOperand(n, 1); !ok {
				return false
			}
			inner := n.OperandValue(0).DefiningNode()
			if inner == nil || inner.Op() != OpAdd {
				return false
			}
			if _, ok := intConstOperand(inner, 1); !ok {
				return false
			}
			// The all-constant case belongs to the folder.
			return !isConstOperand(inner, 0)
		},
		func(n *ir.Node, rw *rewrite.Rewriter) error {
			c2, _ := intConstOperand(n, 1)
			inner := n.OperandValue(0).DefiningNode()
			c1, _ := intConstOperand(inner, 1)
			t := n.ResultValue(0).Type()
			sum, err := rw.MaterializeConstant(n, intAttrFor(c1.Value+c2.Value, t), t)
			if err != nil {
				return err
			}
			return rw.SetOperands(n, []ir.ValueID{inner.Operand(0), sum})
		})
}

func matchRhsInt(want int64) rewrite.MatchFn {
	return func(n *ir.Node) bool {
		c, ok := intConstOperand(n, 1)
		return ok && c.Value == want
	}
}

func matchSelfPair(n *ir.Node) bool {
	return n.NumOperands() == 2 && n.Operand(0) == n.Operand(1)
}

func replaceWithLhs(n *ir.Node, rw *rewrite.Rewriter) error {
	return rw.Replace(n, n.Operand(0))
}

func replaceWithRhs(n *ir.Node, rw *rewrite.Rewriter) error {
	return rw.Replace(n, n.Operand(1))
}

func replaceWithZero(n *ir.Node, rw *rewrite.Rewriter) error {
	t := n.ResultValue(0).Type()
	zero, err := rw.MaterializeConstant(n, intAttrFor(0, t), t)
	if err != nil {
		return err
	}
	return rw.Replace(n, zero)
}

// intConstOperand reads operand i when its producer is an integer or
// bool constant.
func intConstOperand(n *ir.Node, i int) (ir.IntAttr, bool) {
	if i >= n.NumOperands() {
		return ir.IntAttr{}, false
	}
	def := n.OperandValue(i).DefiningNode()
	if def == nil {
		return ir.IntAttr{}, false
	}
	a, ok := def.IsConstant()
	if !ok {
		return ir.IntAttr{}, false
	}
	return asInt(a)
}

func isConstOperand(n *ir.Node, i int) bool {
	def := n.OperandValue(i).DefiningNode()
	if def == nil {
		return false
	}
	_, ok := def.IsConstant()
	return ok
}
