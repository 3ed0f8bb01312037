// Package arith registers integer arithmetic: constants, binary ops
// with constant folds, comparison, and select.
package arith

import (
	"fmt"

	"github.com/graphrw/anvil/internal/ir"
)

// Operation names registered by this dialect.
const (
	OpConst  ir.OpName = "arith.const"
	OpAdd    ir.OpName = "arith.add"
	OpSub    ir.OpName = "arith.sub"
	OpMul    ir.OpName = "arith.mul"
	OpAnd    ir.OpName = "arith.and"
	OpOr     ir.OpName = "arith.or"
	OpXor    ir.OpName = "arith.xor"
	OpCmp    ir.OpName = "arith.cmp"
	OpSelect ir.OpName = "arith.select"
)

// AttrKeyPredicate names the comparison predicate attribute of
// arith.cmp.
const AttrKeyPredicate = "predicate"

// Comparison predicates, carried as string attributes. Order
// relations are signed.
const (
	PredEq = "eq"
	PredNe = "ne"
	PredLt = "lt"
	PredLe = "le"
	PredGt = "gt"
	PredGe = "ge"
)

// Register installs the arith dialect into ctx.
func Register(ctx *ir.Context) error {
	return ctx.RegisterDialect(ir.Dialect{
		Name: "arith",
		Ops: []ir.OpSpec{
			{Name: OpConst, Traits: ir.TraitConstantLike | ir.TraitPure, Fold: foldConst, Verify: verifyConst},
			{Name: OpAdd, Traits: ir.TraitPure | ir.TraitCommutative, Fold: foldBinary(addVal), Verify: verifyBinary},
			{Name: OpSub, Traits: ir.TraitPure, Fold: foldBinary(subVal), Verify: verifyBinary},
			{Name: OpMul, Traits: ir.TraitPure | ir.TraitCommutative, Fold: foldBinary(mulVal), Verify: verifyBinary},
			{Name: OpAnd, Traits: ir.TraitPure | ir.TraitCommutative, Fold: foldBinary(andVal), Verify: verifyBinary},
			{Name: OpOr, Traits: ir.TraitPure | ir.TraitCommutative, Fold: foldBinary(orVal), Verify: verifyBinary},
			{Name: OpXor, Traits: ir.TraitPure | ir.TraitCommutative, Fold: foldBinary(xorVal), Verify: verifyBinary},
			{Name: OpCmp, Traits: ir.TraitPure, Fold: foldCmp, Verify: verifyCmp},
			{Name: OpSelect, Traits: ir.TraitPure, Fold: foldSelect, Verify: verifySelect},
		},
		MaterializeConstant: materialize,
	})
}

// materialize builds an arith.const for attributes whose payload fits
// the requested type, and declines everything else.
func materialize(b *ir.Builder, attr ir.Attr, typ ir.Type) (*ir.Node, error) {
	switch a := attr.(type) {
	case ir.IntAttr:
		if a.Type != typ {
			return nil, nil
		}
	case ir.BoolAttr:
		if typ != ir.I1 {
			return nil, nil
		}
	case ir.FloatAttr:
		if a.Type != typ {
			return nil, nil
		}
	default:
		return nil, nil
	}
	return b.Create(ir.NodeDef{
		Op:          OpConst,
		Attrs:       ir.AttrMap{ir.AttrKeyValue: attr},
		ResultTypes: []ir.Type{typ},
	})
}

func verifyConst(n *ir.Node) error {
	if n.NumOperands() != 0 || n.NumResults() != 1 {
		return fmt.Errorf("arith.const wants 0 operands and 1 result")
	}
	t := n.ResultValue(0).Type()
	switch a := n.Attr(ir.AttrKeyValue).(type) {
	case ir.IntAttr:
		if a.Type != t {
			return fmt.Errorf("arith.const value has type %s, result is %s", a.Type, t)
		}
	case ir.BoolAttr:
		if t != ir.I1 {
			return fmt.Errorf("arith.const bool value wants an i1 result, got %s", t)
		}
	case ir.FloatAttr:
		if a.Type != t {
			return fmt.Errorf("arith.const value has type %s, result is %s", a.Type, t)
		}
	case nil:
		return fmt.Errorf("arith.const is missing its %q attribute", ir.AttrKeyValue)
	default:
		return fmt.Errorf("arith.const cannot hold %s", a)
	}
	return nil
}

func verifyBinary(n *ir.Node) error {
	if n.NumOperands() != 2 || n.NumResults() != 1 {
		return fmt.Errorf("%s wants 2 operands and 1 result", n.Op())
	}
	t := n.ResultValue(0).Type()
	if t.Kind != ir.KindInt {
		return fmt.Errorf("%s works on integers, got %s", n.Op(), t)
	}
	if lt, rt := n.OperandValue(0).Type(), n.OperandValue(1).Type(); lt != t || rt != t {
		return fmt.Errorf("%s operand types %s, %s must match result %s", n.Op(), lt, rt, t)
	}
	return nil
}

func verifyCmp(n *ir.Node) error {
	if n.NumOperands() != 2 || n.NumResults() != 1 {
		return fmt.Errorf("arith.cmp wants 2 operands and 1 result")
	}
	if t := n.ResultValue(0).Type(); t != ir.I1 {
		return fmt.Errorf("arith.cmp result must be i1, got %s", t)
	}
	if lt, rt := n.OperandValue(0).Type(), n.OperandValue(1).Type(); lt != rt {
		return fmt.Errorf("arith.cmp operand types must match, got %s and %s", lt, rt)
	}
	pred, ok := n.Attr(AttrKeyPredicate).(ir.StringAttr)
	if !ok {
		return fmt.Errorf("arith.cmp is missing its %q attribute", AttrKeyPredicate)
	}
	if _, ok := evalPredicate(string(pred), 0, 0); !ok {
		return fmt.Errorf("arith.cmp has unknown predicate %q", string(pred))
	}
	return nil
}

func verifySelect(n *ir.Node) error {
	if n.NumOperands() != 3 || n.NumResults() != 1 {
		return fmt.Errorf("arith.select wants 3 operands and 1 result")
	}
	if t := n.OperandValue(0).Type(); t != ir.I1 {
		return fmt.Errorf("arith.select condition must be i1, got %s", t)
	}
	t := n.ResultValue(0).Type()
	if at, bt := n.OperandValue(1).Type(), n.OperandValue(2).Type(); at != t || bt != t {
		return fmt.Errorf("arith.select case types %s, %s must match result %s", at, bt, t)
	}
	return nil
}
