package arith

import (
	"github.com/graphrw/anvil/internal/ir"
)

// arith.const folds to its own value attribute. The driver sends
// constant-like nodes straight to uniquing instead, but direct Folder
// users still get the attribute.
func foldConst(n *ir.Node, operands []ir.Attr) ([]ir.OpFoldResult, bool) {
	a := n.Attr(ir.AttrKeyValue)
	if a == nil {
		return nil, false
	}
	return []ir.OpFoldResult{ir.FoldAttr(a)}, true
}

// binop computes one folded value in 64-bit arithmetic; the result is
// wrapped to the node's width afterwards.
type binop func(l, r int64) int64

func addVal(l, r int64) int64 { return l + r }
func subVal(l, r int64) int64 { return l - r }
func mulVal(l, r int64) int64 { return l * r }
func andVal(l, r int64) int64 { return l & r }
func orVal(l, r int64) int64  { return l | r }
func xorVal(l, r int64) int64 { return l ^ r }

func foldBinary(f binop) ir.FoldFn {
	return func(n *ir.Node, operands []ir.Attr) ([]ir.OpFoldResult, bool) {
		if len(operands) != 2 {
			return nil, false
		}
		lhs, lok := asInt(operands[0])
		rhs, rok := asInt(operands[1])
		if !lok || !rok {
			return nil, false
		}
		t := n.ResultValue(0).Type()
		return []ir.OpFoldResult{ir.FoldAttr(intAttrFor(f(lhs.Value, rhs.Value), t))}, true
	}
}

func foldCmp(n *ir.Node, operands []ir.Attr) ([]ir.OpFoldResult, bool) {
	if len(operands) != 2 {
		return nil, false
	}
	pred, ok := n.Attr(AttrKeyPredicate).(ir.StringAttr)
	if !ok {
		return nil, false
	}
	// Comparing a value against itself needs no constants.
	if n.Operand(0) == n.Operand(1) {
		switch string(pred) {
		case PredEq, PredLe, PredGe:
			return []ir.OpFoldResult{ir.FoldAttr(ir.BoolAttr(true))}, true
		case PredNe, PredLt, PredGt:
			return []ir.OpFoldResult{ir.FoldAttr(ir.BoolAttr(false))}, true
		}
		return nil, false
	}
	lhs, lok := asInt(operands[0])
	rhs, rok := asInt(operands[1])
	if !lok || !rok {
		return nil, false
	}
	res, ok := evalPredicate(string(pred), lhs.Value, rhs.Value)
	if !ok {
		return nil, false
	}
	return []ir.OpFoldResult{ir.FoldAttr(ir.BoolAttr(res))}, true
}

func evalPredicate(pred string, l, r int64) (bool, bool) {
	switch pred {
	case PredEq:
		return l == r, true
	case PredNe:
		return l != r, true
	case PredLt:
		return l < r, true
	case PredLe:
		return l <= r, true
	case PredGt:
		return l > r, true
	case PredGe:
		return l >= r, true
	}
	return false, false
}

// arith.select folds on a constant condition, and when both cases are
// the same value.
func foldSelect(n *ir.Node, operands []ir.Attr) ([]ir.OpFoldResult, bool) {
	if len(operands) != 3 {
		return nil, false
	}
	if cond, ok := asInt(operands[0]); ok {
		pick := n.Operand(2)
		if cond.Value != 0 {
			pick = n.Operand(1)
		}
		return []ir.OpFoldResult{ir.FoldValue(pick)}, true
	}
	if n.Operand(1) == n.Operand(2) {
		return []ir.OpFoldResult{ir.FoldValue(n.Operand(1))}, true
	}
	return nil, false
}

// asInt views a constant attribute as an integer payload. Bools count
// as i1.
func asInt(a ir.Attr) (ir.IntAttr, bool) {
	switch c := a.(type) {
	case ir.IntAttr:
		return c, true
	case ir.BoolAttr:
		v := int64(0)
		if c {
			v = 1
		}
		return ir.IntAttr{Value: v, Type: ir.I1}, true
	}
	return ir.IntAttr{}, false
}

// intAttrFor wraps v to fit t. Single-bit results become bool
// attributes so i1 constants print as true and false.
func intAttrFor(v int64, t ir.Type) ir.Attr {
	if t == ir.I1 {
		return ir.BoolAttr(v&1 != 0)
	}
	return ir.IntAttr{Value: truncate(v, t), Type: t}
}

// truncate wraps v to t's width with sign extension. Widths of 64 and
// up pass through.
func truncate(v int64, t ir.Type) int64 {
	if t.Kind != ir.KindInt || t.Bits <= 0 || t.Bits >= 64 {
		return v
	}
	shift := uint(64 - t.Bits)
	return v << shift >> shift
}
