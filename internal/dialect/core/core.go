// Package core registers the structural dialect every graph starts
// from: the module container, the branching terminators, and an
// identity forwarder that folds away.
package core

import (
	"fmt"

	"github.com/graphrw/anvil/internal/ir"
)

// Operation names registered by this dialect.
const (
	OpModule   ir.OpName = "core.module"
	OpBr       ir.OpName = "core.br"
	OpCondBr   ir.OpName = "core.cond_br"
	OpRet      ir.OpName = "core.ret"
	OpIdentity ir.OpName = "core.identity"
)

// Register installs the core dialect into ctx.
func Register(ctx *ir.Context) error {
	return ctx.RegisterDialect(ir.Dialect{
		Name: "core",
		Ops: []ir.OpSpec{
			{Name: OpModule, Traits: ir.TraitNoTerminatorRequired, NumRegions: 1, Verify: verifyModule},
			{Name: OpBr, Traits: ir.TraitTerminator, Verify: verifyBr},
			{Name: OpCondBr, Traits: ir.TraitTerminator, Verify: verifyCondBr},
			{Name: OpRet, Traits: ir.TraitTerminator, Verify: verifyRet},
			{Name: OpIdentity, Traits: ir.TraitPure, Fold: foldIdentity, Verify: verifyIdentity},
		},
	})
}

func verifyModule(n *ir.Node) error {
	if n.NumOperands() != 0 || n.NumResults() != 0 {
		return fmt.Errorf("core.module carries no operands or results")
	}
	return nil
}

func verifyBr(n *ir.Node) error {
	if n.NumOperands() != 0 {
		return fmt.Errorf("core.br takes no leading operands, has %d", n.NumOperands())
	}
	if n.NumSuccessors() != 1 {
		return fmt.Errorf("core.br wants 1 successor, has %d", n.NumSuccessors())
	}
	return nil
}

func verifyCondBr(n *ir.Node) error {
	if n.NumOperands() != 1 {
		return fmt.Errorf("core.cond_br wants 1 condition operand, has %d", n.NumOperands())
	}
	if t := n.OperandValue(0).Type(); t != ir.I1 {
		return fmt.Errorf("core.cond_br condition must be i1, got %s", t)
	}
	if n.NumSuccessors() != 2 {
		return fmt.Errorf("core.cond_br wants 2 successors, has %d", n.NumSuccessors())
	}
	return nil
}

func verifyRet(n *ir.Node) error {
	if n.NumSuccessors() != 0 {
		return fmt.Errorf("core.ret carries no successors")
	}
	return nil
}

func verifyIdentity(n *ir.Node) error {
	if n.NumOperands() != 1 || n.NumResults() != 1 {
		return fmt.Errorf("core.identity wants 1 operand and 1 result")
	}
	if ot, rt := n.OperandValue(0).Type(), n.ResultValue(0).Type(); ot != rt {
		return fmt.Errorf("core.identity operand and result types must agree, got %s and %s", ot, rt)
	}
	return nil
}

// core.identity always folds to its operand.
func foldIdentity(n *ir.Node, operands []ir.Attr) ([]ir.OpFoldResult, bool) {
	return []ir.OpFoldResult{ir.FoldValue(n.Operand(0))}, true
}
