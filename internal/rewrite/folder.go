package rewrite

import "github.com/graphrw/anvil/internal/ir"

// Folder answers fold queries for single nodes. TryFold must be a
// pure decision: it computes replacements without mutating the graph.
// The driver applies them afterwards under the rewrite budget.
type Folder interface {
	// TryFold returns one replacement per result of n, or false when
	// the node does not fold. An attribute replacement asks the
	// driver to materialize a constant of the matching result type.
	TryFold(n *ir.Node) ([]ir.OpFoldResult, bool)
}

// SpecFolder folds through the op registry: it gathers the constant
// attributes of n's operands and calls the op's fold hook.
type SpecFolder struct{}

// TryFold implements Folder.
func (SpecFolder) TryFold(n *ir.Node) ([]ir.OpFoldResult, bool) {
	spec := n.Spec()
	if spec == nil || spec.Fold == nil {
		return nil, false
	}
	operands := make([]ir.Attr, n.NumOperands())
	for i := range operands {
		v := n.OperandValue(i)
		if v == nil {
			return nil, false
		}
		def := v.DefiningNode()
		if def == nil {
			continue
		}
		if a, ok := def.IsConstant(); ok {
			operands[i] = a
		}
	}
	return spec.Fold(n, operands)
}
