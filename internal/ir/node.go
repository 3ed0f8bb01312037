package ir

// Node is one operation in the graph: an op name, attributes, operand
// edges, result values, optional successor blocks, and optional owned
// regions. Nodes live in an arena; hold NodeIDs across mutations, not
// pointers.
type Node struct {
	id   NodeID
	g    *Graph
	op   OpName
	spec *OpSpec

	attrs AttrMap

	// operands holds the leading operands followed by each
	// successor's arguments, in successor order.
	operands   []ValueID
	numLeading int

	results []ValueID
	succs   []successorRec
	regions []*Region

	block      BlockID
	prev, next NodeID
}

type successorRec struct {
	block BlockID
	nargs int
}

// Successor is one outgoing control edge of a terminator: the target
// block and the arguments forwarded to its parameters.
type Successor struct {
	Block BlockID
	Args  []ValueID
}

// ID returns the node's handle.
func (n *Node) ID() NodeID { return n.id }

// Op returns the node's operation name.
func (n *Node) Op() OpName { return n.op }

// Spec returns the registry entry for the node's op.
func (n *Node) Spec() *OpSpec { return n.spec }

// Graph returns the owning arena.
func (n *Node) Graph() *Graph { return n.g }

// HasTrait reports whether the node's op declares all bits of t.
func (n *Node) HasTrait(t Trait) bool { return n.spec.Traits.Has(t) }

// Attr returns the named attribute, or nil when absent.
func (n *Node) Attr(key string) Attr { return n.attrs[key] }

// Attrs returns the node's attribute map. Treat it as read-only; use
// Graph.SetAttr to mutate so listeners observe the change.
func (n *Node) Attrs() AttrMap { return n.attrs }

// NumOperands returns the count of leading operands, excluding
// successor arguments.
func (n *Node) NumOperands() int { return n.numLeading }

// Operand returns the i-th leading operand.
func (n *Node) Operand(i int) ValueID { return n.operands[i] }

// OperandValue resolves the i-th leading operand.
func (n *Node) OperandValue(i int) *Value { return n.g.Value(n.operands[i]) }

// Operands returns a copy of the leading operands.
func (n *Node) Operands() []ValueID {
	out := make([]ValueID, n.numLeading)
	copy(out, n.operands[:n.numLeading])
	return out
}

// NumResults returns the count of result values.
func (n *Node) NumResults() int { return len(n.results) }

// Result returns the i-th result value handle.
func (n *Node) Result(i int) ValueID { return n.results[i] }

// ResultValue resolves the i-th result.
func (n *Node) ResultValue(i int) *Value { return n.g.Value(n.results[i]) }

// Results returns a copy of the result handles.
func (n *Node) Results() []ValueID {
	out := make([]ValueID, len(n.results))
	copy(out, n.results)
	return out
}

// NumSuccessors returns the count of successor edges.
func (n *Node) NumSuccessors() int { return len(n.succs) }

// Successor returns the i-th successor edge with a copy of its
// argument list.
func (n *Node) Successor(i int) Successor {
	start := n.succArgStart(i)
	rec := n.succs[i]
	args := make([]ValueID, rec.nargs)
	copy(args, n.operands[start:start+rec.nargs])
	return Successor{Block: rec.block, Args: args}
}

// succArgStart returns the index into operands where successor i's
// arguments begin.
func (n *Node) succArgStart(i int) int {
	start := n.numLeading
	for j := 0; j < i; j++ {
		start += n.succs[j].nargs
	}
	return start
}

// NumRegions returns the count of owned regions.
func (n *Node) NumRegions() int { return len(n.regions) }

// Region returns the i-th owned region.
func (n *Node) Region(i int) *Region { return n.regions[i] }

// Parent returns the containing block, or nil when detached.
func (n *Node) Parent() *Block { return n.g.Block(n.block) }

// ParentID returns the containing block's handle; invalid when
// detached.
func (n *Node) ParentID() BlockID { return n.block }

// IsDetached reports whether the node is outside any block.
func (n *Node) IsDetached() bool { return !n.block.Valid() }

// Prev returns the preceding node in the block, or nil.
func (n *Node) Prev() *Node { return n.g.Node(n.prev) }

// Next returns the following node in the block, or nil.
func (n *Node) Next() *Node { return n.g.Node(n.next) }

// IsConstant reports whether the node is constant-like and returns
// the constant it materializes.
func (n *Node) IsConstant() (Attr, bool) {
	if !n.HasTrait(TraitConstantLike) {
		return nil, false
	}
	a := n.attrs[AttrKeyValue]
	return a, a != nil
}

// allOperands exposes the full operand list including successor
// arguments, for use-list bookkeeping and verification.
func (n *Node) allOperands() []ValueID { return n.operands }
