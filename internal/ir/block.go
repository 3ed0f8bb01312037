package ir

// Block is an ordered sequence of nodes with typed parameters. Blocks
// belong to a region and are targeted by terminator successors.
type Block struct {
	id     BlockID
	g      *Graph
	params []ValueID
	first  NodeID
	last   NodeID
	region *Region
}

// ID returns the block's handle.
func (b *Block) ID() BlockID { return b.id }

// NumParams returns the count of block parameters.
func (b *Block) NumParams() int { return len(b.params) }

// Param returns the i-th parameter's value handle.
func (b *Block) Param(i int) ValueID { return b.params[i] }

// ParamValue resolves the i-th parameter.
func (b *Block) ParamValue(i int) *Value { return b.g.Value(b.params[i]) }

// Params returns a copy of the parameter handles.
func (b *Block) Params() []ValueID {
	out := make([]ValueID, len(b.params))
	copy(out, b.params)
	return out
}

// First returns the block's first node, or nil when empty.
func (b *Block) First() *Node { return b.g.Node(b.first) }

// Last returns the block's last node, or nil when empty.
func (b *Block) Last() *Node { return b.g.Node(b.last) }

// Empty reports whether the block holds no nodes.
func (b *Block) Empty() bool { return !b.first.Valid() }

// Terminator returns the block's final node when it carries the
// terminator trait, else nil.
func (b *Block) Terminator() *Node {
	last := b.Last()
	if last == nil || !last.HasTrait(TraitTerminator) {
		return nil
	}
	return last
}

// Region returns the containing region.
func (b *Block) Region() *Region { return b.region }

// Parent returns the node owning the containing region.
func (b *Block) Parent() *Node {
	if b.region == nil {
		return nil
	}
	return b.g.Node(b.region.owner)
}

// IsEntry reports whether the block is its region's entry block.
func (b *Block) IsEntry() bool {
	return b.region != nil && len(b.region.blocks) > 0 && b.region.blocks[0] == b.id
}

// Nodes returns the block's node handles in order. The slice is a
// snapshot; it stays valid across mutations.
func (b *Block) Nodes() []NodeID {
	var out []NodeID
	for n := b.First(); n != nil; n = n.Next() {
		out = append(out, n.ID())
	}
	return out
}

// NumNodes counts the nodes in the block.
func (b *Block) NumNodes() int {
	c := 0
	for n := b.First(); n != nil; n = n.Next() {
		c++
	}
	return c
}

// Region is an ordered list of blocks owned by a node. The first
// block is the entry.
type Region struct {
	g      *Graph
	owner  NodeID
	index  int
	blocks []BlockID
}

// Owner returns the node the region belongs to.
func (r *Region) Owner() *Node { return r.g.Node(r.owner) }

// Index returns the region's position among its owner's regions.
func (r *Region) Index() int { return r.index }

// NumBlocks returns the count of blocks in the region.
func (r *Region) NumBlocks() int { return len(r.blocks) }

// BlockAt resolves the i-th block.
func (r *Region) BlockAt(i int) *Block { return r.g.Block(r.blocks[i]) }

// Blocks returns a copy of the block handles in region order.
func (r *Region) Blocks() []BlockID {
	out := make([]BlockID, len(r.blocks))
	copy(out, r.blocks)
	return out
}

// Entry returns the region's entry block, or nil when the region is
// empty.
func (r *Region) Entry() *Block {
	if len(r.blocks) == 0 {
		return nil
	}
	return r.g.Block(r.blocks[0])
}

// Predecessors returns the blocks whose terminators target b, in
// region order. Computed by scanning the region's terminators.
func (b *Block) Predecessors() []*Block {
	if b.region == nil {
		return nil
	}
	var preds []*Block
	for _, id := range b.region.blocks {
		cand := b.g.Block(id)
		if cand == nil {
			continue
		}
		term := cand.Last()
		if term == nil {
			continue
		}
		for i := 0; i < term.NumSuccessors(); i++ {
			if term.succs[i].block == b.id {
				preds = append(preds, cand)
				break
			}
		}
	}
	return preds
}
