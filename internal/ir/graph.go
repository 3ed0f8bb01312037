// Package ir implements the mutable graph form the rewrite engine
// operates on: nodes connected by typed values, grouped into blocks
// and regions, all owned by an arena with generation-checked handles.
//
// Handles (NodeID, ValueID, BlockID) carry a generation stamp. Erasing
// an entity bumps its slot's generation, so a handle held across the
// erase resolves to nil instead of dangling. Every structural edge
// stored in the graph is a handle, never a bare pointer.
//
// Determinism: a graph is single-writer. All iteration orders exposed
// by this package (walks, use lists, attribute keys) are deterministic
// for a given mutation history. The package starts no goroutines.
package ir

// Graph is an arena of nodes, values, and blocks sharing one op
// registry. The zero value is not usable; call NewGraph.
type Graph struct {
	ctx *Context

	nodes     []*Node
	nodeGen   []uint32
	freeNodes []uint32

	values     []*Value
	valueGen   []uint32
	freeValues []uint32

	blocks     []*Block
	blockGen   []uint32
	freeBlocks []uint32

	listener Listener
}

// NewGraph returns an empty graph bound to the given registry.
func NewGraph(ctx *Context) *Graph {
	return &Graph{ctx: ctx}
}

// Context returns the op registry the graph was built against.
func (g *Graph) Context() *Context { return g.ctx }

// SwapListener installs l as the graph's mutation listener and
// returns the previous one. A nil listener disables notifications.
func (g *Graph) SwapListener(l Listener) Listener {
	prev := g.listener
	g.listener = l
	return prev
}

// Node resolves a handle, returning nil when the node is erased or
// the handle is stale.
func (g *Graph) Node(id NodeID) *Node {
	if !id.Valid() || int(id.idx) >= len(g.nodes) {
		return nil
	}
	if g.nodes[id.idx] == nil || g.nodeGen[id.idx] != id.gen {
		return nil
	}
	return g.nodes[id.idx]
}

// Value resolves a handle, returning nil when the value is gone or
// the handle is stale.
func (g *Graph) Value(id ValueID) *Value {
	if !id.Valid() || int(id.idx) >= len(g.values) {
		return nil
	}
	if g.values[id.idx] == nil || g.valueGen[id.idx] != id.gen {
		return nil
	}
	return g.values[id.idx]
}

// Block resolves a handle, returning nil when the block is erased or
// the handle is stale.
func (g *Graph) Block(id BlockID) *Block {
	if !id.Valid() || int(id.idx) >= len(g.blocks) {
		return nil
	}
	if g.blocks[id.idx] == nil || g.blockGen[id.idx] != id.gen {
		return nil
	}
	return g.blocks[id.idx]
}

// NumLiveNodes counts nodes currently allocated.
func (g *Graph) NumLiveNodes() int {
	n := 0
	for _, slot := range g.nodes {
		if slot != nil {
			n++
		}
	}
	return n
}

func (g *Graph) allocNode() *Node {
	n := &Node{g: g}
	if len(g.freeNodes) > 0 {
		idx := g.freeNodes[len(g.freeNodes)-1]
		g.freeNodes = g.freeNodes[:len(g.freeNodes)-1]
		g.nodes[idx] = n
		n.id = NodeID{idx: idx, gen: g.nodeGen[idx]}
		return n
	}
	idx := uint32(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.nodeGen = append(g.nodeGen, 1)
	n.id = NodeID{idx: idx, gen: 1}
	return n
}

func (g *Graph) freeNode(n *Node) {
	idx := n.id.idx
	g.nodes[idx] = nil
	g.nodeGen[idx]++
	g.freeNodes = append(g.freeNodes, idx)
}

func (g *Graph) allocValue(typ Type) *Value {
	v := &Value{g: g, typ: typ}
	if len(g.freeValues) > 0 {
		idx := g.freeValues[len(g.freeValues)-1]
		g.freeValues = g.freeValues[:len(g.freeValues)-1]
		g.values[idx] = v
		v.id = ValueID{idx: idx, gen: g.valueGen[idx]}
		return v
	}
	idx := uint32(len(g.values))
	g.values = append(g.values, v)
	g.valueGen = append(g.valueGen, 1)
	v.id = ValueID{idx: idx, gen: 1}
	return v
}

func (g *Graph) freeValue(v *Value) {
	idx := v.id.idx
	g.values[idx] = nil
	g.valueGen[idx]++
	g.freeValues = append(g.freeValues, idx)
}

func (g *Graph) allocBlock() *Block {
	b := &Block{g: g}
	if len(g.freeBlocks) > 0 {
		idx := g.freeBlocks[len(g.freeBlocks)-1]
		g.freeBlocks = g.freeBlocks[:len(g.freeBlocks)-1]
		g.blocks[idx] = b
		b.id = BlockID{idx: idx, gen: g.blockGen[idx]}
		return b
	}
	idx := uint32(len(g.blocks))
	g.blocks = append(g.blocks, b)
	g.blockGen = append(g.blockGen, 1)
	b.id = BlockID{idx: idx, gen: 1}
	return b
}

func (g *Graph) freeBlock(b *Block) {
	idx := b.id.idx
	g.blocks[idx] = nil
	g.blockGen[idx]++
	g.freeBlocks = append(g.freeBlocks, idx)
}

func (g *Graph) notifyInserted(n *Node) {
	if g.listener != nil {
		g.listener.NodeInserted(n)
	}
}

func (g *Graph) notifyErased(n *Node) {
	if g.listener != nil {
		g.listener.NodeErased(n)
	}
}

func (g *Graph) notifyReplaced(n *Node, with []ValueID) {
	if g.listener != nil {
		g.listener.NodeReplaced(n, with)
	}
}

func (g *Graph) notifyOperandsChanged(n *Node) {
	if g.listener != nil {
		g.listener.OperandsChanged(n)
	}
}
