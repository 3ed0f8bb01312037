package ir

// Builder creates nodes at a movable insertion point. The zero value
// has no insertion point; set one before calling Create. If the node
// the point is anchored to gets erased, Create falls back to the end
// of the anchored block.
type Builder struct {
	g      *Graph
	block  BlockID
	before NodeID // invalid means append at block end
}

// NewBuilder returns a builder for g with no insertion point.
func NewBuilder(g *Graph) *Builder {
	return &Builder{g: g}
}

// Graph returns the arena the builder creates into.
func (b *Builder) Graph() *Graph { return b.g }

// SetInsertionPointEnd makes Create append to blk.
func (b *Builder) SetInsertionPointEnd(blk BlockID) {
	b.block = blk
	b.before = NodeID{}
}

// SetInsertionPointStart makes Create insert before blk's current
// first node.
func (b *Builder) SetInsertionPointStart(blk BlockID) {
	b.block = blk
	b.before = NodeID{}
	if blkRef := b.g.Block(blk); blkRef != nil {
		b.before = blkRef.first
	}
}

// SetInsertionPointBefore makes Create insert before n.
func (b *Builder) SetInsertionPointBefore(n NodeID) {
	b.before = n
	b.block = BlockID{}
	if node := b.g.Node(n); node != nil {
		b.block = node.block
	}
}

// SetInsertionPointAfter makes Create insert after n.
func (b *Builder) SetInsertionPointAfter(n NodeID) {
	b.before = NodeID{}
	b.block = BlockID{}
	if node := b.g.Node(n); node != nil {
		b.block = node.block
		b.before = node.next
	}
}

// InsertionBlock returns the block Create currently targets.
func (b *Builder) InsertionBlock() BlockID { return b.block }

// Create builds a node from def and inserts it at the insertion
// point.
func (b *Builder) Create(def NodeDef) (*Node, error) {
	if b.g.Block(b.block) == nil {
		return nil, errMalformed("builder has no insertion point")
	}
	n, err := b.g.NewNode(def)
	if err != nil {
		return nil, err
	}
	if b.before.Valid() && b.g.Node(b.before) != nil {
		err = b.g.InsertNodeBefore(n.id, b.before)
	} else {
		err = b.g.InsertNodeAtEnd(n.id, b.block)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}
