package ir

// NodeDef describes a node to create. Region count comes from the op
// spec, not the def.
type NodeDef struct {
	Op          OpName
	Operands    []ValueID
	ResultTypes []Type
	Attrs       AttrMap
	Successors  []SuccessorDef
}

// SuccessorDef is one successor edge in a NodeDef.
type SuccessorDef struct {
	Block BlockID
	Args  []ValueID
}

// NewNode creates a detached node. Operand and successor handles must
// be live; the op must be registered. Attach the node with one of the
// insert methods.
func (g *Graph) NewNode(def NodeDef) (*Node, error) {
	spec := g.ctx.Spec(def.Op)
	if spec == nil {
		return nil, errUnknownOp(def.Op)
	}
	total := len(def.Operands)
	for _, s := range def.Successors {
		total += len(s.Args)
	}
	operands := make([]ValueID, 0, total)
	for i, v := range def.Operands {
		if g.Value(v) == nil {
			return nil, errMalformed("operand %d of %s: %s is not live", i, def.Op, v)
		}
		operands = append(operands, v)
	}
	succs := make([]successorRec, 0, len(def.Successors))
	for i, s := range def.Successors {
		if g.Block(s.Block) == nil {
			return nil, errMalformed("successor %d of %s: %s is not live", i, def.Op, s.Block)
		}
		for j, a := range s.Args {
			if g.Value(a) == nil {
				return nil, errMalformed("successor %d arg %d of %s: %s is not live", i, j, def.Op, a)
			}
			operands = append(operands, a)
		}
		succs = append(succs, successorRec{block: s.Block, nargs: len(s.Args)})
	}

	n := g.allocNode()
	n.op = def.Op
	n.spec = spec
	n.attrs = def.Attrs.Clone()
	n.operands = operands
	n.numLeading = len(def.Operands)
	n.succs = succs
	n.results = make([]ValueID, len(def.ResultTypes))
	for i, t := range def.ResultTypes {
		v := g.allocValue(t)
		v.defNode = n.id
		v.defIndex = i
		n.results[i] = v.id
	}
	n.regions = make([]*Region, spec.NumRegions)
	for i := range n.regions {
		n.regions[i] = &Region{g: g, owner: n.id, index: i}
	}
	g.linkUses(n)
	return n, nil
}

// addResults appends result values of the given types to a node that
// has none yet. The parser needs this because a node's regions parse
// before its result types.
func (g *Graph) addResults(n *Node, types []Type) {
	for _, t := range types {
		v := g.allocValue(t)
		v.defNode = n.id
		v.defIndex = len(n.results)
		n.results = append(n.results, v.id)
	}
}

func (g *Graph) linkUses(n *Node) {
	for i, v := range n.operands {
		g.Value(v).addUse(n.id, i)
	}
}

func (g *Graph) unlinkUses(n *Node) {
	for i, v := range n.operands {
		if val := g.Value(v); val != nil {
			val.removeUse(n.id, i)
		}
	}
}

// InsertNodeAtEnd appends a detached node to a block.
func (g *Graph) InsertNodeAtEnd(id NodeID, blk BlockID) error {
	n, b, err := g.resolveInsert(id, blk)
	if err != nil {
		return err
	}
	g.link(n, b, b.last, NodeID{})
	g.notifyInserted(n)
	return nil
}

// InsertNodeAtStart prepends a detached node to a block.
func (g *Graph) InsertNodeAtStart(id NodeID, blk BlockID) error {
	n, b, err := g.resolveInsert(id, blk)
	if err != nil {
		return err
	}
	g.link(n, b, NodeID{}, b.first)
	g.notifyInserted(n)
	return nil
}

// InsertNodeBefore places a detached node immediately before ref.
func (g *Graph) InsertNodeBefore(id NodeID, ref NodeID) error {
	n := g.Node(id)
	if n == nil {
		return errStaleNode(id)
	}
	r := g.Node(ref)
	if r == nil {
		return errStaleNode(ref)
	}
	if !n.IsDetached() {
		return errMalformed("node %s is already attached", n.op)
	}
	b := r.Parent()
	if b == nil {
		return errMalformed("reference node %s is detached", r.op)
	}
	g.link(n, b, r.prev, r.id)
	g.notifyInserted(n)
	return nil
}

// InsertNodeAfter places a detached node immediately after ref.
func (g *Graph) InsertNodeAfter(id NodeID, ref NodeID) error {
	n := g.Node(id)
	if n == nil {
		return errStaleNode(id)
	}
	r := g.Node(ref)
	if r == nil {
		return errStaleNode(ref)
	}
	if !n.IsDetached() {
		return errMalformed("node %s is already attached", n.op)
	}
	b := r.Parent()
	if b == nil {
		return errMalformed("reference node %s is detached", r.op)
	}
	g.link(n, b, r.id, r.next)
	g.notifyInserted(n)
	return nil
}

func (g *Graph) resolveInsert(id NodeID, blk BlockID) (*Node, *Block, error) {
	n := g.Node(id)
	if n == nil {
		return nil, nil, errStaleNode(id)
	}
	b := g.Block(blk)
	if b == nil {
		return nil, nil, errStaleBlock(blk)
	}
	if !n.IsDetached() {
		return nil, nil, errMalformed("node %s is already attached", n.op)
	}
	return n, b, nil
}

// link splices n between prev and next inside b. Invalid prev means
// front, invalid next means back.
func (g *Graph) link(n *Node, b *Block, prev, next NodeID) {
	n.block = b.id
	n.prev = prev
	n.next = next
	if prev.Valid() {
		g.Node(prev).next = n.id
	} else {
		b.first = n.id
	}
	if next.Valid() {
		g.Node(next).prev = n.id
	} else {
		b.last = n.id
	}
}

// DetachNode unlinks a node from its block without erasing it. The
// node keeps its operands, results, and regions.
func (g *Graph) DetachNode(id NodeID) error {
	n := g.Node(id)
	if n == nil {
		return errStaleNode(id)
	}
	if n.IsDetached() {
		return nil
	}
	g.unlink(n)
	return nil
}

func (g *Graph) unlink(n *Node) {
	b := g.Block(n.block)
	if n.prev.Valid() {
		g.Node(n.prev).next = n.next
	} else {
		b.first = n.next
	}
	if n.next.Valid() {
		g.Node(n.next).prev = n.prev
	} else {
		b.last = n.prev
	}
	n.block = BlockID{}
	n.prev = NodeID{}
	n.next = NodeID{}
}

// MoveNodeBefore detaches a node and reinserts it before ref.
func (g *Graph) MoveNodeBefore(id, ref NodeID) error {
	if err := g.DetachNode(id); err != nil {
		return err
	}
	return g.InsertNodeBefore(id, ref)
}

// MoveNodeToEnd detaches a node and appends it to blk.
func (g *Graph) MoveNodeToEnd(id NodeID, blk BlockID) error {
	if err := g.DetachNode(id); err != nil {
		return err
	}
	return g.InsertNodeAtEnd(id, blk)
}

// EraseNode removes a node and everything nested under it. Every
// value defined by the node or inside its regions must be free of
// uses from outside the erased subtree.
func (g *Graph) EraseNode(id NodeID) error {
	n := g.Node(id)
	if n == nil {
		return errStaleNode(id)
	}
	doomed := g.collectSubtree(n)
	if err := g.checkNoExternalUses(doomed, nil); err != nil {
		return err
	}
	if !n.IsDetached() {
		g.unlink(n)
	}
	g.destroyNodes(doomed)
	return nil
}

// collectSubtree returns n and every node nested under its regions,
// innermost first.
func (g *Graph) collectSubtree(n *Node) []*Node {
	var out []*Node
	var visit func(*Node)
	visit = func(cur *Node) {
		for _, r := range cur.regions {
			for _, bid := range r.blocks {
				b := g.Block(bid)
				for c := b.First(); c != nil; c = c.Next() {
					visit(c)
				}
			}
		}
		out = append(out, cur)
	}
	visit(n)
	return out
}

// checkNoExternalUses verifies that no value defined by the doomed
// nodes, or by the parameters of extraBlocks, is used by a node
// outside the doomed set.
func (g *Graph) checkNoExternalUses(doomed []*Node, extraBlocks []*Block) error {
	inSet := make(map[NodeID]struct{}, len(doomed))
	for _, d := range doomed {
		inSet[d.id] = struct{}{}
	}
	checkValue := func(owner *Node, vid ValueID) error {
		v := g.Value(vid)
		external := 0
		for _, u := range v.uses {
			if _, ok := inSet[u.User]; !ok {
				external++
			}
		}
		if external > 0 {
			if owner != nil {
				return errNodeInUse(owner.op, owner.id, external)
			}
			return errMalformed("block parameter %s still has %d uses", vid, external)
		}
		return nil
	}
	for _, d := range doomed {
		for _, res := range d.results {
			if err := checkValue(d, res); err != nil {
				return err
			}
		}
		for _, r := range d.regions {
			for _, bid := range r.blocks {
				for _, p := range g.Block(bid).params {
					if err := checkValue(nil, p); err != nil {
						return err
					}
				}
			}
		}
	}
	for _, b := range extraBlocks {
		for _, p := range b.params {
			if err := checkValue(nil, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// destroyNodes notifies listeners for each doomed node while the
// structure is intact, then unlinks all operand edges and frees
// nodes, results, and nested blocks.
func (g *Graph) destroyNodes(doomed []*Node) {
	for _, d := range doomed {
		g.notifyErased(d)
	}
	for _, d := range doomed {
		g.unlinkUses(d)
	}
	for _, d := range doomed {
		for _, res := range d.results {
			g.freeValue(g.Value(res))
		}
		for _, r := range d.regions {
			for _, bid := range r.blocks {
				b := g.Block(bid)
				g.freeBlockShallow(b)
			}
			r.blocks = nil
		}
		g.freeNode(d)
	}
}

// freeBlockShallow frees a block and its parameter values. The
// block's nodes must already be freed or about to be.
func (g *Graph) freeBlockShallow(b *Block) {
	for _, p := range b.params {
		if v := g.Value(p); v != nil {
			g.freeValue(v)
		}
	}
	g.freeBlock(b)
}

// ReplaceAllUses rewires every use of old to new and reports how many
// operand edges moved. Types must match; replacing a value with itself
// is a no-op.
func (g *Graph) ReplaceAllUses(old, new ValueID) (int, error) {
	ov := g.Value(old)
	if ov == nil {
		return 0, errStaleValue(old)
	}
	nv := g.Value(new)
	if nv == nil {
		return 0, errStaleValue(new)
	}
	if old == new {
		return 0, nil
	}
	if ov.typ != nv.typ {
		return 0, errTypeMismatch(ov.typ, nv.typ)
	}
	moved := len(ov.uses)
	g.rewireUses(ov, nv)
	return moved, nil
}

// rewireUses moves every use of ov onto nv and fires one
// OperandsChanged per distinct user, in first-use order.
func (g *Graph) rewireUses(ov, nv *Value) {
	if len(ov.uses) == 0 {
		return
	}
	uses := make([]Use, len(ov.uses))
	copy(uses, ov.uses)
	var users []NodeID
	seen := make(map[NodeID]struct{}, len(uses))
	for _, u := range uses {
		user := g.Node(u.User)
		user.operands[u.Index] = nv.id
		nv.addUse(u.User, u.Index)
		if _, dup := seen[u.User]; !dup {
			seen[u.User] = struct{}{}
			users = append(users, u.User)
		}
	}
	ov.uses = ov.uses[:0]
	for _, uid := range users {
		if n := g.Node(uid); n != nil {
			g.notifyOperandsChanged(n)
		}
	}
}

// ReplaceNode rewires each result of the node to the corresponding
// replacement value and erases the node. Replacement types must
// match, and no replacement may be produced by the node itself.
func (g *Graph) ReplaceNode(id NodeID, with []ValueID) error {
	n := g.Node(id)
	if n == nil {
		return errStaleNode(id)
	}
	if len(with) != len(n.results) {
		return errMalformed("%s has %d results, got %d replacements", n.op, len(n.results), len(with))
	}
	for i, w := range with {
		wv := g.Value(w)
		if wv == nil {
			return errStaleValue(w)
		}
		rv := g.Value(n.results[i])
		if wv.typ != rv.typ {
			return errTypeMismatch(rv.typ, wv.typ)
		}
		if !wv.IsBlockParam() && wv.defNode == n.id {
			return errMalformed("replacement %d of %s is produced by the node being replaced", i, n.op)
		}
	}
	g.notifyReplaced(n, with)
	for i, w := range with {
		g.rewireUses(g.Value(n.results[i]), g.Value(w))
	}
	return g.EraseNode(id)
}

// SetOperand updates the i-th leading operand in place.
func (g *Graph) SetOperand(id NodeID, i int, v ValueID) error {
	n := g.Node(id)
	if n == nil {
		return errStaleNode(id)
	}
	if i < 0 || i >= n.numLeading {
		return errMalformed("operand index %d out of range for %s", i, n.op)
	}
	nv := g.Value(v)
	if nv == nil {
		return errStaleValue(v)
	}
	old := g.Value(n.operands[i])
	if old.id == v {
		return nil
	}
	old.removeUse(n.id, i)
	n.operands[i] = v
	nv.addUse(n.id, i)
	g.notifyOperandsChanged(n)
	return nil
}

// SetOperands replaces the whole leading operand list in place. The
// successor argument segments are preserved.
func (g *Graph) SetOperands(id NodeID, operands []ValueID) error {
	n := g.Node(id)
	if n == nil {
		return errStaleNode(id)
	}
	for i, v := range operands {
		if g.Value(v) == nil {
			return errMalformed("operand %d: %s is not live", i, v)
		}
	}
	tail := make([]ValueID, len(n.operands)-n.numLeading)
	copy(tail, n.operands[n.numLeading:])
	g.unlinkUses(n)
	n.operands = append(append(make([]ValueID, 0, len(operands)+len(tail)), operands...), tail...)
	n.numLeading = len(operands)
	g.linkUses(n)
	g.notifyOperandsChanged(n)
	return nil
}

// SetSuccessor retargets the i-th successor edge, replacing both the
// target block and the forwarded arguments.
func (g *Graph) SetSuccessor(id NodeID, i int, s SuccessorDef) error {
	n := g.Node(id)
	if n == nil {
		return errStaleNode(id)
	}
	if i < 0 || i >= len(n.succs) {
		return errMalformed("successor index %d out of range for %s", i, n.op)
	}
	if g.Block(s.Block) == nil {
		return errStaleBlock(s.Block)
	}
	for j, a := range s.Args {
		if g.Value(a) == nil {
			return errMalformed("successor arg %d: %s is not live", j, a)
		}
	}
	start := n.succArgStart(i)
	oldN := n.succs[i].nargs
	rebuilt := make([]ValueID, 0, len(n.operands)-oldN+len(s.Args))
	rebuilt = append(rebuilt, n.operands[:start]...)
	rebuilt = append(rebuilt, s.Args...)
	rebuilt = append(rebuilt, n.operands[start+oldN:]...)
	g.unlinkUses(n)
	n.operands = rebuilt
	n.succs[i] = successorRec{block: s.Block, nargs: len(s.Args)}
	g.linkUses(n)
	g.notifyOperandsChanged(n)
	return nil
}

// SetAttr sets or, with a nil attr, removes a node attribute.
func (g *Graph) SetAttr(id NodeID, key string, attr Attr) error {
	n := g.Node(id)
	if n == nil {
		return errStaleNode(id)
	}
	if attr == nil {
		delete(n.attrs, key)
	} else {
		if n.attrs == nil {
			n.attrs = make(AttrMap, 1)
		}
		n.attrs[key] = attr
	}
	g.notifyOperandsChanged(n)
	return nil
}

// AddBlock appends a new block with the given parameter types to a
// region.
func (g *Graph) AddBlock(r *Region, paramTypes []Type) (*Block, error) {
	if r == nil {
		return nil, errMalformed("nil region")
	}
	b := g.addBlockShell(r)
	if err := g.setBlockParams(b, paramTypes); err != nil {
		return nil, err
	}
	return b, nil
}

func (g *Graph) addBlockShell(r *Region) *Block {
	b := g.allocBlock()
	b.region = r
	r.blocks = append(r.blocks, b.id)
	return b
}

func (g *Graph) setBlockParams(b *Block, paramTypes []Type) error {
	if len(b.params) != 0 {
		return errMalformed("block already has parameters")
	}
	b.params = make([]ValueID, len(paramTypes))
	for i, t := range paramTypes {
		v := g.allocValue(t)
		v.defBlock = b.id
		v.defIndex = i
		b.params[i] = v.id
	}
	return nil
}

// EraseBlock removes one block. See EraseBlocks.
func (g *Graph) EraseBlock(id BlockID) error {
	return g.EraseBlocks([]BlockID{id})
}

// EraseBlocks removes a set of blocks and all nodes inside them.
// References between doomed blocks are allowed; values defined inside
// must have no uses from surviving nodes, and no surviving terminator
// may target a doomed block.
func (g *Graph) EraseBlocks(ids []BlockID) error {
	blocks := make([]*Block, 0, len(ids))
	inSet := make(map[BlockID]struct{}, len(ids))
	for _, id := range ids {
		b := g.Block(id)
		if b == nil {
			return errStaleBlock(id)
		}
		blocks = append(blocks, b)
		inSet[id] = struct{}{}
	}
	var doomed []*Node
	for _, b := range blocks {
		for n := b.First(); n != nil; n = n.Next() {
			doomed = append(doomed, g.collectSubtree(n)...)
		}
	}
	if err := g.checkNoExternalUses(doomed, blocks); err != nil {
		return err
	}
	doomedNodes := make(map[NodeID]struct{}, len(doomed))
	for _, d := range doomed {
		doomedNodes[d.id] = struct{}{}
	}
	for _, b := range blocks {
		for _, pred := range b.Predecessors() {
			term := pred.Last()
			if term == nil {
				continue
			}
			if _, dying := doomedNodes[term.id]; dying {
				continue
			}
			return errMalformed("block %s is still targeted by a live terminator", b.id)
		}
	}
	g.destroyNodes(doomed)
	for _, b := range blocks {
		r := b.region
		for i, bid := range r.blocks {
			if bid == b.id {
				r.blocks = append(r.blocks[:i], r.blocks[i+1:]...)
				break
			}
		}
		g.freeBlockShallow(b)
	}
	return nil
}

// CloneNode deep-copies a node, regions included, and returns the
// detached clone. mapping redirects operand references during the
// copy and is extended with old-to-new entries for every value the
// clone defines; pass nil for an identity mapping.
func (g *Graph) CloneNode(id NodeID, mapping map[ValueID]ValueID) (*Node, error) {
	n := g.Node(id)
	if n == nil {
		return nil, errStaleNode(id)
	}
	if mapping == nil {
		mapping = make(map[ValueID]ValueID)
	}
	return g.cloneNode(n, mapping, make(map[BlockID]BlockID))
}

func (g *Graph) cloneNode(n *Node, vmap map[ValueID]ValueID, bmap map[BlockID]BlockID) (*Node, error) {
	mapValue := func(v ValueID) ValueID {
		if mv, ok := vmap[v]; ok {
			return mv
		}
		return v
	}
	mapBlock := func(b BlockID) BlockID {
		if mb, ok := bmap[b]; ok {
			return mb
		}
		return b
	}

	resultTypes := make([]Type, len(n.results))
	for i, res := range n.results {
		resultTypes[i] = g.Value(res).typ
	}
	def := NodeDef{
		Op:          n.op,
		Attrs:       n.attrs.Clone(),
		ResultTypes: resultTypes,
	}
	for i := 0; i < n.numLeading; i++ {
		def.Operands = append(def.Operands, mapValue(n.operands[i]))
	}
	for i := range n.succs {
		s := n.Successor(i)
		mapped := SuccessorDef{Block: mapBlock(s.Block)}
		for _, a := range s.Args {
			mapped.Args = append(mapped.Args, mapValue(a))
		}
		def.Successors = append(def.Successors, mapped)
	}
	clone, err := g.NewNode(def)
	if err != nil {
		return nil, err
	}
	for i, res := range n.results {
		vmap[res] = clone.results[i]
	}
	for ri, r := range n.regions {
		cr := clone.regions[ri]
		// Create all block shells first so forward branches map.
		srcBlocks := make([]*Block, len(r.blocks))
		for bi, bid := range r.blocks {
			src := g.Block(bid)
			srcBlocks[bi] = src
			dst := g.addBlockShell(cr)
			paramTypes := make([]Type, len(src.params))
			for pi, p := range src.params {
				paramTypes[pi] = g.Value(p).typ
			}
			if err := g.setBlockParams(dst, paramTypes); err != nil {
				return nil, err
			}
			bmap[bid] = dst.id
			for pi, p := range src.params {
				vmap[p] = dst.params[pi]
			}
		}
		for _, src := range srcBlocks {
			dst := g.Block(bmap[src.id])
			for c := src.First(); c != nil; c = c.Next() {
				cc, err := g.cloneNode(c, vmap, bmap)
				if err != nil {
					return nil, err
				}
				if err := g.InsertNodeAtEnd(cc.id, dst.id); err != nil {
					return nil, err
				}
			}
		}
	}
	return clone, nil
}
