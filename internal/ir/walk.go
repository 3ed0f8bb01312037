package ir

// WalkOrder selects when a node is visited relative to the nodes
// nested under its regions.
type WalkOrder int

const (
	// PostOrder visits nested nodes before their owner.
	PostOrder WalkOrder = iota
	// PreOrder visits a node before anything nested under it.
	PreOrder
)

// Walk visits root and every node transitively nested under it.
// Blocks are visited in region order and nodes in block order. The
// callback returning false stops the walk.
//
// Walk reads the live structure; do not mutate during the walk. For
// mutation loops, collect handles first with CollectNodes.
func Walk(root *Node, order WalkOrder, fn func(*Node) bool) {
	walkNode(root, order, fn)
}

func walkNode(n *Node, order WalkOrder, fn func(*Node) bool) bool {
	if order == PreOrder {
		if !fn(n) {
			return false
		}
	}
	for i := 0; i < n.NumRegions(); i++ {
		r := n.Region(i)
		for _, bid := range r.blocks {
			b := n.g.Block(bid)
			for c := b.First(); c != nil; c = c.Next() {
				if !walkNode(c, order, fn) {
					return false
				}
			}
		}
	}
	if order == PostOrder {
		if !fn(n) {
			return false
		}
	}
	return true
}

// CollectNodes returns the handles of root and all nested nodes in
// the given order. The snapshot stays valid as handles across
// subsequent mutations; erased entries simply resolve to nil.
func CollectNodes(root *Node, order WalkOrder) []NodeID {
	var out []NodeID
	Walk(root, order, func(n *Node) bool {
		out = append(out, n.ID())
		return true
	})
	return out
}
