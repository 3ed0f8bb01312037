package ir

// Listener observes graph mutations. The rewrite driver installs one
// to keep its worklist current; mutations made through any path fire
// the same notifications, so listeners never need to diff the graph.
//
// Callbacks run synchronously inside the mutation. They must not
// mutate the graph.
type Listener interface {
	// NodeInserted fires after a node is linked into a block, both on
	// first insertion and after a move.
	NodeInserted(n *Node)

	// NodeErased fires when a node is about to be erased. The node is
	// still intact, operands and results included.
	NodeErased(n *Node)

	// NodeReplaced fires when a node's results are about to be
	// rewired to replacements, before any use is updated. The node is
	// erased afterward.
	NodeReplaced(n *Node, replacements []ValueID)

	// OperandsChanged fires after an in-place update of a node's
	// operands, successors, or attributes.
	OperandsChanged(n *Node)
}

// BaseListener is a no-op Listener to embed when only a subset of
// callbacks is needed.
type BaseListener struct{}

func (BaseListener) NodeInserted(*Node) {}

func (BaseListener) NodeErased(*Node) {}

func (BaseListener) NodeReplaced(*Node, []ValueID) {}

func (BaseListener) OperandsChanged(*Node) {}
