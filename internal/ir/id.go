package ir

import "fmt"

// NodeID is a generation-stamped handle to a Node. The zero value is
// invalid. A handle whose generation no longer matches its arena slot
// resolves to nil instead of dangling.
type NodeID struct {
	idx uint32
	gen uint32
}

// ValueID is a generation-stamped handle to a Value. The zero value is
// invalid.
type ValueID struct {
	idx uint32
	gen uint32
}

// BlockID is a generation-stamped handle to a Block. The zero value is
// invalid.
type BlockID struct {
	idx uint32
	gen uint32
}

// Valid reports whether the handle was ever issued by a graph.
// It does not check liveness; resolve through a Graph for that.
func (id NodeID) Valid() bool { return id.gen != 0 }

// Valid reports whether the handle was ever issued by a graph.
func (id ValueID) Valid() bool { return id.gen != 0 }

// Valid reports whether the handle was ever issued by a graph.
func (id BlockID) Valid() bool { return id.gen != 0 }

func (id NodeID) String() string {
	if !id.Valid() {
		return "node(invalid)"
	}
	return fmt.Sprintf("node(%d@%d)", id.idx, id.gen)
}

func (id ValueID) String() string {
	if !id.Valid() {
		return "value(invalid)"
	}
	return fmt.Sprintf("value(%d@%d)", id.idx, id.gen)
}

func (id BlockID) String() string {
	if !id.Valid() {
		return "block(invalid)"
	}
	return fmt.Sprintf("block(%d@%d)", id.idx, id.gen)
}
