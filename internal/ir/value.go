package ir

// Value is a typed edge endpoint: either a node result or a block
// parameter. Its use list mirrors, exactly, the set of operand slots
// referencing it.
type Value struct {
	id  ValueID
	g   *Graph
	typ Type

	// Exactly one of defNode / defBlock is valid.
	defNode  NodeID
	defBlock BlockID
	defIndex int

	uses []Use
}

// Use is one operand slot referencing a value. Index counts into the
// user's full operand list, successor arguments included.
type Use struct {
	User  NodeID
	Index int
}

// ID returns the value's handle.
func (v *Value) ID() ValueID { return v.id }

// Type returns the value's type.
func (v *Value) Type() Type { return v.typ }

// IsBlockParam reports whether the value is a block parameter rather
// than a node result.
func (v *Value) IsBlockParam() bool { return v.defBlock.Valid() }

// DefiningNode returns the producing node, or nil for block
// parameters.
func (v *Value) DefiningNode() *Node { return v.g.Node(v.defNode) }

// DefiningBlock returns the owning block for block parameters, or nil
// for node results.
func (v *Value) DefiningBlock() *Block { return v.g.Block(v.defBlock) }

// DefIndex returns the result or parameter position of the value
// within its definer.
func (v *Value) DefIndex() int { return v.defIndex }

// Block returns the block the value is defined in: the producing
// node's block, or the parameter's own block.
func (v *Value) Block() *Block {
	if v.IsBlockParam() {
		return v.g.Block(v.defBlock)
	}
	if n := v.g.Node(v.defNode); n != nil {
		return n.Parent()
	}
	return nil
}

// NumUses returns the number of operand slots referencing the value.
func (v *Value) NumUses() int { return len(v.uses) }

// HasUses reports whether any operand still references the value.
func (v *Value) HasUses() bool { return len(v.uses) > 0 }

// Uses returns a copy of the use list in insertion order.
func (v *Value) Uses() []Use {
	out := make([]Use, len(v.uses))
	copy(out, v.uses)
	return out
}

// Users returns the distinct using nodes in first-use order.
func (v *Value) Users() []*Node {
	seen := make(map[NodeID]struct{}, len(v.uses))
	out := make([]*Node, 0, len(v.uses))
	for _, u := range v.uses {
		if _, dup := seen[u.User]; dup {
			continue
		}
		seen[u.User] = struct{}{}
		if n := v.g.Node(u.User); n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (v *Value) addUse(user NodeID, index int) {
	v.uses = append(v.uses, Use{User: user, Index: index})
}

func (v *Value) removeUse(user NodeID, index int) {
	for i, u := range v.uses {
		if u.User == user && u.Index == index {
			v.uses = append(v.uses[:i], v.uses[i+1:]...)
			return
		}
	}
}

// shiftUses renumbers the stored operand indices of user's uses at or
// beyond from by delta. Needed when a user's operand list changes
// shape.
func (v *Value) shiftUses(user NodeID, from, delta int) {
	for i := range v.uses {
		if v.uses[i].User == user && v.uses[i].Index >= from {
			v.uses[i].Index += delta
		}
	}
}
