package ir

import "slices"

// Verify checks the structural invariants of the subtree under root:
// use lists exactly mirror operand edges, definer back-references are
// consistent, block linkage is coherent, terminator placement and
// successor signatures are respected, and op-specific checks pass.
// The subtree is expected to be closed: values defined inside it may
// only be used inside it. The first violation is returned.
func Verify(root *Node) error {
	v := &verifier{
		g:        root.g,
		inside:   make(map[NodeID]struct{}),
		expected: make(map[ValueID][]Use),
	}
	ok := true
	Walk(root, PreOrder, func(n *Node) bool {
		v.inside[n.id] = struct{}{}
		return true
	})
	Walk(root, PreOrder, func(n *Node) bool {
		if err := v.checkNode(n); err != nil {
			v.err = err
			ok = false
		}
		return ok
	})
	if v.err != nil {
		return v.err
	}
	if err := v.checkUseLists(root); err != nil {
		return err
	}
	return nil
}

type verifier struct {
	g        *Graph
	inside   map[NodeID]struct{}
	expected map[ValueID][]Use
	err      error
}

func (v *verifier) checkNode(n *Node) error {
	if n.spec == nil || v.g.ctx.Spec(n.op) != n.spec {
		return errInvariant(n, "op %s is not registered with the graph's context", n.op)
	}
	for i, res := range n.results {
		rv := v.g.Value(res)
		if rv == nil {
			return errInvariant(n, "result %d is not live", i)
		}
		if rv.defNode != n.id || rv.defIndex != i {
			return errInvariant(n, "result %d has a mismatched definer back-reference", i)
		}
	}
	for i, op := range n.allOperands() {
		ov := v.g.Value(op)
		if ov == nil {
			return errInvariant(n, "operand %d is not live", i)
		}
		v.expected[op] = append(v.expected[op], Use{User: n.id, Index: i})
	}
	if len(n.succs) > 0 && !n.HasTrait(TraitTerminator) {
		return errInvariant(n, "non-terminator carries successors")
	}
	if n.HasTrait(TraitConstantLike) {
		if len(n.results) != 1 {
			return errInvariant(n, "constant-like op must have exactly one result")
		}
		if n.attrs[AttrKeyValue] == nil {
			return errInvariant(n, "constant-like op is missing its %q attribute", AttrKeyValue)
		}
	}
	if err := v.checkBlockLinkage(n); err != nil {
		return err
	}
	if err := v.checkSuccessors(n); err != nil {
		return err
	}
	for i := 0; i < n.NumRegions(); i++ {
		if err := v.checkRegion(n, n.Region(i)); err != nil {
			return err
		}
	}
	if n.spec.Verify != nil {
		if err := n.spec.Verify(n); err != nil {
			return errInvariant(n, "op check failed: %v", err)
		}
	}
	return nil
}

func (v *verifier) checkBlockLinkage(n *Node) error {
	if n.IsDetached() {
		return nil
	}
	b := v.g.Block(n.block)
	if b == nil {
		return errInvariant(n, "parent block is not live")
	}
	if n.prev.Valid() {
		p := v.g.Node(n.prev)
		if p == nil || p.next != n.id || p.block != n.block {
			return errInvariant(n, "prev link is inconsistent")
		}
	} else if b.first != n.id {
		return errInvariant(n, "node has no prev but is not its block's first")
	}
	if n.next.Valid() {
		nx := v.g.Node(n.next)
		if nx == nil || nx.prev != n.id || nx.block != n.block {
			return errInvariant(n, "next link is inconsistent")
		}
	} else if b.last != n.id {
		return errInvariant(n, "node has no next but is not its block's last")
	}
	if n.HasTrait(TraitTerminator) && n.next.Valid() {
		return errInvariant(n, "terminator is not last in its block")
	}
	return nil
}

func (v *verifier) checkSuccessors(n *Node) error {
	parent := n.Parent()
	for i := range n.succs {
		s := n.Successor(i)
		target := v.g.Block(s.Block)
		if target == nil {
			return errInvariant(n, "successor %d targets a dead block", i)
		}
		if parent != nil && target.region != parent.region {
			return errInvariant(n, "successor %d targets a block in a different region", i)
		}
		if target.IsEntry() {
			return errInvariant(n, "successor %d targets its region's entry block", i)
		}
		if len(s.Args) != len(target.params) {
			return errInvariant(n, "successor %d passes %d args to a block with %d parameters", i, len(s.Args), len(target.params))
		}
		for j, a := range s.Args {
			av := v.g.Value(a)
			pv := v.g.Value(target.params[j])
			if av == nil || pv == nil {
				return errInvariant(n, "successor %d arg %d is not live", i, j)
			}
			if av.typ != pv.typ {
				return errInvariant(n, "successor %d arg %d has type %s, parameter wants %s", i, j, av.typ, pv.typ)
			}
		}
	}
	return nil
}

func (v *verifier) checkRegion(owner *Node, r *Region) error {
	needTerm := !owner.HasTrait(TraitNoTerminatorRequired)
	for bi, bid := range r.blocks {
		b := v.g.Block(bid)
		if b == nil {
			return errInvariant(owner, "region %d block %d is not live", r.index, bi)
		}
		if b.region != r {
			return errInvariant(owner, "region %d block %d has a mismatched region back-reference", r.index, bi)
		}
		for pi, p := range b.params {
			pv := v.g.Value(p)
			if pv == nil {
				return errInvariant(owner, "block parameter %d is not live", pi)
			}
			if pv.defBlock != b.id || pv.defIndex != pi {
				return errInvariant(owner, "block parameter %d has a mismatched definer back-reference", pi)
			}
		}
		for c := b.First(); c != nil; c = c.Next() {
			if c.block != b.id {
				return errInvariant(c, "node is linked into a block it does not name as parent")
			}
		}
		if needTerm {
			if b.Terminator() == nil {
				return errInvariant(owner, "region %d block %d does not end in a terminator", r.index, bi)
			}
		}
	}
	return nil
}

// checkUseLists compares, per value defined in the subtree, the use
// list against the operand edges gathered during the walk, and checks
// that uses of outside-defined values are registered.
func (v *verifier) checkUseLists(root *Node) error {
	var firstErr error
	check := func(n *Node, vid ValueID, what string, index int) bool {
		val := v.g.Value(vid)
		actual := make([]Use, len(val.uses))
		copy(actual, val.uses)
		want := make([]Use, len(v.expected[vid]))
		copy(want, v.expected[vid])
		sortUses(actual)
		sortUses(want)
		if !slices.Equal(actual, want) {
			firstErr = errInvariant(n, "%s %d use list does not mirror operand edges (have %d uses, want %d)", what, index, len(actual), len(want))
			return false
		}
		return true
	}
	ok := true
	Walk(root, PreOrder, func(n *Node) bool {
		for i, res := range n.results {
			if !check(n, res, "result", i) {
				ok = false
				return false
			}
		}
		for ri := 0; ri < n.NumRegions(); ri++ {
			r := n.Region(ri)
			for _, bid := range r.blocks {
				b := v.g.Block(bid)
				for pi, p := range b.params {
					if !check(n, p, "block parameter", pi) {
						ok = false
						return false
					}
				}
			}
		}
		// Uses of values defined outside the subtree must at least be
		// registered in their use lists.
		for i, op := range n.allOperands() {
			val := v.g.Value(op)
			if val == nil {
				continue
			}
			if _, definedInside := v.insideValue(val); definedInside {
				continue
			}
			found := false
			for _, u := range val.uses {
				if u.User == n.id && u.Index == i {
					found = true
					break
				}
			}
			if !found {
				firstErr = errInvariant(n, "operand %d edge is missing from the value's use list", i)
				ok = false
				return false
			}
		}
		return true
	})
	if !ok {
		return firstErr
	}
	return nil
}

// insideValue reports whether the value is defined by a node or block
// inside the verified subtree.
func (v *verifier) insideValue(val *Value) (NodeID, bool) {
	if val.IsBlockParam() {
		b := v.g.Block(val.defBlock)
		if b == nil || b.region == nil {
			return NodeID{}, false
		}
		_, ok := v.inside[b.region.owner]
		return b.region.owner, ok
	}
	_, ok := v.inside[val.defNode]
	return val.defNode, ok
}

func sortUses(uses []Use) {
	slices.SortFunc(uses, func(a, b Use) int {
		if a.User.idx != b.User.idx {
			return int(a.User.idx) - int(b.User.idx)
		}
		if a.User.gen != b.User.gen {
			return int(a.User.gen) - int(b.User.gen)
		}
		return a.Index - b.Index
	})
}
