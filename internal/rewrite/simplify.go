package rewrite

import (
	"fmt"

	"github.com/graphrw/anvil/internal/ir"
)

// SimplifyStats counts what one SimplifyRegions call removed.
type SimplifyStats struct {
	UnreachableBlocks int
	DeadNodes         int
	MergedBlocks      int
}

// Changed reports whether simplification mutated the graph.
func (s SimplifyStats) Changed() bool {
	return s.UnreachableBlocks > 0 || s.DeadNodes > 0 || s.MergedBlocks > 0
}

func (s SimplifyStats) String() string {
	return fmt.Sprintf("%d unreachable blocks, %d dead nodes, %d merged blocks",
		s.UnreachableBlocks, s.DeadNodes, s.MergedBlocks)
}

// SimplifyRegions structurally cleans every region nested under root,
// to a local fixed point: blocks unreachable from their region's
// entry are erased, pure non-terminator nodes whose results have no
// uses are erased, and a block whose single predecessor branches to
// it unconditionally is merged into that predecessor. Regions are
// visited innermost first. All mutations go through the graph
// primitives, so an installed listener sees them like any rewrite.
func SimplifyRegions(root *ir.Node) (SimplifyStats, error) {
	var stats SimplifyStats
	g := root.Graph()
	for {
		changed := false
		for _, id := range regionOwners(root) {
			n := g.Node(id)
			if n == nil {
				continue
			}
			for i := 0; i < n.NumRegions(); i++ {
				c, err := simplifyRegion(g, n.Region(i), &stats)
				if err != nil {
					return stats, err
				}
				changed = changed || c
			}
		}
		if !changed {
			return stats, nil
		}
	}
}

// regionOwners collects the region-owning nodes under root in
// post-order, root included. Recollected per pass because cleanup can
// erase owners.
func regionOwners(root *ir.Node) []ir.NodeID {
	var out []ir.NodeID
	ir.Walk(root, ir.PostOrder, func(n *ir.Node) bool {
		if n.NumRegions() > 0 {
			out = append(out, n.ID())
		}
		return true
	})
	return out
}

func simplifyRegion(g *ir.Graph, r *ir.Region, stats *SimplifyStats) (bool, error) {
	changed := false
	if r.NumBlocks() > 1 {
		n, err := eraseUnreachable(g, r)
		if err != nil {
			return changed, err
		}
		stats.UnreachableBlocks += n
		changed = changed || n > 0
	}
	n, err := eraseDeadNodes(g, r)
	if err != nil {
		return changed, err
	}
	stats.DeadNodes += n
	changed = changed || n > 0

	m, err := mergeBlocks(g, r)
	if err != nil {
		return changed, err
	}
	stats.MergedBlocks += m
	changed = changed || m > 0
	return changed, nil
}

// eraseUnreachable removes every block the entry cannot reach through
// successor edges. The doomed blocks are erased as one batch, so
// branches and uses among themselves are fine; a use from a live node
// into the doomed set surfaces as an error.
func eraseUnreachable(g *ir.Graph, r *ir.Region) (int, error) {
	entry := r.Entry()
	if entry == nil {
		return 0, nil
	}
	reach := map[ir.BlockID]bool{entry.ID(): true}
	stack := []*ir.Block{entry}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t := b.Terminator()
		if t == nil {
			continue
		}
		for i := 0; i < t.NumSuccessors(); i++ {
			s := t.Successor(i)
			if reach[s.Block] {
				continue
			}
			reach[s.Block] = true
			if sb := g.Block(s.Block); sb != nil {
				stack = append(stack, sb)
			}
		}
	}
	var doomed []ir.BlockID
	for _, bid := range r.Blocks() {
		if !reach[bid] {
			doomed = append(doomed, bid)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	if err := g.EraseBlocks(doomed); err != nil {
		return 0, err
	}
	return len(doomed), nil
}

// eraseDeadNodes removes pure non-terminator nodes with unused
// results. One backward sweep per block, so a dead chain inside one
// block goes in a single call; cross-block chains resolve over the
// caller's fixed-point passes.
func eraseDeadNodes(g *ir.Graph, r *ir.Region) (int, error) {
	count := 0
	for _, bid := range r.Blocks() {
		b := g.Block(bid)
		if b == nil {
			continue
		}
		for c := b.Last(); c != nil; {
			prev := c.Prev()
			if isTriviallyDead(c) {
				if err := g.EraseNode(c.ID()); err != nil {
					return count, err
				}
				count++
			}
			c = prev
		}
	}
	return count, nil
}

func isTriviallyDead(n *ir.Node) bool {
	if !n.HasTrait(ir.TraitPure) || n.HasTrait(ir.TraitTerminator) {
		return false
	}
	for i := 0; i < n.NumResults(); i++ {
		if n.ResultValue(i).HasUses() {
			return false
		}
	}
	return true
}

// mergeBlocks repeatedly folds blocks into their unique
// unconditionally branching predecessor until none qualifies.
func mergeBlocks(g *ir.Graph, r *ir.Region) (int, error) {
	count := 0
	for {
		merged, err := mergeOnce(g, r)
		if err != nil {
			return count, err
		}
		if !merged {
			return count, nil
		}
		count++
	}
}

func mergeOnce(g *ir.Graph, r *ir.Region) (bool, error) {
	blocks := r.Blocks()
	for idx, bid := range blocks {
		if idx == 0 {
			continue // entry has no predecessors to merge into
		}
		b := g.Block(bid)
		if b == nil {
			continue
		}
		preds := b.Predecessors()
		if len(preds) != 1 {
			continue
		}
		pred := preds[0]
		if pred.ID() == b.ID() {
			continue
		}
		t := pred.Terminator()
		if t == nil || t.NumSuccessors() != 1 {
			continue
		}
		s := t.Successor(0)
		if s.Block != b.ID() {
			continue
		}
		if b.NumParams() != len(s.Args) {
			return false, fmt.Errorf("rewrite: branch into %s carries %d args for %d params", s.Block, len(s.Args), b.NumParams())
		}
		for i := 0; i < b.NumParams(); i++ {
			if _, err := g.ReplaceAllUses(b.Param(i), s.Args[i]); err != nil {
				return false, err
			}
		}
		if err := g.EraseNode(t.ID()); err != nil {
			return false, err
		}
		for _, nid := range b.Nodes() {
			if err := g.MoveNodeToEnd(nid, pred.ID()); err != nil {
				return false, err
			}
		}
		if err := g.EraseBlock(b.ID()); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
