package rewrite

import (
	"fmt"
	"slices"

	"github.com/graphrw/anvil/internal/ir"
)

// Run applies the frozen patterns and the folder to every node nested
// under root until a round changes nothing, or a budget runs out.
//
// Round policy: each round processes a fixed frontier. The first
// round's frontier is every node under root; later frontiers are the
// nodes carried out of the previous round. All re-enqueues during a
// round (insertions, operand changes, users of replaced results,
// producers feeding erased nodes) are deferred to the next round's
// frontier, deduplicated. A round therefore pops each node at most
// once, which keeps rounds finite even for rule sets that grow the
// graph, and makes MaxIterations an effective bound.
//
// Per node the driver tries the folder first; constant-like nodes
// skip folding and are instead uniqued against previously seen
// constants in their block. If the folder declines, patterns are
// tried in the frozen set's order and the first one whose Match
// accepts is applied.
//
// Budget exhaustion is not an error: the outcome in the Result says
// how the run stopped. Errors mean the graph, a pattern, or a fold
// hook broke its contract; the graph may be partially rewritten but
// its use-lists are intact.
func Run(root *ir.Node, patterns *FrozenSet, cfg Config) (Result, error) {
	if root == nil {
		return Result{}, fmt.Errorf("rewrite: run on nil root")
	}
	if patterns == nil {
		return Result{}, fmt.Errorf("rewrite: run with nil pattern set")
	}
	d := &driver{
		g:      root.Graph(),
		root:   root,
		frozen: patterns,
		cfg:    cfg.normalized(),
		wl:     newWorklist(),
		consts: make(map[constKey]ir.ValueID),
	}
	d.rw = &Rewriter{g: d.g, b: ir.NewBuilder(d.g), materialize: d.materializeCached}
	return d.run()
}

// constKey identifies one uniqued constant: the block it lives in
// plus the printed forms of its value attribute and result type.
type constKey struct {
	block ir.BlockID
	attr  string
	typ   string
}

type driver struct {
	g      *ir.Graph
	root   *ir.Node
	frozen *FrozenSet
	cfg    Config
	wl     *worklist
	rw     *Rewriter
	consts map[constKey]ir.ValueID

	round    int
	res      Result
	hitLimit bool
}

func (d *driver) run() (Result, error) {
	prev := d.g.SwapListener(d)
	defer d.g.SwapListener(prev)

	if d.cfg.VerifyEach {
		if err := ir.Verify(d.root); err != nil {
			return d.res, fmt.Errorf("rewrite: input graph: %w", err)
		}
	}
	d.seed()

	for {
		pending := d.wl.startRound()
		if pending == 0 {
			d.res.Outcome = Converged
			break
		}
		if d.cfg.MaxIterations != Unlimited && d.res.Iterations >= d.cfg.MaxIterations {
			d.res.Outcome = IterationLimit
			break
		}
		d.res.Iterations++
		d.round = d.res.Iterations
		d.cfg.Reporter.RoundStarted(d.round, pending)

		changed, err := d.processRound()
		if err != nil {
			return d.res, err
		}
		if d.hitLimit {
			d.res.Outcome = RewriteLimit
			d.cfg.Reporter.RoundFinished(d.round, changed)
			break
		}
		if d.cfg.RegionSimplify {
			stats, serr := SimplifyRegions(d.root)
			if serr != nil {
				return d.res, serr
			}
			if stats.Changed() {
				changed = true
				d.res.Changed = true
			}
			d.cfg.Reporter.RegionsSimplified(d.round, stats)
		}
		if d.cfg.VerifyEach {
			if err := ir.Verify(d.root); err != nil {
				return d.res, fmt.Errorf("rewrite: after round %d: %w", d.round, err)
			}
		}
		d.cfg.Reporter.RoundFinished(d.round, changed)
	}

	d.cfg.Reporter.Finished(d.res)
	return d.res, nil
}

// seed fills the first frontier with every node strictly below root.
// Bottom-up runs pop the deepest, latest nodes first; top-down runs
// pop in pre-order.
func (d *driver) seed() {
	order := ir.PostOrder
	if d.cfg.TopDown {
		order = ir.PreOrder
	}
	var ids []ir.NodeID
	for i := 0; i < d.root.NumRegions(); i++ {
		r := d.root.Region(i)
		for _, bid := range r.Blocks() {
			b := d.g.Block(bid)
			if b == nil {
				continue
			}
			for c := b.First(); c != nil; c = c.Next() {
				ids = append(ids, ir.CollectNodes(c, order)...)
			}
		}
	}
	if !d.cfg.TopDown {
		slices.Reverse(ids)
	}
	for _, id := range ids {
		d.wl.pushCarry(id)
	}
}

func (d *driver) processRound() (bool, error) {
	changed := false
	for {
		id, ok := d.wl.pop()
		if !ok {
			return changed, nil
		}
		n := d.g.Node(id)
		if n == nil || n.IsDetached() {
			continue
		}

		if n.HasTrait(ir.TraitConstantLike) {
			deduped, err := d.dedupConstant(n)
			if err != nil {
				return changed, err
			}
			if deduped {
				changed = true
				continue
			}
		} else {
			folded, err := d.tryFold(n)
			if err != nil {
				return changed, err
			}
			if folded {
				changed = true
				continue
			}
		}
		if d.hitLimit {
			return changed, nil
		}

		applied, err := d.tryPatterns(n)
		if err != nil {
			return changed, err
		}
		if applied {
			changed = true
		}
		if d.hitLimit {
			return changed, nil
		}
	}
}

// dedupConstant uniques a constant-like node against the cache for
// its block. The first constant of a given value and type registers
// itself; later identical ones are replaced by it. The kept constant
// is moved up when it sits below the one being removed, so rewired
// uses stay below their definition.
func (d *driver) dedupConstant(n *ir.Node) (bool, error) {
	attr, ok := n.IsConstant()
	if !ok || n.NumResults() != 1 {
		return false, nil
	}
	key := constKey{
		block: n.ParentID(),
		attr:  attr.String(),
		typ:   n.ResultValue(0).Type().String(),
	}
	existing := d.lookupConst(key)
	if existing == nil || existing.ID() == n.ID() {
		d.consts[key] = n.Result(0)
		return false, nil
	}
	if !d.takeBudget() {
		return false, nil
	}
	if !precedes(existing, n) {
		if err := d.g.MoveNodeBefore(existing.ID(), n.ID()); err != nil {
			return false, err
		}
	}
	keep := existing.Result(0)
	op := n.Op()
	nid := n.ID()
	if err := d.g.ReplaceNode(nid, []ir.ValueID{keep}); err != nil {
		return false, fmt.Errorf("rewrite: unique constant %s: %w", op, err)
	}
	d.chargeFold(op, nid)
	return true, nil
}

// tryFold asks the folder for replacements and applies them. The
// rewrite budget is consulted after the folder accepts and before
// anything is mutated.
func (d *driver) tryFold(n *ir.Node) (bool, error) {
	results, ok := d.cfg.Folder.TryFold(n)
	if !ok {
		return false, nil
	}
	if n.NumResults() == 0 || len(results) != n.NumResults() {
		return false, fmt.Errorf("rewrite: fold of %s returned %d replacements, want %d",
			n.Op(), len(results), n.NumResults())
	}
	if !d.takeBudget() {
		return false, nil
	}
	reps := make([]ir.ValueID, len(results))
	for i, r := range results {
		if r.IsValue() {
			v := d.g.Value(r.Value)
			if v == nil {
				return false, fmt.Errorf("rewrite: fold of %s produced a dead value for result %d", n.Op(), i)
			}
			if want := n.ResultValue(i).Type(); v.Type() != want {
				return false, fmt.Errorf("rewrite: fold of %s result %d has type %s, want %s",
					n.Op(), i, v.Type(), want)
			}
			reps[i] = r.Value
			continue
		}
		if r.Attr == nil {
			return false, fmt.Errorf("rewrite: fold of %s result %d carries neither value nor attribute", n.Op(), i)
		}
		vid, err := d.materializeCached(n, r.Attr, n.ResultValue(i).Type())
		if err != nil {
			return false, err
		}
		reps[i] = vid
	}
	op := n.Op()
	nid := n.ID()
	if err := d.g.ReplaceNode(nid, reps); err != nil {
		return false, fmt.Errorf("rewrite: fold of %s: %w", op, err)
	}
	d.chargeFold(op, nid)
	return true, nil
}

// tryPatterns runs the dispatch sequence for n's op and applies the
// first pattern that matches. Apply errors are fatal to the run: a
// pattern must not mutate before it is sure it applies.
func (d *driver) tryPatterns(n *ir.Node) (bool, error) {
	for _, p := range d.frozen.MatchesFor(n.Op()) {
		if !p.Match(n) {
			continue
		}
		if !d.takeBudget() {
			return false, nil
		}
		op := n.Op()
		nid := n.ID()
		d.rw.b.SetInsertionPointBefore(nid)
		if err := p.Apply(n, d.rw); err != nil {
			return false, fmt.Errorf("rewrite: pattern %q on %s: %w", p.Name(), op, err)
		}
		d.res.Applied++
		d.res.Rewrites++
		d.res.Changed = true
		d.cfg.Reporter.RewriteApplied(Event{
			Round:   d.round,
			Kind:    EventPattern,
			Op:      op,
			Node:    nid,
			Pattern: p.Name(),
		})
		return true, nil
	}
	return false, nil
}

// materializeCached returns a constant value for attr at the entry
// block of anchor's region, reusing a cached one when possible. A
// reused constant is hoisted to the entry front so it keeps
// dominating every use the caller is about to create.
func (d *driver) materializeCached(anchor *ir.Node, attr ir.Attr, typ ir.Type) (ir.ValueID, error) {
	blk := anchor.Parent()
	if blk == nil {
		return ir.ValueID{}, fmt.Errorf("rewrite: materialize anchor %s is detached", anchor.Op())
	}
	entry := blk.Region().Entry()
	if entry == nil {
		return ir.ValueID{}, fmt.Errorf("rewrite: materialize anchor %s sits in an empty region", anchor.Op())
	}
	key := constKey{block: entry.ID(), attr: attr.String(), typ: typ.String()}
	if def := d.lookupConst(key); def != nil {
		if first := entry.First(); first != nil && first.ID() != def.ID() {
			if err := d.g.MoveNodeBefore(def.ID(), first.ID()); err != nil {
				return ir.ValueID{}, err
			}
		}
		return def.Result(0), nil
	}
	n, err := materializeDirect(d.g, anchor, attr, typ)
	if err != nil {
		return ir.ValueID{}, err
	}
	d.consts[key] = n.Result(0)
	return n.Result(0), nil
}

// lookupConst resolves a cache entry, dropping it when the constant
// was erased, moved to another block, or no longer carries the cached
// value.
func (d *driver) lookupConst(key constKey) *ir.Node {
	vid, ok := d.consts[key]
	if !ok {
		return nil
	}
	v := d.g.Value(vid)
	if v == nil {
		delete(d.consts, key)
		return nil
	}
	def := v.DefiningNode()
	if def == nil || def.ParentID() != key.block {
		delete(d.consts, key)
		return nil
	}
	a, ok := def.IsConstant()
	if !ok || a.String() != key.attr || v.Type().String() != key.typ {
		delete(d.consts, key)
		return nil
	}
	return def
}

func (d *driver) takeBudget() bool {
	if d.cfg.MaxRewrites == Unlimited {
		return true
	}
	if d.res.Rewrites >= d.cfg.MaxRewrites {
		d.hitLimit = true
		return false
	}
	return true
}

func (d *driver) chargeFold(op ir.OpName, node ir.NodeID) {
	d.res.Folds++
	d.res.Rewrites++
	d.res.Changed = true
	d.cfg.Reporter.RewriteApplied(Event{Round: d.round, Kind: EventFold, Op: op, Node: node})
}

// precedes reports whether a comes before b in their shared block.
func precedes(a, b *ir.Node) bool {
	for c := a.Next(); c != nil; c = c.Next() {
		if c.ID() == b.ID() {
			return true
		}
	}
	return false
}

// NodeInserted implements ir.Listener: new and moved nodes join the
// next round's frontier.
func (d *driver) NodeInserted(n *ir.Node) {
	d.wl.pushCarry(n.ID())
}

// NodeErased implements ir.Listener: the node leaves the worklist and
// the producers it was using get another look, since losing the use
// may have made them dead or foldable.
func (d *driver) NodeErased(n *ir.Node) {
	d.wl.remove(n.ID())
	for i := 0; i < n.NumOperands(); i++ {
		d.carryProducer(n.Operand(i))
	}
	for i := 0; i < n.NumSuccessors(); i++ {
		for _, a := range n.Successor(i).Args {
			d.carryProducer(a)
		}
	}
	d.dropConsts(n)
}

// NodeReplaced implements ir.Listener: every user about to be rewired
// onto the replacements joins the next frontier.
func (d *driver) NodeReplaced(n *ir.Node, _ []ir.ValueID) {
	for i := 0; i < n.NumResults(); i++ {
		v := n.ResultValue(i)
		if v == nil {
			continue
		}
		for _, u := range v.Users() {
			d.wl.pushCarry(u.ID())
		}
	}
}

// OperandsChanged implements ir.Listener.
func (d *driver) OperandsChanged(n *ir.Node) {
	d.wl.pushCarry(n.ID())
}

func (d *driver) carryProducer(v ir.ValueID) {
	val := d.g.Value(v)
	if val == nil {
		return
	}
	if def := val.DefiningNode(); def != nil {
		d.wl.pushCarry(def.ID())
	}
}

// dropConsts evicts cache entries that point at results of an erased
// constant.
func (d *driver) dropConsts(n *ir.Node) {
	if !n.HasTrait(ir.TraitConstantLike) {
		return
	}
	for i := 0; i < n.NumResults(); i++ {
		rid := n.Result(i)
		for k, v := range d.consts {
			if v == rid {
				delete(d.consts, k)
			}
		}
	}
}
