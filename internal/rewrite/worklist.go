package rewrite

import "github.com/graphrw/anvil/internal/ir"

type wlState int8

const (
	wlActive wlState = iota + 1
	wlCarry
)

// worklist tracks the nodes pending in the current round (active,
// popped from the back) and the nodes deferred to the next round
// (carry, kept in arrival order). The state map dedups entries and
// lets erased nodes be dropped without searching the slices.
type worklist struct {
	active []ir.NodeID
	carry  []ir.NodeID
	state  map[ir.NodeID]wlState
}

func newWorklist() *worklist {
	return &worklist{state: make(map[ir.NodeID]wlState)}
}

// pushCarry defers id to the next round. Nodes already pending in
// either list stay where they are.
func (w *worklist) pushCarry(id ir.NodeID) {
	if !id.Valid() {
		return
	}
	if w.state[id] != 0 {
		return
	}
	w.state[id] = wlCarry
	w.carry = append(w.carry, id)
}

// remove drops id wherever it is pending. Slice entries are left
// behind and skipped lazily at pop or promotion.
func (w *worklist) remove(id ir.NodeID) {
	delete(w.state, id)
}

// pop returns the next node of the current round.
func (w *worklist) pop() (ir.NodeID, bool) {
	for len(w.active) > 0 {
		id := w.active[len(w.active)-1]
		w.active = w.active[:len(w.active)-1]
		if w.state[id] == wlActive {
			delete(w.state, id)
			return id, true
		}
	}
	return ir.NodeID{}, false
}

// startRound promotes the carried nodes into the active stack and
// returns how many there are. Pop order equals carry arrival order;
// a node removed and re-carried counts from its latest arrival.
func (w *worklist) startRound() int {
	w.active = w.active[:0]
	for i := len(w.carry) - 1; i >= 0; i-- {
		id := w.carry[i]
		if w.state[id] == wlCarry {
			w.state[id] = wlActive
			w.active = append(w.active, id)
		}
	}
	w.carry = w.carry[:0]
	return len(w.active)
}
