package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrw/anvil/internal/ir"
)

// Test helper to get distinct live node handles to queue.
func testNodeIDs(t *testing.T) []ir.NodeID {
	t.Helper()
	ctx := newTestContext(t)
	_, root := parseModule(t, ctx, `test.module {
  %a = test.src : i64
  %b = test.src : i64
  %c = test.src : i64
  %d = test.src : i64
}`)
	ids := ir.CollectNodes(root, ir.PreOrder)[1:]
	require.Len(t, ids, 4)
	return ids
}

func TestWorklist_PopsInArrivalOrder(t *testing.T) {
	ids := testNodeIDs(t)
	w := newWorklist()
	w.pushCarry(ids[0])
	w.pushCarry(ids[1])
	w.pushCarry(ids[2])

	require.Equal(t, 3, w.startRound())
	var got []ir.NodeID
	for {
		id, ok := w.pop()
		if !ok {
			break
		}
		got = append(got, id)
	}
	assert.Equal(t, []ir.NodeID{ids[0], ids[1], ids[2]}, got)
}

func TestWorklist_DedupsPendingNodes(t *testing.T) {
	ids := testNodeIDs(t)
	w := newWorklist()
	w.pushCarry(ids[0])
	w.pushCarry(ids[0])
	w.pushCarry(ids[1])
	w.pushCarry(ids[0])

	assert.Equal(t, 2, w.startRound())
}

func TestWorklist_RemoveDropsPendingEntry(t *testing.T) {
	ids := testNodeIDs(t)
	w := newWorklist()
	w.pushCarry(ids[0])
	w.pushCarry(ids[1])
	w.remove(ids[0])

	require.Equal(t, 1, w.startRound())
	id, ok := w.pop()
	require.True(t, ok)
	assert.Equal(t, ids[1], id)
	_, ok = w.pop()
	assert.False(t, ok)
}

func TestWorklist_ActiveNodeNotRecarried(t *testing.T) {
	ids := testNodeIDs(t)
	w := newWorklist()
	w.pushCarry(ids[0])
	require.Equal(t, 1, w.startRound())

	// Still pending this round, so a notification changes nothing.
	w.pushCarry(ids[0])
	_, ok := w.pop()
	require.True(t, ok)
	_, ok = w.pop()
	require.False(t, ok)
	assert.Equal(t, 0, w.startRound())
}

func TestWorklist_PoppedNodeCanBeCarriedAgain(t *testing.T) {
	ids := testNodeIDs(t)
	w := newWorklist()
	w.pushCarry(ids[0])
	require.Equal(t, 1, w.startRound())
	_, ok := w.pop()
	require.True(t, ok)

	w.pushCarry(ids[0])
	assert.Equal(t, 1, w.startRound())
	id, ok := w.pop()
	require.True(t, ok)
	assert.Equal(t, ids[0], id)
}

func TestWorklist_ReArrivalCountsFromLatestPosition(t *testing.T) {
	ids := testNodeIDs(t)
	w := newWorklist()
	w.pushCarry(ids[0])
	w.pushCarry(ids[1])
	w.remove(ids[0])
	w.pushCarry(ids[0])

	require.Equal(t, 2, w.startRound())
	first, ok := w.pop()
	require.True(t, ok)
	second, ok := w.pop()
	require.True(t, ok)
	assert.Equal(t, ids[1], first)
	assert.Equal(t, ids[0], second)
}

func TestWorklist_InvalidHandleIgnored(t *testing.T) {
	w := newWorklist()
	w.pushCarry(ir.NodeID{})
	assert.Equal(t, 0, w.startRound())
}
