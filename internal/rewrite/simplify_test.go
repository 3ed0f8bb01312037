package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrw/anvil/internal/ir"
)

func TestSimplifyRegions_RemovesUnreachableCycle(t *testing.T) {
	ctx := newTestContext(t)
	_, root := parseModule(t, ctx, `test.module {
  test.loop {
    test.ret
  ^bb1:
    test.br ^bb2
  ^bb2:
    test.br ^bb1
  }
}`)

	stats, err := SimplifyRegions(root)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.UnreachableBlocks)
	assert.NotContains(t, ir.Print(root), "^bb")
	assert.NoError(t, ir.Verify(root))
}

func TestSimplifyRegions_RemovesDeadChainInOnePass(t *testing.T) {
	ctx := newTestContext(t)
	_, root := parseModule(t, ctx, `test.module {
  %x = test.src : i64
  %a = test.f %x : i64
  %b = test.f %a : i64
}`)

	stats, err := SimplifyRegions(root)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.DeadNodes)
	assert.Equal(t, "test.module {\n}\n", ir.Print(root))
}

func TestSimplifyRegions_KeepsLiveAndImpureNodes(t *testing.T) {
	ctx := newTestContext(t)
	src := `test.module {
  %x = test.src : i64
  test.sink %x
}`
	_, root := parseModule(t, ctx, src)

	stats, err := SimplifyRegions(root)
	require.NoError(t, err)

	assert.False(t, stats.Changed())
	assert.Equal(t, src+"\n", ir.Print(root))
}

func TestSimplifyRegions_MergesSinglePredecessorBlock(t *testing.T) {
	ctx := newTestContext(t)
	_, root := parseModule(t, ctx, `test.module {
  test.loop {
    %c = test.const {value = 3 : i64} : i64
    test.br ^bb1(%c)
  ^bb1(%p : i64):
    test.sink %p
    test.ret
  }
}`)

	stats, err := SimplifyRegions(root)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.MergedBlocks)
	want := `test.module {
  test.loop {
    %0 = test.const {value = 3 : i64} : i64
    test.sink %0
    test.ret
  }
}
`
	assert.Equal(t, want, ir.Print(root))
	assert.NoError(t, ir.Verify(root))
}

func TestSimplifyRegions_MergeChainCollapses(t *testing.T) {
	ctx := newTestContext(t)
	_, root := parseModule(t, ctx, `test.module {
  test.loop {
    test.br ^bb1
  ^bb1:
    test.br ^bb2
  ^bb2:
    test.ret
  }
}`)

	stats, err := SimplifyRegions(root)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.MergedBlocks)
	want := `test.module {
  test.loop {
    test.ret
  }
}
`
	assert.Equal(t, want, ir.Print(root))
	assert.NoError(t, ir.Verify(root))
}

func TestSimplifyRegions_NoMergeAcrossConditionalBranch(t *testing.T) {
	ctx := newTestContext(t)
	src := `test.module {
  test.loop {
    %c = test.const {value = 1 : i64} : i64
    test.cond_br %c, ^bb1, ^bb1
  ^bb1:
    test.ret
  }
}`
	_, root := parseModule(t, ctx, src)

	stats, err := SimplifyRegions(root)
	require.NoError(t, err)

	assert.False(t, stats.Changed())
	assert.Contains(t, ir.Print(root), "^bb")
}

func TestSimplifyRegions_LiveUseIntoUnreachableBlockFails(t *testing.T) {
	ctx := newTestContext(t)
	g := ir.NewGraph(ctx)
	mod, err := g.NewNode(ir.NodeDef{Op: "test.module"})
	require.NoError(t, err)
	body, err := g.AddBlock(mod.Region(0), nil)
	require.NoError(t, err)

	loop, err := g.NewNode(ir.NodeDef{Op: "test.loop"})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAtEnd(loop.ID(), body.ID()))

	entry, err := g.AddBlock(loop.Region(0), nil)
	require.NoError(t, err)
	orphan, err := g.AddBlock(loop.Region(0), nil)
	require.NoError(t, err)

	// The value lives in the unreachable block but feeds the entry.
	c, err := g.NewNode(ir.NodeDef{
		Op:          "test.const",
		Attrs:       ir.AttrMap{ir.AttrKeyValue: ir.IntAttr{Value: 9, Type: ir.I64}},
		ResultTypes: []ir.Type{ir.I64},
	})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAtEnd(c.ID(), orphan.ID()))

	sink, err := g.NewNode(ir.NodeDef{Op: "test.sink", Operands: []ir.ValueID{c.Result(0)}})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAtEnd(sink.ID(), entry.ID()))

	ret, err := g.NewNode(ir.NodeDef{Op: "test.ret"})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAtEnd(ret.ID(), entry.ID()))

	_, err = SimplifyRegions(mod)
	require.Error(t, err)
}
