package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_AcceptsWellFormedModule(t *testing.T) {
	ctx := newTestContext(t)
	g, mod, body := newTestModule(t, ctx)

	c1 := appendConst(t, g, body, 1)
	c2 := appendConst(t, g, body, 2)
	appendAdd(t, g, body, c1.Result(0), c2.Result(0))

	require.NoError(t, Verify(mod))
}

func TestVerify_DetectsTamperedUseList(t *testing.T) {
	ctx := newTestContext(t)
	g, mod, body := newTestModule(t, ctx)

	c := appendConst(t, g, body, 1)
	add := appendAdd(t, g, body, c.Result(0), c.Result(0))

	// Inject a phantom use that no operand edge backs.
	g.Value(c.Result(0)).uses = append(g.Value(c.Result(0)).uses, Use{User: add.ID(), Index: 9})

	err := Verify(mod)
	require.Error(t, err)
	assert.True(t, IsInvariant(err))
}

func TestVerify_DetectsMissingUse(t *testing.T) {
	ctx := newTestContext(t)
	g, mod, body := newTestModule(t, ctx)

	c := appendConst(t, g, body, 1)
	appendAdd(t, g, body, c.Result(0), c.Result(0))

	// Drop a use behind the graph's back.
	v := g.Value(c.Result(0))
	v.uses = v.uses[:1]

	err := Verify(mod)
	require.Error(t, err)
	assert.True(t, IsInvariant(err))
}

func TestVerify_TerminatorMustBeLast(t *testing.T) {
	ctx := newTestContext(t)
	g, mod, body := newTestModule(t, ctx)

	loop, err := g.NewNode(NodeDef{Op: "test.loop"})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAtEnd(loop.ID(), body.ID()))
	inner, err := g.AddBlock(loop.Region(0), nil)
	require.NoError(t, err)

	ret, err := g.NewNode(NodeDef{Op: "test.ret"})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAtEnd(ret.ID(), inner.ID()))

	straggler, err := g.NewNode(NodeDef{
		Op:          "test.const",
		Attrs:       AttrMap{AttrKeyValue: IntAttr{Value: 5, Type: I64}},
		ResultTypes: []Type{I64},
	})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAfter(straggler.ID(), ret.ID()))

	err = Verify(mod)
	require.Error(t, err)
	assert.True(t, IsInvariant(err))
}

func TestVerify_BlockNeedsTerminator(t *testing.T) {
	ctx := newTestContext(t)
	g, mod, body := newTestModule(t, ctx)

	loop, err := g.NewNode(NodeDef{Op: "test.loop"})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAtEnd(loop.ID(), body.ID()))
	inner, err := g.AddBlock(loop.Region(0), nil)
	require.NoError(t, err)
	appendConst(t, g, inner, 1)

	err = Verify(mod)
	require.Error(t, err, "a block under test.loop must end in a terminator")
	assert.True(t, IsInvariant(err))
}

func TestVerify_SuccessorSignatureChecks(t *testing.T) {
	ctx := newTestContext(t)

	t.Run("arg count mismatch", func(t *testing.T) {
		g, mod, body := newTestModule(t, ctx)
		loop, err := g.NewNode(NodeDef{Op: "test.loop"})
		require.NoError(t, err)
		require.NoError(t, g.InsertNodeAtEnd(loop.ID(), body.ID()))

		entry, err := g.AddBlock(loop.Region(0), nil)
		require.NoError(t, err)
		target, err := g.AddBlock(loop.Region(0), []Type{I64})
		require.NoError(t, err)

		br, err := g.NewNode(NodeDef{
			Op:         "test.br",
			Successors: []SuccessorDef{{Block: target.ID()}},
		})
		require.NoError(t, err)
		require.NoError(t, g.InsertNodeAtEnd(br.ID(), entry.ID()))
		ret, err := g.NewNode(NodeDef{Op: "test.ret"})
		require.NoError(t, err)
		require.NoError(t, g.InsertNodeAtEnd(ret.ID(), target.ID()))

		err = Verify(mod)
		require.Error(t, err)
		assert.True(t, IsInvariant(err))
	})

	t.Run("arg type mismatch", func(t *testing.T) {
		g, mod, body := newTestModule(t, ctx)
		loop, err := g.NewNode(NodeDef{Op: "test.loop"})
		require.NoError(t, err)
		require.NoError(t, g.InsertNodeAtEnd(loop.ID(), body.ID()))

		flag, err := g.NewNode(NodeDef{
			Op:          "test.const",
			Attrs:       AttrMap{AttrKeyValue: BoolAttr(true)},
			ResultTypes: []Type{I1},
		})
		require.NoError(t, err)
		require.NoError(t, g.InsertNodeAtEnd(flag.ID(), body.ID()))

		entry, err := g.AddBlock(loop.Region(0), nil)
		require.NoError(t, err)
		target, err := g.AddBlock(loop.Region(0), []Type{I64})
		require.NoError(t, err)

		br, err := g.NewNode(NodeDef{
			Op:         "test.br",
			Successors: []SuccessorDef{{Block: target.ID(), Args: []ValueID{flag.Result(0)}}},
		})
		require.NoError(t, err)
		require.NoError(t, g.InsertNodeAtEnd(br.ID(), entry.ID()))
		ret, err := g.NewNode(NodeDef{Op: "test.ret"})
		require.NoError(t, err)
		require.NoError(t, g.InsertNodeAtEnd(ret.ID(), target.ID()))

		err = Verify(mod)
		require.Error(t, err)
		assert.True(t, IsInvariant(err))
	})

	t.Run("branch to entry", func(t *testing.T) {
		g, mod, body := newTestModule(t, ctx)
		loop, err := g.NewNode(NodeDef{Op: "test.loop"})
		require.NoError(t, err)
		require.NoError(t, g.InsertNodeAtEnd(loop.ID(), body.ID()))

		entry, err := g.AddBlock(loop.Region(0), nil)
		require.NoError(t, err)
		other, err := g.AddBlock(loop.Region(0), nil)
		require.NoError(t, err)

		ret, err := g.NewNode(NodeDef{Op: "test.ret"})
		require.NoError(t, err)
		require.NoError(t, g.InsertNodeAtEnd(ret.ID(), entry.ID()))

		br, err := g.NewNode(NodeDef{
			Op:         "test.br",
			Successors: []SuccessorDef{{Block: entry.ID()}},
		})
		require.NoError(t, err)
		require.NoError(t, g.InsertNodeAtEnd(br.ID(), other.ID()))

		err = Verify(mod)
		require.Error(t, err)
		assert.True(t, IsInvariant(err))
	})
}

func TestVerify_ConstantLikeNeedsValueAttr(t *testing.T) {
	ctx := newTestContext(t)
	g, mod, body := newTestModule(t, ctx)

	bare, err := g.NewNode(NodeDef{Op: "test.const", ResultTypes: []Type{I64}})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAtEnd(bare.ID(), body.ID()))

	err = Verify(mod)
	require.Error(t, err)
	assert.True(t, IsInvariant(err))
}

func TestVerify_RunsOpSpecificChecks(t *testing.T) {
	ctx := newTestContext(t)
	g, mod, body := newTestModule(t, ctx)

	c := appendConst(t, g, body, 1)
	bad, err := g.NewNode(NodeDef{
		Op:          "test.add",
		Operands:    []ValueID{c.Result(0)},
		ResultTypes: []Type{I64},
	})
	require.NoError(t, err)
	require.NoError(t, g.InsertNodeAtEnd(bad.ID(), body.ID()))

	err = Verify(mod)
	require.Error(t, err)
	assert.True(t, IsInvariant(err))
	assert.Contains(t, err.Error(), "test.add")
}
