package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrw/anvil/internal/canon"
	"github.com/graphrw/anvil/internal/dialect/arith"
	"github.com/graphrw/anvil/internal/ir"
	"github.com/graphrw/anvil/internal/rewrite"
)

// Test helper to build a context with the core and arith dialects
// registered.
func newTestContext(t *testing.T) *ir.Context {
	t.Helper()
	ctx := ir.NewContext()
	require.NoError(t, Register(ctx))
	require.NoError(t, arith.Register(ctx))
	return ctx
}

// Test helper to parse a module and fail the test on error.
func parseModule(t *testing.T, ctx *ir.Context, src string) (*ir.Graph, *ir.Node) {
	t.Helper()
	g, root, err := ir.Parse(ctx, src)
	require.NoError(t, err)
	return g, root
}

// Test helper to count nodes with the given op under root.
func countOps(root *ir.Node, op ir.OpName) int {
	n := 0
	ir.Walk(root, ir.PostOrder, func(c *ir.Node) bool {
		if c.Op() == op {
			n++
		}
		return true
	})
	return n
}

// Test helper to run the full canonicalizer over root and verify the
// result.
func canonicalize(t *testing.T, root *ir.Node) rewrite.Result {
	t.Helper()
	c, err := canon.New([]canon.PatternSource{Patterns(), arith.Patterns()})
	require.NoError(t, err)
	res, err := c.Canonicalize(root)
	require.NoError(t, err)
	require.NoError(t, ir.Verify(root))
	return res
}

func TestRegister_SecondTimeFails(t *testing.T) {
	ctx := ir.NewContext()
	require.NoError(t, Register(ctx))
	require.Error(t, Register(ctx))
}

func TestPatterns_SourceShape(t *testing.T) {
	src := Patterns()
	assert.Equal(t, "core", src.Dialect)
	assert.Empty(t, src.General)

	var names []string
	for _, p := range src.PerOp {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"core.const-cond-br", "core.same-dest-cond-br"}, names)
}

// A constant condition turns the conditional branch into a plain
// branch; the untaken side goes unreachable and disappears, and the
// merge pass folds the taken block into its predecessor.
func TestCanonicalize_ConstantConditionPicksBranch(t *testing.T) {
	cases := []struct {
		cond string
		want string
	}{
		{"true", "1"},
		{"false", "2"},
	}
	for _, tc := range cases {
		t.Run(tc.cond, func(t *testing.T) {
			ctx := newTestContext(t)
			_, root := parseModule(t, ctx, `core.module {
  %c = arith.const {value = `+tc.cond+`} : i1
  %a = arith.const {value = 1 : i64} : i64
  %b = arith.const {value = 2 : i64} : i64
  core.cond_br %c, ^then(%a), ^else(%b)
^then(%x : i64):
  core.ret %x
^else(%y : i64):
  core.ret %y
}`)

			res := canonicalize(t, root)

			assert.Equal(t, rewrite.Converged, res.Outcome)
			assert.Equal(t, 1, res.Applied)
			assert.Equal(t, 0, res.Folds)
			assert.Equal(t, 0, countOps(root, OpCondBr))
			assert.Equal(t, 0, countOps(root, OpBr))

			want := `core.module {
  %0 = arith.const {value = ` + tc.want + ` : i64} : i64
  core.ret %0
}
`
			assert.Equal(t, want, ir.Print(root))
		})
	}
}

// Both successors lead to the same block with the same arguments, so
// the condition does not matter. The condition is an entry parameter,
// out of reach of constant folding.
func TestCanonicalize_SameDestinationDropsCondition(t *testing.T) {
	ctx := newTestContext(t)
	_, root := parseModule(t, ctx, `core.module {
^bb0(%c : i1, %v : i64):
  core.cond_br %c, ^out(%v), ^out(%v)
^out(%x : i64):
  core.ret %x
}`)

	res := canonicalize(t, root)

	assert.Equal(t, rewrite.Converged, res.Outcome)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 0, res.Folds)
	assert.Equal(t, 0, countOps(root, OpCondBr))

	want := `core.module {
^bb0(%0 : i1, %1 : i64):
  core.ret %1
}
`
	assert.Equal(t, want, ir.Print(root))
}

// Mismatched successor arguments keep the conditional branch alive.
func TestCanonicalize_SameBlockDifferentArgsStays(t *testing.T) {
	ctx := newTestContext(t)
	_, root := parseModule(t, ctx, `core.module {
^bb0(%c : i1, %v : i64, %w : i64):
  core.cond_br %c, ^out(%v), ^out(%w)
^out(%x : i64):
  core.ret %x
}`)

	res := canonicalize(t, root)

	assert.Equal(t, rewrite.Converged, res.Outcome)
	assert.Equal(t, 0, res.Applied)
	assert.False(t, res.Changed)
	assert.Equal(t, 1, countOps(root, OpCondBr))
}

func TestCanonicalize_IdentityChainFolds(t *testing.T) {
	ctx := newTestContext(t)
	_, root := parseModule(t, ctx, `core.module {
  %a = arith.const {value = 3 : i64} : i64
  %i = core.identity %a : i64
  %j = core.identity %i : i64
  core.ret %j
}`)

	res := canonicalize(t, root)

	assert.Equal(t, rewrite.Converged, res.Outcome)
	assert.Equal(t, 2, res.Folds)
	assert.Equal(t, 0, res.Applied)
	assert.Equal(t, 0, countOps(root, OpIdentity))

	want := `core.module {
  %0 = arith.const {value = 3 : i64} : i64
  core.ret %0
}
`
	assert.Equal(t, want, ir.Print(root))
}

func TestVerify_RejectsMalformedControlFlow(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "cond-br-non-bool-condition",
			src: `core.module {
  %c = arith.const {value = 1 : i64} : i64
  %v = arith.const {value = 2 : i64} : i64
  core.cond_br %c, ^out(%v), ^out(%v)
^out(%x : i64):
  core.ret %x
}`,
			want: "condition must be i1",
		},
		{
			name: "cond-br-one-successor",
			src: `core.module {
  %c = arith.const {value = true} : i1
  core.cond_br %c, ^out
^out:
  core.ret
}`,
			want: "wants 2 successors, has 1",
		},
		{
			name: "br-with-leading-operand",
			src: `core.module {
  %v = arith.const {value = 2 : i64} : i64
  core.br %v, ^out
^out:
  core.ret
}`,
			want: "no leading operands",
		},
		{
			name: "ret-with-successor",
			src: `core.module {
  core.ret ^next
^next:
  core.ret
}`,
			want: "carries no successors",
		},
		{
			name: "identity-type-mismatch",
			src: `core.module {
  %a = arith.const {value = 1 : i64} : i64
  %r = core.identity %a : i32
  core.ret %r
}`,
			want: "types must agree",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := newTestContext(t)
			_, root := parseModule(t, ctx, tc.src)
			err := ir.Verify(root)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
