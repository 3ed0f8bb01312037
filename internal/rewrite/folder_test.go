package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrw/anvil/internal/ir"
)

// Test helper to find the first node with the given op under root.
func findOp(t *testing.T, root *ir.Node, op ir.OpName) *ir.Node {
	t.Helper()
	var found *ir.Node
	ir.Walk(root, ir.PreOrder, func(n *ir.Node) bool {
		if n.Op() == op {
			found = n
			return false
		}
		return true
	})
	require.NotNil(t, found, "no %s in module", op)
	return found
}

func TestSpecFolder_FoldsConstantOperands(t *testing.T) {
	ctx := newTestContext(t)
	_, root := parseModule(t, ctx, `test.module {
  %a = test.const {value = 3 : i64} : i64
  %b = test.const {value = 4 : i64} : i64
  %s = test.add %a, %b : i64
  test.sink %s
}`)

	add := findOp(t, root, "test.add")
	results, ok := SpecFolder{}.TryFold(add)
	require.True(t, ok)
	require.Len(t, results, 1)
	require.False(t, results[0].IsValue())

	sum, isInt := results[0].Attr.(ir.IntAttr)
	require.True(t, isInt)
	assert.Equal(t, int64(7), sum.Value)
	assert.Equal(t, ir.I64, sum.Type)
}

func TestSpecFolder_DeclinesNonConstantOperand(t *testing.T) {
	ctx := newTestContext(t)
	_, root := parseModule(t, ctx, `test.module {
  %x = test.src : i64
  %b = test.const {value = 4 : i64} : i64
  %s = test.add %x, %b : i64
  test.sink %s
}`)

	add := findOp(t, root, "test.add")
	_, ok := SpecFolder{}.TryFold(add)
	assert.False(t, ok)
}

func TestSpecFolder_DeclinesOpWithoutFoldHook(t *testing.T) {
	ctx := newTestContext(t)
	_, root := parseModule(t, ctx, `test.module {
  %a = test.const {value = 3 : i64} : i64
  %b = test.const {value = 4 : i64} : i64
  %m = test.mul %a, %b : i64
  test.sink %m
}`)

	mul := findOp(t, root, "test.mul")
	_, ok := SpecFolder{}.TryFold(mul)
	assert.False(t, ok)
}
