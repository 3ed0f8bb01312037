// Package testutil holds small helpers shared by package tests that
// exercise graphs written in the core and arith dialects.
//
// Packages whose tests must stay dialect-free (ir, rewrite, and the
// dialects themselves) keep local helpers instead; importing this
// package from there would be an import cycle.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphrw/anvil/internal/dialect/arith"
	"github.com/graphrw/anvil/internal/dialect/core"
	"github.com/graphrw/anvil/internal/ir"
)

// NewContext returns a fresh Context with the core and arith dialects
// registered, failing the test if registration does.
func NewContext(t *testing.T) *ir.Context {
	t.Helper()
	ctx := ir.NewContext()
	require.NoError(t, core.Register(ctx))
	require.NoError(t, arith.Register(ctx))
	return ctx
}

// MustParse parses src against a fresh core+arith context and fails
// the test on error.
func MustParse(t *testing.T, src string) (*ir.Graph, *ir.Node) {
	t.Helper()
	g, root, err := ir.Parse(NewContext(t), src)
	require.NoError(t, err)
	return g, root
}

// RequireRoundTrip asserts that root's printed form reparses and
// prints back byte-identically. Graphs that fail this are not safely
// journalable or diffable.
func RequireRoundTrip(t *testing.T, root *ir.Node) {
	t.Helper()
	printed := ir.Print(root)
	_, reparsed, err := ir.Parse(NewContext(t), printed)
	require.NoError(t, err, "printed form must reparse:\n%s", printed)
	require.Equal(t, printed, ir.Print(reparsed))
}
