package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphrw/anvil/internal/ir"
	"github.com/graphrw/anvil/internal/rewrite"
)

// AssertionError is reported when a scenario expectation fails.
// It carries the canonicalized form so the failure reads without
// rerunning the scenario.
type AssertionError struct {
	Check    string // which expectation failed
	Expected string // human-readable expected outcome
	Actual   string // human-readable actual outcome
	Output   string // printed form of the canonicalized graph
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "expectation failed: %s\n", e.Check)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s\n", e.Actual)

	if e.Output != "" {
		fmt.Fprintf(&buf, "\ncanonicalized form:\n%s", e.Output)
	}

	return buf.String()
}

// evaluateExpect checks every declared expectation against the run.
// Returns one message per failed expectation.
func evaluateExpect(expect *ExpectBlock, res rewrite.Result, root *ir.Node, output string) []string {
	var failures []string
	fail := func(check, expected, actual string) {
		failures = append(failures, (&AssertionError{
			Check:    check,
			Expected: expected,
			Actual:   actual,
			Output:   output,
		}).Error())
	}

	if got := res.Outcome.String(); got != expect.Outcome {
		fail("outcome", expect.Outcome, got)
	}

	if expect.Rewrites != nil && res.Rewrites != *expect.Rewrites {
		fail("rewrites",
			fmt.Sprintf("%d rewrites", *expect.Rewrites),
			fmt.Sprintf("%d rewrites", res.Rewrites))
	}

	if expect.Output != "" && !printedFormsEqual(output, expect.Output) {
		fail("output", "\n"+expect.Output, "\n"+output)
	}

	// Sorted keys keep failure ordering deterministic.
	for _, op := range sortedOpCountKeys(expect.OpCount) {
		want := expect.OpCount[op]
		got := countOps(root, ir.OpName(op))
		if got != want {
			fail("op_count",
				fmt.Sprintf("%d x %s", want, op),
				fmt.Sprintf("%d x %s", got, op))
		}
	}

	for _, op := range expect.OpAbsent {
		if got := countOps(root, ir.OpName(op)); got > 0 {
			fail("op_absent",
				fmt.Sprintf("no %s in final graph", op),
				fmt.Sprintf("%d occurrences", got))
		}
	}

	return failures
}

// printedFormsEqual compares printed graphs ignoring trailing
// newlines, which YAML block scalars and Print handle differently.
func printedFormsEqual(got, want string) bool {
	return strings.TrimRight(got, "\n") == strings.TrimRight(want, "\n")
}

// countOps counts nodes with the given op under root, nested regions
// included.
func countOps(root *ir.Node, op ir.OpName) int {
	n := 0
	ir.Walk(root, ir.PreOrder, func(node *ir.Node) bool {
		if node.Op() == op {
			n++
		}
		return true
	})
	return n
}

func sortedOpCountKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
