package rewrite

import "fmt"

// Outcome classifies how a greedy run stopped.
type Outcome int

const (
	// Converged means a round completed with no pending work left:
	// rerunning with the same configuration would change nothing.
	Converged Outcome = iota

	// IterationLimit means work was still pending when the round
	// budget ran out.
	IterationLimit

	// RewriteLimit means a fold or pattern was ready to apply when
	// the rewrite budget ran out. The graph holds every rewrite
	// performed up to that point and none after.
	RewriteLimit
)

func (o Outcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case IterationLimit:
		return "iteration-limit"
	case RewriteLimit:
		return "rewrite-limit"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result summarizes one greedy run. Budget exhaustion is reported
// here, not as an error: the graph is valid either way.
type Result struct {
	Outcome Outcome

	// Iterations counts rounds that processed at least one node.
	Iterations int

	// Rewrites counts applied mutations under the rewrite budget:
	// Folds plus Applied.
	Rewrites int

	// Folds counts successful folds, constant dedups included.
	Folds int

	// Applied counts successful pattern applications.
	Applied int

	// Changed reports whether the run mutated the graph at all,
	// region simplification included.
	Changed bool
}

func (r Result) String() string {
	return fmt.Sprintf("%s after %d iterations (%d rewrites: %d folds, %d patterns)",
		r.Outcome, r.Iterations, r.Rewrites, r.Folds, r.Applied)
}
