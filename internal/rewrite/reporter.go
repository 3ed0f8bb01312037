package rewrite

import "github.com/graphrw/anvil/internal/ir"

// EventKind tags what a rewrite event describes.
type EventKind int

const (
	// EventFold is a successful fold, constant dedup included.
	EventFold EventKind = iota

	// EventPattern is a successful pattern application.
	EventPattern
)

func (k EventKind) String() string {
	switch k {
	case EventFold:
		return "fold"
	case EventPattern:
		return "pattern"
	default:
		return "unknown"
	}
}

// Event describes one applied rewrite. Node is the handle the
// rewrite fired on; it is usually stale by the time the event is
// observed, so treat it as an identifier, not something to resolve.
type Event struct {
	Round   int
	Kind    EventKind
	Op      ir.OpName
	Node    ir.NodeID
	Pattern string // set for EventPattern only
}

// Reporter observes a greedy run. Calls are synchronous from the
// run's goroutine; implementations must not touch the graph.
type Reporter interface {
	// RoundStarted fires before a round processes its worklist.
	RoundStarted(round, pending int)

	// RewriteApplied fires after each fold or pattern application.
	RewriteApplied(ev Event)

	// RegionsSimplified fires after region simplification, whether or
	// not it changed anything.
	RegionsSimplified(round int, stats SimplifyStats)

	// RoundFinished fires when a round's worklist is drained.
	RoundFinished(round int, changed bool)

	// Finished fires once with the final result.
	Finished(res Result)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) RoundStarted(round, pending int) {}

func (NopReporter) RewriteApplied(ev Event) {}

func (NopReporter) RegionsSimplified(round int, stats SimplifyStats) {}

func (NopReporter) RoundFinished(round int, changed bool) {}

func (NopReporter) Finished(res Result) {}
