package rewrite

// Unlimited lifts an iteration or rewrite budget.
const Unlimited = -1

// DefaultMaxIterations bounds the round loop when the caller does not
// choose a budget.
const DefaultMaxIterations = 10

// Config controls one greedy run. Start from DefaultConfig: the zero
// value has MaxRewrites 0, which forbids every rewrite.
type Config struct {
	// TopDown seeds the worklist so containing and earlier nodes are
	// processed before the nodes below them. The default visits
	// producers after their consumers, which folds chains upward with
	// fewer revisits.
	TopDown bool

	// RegionSimplify runs unreachable-block elimination, dead node
	// removal, and single-predecessor block merging after each round.
	RegionSimplify bool

	// MaxIterations bounds the number of rounds. Unlimited removes
	// the bound; zero and negative values fall back to
	// DefaultMaxIterations.
	MaxIterations int

	// MaxRewrites bounds the total number of rewrites (pattern
	// applications plus folds) across the whole run. Unlimited
	// removes the bound. Zero allows none.
	MaxRewrites int

	// VerifyEach verifies the graph before the first round and after
	// every round. Meant for tests and debugging; verification walks
	// the whole subtree.
	VerifyEach bool

	// Reporter observes the run. Nil disables reporting.
	Reporter Reporter

	// Folder answers fold queries. Nil selects SpecFolder.
	Folder Folder
}

// DefaultConfig mirrors the conventional canonicalization setup:
// bottom-up, region simplification on, ten rounds, no rewrite cap.
func DefaultConfig() Config {
	return Config{
		RegionSimplify: true,
		MaxIterations:  DefaultMaxIterations,
		MaxRewrites:    Unlimited,
	}
}

func (c Config) normalized() Config {
	if c.MaxIterations == 0 || c.MaxIterations < Unlimited {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxRewrites < Unlimited {
		c.MaxRewrites = Unlimited
	}
	if c.Reporter == nil {
		c.Reporter = NopReporter{}
	}
	if c.Folder == nil {
		c.Folder = SpecFolder{}
	}
	return c
}
