package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every expectation held.
	Pass bool `json:"pass"`

	// Errors contains expectation failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Outcome is the stop reason of the first canonicalization run.
	Outcome string `json:"outcome"`

	// Iterations, Rewrites, Folds, and Applied are the counters of the
	// first run.
	Iterations int `json:"iterations"`
	Rewrites   int `json:"rewrites"`
	Folds      int `json:"folds"`
	Applied    int `json:"applied"`

	// Changed reports whether the first run modified the graph.
	Changed bool `json:"changed"`

	// Output is the printed form of the canonicalized graph.
	Output string `json:"output"`

	// FingerprintBefore and FingerprintAfter are structural hashes of
	// the graph around the first run.
	FingerprintBefore string `json:"fingerprint_before"`
	FingerprintAfter  string `json:"fingerprint_after"`

	// RecheckRewrites is the rewrite count of the idempotence rerun.
	// Only meaningful when the first run converged; a converged
	// scenario fails unless it is zero.
	RecheckRewrites int `json:"recheck_rewrites"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
