package harness

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares the canonicalized
// printed form against a golden file. The golden file is stored in
// testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Expectation failures fail t; a non-nil error means the scenario
// could not be executed at all.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	reportFailures(t, scenario, result)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, []byte(result.Output))

	return result, nil
}

// MustPass runs a scenario and fails t on any expectation failure.
func MustPass(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	reportFailures(t, scenario, result)
	return result
}

// reportFailures surfaces expectation failures together with a verbose
// dump of the parsed scenario for context.
func reportFailures(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()
	if result.Pass {
		return
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	t.Logf("parsed scenario:\n%s", spew.Sdump(scenario))
}
