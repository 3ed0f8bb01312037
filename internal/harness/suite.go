package harness

import (
	"fmt"
	"path/filepath"
	"sort"
)

// SuiteResult summarizes running every scenario in a directory.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure records one failed scenario run.
type ScenarioFailure struct {
	Scenario string `json:"scenario"`
	Path     string `json:"path"`
	Error    string `json:"error"`
}

// RunDir loads and runs every *.yaml scenario under dir, in name
// order, and returns a summary.
//
// For each scenario file:
//  1. Load and validate the scenario
//  2. Run it through the harness
//  3. Collect pass/fail with failure detail
func RunDir(dir string) (*SuiteResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios under %s", dir)
	}
	sort.Strings(paths)

	suite := &SuiteResult{}
	for _, path := range paths {
		suite.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{
				Path:  path,
				Error: fmt.Sprintf("load scenario: %v", err),
			})
			continue
		}

		result, err := Run(scenario)
		if err != nil {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{
				Scenario: scenario.Name,
				Path:     path,
				Error:    fmt.Sprintf("run scenario: %v", err),
			})
			continue
		}

		if !result.Pass {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{
				Scenario: scenario.Name,
				Path:     path,
				Error:    fmt.Sprintf("expectations failed: %v", result.Errors),
			})
			continue
		}

		suite.Passed++
	}

	return suite, nil
}
