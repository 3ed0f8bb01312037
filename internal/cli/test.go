package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphrw/anvil/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name     string   `json:"name"`
	Pass     bool     `json:"pass"`
	Outcome  string   `json:"outcome,omitempty"`
	Rewrites int      `json:"rewrites"`
	Errors   []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run rewrite scenarios",
		Long: `Run YAML rewrite scenarios against the canonicalizer.

Each scenario names an input graph, an optional config and pattern
filters, and the expected outcome. Converged scenarios are rerun to
prove the result is a fixed point.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  anvil test ./testdata/scenarios
  anvil test ./testdata/scenarios --filter "collapse_*"
  anvil test ./testdata/scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{
				Scenarios: []ScenarioResult{},
				Total:     0,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenarioFile(scenarioFile, opts, cmd)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}

	return outputTestText(cmd, result)
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		// Apply filter if specified
		if filter != "" {
			base := filepath.Base(path)
			name := strings.TrimSuffix(base, ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenarioFile executes a single scenario and returns the result.
func runScenarioFile(scenarioFile string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		if opts.Format != "json" {
			fmt.Fprintf(w, "✗ %s\n", filepath.Base(scenarioFile))
			fmt.Fprintf(w, "  Load error: %v\n", err)
		}
		return ScenarioResult{
			Name:   filepath.Base(scenarioFile),
			Pass:   false,
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		if opts.Format != "json" {
			fmt.Fprintf(w, "✗ %s\n", scenario.Name)
			fmt.Fprintf(w, "  Execution error: %v\n", err)
		}
		return ScenarioResult{
			Name:   scenario.Name,
			Pass:   false,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	if !result.Pass {
		if opts.Format != "json" {
			fmt.Fprintf(w, "✗ %s\n", scenario.Name)
			for _, e := range result.Errors {
				for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
					fmt.Fprintf(w, "  %s\n", line)
				}
			}
		}
		return ScenarioResult{
			Name:     scenario.Name,
			Pass:     false,
			Outcome:  result.Outcome,
			Rewrites: result.Rewrites,
			Errors:   result.Errors,
		}
	}

	if opts.Format != "json" {
		fmt.Fprintf(w, "✓ %s\n", scenario.Name)
	}
	return ScenarioResult{
		Name:     scenario.Name,
		Pass:     true,
		Outcome:  result.Outcome,
		Rewrites: result.Rewrites,
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
