package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphrw/anvil/internal/ir"
)

// VerifyResult holds verification results.
type VerifyResult struct {
	Input  string        `json:"input"`
	Valid  bool          `json:"valid"`
	Errors []VerifyIssue `json:"errors,omitempty"`
}

// VerifyIssue is one problem found while checking a graph.
type VerifyIssue struct {
	Stage   string `json:"stage"` // "parse" or "verify"
	Message string `json:"message"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Parse and verify a graph without rewriting it",
		Long: `Parse a graph in textual form and run the structural verifier.

Checks op arity and region counts against the registered specs,
use-def consistency, terminator placement, and dominance. Reads from
stdin when no file is given or the file is "-".

Exit codes:
  0 - Graph is valid
  1 - Graph did not parse or failed verification
  2 - Command error (unreadable input)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runVerify(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runVerify(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	source, name, err := readGraphInput(cmd, path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	irCtx, err := newContext()
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to set up dialects", err)
	}

	result := VerifyResult{Input: name, Valid: true}

	_, root, err := ir.Parse(irCtx, source)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, VerifyIssue{Stage: "parse", Message: err.Error()})
		return outputVerifyResult(formatter, result)
	}
	formatter.VerboseLog("Parsed %s", name)

	if err := ir.Verify(root); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, VerifyIssue{Stage: "verify", Message: err.Error()})
	}

	return outputVerifyResult(formatter, result)
}

// outputVerifyResult writes the result and maps invalid graphs to exit
// code 1.
func outputVerifyResult(formatter *OutputFormatter, result VerifyResult) error {
	if formatter.Format == "json" {
		if result.Valid {
			return formatter.Success(result)
		}
		if err := formatter.Error(ErrCodeVerifyFailed, fmt.Sprintf("%s is not a valid graph", result.Input), result.Errors); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("verification failed with %d error(s)", len(result.Errors)))
	}

	if result.Valid {
		fmt.Fprintf(formatter.Writer, "✓ %s is valid\n", result.Input)
		return nil
	}

	fmt.Fprintf(formatter.Writer, "✗ %s failed verification\n\n", result.Input)
	for _, issue := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Stage, issue.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("verification failed with %d error(s)", len(result.Errors)))
}
