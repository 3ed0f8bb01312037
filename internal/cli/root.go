package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/graphrw/anvil/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the anvil CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "anvil",
		Short:   "Anvil - greedy graph canonicalization",
		Long:    "A worklist-driven rewrite engine that drives graph IR to canonical form.",
		Version: ir.EngineVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags. ANVIL_FORMAT supplies the format default so scripted
	// callers do not have to repeat --format json on every invocation.
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", env.Str("ANVIL_FORMAT", "text"), "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewCanonicalizeCommand(opts))
	cmd.AddCommand(NewPatternsCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
