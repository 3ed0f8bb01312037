package cli

import (
	"fmt"
	"strconv"

	"github.com/markkurossi/tabulate"
	"github.com/spf13/cobra"
)

// PatternsOptions holds flags for the patterns command.
type PatternsOptions struct {
	*RootOptions
	filterFlags
}

// PatternInfo describes one compiled pattern.
type PatternInfo struct {
	Name    string `json:"name"`
	Anchor  string `json:"anchor"`
	Benefit int    `json:"benefit"`
}

// NewPatternsCommand creates the patterns command.
func NewPatternsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PatternsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the compiled pattern registry",
		Long: `List the patterns the canonicalizer would run with, in dispatch order.

Patterns are grouped by anchor op; within an anchor, higher benefit
runs first. Filters are resolved exactly as canonicalize resolves
them, so an unknown name fails here too.

Examples:
  anvil patterns
  anvil patterns --disabled-patterns arith.mul-identity
  anvil patterns --manifest pipeline.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatterns(opts, cmd)
		},
	}

	opts.filterFlags.register(cmd)

	return cmd
}

func runPatterns(opts *PatternsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, enabled, disabled, err := resolvePipeline(cmd, &opts.filterFlags)
	if err != nil {
		_ = formatter.Error(ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}

	c, err := newCanonicalizer(cfg, enabled, disabled)
	if err != nil {
		_ = formatter.Error(ErrCodeRegistry, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to compile pattern registry", err)
	}

	formatter.VerboseLog("Enabled filter: %s", joinNames(enabled))
	formatter.VerboseLog("Disabled filter: %s", joinNames(disabled))

	patterns := c.Patterns()
	infos := make([]PatternInfo, len(patterns))
	for i, p := range patterns {
		infos[i] = PatternInfo{
			Name:    p.Name(),
			Anchor:  anchorLabel(p.Anchor()),
			Benefit: p.Benefit(),
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	return outputPatternsTable(formatter, infos)
}

// outputPatternsTable renders the registry as a table.
func outputPatternsTable(formatter *OutputFormatter, infos []PatternInfo) error {
	w := formatter.Writer

	if len(infos) == 0 {
		fmt.Fprintln(w, "No patterns selected.")
		return nil
	}

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Pattern").SetAlign(tabulate.ML)
	tab.Header("Anchor").SetAlign(tabulate.ML)
	tab.Header("Benefit").SetAlign(tabulate.MR)

	for _, info := range infos {
		row := tab.Row()
		row.Column(info.Name)
		row.Column(info.Anchor)
		row.Column(strconv.Itoa(info.Benefit))
	}
	tab.Print(w)

	fmt.Fprintf(w, "%d pattern(s)\n", len(infos))
	return nil
}
