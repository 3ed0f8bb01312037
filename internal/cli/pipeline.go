package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphrw/anvil/internal/canon"
	"github.com/graphrw/anvil/internal/dialect/arith"
	"github.com/graphrw/anvil/internal/dialect/core"
	"github.com/graphrw/anvil/internal/ir"
	"github.com/graphrw/anvil/internal/manifest"
	"github.com/graphrw/anvil/internal/rewrite"
)

// newContext returns a fresh context with the built-in dialects
// registered.
func newContext() (*ir.Context, error) {
	ctx := ir.NewContext()
	if err := core.Register(ctx); err != nil {
		return nil, fmt.Errorf("register core dialect: %w", err)
	}
	if err := arith.Register(ctx); err != nil {
		return nil, fmt.Errorf("register arith dialect: %w", err)
	}
	return ctx, nil
}

// newCanonicalizer compiles the built-in pattern sources under the
// given config and name filters.
func newCanonicalizer(cfg rewrite.Config, enabled, disabled []string, extra ...canon.Option) (*canon.Canonicalizer, error) {
	opts := []canon.Option{canon.WithConfig(cfg)}
	if len(enabled) > 0 {
		opts = append(opts, canon.WithEnabledPatterns(enabled...))
	}
	if len(disabled) > 0 {
		opts = append(opts, canon.WithDisabledPatterns(disabled...))
	}
	opts = append(opts, extra...)
	return canon.New([]canon.PatternSource{core.Patterns(), arith.Patterns()}, opts...)
}

// readGraphInput reads the graph source from path, or from stdin when
// path is empty or "-". Returns the source and a display name for
// error messages.
func readGraphInput(cmd *cobra.Command, path string) (string, string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(data), path, nil
}

// filterFlags holds the pattern name filters shared by the commands
// that compile a registry.
type filterFlags struct {
	Manifest string
	Enabled  []string
	Disabled []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Manifest, "manifest", "", "CUE pipeline manifest supplying config and filters")
	cmd.Flags().StringSliceVar(&f.Enabled, "enabled-patterns", nil, "restrict the registry to these patterns")
	cmd.Flags().StringSliceVar(&f.Disabled, "disabled-patterns", nil, "remove these patterns from the registry")
}

// resolvePipeline merges the manifest, if any, with explicit flags.
// Precedence is defaults, then manifest, then flags the user actually
// set on the command line.
func resolvePipeline(cmd *cobra.Command, f *filterFlags) (rewrite.Config, []string, []string, error) {
	cfg := rewrite.DefaultConfig()
	enabled := f.Enabled
	disabled := f.Disabled

	if f.Manifest != "" {
		p, err := manifest.Load(f.Manifest)
		if err != nil {
			return cfg, nil, nil, err
		}
		cfg = p.Config
		if !cmd.Flags().Changed("enabled-patterns") {
			enabled = p.Enabled
		}
		if !cmd.Flags().Changed("disabled-patterns") {
			disabled = p.Disabled
		}
	}

	flags := cmd.Flags()
	if flags.Changed("top-down") {
		v, _ := flags.GetBool("top-down")
		cfg.TopDown = v
	}
	if flags.Changed("region-simplify") {
		v, _ := flags.GetBool("region-simplify")
		cfg.RegionSimplify = v
	}
	if flags.Changed("max-iterations") {
		v, _ := flags.GetInt("max-iterations")
		cfg.MaxIterations = v
	}
	if flags.Changed("max-rewrites") {
		v, _ := flags.GetInt("max-rewrites")
		cfg.MaxRewrites = v
	}
	return cfg, enabled, disabled, nil
}

// anchorLabel renders a pattern anchor for display.
func anchorLabel(op ir.OpName) string {
	if op == rewrite.AnyOp {
		return "(any)"
	}
	return string(op)
}

// joinNames renders a name list for display.
func joinNames(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
