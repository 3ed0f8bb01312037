// Package manifest loads pipeline manifests: CUE files naming a
// canonicalization pipeline and pinning its driver configuration and
// pattern filters.
package manifest

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/graphrw/anvil/internal/rewrite"
)

// Pipeline is a named driver setup compiled from a manifest.
type Pipeline struct {
	Name     string
	Config   rewrite.Config
	Enabled  []string
	Disabled []string
}

// Load reads the manifest at path and compiles its pipeline. The file
// must define a top-level pipeline struct:
//
//	pipeline: {
//		name:           "nightly"
//		direction:      "top-down"
//		max_iterations: 25
//		disabled: ["arith.add-reassoc"]
//	}
//
// Uses the CUE Go API directly, no subprocess.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	pv := v.LookupPath(cue.ParsePath("pipeline"))
	if !pv.Exists() {
		return nil, &CompileError{
			Field:   "pipeline",
			Message: "manifest defines no pipeline",
			Pos:     v.Pos(),
		}
	}
	return Compile(pv)
}

// pipelineFields are the labels Compile accepts.
var pipelineFields = map[string]bool{
	"name":            true,
	"direction":       true,
	"region_simplify": true,
	"max_iterations":  true,
	"max_rewrites":    true,
	"verify_each":     true,
	"enabled":         true,
	"disabled":        true,
}

// Compile parses a CUE value into a Pipeline. The value is the
// pipeline struct itself. Omitted fields keep the defaults of
// rewrite.DefaultConfig.
func Compile(v cue.Value) (*Pipeline, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	// Reject unknown fields up front: a typoed budget silently
	// keeping its default would be worse than an error.
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		if !pipelineFields[iter.Label()] {
			return nil, &CompileError{
				Field:   iter.Label(),
				Message: "unknown pipeline field",
				Pos:     iter.Value().Pos(),
			}
		}
	}

	p := &Pipeline{Config: rewrite.DefaultConfig()}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{Field: "name", Message: "name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if name == "" {
		return nil, &CompileError{Field: "name", Message: "name must not be empty", Pos: nameVal.Pos()}
	}
	p.Name = name

	if dv := v.LookupPath(cue.ParsePath("direction")); dv.Exists() {
		dir, err := dv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		switch dir {
		case "bottom-up":
			p.Config.TopDown = false
		case "top-down":
			p.Config.TopDown = true
		default:
			return nil, &CompileError{
				Field:   "direction",
				Message: fmt.Sprintf(`must be "bottom-up" or "top-down", got %q`, dir),
				Pos:     dv.Pos(),
			}
		}
	}

	if rv := v.LookupPath(cue.ParsePath("region_simplify")); rv.Exists() {
		b, err := rv.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p.Config.RegionSimplify = b
	}

	if p.Config.MaxIterations, err = intField(v, "max_iterations", p.Config.MaxIterations); err != nil {
		return nil, err
	}
	if p.Config.MaxRewrites, err = intField(v, "max_rewrites", p.Config.MaxRewrites); err != nil {
		return nil, err
	}

	if vv := v.LookupPath(cue.ParsePath("verify_each")); vv.Exists() {
		b, err := vv.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p.Config.VerifyEach = b
	}

	if p.Enabled, err = stringList(v, "enabled"); err != nil {
		return nil, err
	}
	if p.Disabled, err = stringList(v, "disabled"); err != nil {
		return nil, err
	}

	return p, nil
}

// intField reads an optional integer budget. Unlimited (-1) is the
// only legal negative.
func intField(v cue.Value, field string, def int) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	if n < rewrite.Unlimited {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be -1 (unlimited) or non-negative, got %d", n),
			Pos:     fv.Pos(),
		}
	}
	return int(n), nil
}

// stringList reads an optional list of non-empty pattern names.
func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if s == "" {
			return nil, &CompileError{
				Field:   field,
				Message: "pattern names must not be empty",
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError is a manifest error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError pulls position info out of CUE errors, which may
// bundle several.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
