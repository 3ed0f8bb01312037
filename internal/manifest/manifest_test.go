package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrw/anvil/internal/rewrite"
)

func compileManifest(t *testing.T, src string) (*Pipeline, error) {
	t.Helper()
	return Compile(cuecontext.New().CompileString(src))
}

func writeManifest(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestCompile_FullPipeline(t *testing.T) {
	p, err := compileManifest(t, `
name:            "nightly"
direction:       "top-down"
region_simplify: false
max_iterations:  25
max_rewrites:    500
verify_each:     true
enabled: ["arith.mul-zero", "arith.mul-identity"]
disabled: ["arith.add-reassoc"]
`)
	require.NoError(t, err)

	assert.Equal(t, "nightly", p.Name)
	assert.True(t, p.Config.TopDown)
	assert.False(t, p.Config.RegionSimplify)
	assert.Equal(t, 25, p.Config.MaxIterations)
	assert.Equal(t, 500, p.Config.MaxRewrites)
	assert.True(t, p.Config.VerifyEach)
	assert.Equal(t, []string{"arith.mul-zero", "arith.mul-identity"}, p.Enabled)
	assert.Equal(t, []string{"arith.add-reassoc"}, p.Disabled)
}

func TestCompile_DefaultsMatchDriver(t *testing.T) {
	p, err := compileManifest(t, `name: "plain"`)
	require.NoError(t, err)

	assert.Equal(t, "plain", p.Name)
	assert.Equal(t, rewrite.DefaultConfig(), p.Config)
	assert.Nil(t, p.Enabled)
	assert.Nil(t, p.Disabled)
}

func TestCompile_UnlimitedBudgetAllowed(t *testing.T) {
	p, err := compileManifest(t, `
name:         "open-ended"
max_rewrites: -1
`)
	require.NoError(t, err)
	assert.Equal(t, rewrite.Unlimited, p.Config.MaxRewrites)
}

func TestCompile_RejectsBadManifests(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "missing name",
			src:     `direction: "top-down"`,
			wantErr: "name is required",
		},
		{
			name:    "empty name",
			src:     `name: ""`,
			wantErr: "name must not be empty",
		},
		{
			name:    "unknown field",
			src:     `{name: "p", max_iters: 3}`,
			wantErr: "unknown pipeline field",
		},
		{
			name:    "bad direction",
			src:     `{name: "p", direction: "sideways"}`,
			wantErr: `"bottom-up" or "top-down"`,
		},
		{
			name:    "negative iteration budget",
			src:     `{name: "p", max_iterations: -2}`,
			wantErr: "must be -1 (unlimited) or non-negative",
		},
		{
			name:    "budget of wrong type",
			src:     `{name: "p", max_rewrites: "lots"}`,
			wantErr: "string",
		},
		{
			name:    "name of wrong type",
			src:     `name: 7`,
			wantErr: "string",
		},
		{
			name:    "filter not a list",
			src:     `{name: "p", enabled: "arith.mul-zero"}`,
			wantErr: "list",
		},
		{
			name:    "empty pattern name",
			src:     `{name: "p", enabled: ["arith.mul-zero", ""]}`,
			wantErr: "pattern names must not be empty",
		},
		{
			name:    "not a struct",
			src:     `42`,
			wantErr: "struct",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileManifest(t, tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_CompilesPipelineFile(t *testing.T) {
	path := writeManifest(t, `
pipeline: {
	name:          "release"
	direction:     "bottom-up"
	max_rewrites:  100
	disabled: ["arith.add-reassoc"]
}
`)

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "release", p.Name)
	assert.False(t, p.Config.TopDown)
	assert.Equal(t, 100, p.Config.MaxRewrites)
	assert.Equal(t, rewrite.DefaultConfig().MaxIterations, p.Config.MaxIterations)
	assert.Equal(t, []string{"arith.add-reassoc"}, p.Disabled)
}

func TestLoad_MissingPipelineStruct(t *testing.T) {
	path := writeManifest(t, `name: "not-wrapped"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest defines no pipeline")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read manifest")
}

func TestLoad_SyntaxErrorReportsPosition(t *testing.T) {
	path := writeManifest(t, "pipeline: {\n\tname: \"broken\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.cue")
}

func TestCompileError_FormatsWithoutPosition(t *testing.T) {
	err := &CompileError{Field: "name", Message: "name is required"}
	assert.Equal(t, "name: name is required", err.Error())
}
