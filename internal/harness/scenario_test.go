package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrw/anvil/internal/rewrite"
)

// writeScenario writes scenario YAML to a temp file and returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalInput = `
  core.module {
    %a = arith.const {value = 1 : i64} : i64
    core.ret %a
  }
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: full_scenario
description: "Exercises every scenario field"
input: |
  core.module {
    %a = arith.const {value = 1 : i64} : i64
    core.ret %a
  }
config:
  direction: top-down
  region_simplify: false
  max_iterations: 5
  max_rewrites: 100
  verify_each: true
filters:
  enabled: [arith.mul-zero]
  disabled: [arith.add-reassoc]
expect:
  outcome: converged
  rewrites: 0
  output: |
    core.module {
      %0 = arith.const {value = 1 : i64} : i64
      core.ret %0
    }
  op_count:
    arith.const: 1
  op_absent: [arith.mul]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "full_scenario", scenario.Name)
	assert.Equal(t, "Exercises every scenario field", scenario.Description)
	assert.Contains(t, scenario.Input, "core.module")

	require.NotNil(t, scenario.Config)
	assert.Equal(t, "top-down", scenario.Config.Direction)
	require.NotNil(t, scenario.Config.RegionSimplify)
	assert.False(t, *scenario.Config.RegionSimplify)
	require.NotNil(t, scenario.Config.MaxIterations)
	assert.Equal(t, 5, *scenario.Config.MaxIterations)
	require.NotNil(t, scenario.Config.MaxRewrites)
	assert.Equal(t, 100, *scenario.Config.MaxRewrites)
	assert.True(t, scenario.Config.VerifyEach)

	require.NotNil(t, scenario.Filters)
	assert.Equal(t, []string{"arith.mul-zero"}, scenario.Filters.Enabled)
	assert.Equal(t, []string{"arith.add-reassoc"}, scenario.Filters.Disabled)

	assert.Equal(t, "converged", scenario.Expect.Outcome)
	require.NotNil(t, scenario.Expect.Rewrites)
	assert.Equal(t, 0, *scenario.Expect.Rewrites)
	assert.Contains(t, scenario.Expect.Output, "arith.const")
	assert.Equal(t, map[string]int{"arith.const": 1}, scenario.Expect.OpCount)
	assert.Equal(t, []string{"arith.mul"}, scenario.Expect.OpAbsent)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	path := writeScenario(t, `
name: test
description: "Test"
input: [unclosed
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse scenario YAML")
}

func TestLoadScenario_UnknownFieldsRejected(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "typo_expect_plural",
			yaml: `
name: test
description: "Test typo"
input: |` + minimalInput + `
expects:
  outcome: converged
expect:
  outcome: converged
`,
			wantErr: "field expects not found",
		},
		{
			name: "typo_in_config",
			yaml: `
name: test
description: "Test typo"
input: |` + minimalInput + `
config:
  directon: top-down
expect:
  outcome: converged
`,
			wantErr: "field directon not found",
		},
		{
			name: "typo_in_expect",
			yaml: `
name: test
description: "Test typo"
input: |` + minimalInput + `
expect:
  outcome: converged
  rewrite_count: 3
`,
			wantErr: "field rewrite_count not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, tt.yaml)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing_name",
			yaml: `
description: "Test"
input: |` + minimalInput + `
expect:
  outcome: converged
`,
			wantErr: "name is required",
		},
		{
			name: "missing_description",
			yaml: `
name: test
input: |` + minimalInput + `
expect:
  outcome: converged
`,
			wantErr: "description is required",
		},
		{
			name: "missing_input",
			yaml: `
name: test
description: "Test"
expect:
  outcome: converged
`,
			wantErr: "input graph is required",
		},
		{
			name: "bad_direction",
			yaml: `
name: test
description: "Test"
input: |` + minimalInput + `
config:
  direction: sideways
expect:
  outcome: converged
`,
			wantErr: `"bottom-up" or "top-down"`,
		},
		{
			name: "negative_iteration_budget",
			yaml: `
name: test
description: "Test"
input: |` + minimalInput + `
config:
  max_iterations: -2
expect:
  outcome: converged
`,
			wantErr: "config.max_iterations",
		},
		{
			name: "missing_outcome",
			yaml: `
name: test
description: "Test"
input: |` + minimalInput + `
expect:
  rewrites: 3
`,
			wantErr: "expect.outcome is required",
		},
		{
			name: "unknown_outcome",
			yaml: `
name: test
description: "Test"
input: |` + minimalInput + `
expect:
  outcome: gave-up
`,
			wantErr: `unknown outcome "gave-up"`,
		},
		{
			name: "negative_rewrites",
			yaml: `
name: test
description: "Test"
input: |` + minimalInput + `
expect:
  outcome: converged
  rewrites: -1
`,
			wantErr: "expect.rewrites",
		},
		{
			name: "negative_op_count",
			yaml: `
name: test
description: "Test"
input: |` + minimalInput + `
expect:
  outcome: converged
  op_count:
    arith.mul: -1
`,
			wantErr: "expect.op_count[arith.mul]",
		},
		{
			name: "empty_op_absent_entry",
			yaml: `
name: test
description: "Test"
input: |` + minimalInput + `
expect:
  outcome: converged
  op_absent: [""]
`,
			wantErr: "expect.op_absent[0]",
		},
		{
			name: "empty_filter_name",
			yaml: `
name: test
description: "Test"
input: |` + minimalInput + `
filters:
  disabled: [""]
expect:
  outcome: converged
`,
			wantErr: "filters.disabled[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, tt.yaml)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDriverConfig_DefaultsWithoutConfigBlock(t *testing.T) {
	s := &Scenario{Name: "defaults"}
	assert.Equal(t, rewrite.DefaultConfig(), s.driverConfig())
}

func TestDriverConfig_AppliesOverrides(t *testing.T) {
	off := false
	iters := 3
	rewrites := 7
	s := &Scenario{
		Config: &ConfigBlock{
			Direction:      "top-down",
			RegionSimplify: &off,
			MaxIterations:  &iters,
			MaxRewrites:    &rewrites,
			VerifyEach:     true,
		},
	}

	cfg := s.driverConfig()
	assert.True(t, cfg.TopDown)
	assert.False(t, cfg.RegionSimplify)
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Equal(t, 7, cfg.MaxRewrites)
	assert.True(t, cfg.VerifyEach)
}

func TestDriverConfig_PartialOverrideKeepsDefaults(t *testing.T) {
	iters := 2
	s := &Scenario{Config: &ConfigBlock{MaxIterations: &iters}}

	cfg := s.driverConfig()
	assert.False(t, cfg.TopDown)
	assert.True(t, cfg.RegionSimplify)
	assert.Equal(t, 2, cfg.MaxIterations)
	assert.Equal(t, rewrite.Unlimited, cfg.MaxRewrites)
}
