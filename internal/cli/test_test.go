package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passScenario = `name: pass_const
input: |
  core.module {
    %a = arith.const {value = 9 : i64} : i64
    core.ret %a
  }
expect:
  outcome: converged
  rewrites: 0
`

const failScenario = `name: fail_budget
input: |
  core.module {
    %a = arith.const {value = 9 : i64} : i64
    core.ret %a
  }
expect:
  outcome: converged
  rewrites: 5
`

func writeScenario(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestTest_AllPass(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "pass_const.yaml", passScenario)

	out, _, err := execCommand(t, "", "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pass_const")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_FailureSetsExitCode(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "pass_const.yaml", passScenario)
	writeScenario(t, dir, "fail_budget.yaml", failScenario)

	out, _, err := execCommand(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 scenario(s) failed")
	assert.Contains(t, out, "✗ fail_budget")
	assert.Contains(t, out, "rewrites")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTest_Filter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "pass_const.yaml", passScenario)
	writeScenario(t, dir, "fail_budget.yaml", failScenario)

	out, _, err := execCommand(t, "", "test", dir, "--filter", "pass_*")
	require.NoError(t, err)
	assert.NotContains(t, out, "fail_budget")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTest_JSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "pass_const.yaml", passScenario)
	writeScenario(t, dir, "fail_budget.yaml", failScenario)

	out, _, err := execCommand(t, "", "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeGeneric, resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 2)
}

func TestTest_LoadErrorFailsRun(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	out, _, err := execCommand(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "Load error:")
}

func TestTest_MissingDirectory(t *testing.T) {
	_, _, err := execCommand(t, "", "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTest_EmptyDirectory(t *testing.T) {
	out, _, err := execCommand(t, "", "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_DemoSuite(t *testing.T) {
	out, _, err := execCommand(t, "", "test", "../../testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 5 passed, 0 failed, 5 total")
}
