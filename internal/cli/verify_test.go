package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_ValidGraph(t *testing.T) {
	path := writeGraphFile(t, foldModule)

	out, _, err := execCommand(t, "", "verify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+path+" is valid")
}

func TestVerify_Stdin(t *testing.T) {
	out, _, err := execCommand(t, foldModule, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ <stdin> is valid")
}

func TestVerify_ParseFailure(t *testing.T) {
	path := writeGraphFile(t, "core.module {\n  %a = arith.bogus : i64\n}\n")

	out, _, err := execCommand(t, "", "verify", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "verification failed with 1 error(s)")
	assert.Contains(t, out, "✗ "+path+" failed verification")
	assert.Contains(t, out, "parse:")
	assert.Contains(t, out, "unknown op")
}

func TestVerify_JSONValid(t *testing.T) {
	path := writeGraphFile(t, foldModule)

	out, _, err := execCommand(t, "", "verify", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   VerifyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Empty(t, resp.Data.Errors)
}

func TestVerify_JSONInvalid(t *testing.T) {
	path := writeGraphFile(t, "not a graph\n")

	out, _, err := execCommand(t, "", "verify", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string    `json:"status"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeVerifyFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "is not a valid graph")
}

func TestVerify_MissingFile(t *testing.T) {
	_, _, err := execCommand(t, "", "verify", filepath.Join(t.TempDir(), "absent.anvil"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
