package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootVersion(t *testing.T) {
	t.Setenv("ANVIL_FORMAT", "")
	cmd := NewRootCommand()
	assert.Equal(t, "0.1.0", cmd.Version)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "anvil", cmd.Use)
	assert.Contains(t, cmd.Long, "canonical form")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"canonicalize", "patterns", "verify", "test", "trace"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestTraceSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	for _, path := range [][]string{{"trace", "runs"}, {"trace", "summary"}} {
		subCmd, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[1], subCmd.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	t.Setenv("ANVIL_FORMAT", "")
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestFormatDefaultFromEnv(t *testing.T) {
	t.Setenv("ANVIL_FORMAT", "json")

	cmd := NewRootCommand()
	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "json", formatFlag.DefValue)
}

func TestCanonicalizeCommandFlags(t *testing.T) {
	t.Setenv("ANVIL_TRACE_DB", "")
	cmd := NewRootCommand()
	canonCmd, _, err := cmd.Find([]string{"canonicalize"})
	require.NoError(t, err)

	for flag, def := range map[string]string{
		"top-down":          "false",
		"region-simplify":   "true",
		"max-iterations":    "10",
		"max-rewrites":      "-1",
		"test-convergence":  "false",
		"verify":            "false",
		"manifest":          "",
		"trace-db":          "",
		"enabled-patterns":  "[]",
		"disabled-patterns": "[]",
	} {
		f := canonCmd.Flags().Lookup(flag)
		require.NotNil(t, f, "flag %s should exist", flag)
		assert.Equal(t, def, f.DefValue, "flag %s default", flag)
	}

	outputFlag := canonCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestTraceDBDefaultFromEnv(t *testing.T) {
	t.Setenv("ANVIL_TRACE_DB", "/tmp/journal.db")

	cmd := NewRootCommand()
	traceCmd, _, err := cmd.Find([]string{"trace"})
	require.NoError(t, err)

	dbFlag := traceCmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "/tmp/journal.db", dbFlag.DefValue)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "patterns"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
