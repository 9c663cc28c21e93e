package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "codex", cmd.Use)
	assert.Contains(t, cmd.Long, "query intents")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"schema", "ingest", "compile"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "codex.yaml", configFlag.DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "yaml", "schema", "show", "k"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIngestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	relCmd, _, err := cmd.Find([]string{"ingest", "relationship"})
	require.NoError(t, err)
	for _, name := range []string{"role1", "entity1", "role2", "entity2"} {
		assert.NotNil(t, relCmd.Flags().Lookup(name), "flag %s should exist", name)
	}

	entCmd, _, err := cmd.Find([]string{"ingest", "entity"})
	require.NoError(t, err)
	assert.NotNil(t, entCmd.Flags().Lookup("key"))
	assert.NotNil(t, entCmd.InheritedFlags().Lookup("keyspace"))
}
