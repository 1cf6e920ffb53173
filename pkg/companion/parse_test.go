package companion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recoveryhub/companion/pkg/companion"
)

func TestParseRun(t *testing.T) {
	cmd, config, err := companion.Parse([]string{"run"})
	require.NoError(t, err)

	_, ok := cmd.(*companion.RunCommand)
	require.True(t, ok)
	assert.Equal(t, "run", cmd.Name())
	assert.Equal(t, "8080", config.ServerPort)
	assert.Equal(t, "ws://localhost:8000/rpc", config.SurrealDBURL)
}

func TestParsePortFlag(t *testing.T) {
	_, config, err := companion.Parse([]string{"-port=9090", "run"})
	require.NoError(t, err)
	assert.Equal(t, "9090", config.ServerPort)
}

func TestParseNoCommand(t *testing.T) {
	_, _, err := companion.Parse([]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subcommand required")
}

func TestParseUnknownCommand(t *testing.T) {
	_, _, err := companion.Parse([]string{"serve"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}
