package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ffx64/discord-rpc-go/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvClientID, "")
	t.Setenv(config.EnvPort, "")
	t.Setenv(config.EnvLogLevel, "")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	out, err := runCLI(t, "--client-id", "1")
	require.NoError(t, err)
	for _, name := range []string{"presence", "listen", "clear"} {
		assert.Contains(t, out, name)
	}
}

func TestMissingClientID(t *testing.T) {
	_, err := runCLI(t, "clear")
	assert.ErrorIs(t, err, config.ErrMissingClientID)
}

func TestInvalidFlags(t *testing.T) {
	_, err := runCLI(t, "--client-id", "abc", "clear")
	assert.ErrorContains(t, err, "invalid client_id")

	_, err = runCLI(t, "--client-id", "1", "--log-level", "loud", "clear")
	assert.ErrorContains(t, err, "log level")
}

func TestPresenceRequiresActivity(t *testing.T) {
	_, err := runCLI(t, "--client-id", "1", "presence")
	assert.ErrorContains(t, err, "no activity configured")
}

func TestConfigFileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discord-rpc.toml")
	require.NoError(t, os.WriteFile(path, []byte("client_id = \"oops\"\n"), 0o600))

	_, err := runCLI(t, "--config", path, "clear")
	assert.ErrorContains(t, err, "invalid client_id")
}

func TestLogLevelFlagBeatsEnv(t *testing.T) {
	t.Setenv(config.EnvClientID, "1")
	t.Setenv(config.EnvPort, "")
	t.Setenv(config.EnvLogLevel, "error")

	configFlag, clientIDFlag, levelFlag := "", "", "debug"
	cc := &commandContext{configFlag: &configFlag, clientIDFlag: &clientIDFlag, logLevelFlag: &levelFlag}
	cfg, logger, err := cc.ensureConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	levelFlag = ""
	cc = &commandContext{configFlag: &configFlag, clientIDFlag: &clientIDFlag, logLevelFlag: &levelFlag}
	_, logger, err = cc.ensureConfig()
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, logger.GetLevel(), "env applies without a flag")
}
