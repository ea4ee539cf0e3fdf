package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		" WARN ":   zerolog.WarnLevel,
		"trace":    zerolog.TraceLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWritesPlainConsoleOutput(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(&buf, "info")
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "manager").Msg("connected to discord")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "connected to discord")
	assert.Contains(t, out, "component=manager")
	assert.NotContains(t, out, "\x1b[", "non-terminal output is not coloured")
}

func TestNewUsesLevelArgument(t *testing.T) {
	t.Setenv("DISCORD_RPC_LOG_LEVEL", "error")
	var buf bytes.Buffer

	logger, err := New(&buf, "debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")

	_, err = New(&buf, "nonsense")
	assert.Error(t, err)
}
