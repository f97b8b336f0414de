package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platecensor/internal/config"
)

func TestEffectiveOptions_EnvAppliesWhenFlagsUnset(t *testing.T) {
	t.Setenv("CONF_THRESHOLD", "0.4")
	t.Setenv("PADDING", "9")
	cfg := config.Load()

	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--input", "in.mp4"}))

	threshold, padding := effectiveOptions(cmd.Flags(), cfg, 0.15, 5)
	assert.Equal(t, 0.4, threshold)
	assert.Equal(t, 9, padding)
}

func TestEffectiveOptions_FlagsWinOverEnv(t *testing.T) {
	t.Setenv("CONF_THRESHOLD", "0.4")
	t.Setenv("PADDING", "9")
	cfg := config.Load()

	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--input", "in.mp4", "--threshold", "0.6", "--padding", "2"}))

	threshold, padding := effectiveOptions(cmd.Flags(), cfg, 0.6, 2)
	assert.Equal(t, 0.6, threshold)
	assert.Equal(t, 2, padding)
}

func TestEffectiveOptions_DefaultsWithoutEnvOrFlags(t *testing.T) {
	t.Setenv("CONF_THRESHOLD", "")
	t.Setenv("PADDING", "")
	cfg := config.Load()

	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--input", "in.mp4"}))

	threshold, padding := effectiveOptions(cmd.Flags(), cfg, 0.15, 5)
	assert.Equal(t, 0.15, threshold)
	assert.Equal(t, 5, padding)
}
