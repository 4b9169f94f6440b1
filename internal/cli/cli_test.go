package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse(nil, &out)
		require.NoError(t, err)
		assert.False(t, exit)
		assert.Equal(t, "flowver.hcl", cfg.ConfigPath)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 8, cfg.WorkerCount)
	})

	t.Run("explicit flags", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{
			"-config", "manifests/",
			"-o", "dist/versions.lock",
			"-log-format", "json",
			"-log-level", "debug",
			"-workers", "2",
		}, &out)
		require.NoError(t, err)
		assert.Equal(t, "manifests/", cfg.ConfigPath)
		assert.Equal(t, "dist/versions.lock", cfg.OutputPath)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 2, cfg.WorkerCount)
	})

	t.Run("positional manifest path", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{"project.hcl"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "project.hcl", cfg.ConfigPath)
	})

	t.Run("shorthand flag", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{"-c", "project.hcl"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "project.hcl", cfg.ConfigPath)
	})

	t.Run("help exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		_, exit, err := Parse([]string{"-h"}, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Contains(t, out.String(), "flowver")
	})

	t.Run("invalid log format", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-log-format", "yaml"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid log level", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-log-level", "trace"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid worker count", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-workers", "0"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Message, "WorkerCount")
	})
}
