package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{"pipeline.hcl"}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, "pipeline.hcl", cfg.PipelinePath)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.FailFast)
	assert.Equal(t, "-", cfg.ReportPath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParse_Flags(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{
		"-p", "ci/",
		"-workers", "8",
		"-fail-fast",
		"-platform", "windows",
		"-report", "out.json",
		"-log-format", "json",
		"-log-level", "debug",
	}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, "ci/", cfg.PipelinePath)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, "windows", cfg.Platform)
	assert.Equal(t, "out.json", cfg.ReportPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_InvalidValues(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	_, _, err := Parse([]string{"-log-format", "xml", "pipeline.hcl"}, out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "invalid log-format")

	_, _, err = Parse([]string{"-log-level", "loud", "pipeline.hcl"}, out)
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "invalid log-level")
}
