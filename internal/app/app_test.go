package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/matrixci/internal/registry"
)

// failModule registers a 'fail' action plus a counting 'work' action so
// tests can drive outcomes without spawning real commands.
type failModule struct {
	workCount atomic.Int64
}

type emptyInput struct{}

func (m *failModule) Register(r *registry.Registry) {
	r.RegisterAction("fail", &registry.RegisteredAction{
		NewInput: func() any { return new(emptyInput) },
		Fn: func(ctx context.Context, input *emptyInput) (any, error) {
			return nil, errors.New("synthetic failure")
		},
	})
	r.RegisterAction("work", &registry.RegisteredAction{
		NewInput: func() any { return new(emptyInput) },
		Fn: func(ctx context.Context, input *emptyInput) (any, error) {
			m.workCount.Add(1)
			return nil, nil
		},
	})
}

func writePipeline(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestConfig(t *testing.T, path string) *Config {
	t.Helper()
	cfg, err := NewConfig(Config{
		PipelinePath: path,
		Workers:      2,
		Platform:     "linux",
		LogFormat:    "text",
		LogLevel:     "error",
	})
	require.NoError(t, err)
	return cfg
}

func TestApp_RunsMatrixEndToEnd(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `
		dimension "os" { values = ["A", "B"] }
		dimension "ver" { values = ["1", "2"] }

		exclude {
			os  = "B"
			ver = "1"
		}

		step "work" "build" {}
	`)

	mod := &failModule{}
	var out, logs bytes.Buffer
	a := NewApp(&out, &logs, newTestConfig(t, path), mod)

	require.NoError(t, a.Run(context.Background()))

	// Three resolved jobs, each running the single step once.
	assert.Equal(t, int64(3), mod.workCount.Load())

	var result struct {
		RunID   string `json:"run_id"`
		Success bool   `json:"success"`
		Jobs    []struct {
			Name  string `json:"name"`
			State string `json:"state"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.NotEmpty(t, result.RunID)
	assert.True(t, result.Success)
	require.Len(t, result.Jobs, 3)
	assert.Equal(t, "os=A,ver=1", result.Jobs[0].Name)
	assert.Equal(t, "os=A,ver=2", result.Jobs[1].Name)
	assert.Equal(t, "os=B,ver=2", result.Jobs[2].Name)
}

func TestApp_FailedJobReturnsError(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `
		dimension "os" { values = ["A"] }

		step "fail" "tests" {}
	`)

	var out, logs bytes.Buffer
	a := NewApp(&out, &logs, newTestConfig(t, path), &failModule{})

	err := a.Run(context.Background())
	require.ErrorContains(t, err, "pipeline failed")

	var result struct {
		Success bool `json:"success"`
		Jobs    []struct {
			State string `json:"state"`
			Steps []struct {
				Name  string `json:"name"`
				State string `json:"state"`
				Error string `json:"error"`
			} `json:"steps"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.False(t, result.Success)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "failed", result.Jobs[0].State)
	require.Len(t, result.Jobs[0].Steps, 1)
	assert.Equal(t, "synthetic failure", result.Jobs[0].Steps[0].Error)
}

func TestApp_TolerantFailureKeepsPipelineGreen(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `
		dimension "os" { values = ["A"] }

		step "fail" "flaky" {
			on_failure = "tolerant"
		}
		step "work" "after" {}
	`)

	mod := &failModule{}
	var out, logs bytes.Buffer
	a := NewApp(&out, &logs, newTestConfig(t, path), mod)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, int64(1), mod.workCount.Load(), "execution continues past a tolerant failure")
}

func TestApp_ReportFile(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `
		dimension "os" { values = ["A"] }
		step "work" "build" {}
	`)

	reportPath := filepath.Join(t.TempDir(), "report.json")
	cfg := newTestConfig(t, path)
	cfg.ReportPath = reportPath

	var out, logs bytes.Buffer
	a := NewApp(&out, &logs, cfg, &failModule{})
	require.NoError(t, a.Run(context.Background()))

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"success": true`)
	assert.Empty(t, out.Bytes(), "report goes to the file, not stdout")
}

func TestNewApp_UnknownActionPanics(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `
		dimension "os" { values = ["A"] }
		step "no_such_action" "x" {}
	`)

	var out, logs bytes.Buffer
	assert.PanicsWithError(t,
		`step "x" references unknown action "no_such_action"`,
		func() { NewApp(&out, &logs, newTestConfig(t, path), &failModule{}) })
}
