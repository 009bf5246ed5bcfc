// internal/report/report_test.go
package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/homecheck/internal/browser"
	"github.com/xkilldash9x/homecheck/internal/report"
	"github.com/xkilldash9x/homecheck/internal/verify"
)

func sampleResult() *verify.Result {
	return &verify.Result{
		RunID:   "3f1c2b9e-0000-4000-8000-000000000000",
		Target:  "http://localhost:8080/index.html",
		Driver:  "cdp",
		Outcome: verify.OutcomeDegraded,
		Steps: []verify.StepResult{
			{Name: "navigate", Status: verify.StepOK, Duration: 120 * time.Millisecond},
			{Name: "genre rows", Selector: "h2:has-text('Action & Adventure')", Tier: verify.Tier2, Status: verify.StepTimeout, Error: "timeout 10000ms exceeded"},
		},
		Screenshot:    "verification/home.png",
		StartedAt:     time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Duration:      13 * time.Second,
		ConsoleLogs:   4,
		ConsoleErrors: []browser.ConsoleLog{{Type: "error", Text: "Failed to load genres"}},
		Failures:      []*verify.VerificationError{{Tier: verify.Tier2, Step: "genre rows"}},
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Encode(&buf, sampleResult()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{\n  \""), "report should be indented")
	assert.NotContains(t, out, "Failures", "failures are internal and not serialized")

	var decoded map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "degraded", decoded["outcome"])
	assert.Equal(t, "verification/home.png", decoded["screenshot"])
	assert.Len(t, decoded["steps"], 2)
	assert.Len(t, decoded["console_errors"], 1)
}

func TestEncodeNil(t *testing.T) {
	assert.Error(t, report.Encode(&bytes.Buffer{}, nil))
}

func TestWrite(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports", "nested", "run.json")
		require.NoError(t, report.Write(path, sampleResult()))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"outcome": "degraded"`)
	})

	t.Run("overwrites an existing report", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.json")
		require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
		require.NoError(t, report.Write(path, sampleResult()))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "stale")
	})

	t.Run("unwritable path", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))

		err := report.Write(filepath.Join(blocker, "run.json"), sampleResult())
		assert.Error(t, err)
	})
}
