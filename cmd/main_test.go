// cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/homecheck/internal/observability"
	"github.com/xkilldash9x/homecheck/internal/service"
)

// resetForTest isolates a test from the process environment and the global logger.
func resetForTest(t *testing.T) {
	t.Helper()

	// Keep the logger quiet and stop a stray homecheck.yaml from leaking in.
	t.Setenv("HOMECHECK_LOGGER_LEVEL", "fatal")
	t.Chdir(t.TempDir())

	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)
}

// executeCommand runs a fresh root command and returns what it wrote to stdout and stderr.
func executeCommand(t *testing.T, root *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := execute(context.Background(), root, args, &stderr)
	return stdout.String(), stderr.String(), err
}

// newTestRoot builds a root command with test doubles wired in.
func newTestRoot(factory service.ComponentFactory, prober Prober) *cobra.Command {
	return newRootCommand(factory, prober)
}
