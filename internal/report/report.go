// internal/report/report.go
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/homecheck/internal/verify"
)

// Stdout is the path value that sends the report to standard output.
const Stdout = "stdout"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Encode writes res to w as indented JSON.
func Encode(w io.Writer, res *verify.Result) error {
	if res == nil {
		return fmt.Errorf("cannot encode a nil result")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	return nil
}

// Write saves res as a JSON report at path, creating parent directories.
// A path of "stdout" writes to standard output instead.
func Write(path string, res *verify.Result) (err error) {
	var w io.WriteCloser
	if path == Stdout {
		w = nopWriteCloser{os.Stdout}
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create report directory %s: %w", dir, err)
			}
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report file %s: %w", path, err)
		}
		w = f
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report file %s: %w", path, cerr)
		}
	}()

	return Encode(w, res)
}
