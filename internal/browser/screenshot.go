// internal/browser/screenshot.go
package browser

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteScreenshot stores an encoded image at path, creating parent directories.
func WriteScreenshot(path string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("screenshot for %s is empty", path)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create screenshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	return nil
}
