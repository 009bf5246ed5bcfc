// File: internal/service/components.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/browser"
)

// shutdownTimeout bounds driver shutdown when the caller's context is already done.
const shutdownTimeout = 30 * time.Second

// Components holds the initialized services for a run.
type Components struct {
	Driver browser.Driver

	logger *zap.Logger
}

// NewComponents wraps an existing driver.
func NewComponents(driver browser.Driver, logger *zap.Logger) *Components {
	return &Components{Driver: driver, logger: logger}
}

// Shutdown stops the browser driver. It runs on a detached context so it
// completes even after the run context was canceled.
func (c *Components) Shutdown(ctx context.Context) {
	if c == nil || c.Driver == nil {
		return
	}
	logger := c.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	shutdownCtx, cancel := context.WithTimeout(browser.Detach(ctx), shutdownTimeout)
	defer cancel()

	if err := c.Driver.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Error during browser driver shutdown.", zap.Error(err))
	} else {
		logger.Debug("Browser driver shut down.")
	}
}
