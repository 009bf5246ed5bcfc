// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/browser"
	"github.com/xkilldash9x/homecheck/internal/browser/cdp"
	rodriver "github.com/xkilldash9x/homecheck/internal/browser/rod"
	"github.com/xkilldash9x/homecheck/internal/config"
)

// ComponentFactory creates the components a verification run needs.
// Commands depend on this interface so their logic can be tested without a browser.
type ComponentFactory interface {
	Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error)
}

// DriverConstructor launches a browser driver.
type DriverConstructor func(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (browser.Driver, error)

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct {
	drivers map[string]DriverConstructor
}

// NewComponentFactory creates a factory that knows the cdp and rod drivers.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{drivers: map[string]DriverConstructor{
		config.DriverCDP: func(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (browser.Driver, error) {
			return cdp.NewManager(ctx, logger, cfg)
		},
		config.DriverRod: func(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (browser.Driver, error) {
			return rodriver.NewDriver(ctx, logger, cfg)
		},
	}}
}

// NewComponentFactoryWithDrivers creates a factory with a custom driver table.
func NewComponentFactoryWithDrivers(drivers map[string]DriverConstructor) ComponentFactory {
	return &concreteFactory{drivers: drivers}
}

// Create launches the configured browser driver.
func (f *concreteFactory) Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	newDriver, ok := f.drivers[cfg.Browser.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown browser driver %q", cfg.Browser.Driver)
	}

	driver, err := newDriver(ctx, logger, cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s driver: %w", cfg.Browser.Driver, err)
	}
	logger.Debug("Browser driver initialized.", zap.String("driver", driver.Name()))

	return &Components{Driver: driver, logger: logger}, nil
}
