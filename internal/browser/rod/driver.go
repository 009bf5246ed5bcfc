// internal/browser/rod/driver.go
package rod

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	gorod "github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/browser"
	"github.com/xkilldash9x/homecheck/internal/config"
)

var _ browser.Driver = (*Driver)(nil)

// ErrNoBrowser is returned when no exec path is configured and no local
// Chrome or Chromium is installed. The driver never downloads a browser.
var ErrNoBrowser = errors.New("no Chrome or Chromium binary found")

// Driver runs sessions on go-rod.
type Driver struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	launcher *launcher.Launcher
	browser  *gorod.Browser

	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewDriver launches a local browser and connects to it.
func NewDriver(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Driver, error) {
	d := &Driver{
		logger: logger.Named("rod_driver"),
		cfg:    cfg,
	}
	if err := d.launch(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", browser.ErrLaunch, err)
	}
	return d, nil
}

// Name identifies the driver in logs and reports.
func (d *Driver) Name() string { return config.DriverRod }

func (d *Driver) launch(ctx context.Context) error {
	bin := d.cfg.ExecPath
	if bin == "" {
		found, ok := launcher.LookPath()
		if !ok {
			return ErrNoBrowser
		}
		bin = found
	}

	timeout := d.cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	launchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l := launcher.New().Context(launchCtx).Bin(bin).Headless(d.cfg.Headless)
	for name, values := range launchFlags(d.cfg, runtime.GOOS) {
		l.Set(flags.Flag(name), values...)
	}

	d.logger.Info("Launching browser...", zap.String("bin", bin), zap.Bool("headless", d.cfg.Headless))
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("browser failed to start: %w", err)
	}
	d.launcher = l

	b := gorod.New().ControlURL(u).Context(ctx).NoDefaultDevice()
	if err := b.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	d.browser = b

	d.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// launchFlags returns the command line flags layered over the launcher's defaults.
// Boolean flags carry no values.
func launchFlags(cfg config.BrowserConfig, goos string) map[string][]string {
	out := map[string][]string{
		"disable-extensions": nil,
		"hide-scrollbars":    nil,
	}
	if cfg.IgnoreTLSErrors {
		out["ignore-certificate-errors"] = nil
	}
	if cfg.Headless {
		out["disable-gpu"] = nil
	}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		out["window-size"] = []string{fmt.Sprintf("%d,%d", cfg.Viewport.Width, cfg.Viewport.Height)}
	}
	if goos == "linux" {
		out["no-sandbox"] = nil
		out["disable-setuid-sandbox"] = nil
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			out[name] = strings.Split(parts[1], ",")
		} else {
			out[name] = nil
		}
	}
	return out
}

// NewSession opens a new tab.
func (d *Driver) NewSession(ctx context.Context) (browser.Session, error) {
	s, err := newSession(ctx, d.browser, d.cfg.Viewport, d.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	d.wg.Add(1)
	s.onClose = d.wg.Done
	return s, nil
}

// Shutdown waits for open sessions, bounded by ctx, then closes the browser
// and removes its profile directory.
func (d *Driver) Shutdown(ctx context.Context) error {
	var err error
	d.shutdownOnce.Do(func() {
		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			d.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
		}

		if cerr := d.browser.Close(); cerr != nil {
			d.logger.Warn("Browser did not close cleanly, killing it.", zap.Error(cerr))
			d.launcher.Kill()
		}

		cleaned := make(chan struct{})
		go func() {
			d.launcher.Cleanup()
			close(cleaned)
		}()
		select {
		case <-cleaned:
			d.logger.Info("Browser process stopped.")
		case <-ctx.Done():
			err = fmt.Errorf("browser process did not exit: %w", ctx.Err())
		}
	})
	return err
}
