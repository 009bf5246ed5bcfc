// internal/browser/cdp/manager.go
package cdp

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/browser"
	"github.com/xkilldash9x/homecheck/internal/config"
)

var _ browser.Driver = (*Manager)(nil)

// Manager owns the Chrome process and hands out tabs as sessions.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx owns the process; browserCtx owns the first tab and with it
	// the browser connection. Sessions are tabs derived from browserCtx.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc

	// wg tracks open sessions for a graceful shutdown.
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewManager launches the browser and confirms it responds within the launch timeout.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("cdp_manager"),
		cfg:    cfg,
	}
	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", browser.ErrLaunch, err)
	}
	return m, nil
}

// Name identifies the driver in logs and reports.
func (m *Manager) Name() string { return config.DriverCDP }

func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...", zap.Bool("headless", m.cfg.Headless))

	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, m.buildAllocatorOptions()...)
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocatorCtx, m.contextOptions()...)

	// The first Run starts the process. It must not carry a deadline or the
	// browser dies with it, so the launch timeout is enforced from outside.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(m.browserCtx) }()

	timeout := m.cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-started:
		if err != nil {
			m.cancelAll()
			return fmt.Errorf("browser failed to start or respond: %w", err)
		}
	case <-timer.C:
		m.cancelAll()
		<-started
		return fmt.Errorf("browser did not start within %s", timeout)
	case <-ctx.Done():
		m.cancelAll()
		<-started
		return ctx.Err()
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

func (m *Manager) cancelAll() {
	m.browserCancel()
	m.allocatorCancel()
}

// buildAllocatorOptions assembles the Chrome flags from the browser config.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range allocatorFlags(m.cfg, runtime.GOOS) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if m.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.ExecPath))
	}
	return opts
}

// allocatorFlags returns the command line flags layered over chromedp's defaults.
func allocatorFlags(cfg config.BrowserConfig, goos string) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":                  cfg.Headless,
		"ignore-certificate-errors": cfg.IgnoreTLSErrors,
		"disable-extensions":        true,
		"disable-gpu":               cfg.Headless,
		"hide-scrollbars":           true,
	}

	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		flags["window-size"] = fmt.Sprintf("%d,%d", cfg.Viewport.Width, cfg.Viewport.Height)
	}

	// Containers on Linux usually lack the namespaces the sandbox needs.
	if goos == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}

	// Extra flags, "--name=value" or "--name". They win over everything above.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}

	return flags
}

// contextOptions routes chromedp's own logging through zap.
func (m *Manager) contextOptions() []chromedp.ContextOption {
	sugar := m.logger.Named("chromedp").Sugar()
	opts := []chromedp.ContextOption{
		chromedp.WithLogf(sugar.Infof),
		chromedp.WithErrorf(sugar.Errorf),
	}
	if m.cfg.Debug {
		opts = append(opts, chromedp.WithDebugf(sugar.Debugf))
	}
	return opts
}

// NewSession opens a new tab.
func (m *Manager) NewSession(ctx context.Context) (browser.Session, error) {
	if m.browserCtx.Err() != nil {
		return nil, browser.ErrSessionClosed
	}

	s := NewSession(m.browserCtx, m.logger)
	if err := s.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	m.wg.Add(1)
	return &sessionWrapper{Session: s, wg: &m.wg}, nil
}

// Shutdown waits for open sessions, bounded by ctx, then closes the browser.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		m.logger.Info("Browser manager shutdown initiated. Waiting for open sessions...")

		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			m.logger.Debug("All sessions have closed.")
		case <-ctx.Done():
			m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
		}

		// chromedp.Cancel closes the browser gracefully before tearing down the process.
		if cerr := chromedp.Cancel(m.browserCtx); cerr != nil {
			m.logger.Warn("Browser did not close cleanly.", zap.Error(cerr))
		}
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
		m.logger.Info("Browser process stopped.")
	})
	return nil
}

// sessionWrapper releases the manager's WaitGroup exactly once on Close.
type sessionWrapper struct {
	*Session
	wg     *sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

func (sw *sessionWrapper) Close(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return nil
	}

	err := sw.Session.Close(ctx)
	sw.closed = true
	sw.wg.Done()
	return err
}
