// internal/browser/cdp/session.go
package cdp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/browser"
)

var (
	_ browser.Session = (*Session)(nil)
	_ browser.Page    = (*Session)(nil)
)

// Session is a single chromedp tab. It is its own Page.
type Session struct {
	id     string
	logger *zap.Logger

	browserCtx     context.Context
	sessionCtx     context.Context
	sessionCancel  context.CancelFunc
	harvester      *Harvester
	contextOptions []chromedp.ContextOption

	isClosed bool
	mu       sync.Mutex
}

// NewSession prepares a tab on the browser behind browserCtx. Initialize must be called next.
func NewSession(browserCtx context.Context, logger *zap.Logger, opts ...chromedp.ContextOption) *Session {
	id := uuid.New().String()
	return &Session{
		id:             id,
		logger:         logger.With(zap.String("session_id", id[:8])),
		browserCtx:     browserCtx,
		contextOptions: opts,
	}
}

// Initialize opens the tab and starts harvesting its events.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.sessionCtx != nil {
		s.mu.Unlock()
		return fmt.Errorf("session already initialized")
	}
	sessionCtx, cancel := chromedp.NewContext(s.browserCtx, s.contextOptions...)
	s.sessionCtx = sessionCtx
	s.sessionCancel = cancel
	s.harvester = NewHarvester(sessionCtx, s.logger)
	s.mu.Unlock()

	started := make(chan error, 1)
	go func() { started <- s.harvester.Start() }()

	select {
	case err := <-started:
		if err != nil {
			_ = s.Close(browser.Detach(ctx))
			return fmt.Errorf("failed to open tab: %w", err)
		}
	case <-ctx.Done():
		_ = s.Close(browser.Detach(ctx))
		<-started
		return fmt.Errorf("failed to open tab: %w", browser.ClassifyError(ctx.Err()))
	}

	s.logger.Debug("Browser tab opened.")
	return nil
}

// ID returns the unique identifier for this session.
func (s *Session) ID() string { return s.id }

// Page returns the session itself.
func (s *Session) Page() browser.Page { return s }

// Context returns the tab context. It is nil before Initialize.
func (s *Session) Context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionCtx
}

// runContext ties a caller context to the tab: chromedp values come from the
// tab, cancellation from both.
func (s *Session) runContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed || s.sessionCtx == nil {
		return nil, nil, browser.ErrSessionClosed
	}
	runCtx, cancel := browser.CombineContext(s.sessionCtx, ctx)
	return runCtx, cancel, nil
}

// Navigate loads url and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel, err := s.runContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	s.logger.Debug("Navigating", zap.String("url", url))
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return browser.NavigationError(url, browser.ClassifyError(err))
	}
	return nil
}

func queryOptions(sel browser.Selector) (string, []chromedp.QueryOption) {
	if sel.Kind == browser.KindText {
		return sel.XPath(), []chromedp.QueryOption{chromedp.BySearch}
	}
	return sel.Query, []chromedp.QueryOption{chromedp.ByQuery}
}

// WaitFor blocks until sel matches a node in the document or timeout elapses.
func (s *Session) WaitFor(ctx context.Context, sel browser.Selector, timeout time.Duration) error {
	runCtx, cancel, err := s.runContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	waitCtx, cancelWait := context.WithTimeout(runCtx, timeout)
	defer cancelWait()

	query, opts := queryOptions(sel)
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(query, opts...)); err != nil {
		return &browser.WaitError{Selector: sel, Timeout: timeout, Err: browser.ClassifyError(err)}
	}
	return nil
}

// ScrollIntoView scrolls the first node matching sel into the viewport.
func (s *Session) ScrollIntoView(ctx context.Context, sel browser.Selector) error {
	runCtx, cancel, err := s.runContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	query, opts := queryOptions(sel)
	if err := chromedp.Run(runCtx, chromedp.ScrollIntoView(query, opts...)); err != nil {
		return fmt.Errorf("failed to scroll %s into view: %w", sel, browser.ClassifyError(err))
	}
	return nil
}

// WaitNetworkIdle waits until the tab has had no request in flight for quiet.
func (s *Session) WaitNetworkIdle(ctx context.Context, quiet time.Duration) error {
	runCtx, cancel, err := s.runContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return browser.ClassifyError(s.harvester.WaitNetworkIdle(runCtx, quiet))
}

// Screenshot captures the page as PNG and writes it to path.
func (s *Session) Screenshot(ctx context.Context, path string, fullPage bool) error {
	runCtx, cancel, err := s.runContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := chromedp.Run(runCtx, action); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", browser.ClassifyError(err))
	}
	return browser.WriteScreenshot(path, buf)
}

// ConsoleLogs returns the console output recorded on this tab.
func (s *Session) ConsoleLogs() []browser.ConsoleLog {
	s.mu.Lock()
	h := s.harvester
	s.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.ConsoleLogs()
}

// Close stops the harvester and closes the tab. Only the first call does anything.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	harvester := s.harvester
	sessionCancel := s.sessionCancel
	sessionCtx := s.sessionCtx
	s.mu.Unlock()

	if harvester != nil {
		harvester.Stop()
	}
	if sessionCancel != nil {
		sessionCancel()
	}
	if sessionCtx == nil {
		return nil
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, 10*time.Second)
	defer cancelWait()

	select {
	case <-sessionCtx.Done():
		s.logger.Debug("Browser tab closed.")
	case <-waitCtx.Done():
		s.logger.Warn("Deadline exceeded waiting for browser tab to close.", zap.Error(waitCtx.Err()))
	}
	return nil
}
