// internal/browser/rod/session.go
package rod

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	gorod "github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/browser"
	"github.com/xkilldash9x/homecheck/internal/config"
)

var (
	_ browser.Session = (*Session)(nil)
	_ browser.Page    = (*Session)(nil)
)

// Session is a single go-rod page. It is its own Page.
type Session struct {
	id     string
	logger *zap.Logger
	page   *gorod.Page

	stopEvents context.CancelFunc
	logsMu     sync.Mutex
	logs       []browser.ConsoleLog

	onClose  func()
	isClosed bool
	mu       sync.Mutex
}

func newSession(ctx context.Context, b *gorod.Browser, viewport config.ViewportConfig, logger *zap.Logger) (*Session, error) {
	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, browser.ClassifyError(err)
	}
	// Detach from the creation context; later calls supply their own.
	page = page.Context(context.Background())

	if viewport.Width > 0 && viewport.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             viewport.Width,
			Height:            viewport.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	id := uuid.New().String()
	s := &Session{
		id:     id,
		logger: logger.With(zap.String("session_id", id[:8])),
		page:   page,
	}

	eventCtx, cancel := context.WithCancel(context.Background())
	s.stopEvents = cancel
	go page.Context(eventCtx).EachEvent(s.onConsole, s.onException)()

	s.logger.Debug("Browser page opened.")
	return s, nil
}

// ID returns the unique identifier for this session.
func (s *Session) ID() string { return s.id }

// Page returns the session itself.
func (s *Session) Page() browser.Page { return s }

func (s *Session) pageFor(ctx context.Context) (*gorod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return nil, browser.ErrSessionClosed
	}
	return s.page.Context(ctx), nil
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	p, err := s.pageFor(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("Navigating", zap.String("url", url))
	if err := p.Navigate(url); err != nil {
		return browser.NavigationError(url, browser.ClassifyError(err))
	}
	if err := p.WaitLoad(); err != nil {
		return browser.NavigationError(url, browser.ClassifyError(err))
	}
	return nil
}

// textPattern builds the regex ElementR matches against element text. The
// match ignores case and treats any whitespace run as one space.
func textPattern(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return "/" + strings.Join(words, `\s+`) + "/i"
}

func find(p *gorod.Page, sel browser.Selector) (*gorod.Element, error) {
	if sel.Kind == browser.KindText {
		tag := sel.Tag
		if tag == "" {
			tag = "*"
		}
		return p.ElementR(tag, textPattern(sel.Text))
	}
	return p.Element(sel.Query)
}

// WaitFor retries the query until it matches or timeout elapses.
func (s *Session) WaitFor(ctx context.Context, sel browser.Selector, timeout time.Duration) error {
	p, err := s.pageFor(ctx)
	if err != nil {
		return err
	}
	p = p.Timeout(timeout)
	defer p.CancelTimeout()

	if _, err := find(p, sel); err != nil {
		return &browser.WaitError{Selector: sel, Timeout: timeout, Err: browser.ClassifyError(err)}
	}
	return nil
}

// ScrollIntoView scrolls the first element matching sel into the viewport.
func (s *Session) ScrollIntoView(ctx context.Context, sel browser.Selector) error {
	p, err := s.pageFor(ctx)
	if err != nil {
		return err
	}
	el, err := find(p, sel)
	if err == nil {
		err = el.ScrollIntoView()
	}
	if err != nil {
		return fmt.Errorf("failed to scroll %s into view: %w", sel, browser.ClassifyError(err))
	}
	return nil
}

// WaitNetworkIdle waits until no request has been pending for quiet. Images
// and media count as requests here since the settle pause exists for them.
func (s *Session) WaitNetworkIdle(ctx context.Context, quiet time.Duration) error {
	p, err := s.pageFor(ctx)
	if err != nil {
		return err
	}
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}
	wait := p.WaitRequestIdle(quiet, nil, nil, []proto.NetworkResourceType{
		proto.NetworkResourceTypeWebSocket,
		proto.NetworkResourceTypeEventSource,
	})
	wait()
	return browser.ClassifyError(ctx.Err())
}

// Screenshot captures the page as PNG and writes it to path.
func (s *Session) Screenshot(ctx context.Context, path string, fullPage bool) error {
	p, err := s.pageFor(ctx)
	if err != nil {
		return err
	}
	data, err := p.Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", browser.ClassifyError(err))
	}
	return browser.WriteScreenshot(path, data)
}

// ConsoleLogs returns the console output recorded on this page.
func (s *Session) ConsoleLogs() []browser.ConsoleLog {
	s.logsMu.Lock()
	defer s.logsMu.Unlock()
	out := make([]browser.ConsoleLog, len(s.logs))
	copy(out, s.logs)
	return out
}

func (s *Session) record(entry browser.ConsoleLog) {
	s.logsMu.Lock()
	defer s.logsMu.Unlock()
	s.logs = append(s.logs, entry)
}

func (s *Session) onConsole(e *proto.RuntimeConsoleAPICalled) {
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		switch {
		case !arg.Value.Nil():
			parts = append(parts, arg.Value.String())
		case arg.Description != "":
			parts = append(parts, arg.Description)
		default:
			parts = append(parts, fmt.Sprintf("[%s]", arg.Type))
		}
	}
	s.record(browser.ConsoleLog{
		Timestamp: timestamp(e.Timestamp),
		Type:      string(e.Type),
		Text:      strings.Join(parts, " "),
		Source:    "console-api",
	})
}

func (s *Session) onException(e *proto.RuntimeExceptionThrown) {
	if e.ExceptionDetails == nil {
		return
	}
	text := e.ExceptionDetails.Text
	if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
		text = e.ExceptionDetails.Exception.Description
	}
	s.record(browser.ConsoleLog{
		Timestamp: timestamp(e.Timestamp),
		Type:      "exception",
		Text:      text,
		Source:    "runtime",
	})
}

func timestamp(ms proto.RuntimeTimestamp) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}

// Close stops event collection and closes the page. Only the first call does anything.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	if s.onClose != nil {
		defer s.onClose()
	}
	s.stopEvents()

	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.page.Context(closeCtx).Close(); err != nil {
		s.logger.Warn("Failed to close browser page.", zap.Error(err))
	}
	return nil
}
