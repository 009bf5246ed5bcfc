// internal/browser/cdp/harvester.go
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/browser"
)

// Harvester listens to tab events. It keeps the set of in-flight requests for
// network idle detection and records console output and uncaught exceptions.
type Harvester struct {
	logger *zap.Logger

	sessionCtx     context.Context
	listenerCtx    context.Context
	cancelListener context.CancelFunc

	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
	consoleLogs  []browser.ConsoleLog
	lock         sync.RWMutex

	isStarted bool
}

// NewHarvester creates a harvester for the tab behind sessionCtx.
func NewHarvester(sessionCtx context.Context, logger *zap.Logger) *Harvester {
	return &Harvester{
		sessionCtx:   sessionCtx,
		logger:       logger.Named("harvester"),
		inflight:     make(map[network.RequestID]struct{}),
		lastActivity: time.Now(),
	}
}

// Start registers the event listener and enables the CDP domains it needs.
// It must be the first Run on the tab so the tab belongs to sessionCtx.
func (h *Harvester) Start() error {
	h.lock.Lock()
	if h.isStarted {
		h.lock.Unlock()
		return nil
	}
	h.listenerCtx, h.cancelListener = context.WithCancel(h.sessionCtx)
	h.isStarted = true
	h.lock.Unlock()

	chromedp.ListenTarget(h.listenerCtx, h.dispatch)

	err := chromedp.Run(h.sessionCtx,
		network.Enable(),
		runtime.Enable(),
		log.Enable(),
	)
	if err != nil {
		h.Stop()
		return fmt.Errorf("failed to enable event domains: %w", err)
	}

	h.logger.Debug("Harvester started.")
	return nil
}

func (h *Harvester) dispatch(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		h.requestStarted(e.RequestID)
	case *network.EventLoadingFinished:
		h.requestDone(e.RequestID)
	case *network.EventLoadingFailed:
		h.requestDone(e.RequestID)
	case *runtime.EventConsoleAPICalled:
		h.handleConsoleAPICalled(e)
	case *log.EventEntryAdded:
		h.handleLogEntryAdded(e)
	case *runtime.EventExceptionThrown:
		h.handleExceptionThrown(e)
	}
}

// Stop detaches the listener. Collected logs stay readable.
func (h *Harvester) Stop() {
	h.lock.Lock()
	defer h.lock.Unlock()

	if !h.isStarted {
		return
	}
	h.cancelListener()
	h.isStarted = false
	h.logger.Debug("Harvester stopped.", zap.Int("console_logs", len(h.consoleLogs)))
}

// InflightCount is the number of requests that have started but not finished.
func (h *Harvester) InflightCount() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.inflight)
}

// WaitNetworkIdle polls until no request has been in flight for quiet.
func (h *Harvester) WaitNetworkIdle(ctx context.Context, quiet time.Duration) error {
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}
	ticker := time.NewTicker(quiet / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.lock.RLock()
			count := len(h.inflight)
			last := h.lastActivity
			h.lock.RUnlock()

			if count > 0 {
				h.logger.Debug("Waiting for network idle...", zap.Int("inflight_requests", count))
				continue
			}
			if time.Since(last) >= quiet {
				return nil
			}
		}
	}
}

// ConsoleLogs returns a copy of everything recorded so far.
func (h *Harvester) ConsoleLogs() []browser.ConsoleLog {
	h.lock.RLock()
	defer h.lock.RUnlock()
	out := make([]browser.ConsoleLog, len(h.consoleLogs))
	copy(out, h.consoleLogs)
	return out
}

func (h *Harvester) requestStarted(id network.RequestID) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.inflight[id] = struct{}{}
	h.lastActivity = time.Now()
}

func (h *Harvester) requestDone(id network.RequestID) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.inflight, id)
	h.lastActivity = time.Now()
}

func (h *Harvester) record(entry browser.ConsoleLog) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.consoleLogs = append(h.consoleLogs, entry)
}

func (h *Harvester) handleConsoleAPICalled(e *runtime.EventConsoleAPICalled) {
	var text strings.Builder
	for i, arg := range e.Args {
		if i > 0 {
			text.WriteString(" ")
		}
		var val interface{}
		if arg.Value != nil && json.Unmarshal(arg.Value, &val) == nil {
			text.WriteString(fmt.Sprintf("%v", val))
		} else if arg.Description != "" {
			text.WriteString(arg.Description)
		} else {
			text.WriteString(fmt.Sprintf("[%s]", arg.Type))
		}
	}

	entry := browser.ConsoleLog{
		Type:   string(e.Type),
		Text:   text.String(),
		Source: "console-api",
	}
	if e.Timestamp != nil {
		entry.Timestamp = e.Timestamp.Time()
	}
	h.record(entry)
}

func (h *Harvester) handleLogEntryAdded(e *log.EventEntryAdded) {
	if e.Entry == nil {
		return
	}
	entry := browser.ConsoleLog{
		Type:   string(e.Entry.Level),
		Text:   e.Entry.Text,
		Source: string(e.Entry.Source),
	}
	if e.Entry.Timestamp != nil {
		entry.Timestamp = e.Entry.Timestamp.Time()
	}
	h.record(entry)
}

func (h *Harvester) handleExceptionThrown(e *runtime.EventExceptionThrown) {
	if e.ExceptionDetails == nil {
		return
	}
	text := e.ExceptionDetails.Text
	if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
		text = e.ExceptionDetails.Exception.Description
	}

	entry := browser.ConsoleLog{
		Type:   "exception",
		Text:   text,
		Source: "runtime",
	}
	if e.Timestamp != nil {
		entry.Timestamp = e.Timestamp.Time()
	}
	h.record(entry)
}
