// internal/browser/types.go
package browser

import (
	"context"
	"time"
)

// ConsoleLog is a single console message or uncaught exception observed on a page.
type ConsoleLog struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
}

// IsError reports whether the entry is an error level message or an exception.
func (c ConsoleLog) IsError() bool {
	switch c.Type {
	case "error", "exception", "assert":
		return true
	}
	return false
}

// Page is a single navigable document inside a session.
//
// Every wait is one bounded attempt. A wait that runs out of time returns an
// error matching ErrTimeout; all other failures are returned as they are.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, sel Selector, timeout time.Duration) error
	ScrollIntoView(ctx context.Context, sel Selector) error
	// WaitNetworkIdle blocks until no request has been in flight for quiet.
	WaitNetworkIdle(ctx context.Context, quiet time.Duration) error
	Screenshot(ctx context.Context, path string, fullPage bool) error
	ConsoleLogs() []ConsoleLog
}

// Session owns one browser tab. Close is safe to call more than once; only
// the first call releases anything.
type Session interface {
	ID() string
	Page() Page
	Close(ctx context.Context) error
}

// Driver launches browser sessions on top of a concrete automation library.
type Driver interface {
	Name() string
	NewSession(ctx context.Context) (Session, error)
	// Shutdown waits for open sessions (bounded by ctx) and stops the browser.
	Shutdown(ctx context.Context) error
}
