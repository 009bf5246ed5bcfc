// internal/browser/errors.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrTimeout         = errors.New("timeout")
	ErrNavigation      = errors.New("navigation failed")
	ErrSessionClosed   = errors.New("session is closed")
	ErrLaunch          = errors.New("browser launch failed")
	ErrElementNotFound = errors.New("element not found")
)

// WaitError reports a failed wait for a selector.
type WaitError struct {
	Selector Selector
	Timeout  time.Duration
	Err      error
}

func (e *WaitError) Error() string {
	if errors.Is(e.Err, ErrTimeout) {
		return fmt.Sprintf("timeout %dms exceeded waiting for %s", e.Timeout.Milliseconds(), e.Selector)
	}
	return fmt.Sprintf("waiting for %s: %v", e.Selector, e.Err)
}

func (e *WaitError) Unwrap() error { return e.Err }

// ClassifyError maps library errors onto the package sentinels. Deadline
// errors become ErrTimeout; cancellation is left alone so an interrupted run
// is never mistaken for a missing element.
func ClassifyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// NavigationError wraps a failed navigation to url.
func NavigationError(url string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
}

// IsTimeout reports whether err is a classified timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
