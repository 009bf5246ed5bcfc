// internal/verify/plan.go
package verify

import (
	"errors"
	"time"

	"github.com/xkilldash9x/homecheck/internal/browser"
	"github.com/xkilldash9x/homecheck/internal/config"
)

// Plan is the fixed sequence of checks a run performs against the home page.
type Plan struct {
	Target string

	// Tier 1: a miss ends the run with the error screenshot.
	Initial   browser.Selector
	ExtraRows []browser.Selector

	// Scrolled into view to trigger the lazily loaded genre rows.
	ScrollContainer browser.Selector

	// Tier 2: a miss is logged and the run goes on.
	GenreRows []browser.Selector

	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	SettlePause       time.Duration

	WaitNetworkIdle    bool
	NetworkIdleQuiet   time.Duration
	NetworkIdleTimeout time.Duration

	SuccessPath string
	ErrorPath   string
}

// NewPlan builds a plan from the verify config.
func NewPlan(cfg config.VerifyConfig) Plan {
	p := Plan{
		Target:             cfg.TargetURL,
		Initial:            browser.CSS(cfg.InitialSelector),
		ScrollContainer:    browser.CSS(cfg.ScrollContainer),
		NavigationTimeout:  cfg.NavigationTimeout,
		WaitTimeout:        cfg.WaitTimeout,
		SettlePause:        cfg.SettlePause,
		WaitNetworkIdle:    cfg.WaitNetworkIdle,
		NetworkIdleQuiet:   cfg.NetworkIdleQuiet,
		NetworkIdleTimeout: cfg.NetworkIdleTimeout,
		SuccessPath:        cfg.SuccessPath(),
		ErrorPath:          cfg.ErrorPath(),
	}
	for _, h := range cfg.ExtraRowHeadings {
		p.ExtraRows = append(p.ExtraRows, browser.Text(cfg.HeadingTag, h))
	}
	for _, h := range cfg.GenreHeadings {
		p.GenreRows = append(p.GenreRows, browser.Text(cfg.HeadingTag, h))
	}
	return p
}

// Validate reports a plan that could not check every row of the page.
func (p Plan) Validate() error {
	switch {
	case p.Target == "":
		return errors.New("plan has no target")
	case p.Initial.Query == "":
		return errors.New("plan has no initial load selector")
	case len(p.ExtraRows) == 0:
		return errors.New("plan has no extra row headings")
	case p.ScrollContainer.Query == "":
		return errors.New("plan has no scroll container")
	case len(p.GenreRows) == 0:
		return errors.New("plan has no genre row headings")
	case p.SettlePause <= 0:
		return errors.New("plan has no settle pause")
	}
	return nil
}
