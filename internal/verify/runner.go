// internal/verify/runner.go
package verify

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/browser"
)

// closeTimeout bounds closing the session on the way out.
const closeTimeout = 10 * time.Second

// SleepFunc pauses for d unless ctx ends first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Runner performs one verification run per call to Run.
type Runner struct {
	driver browser.Driver
	plan   Plan
	out    io.Writer
	logger *zap.Logger
	sleep  SleepFunc
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSleep replaces the settle pause implementation.
func WithSleep(fn SleepFunc) Option {
	return func(r *Runner) { r.sleep = fn }
}

// NewRunner creates a runner. Progress lines are written to out.
func NewRunner(driver browser.Driver, plan Plan, out io.Writer, logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		driver: driver,
		plan:   plan,
		out:    out,
		logger: logger.Named("runner"),
		sleep:  Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) say(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Run opens a session and walks the plan.
//
// A timeout on a tier 1 check ends the run early with the error screenshot
// and OutcomeFailed. A timeout on a tier 2 check is reported and the run goes
// on to OutcomeDegraded. Any other failure, including an unreachable target,
// is returned as an error and no result is produced. The session is closed
// exactly once on every path. An incomplete plan is rejected before a
// session is opened.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid verification plan: %w", err)
	}
	res := &Result{
		RunID:     uuid.New().String(),
		Target:    r.plan.Target,
		Driver:    r.driver.Name(),
		StartedAt: time.Now(),
	}
	logger := r.logger.With(zap.String("run_id", res.RunID[:8]), zap.String("target", res.Target))
	logger.Info("Starting verification run.", zap.String("driver", res.Driver))

	session, err := r.driver.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(browser.Detach(ctx), closeTimeout)
		defer cancel()
		if err := session.Close(closeCtx); err != nil {
			logger.Warn("Failed to close browser session.", zap.Error(err))
		}
	}()
	page := session.Page()
	defer func() {
		res.Duration = time.Since(res.StartedAt)
		r.collectConsole(res, page)
	}()

	if err := r.navigate(ctx, page, res); err != nil {
		return nil, err
	}

	// Tier 1.
	r.say("Waiting for initial load...")
	if err := r.wait(ctx, page, res, "initial load", r.plan.Initial, Tier1); err != nil {
		if !browser.IsTimeout(err) {
			return nil, err
		}
		r.say("Error waiting for initial load: %v", err)
		return r.fail(ctx, page, res, err)
	}

	r.say("Waiting for genre rows content...")
	for _, sel := range r.plan.ExtraRows {
		if err := r.wait(ctx, page, res, "extra rows", sel, Tier1); err != nil {
			if !browser.IsTimeout(err) {
				return nil, err
			}
			r.say("Error finding extra rows: %v", err)
			return r.fail(ctx, page, res, err)
		}
	}
	r.say("Extra rows found!")

	if err := r.scroll(ctx, page, res); err != nil {
		return nil, err
	}

	// Tier 2.
	res.Outcome = OutcomePassed
	for i, sel := range r.plan.GenreRows {
		if err := r.wait(ctx, page, res, "genre rows", sel, Tier2); err != nil {
			if !browser.IsTimeout(err) {
				return nil, err
			}
			r.say("Error finding genre rows: %v", err)
			res.Outcome = OutcomeDegraded
			for _, rest := range r.plan.GenreRows[i+1:] {
				res.Steps = append(res.Steps, StepResult{Name: "genre rows", Selector: rest.String(), Tier: Tier2, Status: StepSkipped})
			}
			break
		}
	}
	if res.Outcome == OutcomePassed {
		r.say("Genre rows found!")
	}

	if err := r.settle(ctx, page, res, logger); err != nil {
		return nil, err
	}

	if err := r.capture(ctx, page, res, "screenshot", r.plan.SuccessPath, true); err != nil {
		return nil, err
	}
	r.say("Screenshot saved to %s", r.plan.SuccessPath)

	logger.Info("Verification run finished.", zap.String("outcome", string(res.Outcome)))
	return res, nil
}

func (r *Runner) navigate(ctx context.Context, page browser.Page, res *Result) error {
	start := time.Now()
	navCtx, cancel := withOptionalTimeout(ctx, r.plan.NavigationTimeout)
	defer cancel()

	err := page.Navigate(navCtx, r.plan.Target)
	step := StepResult{Name: "navigate", Status: StepOK, Duration: time.Since(start)}
	if err != nil {
		step.Status = statusOf(err)
		step.Error = err.Error()
	}
	res.Steps = append(res.Steps, step)
	return err
}

func (r *Runner) wait(ctx context.Context, page browser.Page, res *Result, name string, sel browser.Selector, tier Tier) error {
	start := time.Now()
	err := page.WaitFor(ctx, sel, r.plan.WaitTimeout)
	step := StepResult{Name: name, Selector: sel.String(), Tier: tier, Status: StepOK, Duration: time.Since(start)}
	if err != nil {
		step.Status = statusOf(err)
		step.Error = err.Error()
		if browser.IsTimeout(err) {
			res.Failures = append(res.Failures, &VerificationError{Tier: tier, Step: name, Err: err})
		}
	}
	res.Steps = append(res.Steps, step)
	r.logger.Debug("Wait finished.", zap.String("selector", step.Selector), zap.String("status", string(step.Status)), zap.Duration("took", step.Duration))
	return err
}

func (r *Runner) scroll(ctx context.Context, page browser.Page, res *Result) error {
	start := time.Now()
	scrollCtx, cancel := withOptionalTimeout(ctx, r.plan.WaitTimeout)
	defer cancel()

	err := page.ScrollIntoView(scrollCtx, r.plan.ScrollContainer)
	step := StepResult{Name: "scroll", Selector: r.plan.ScrollContainer.String(), Status: StepOK, Duration: time.Since(start)}
	if err != nil {
		step.Status = statusOf(err)
		step.Error = err.Error()
	}
	res.Steps = append(res.Steps, step)
	return err
}

// settle gives images time to finish. The optional network idle wait comes
// first and is best effort; the fixed pause always runs.
func (r *Runner) settle(ctx context.Context, page browser.Page, res *Result, logger *zap.Logger) error {
	if r.plan.WaitNetworkIdle {
		start := time.Now()
		idleCtx, cancel := withOptionalTimeout(ctx, r.plan.NetworkIdleTimeout)
		err := page.WaitNetworkIdle(idleCtx, r.plan.NetworkIdleQuiet)
		cancel()

		step := StepResult{Name: "network idle", Status: StepOK, Duration: time.Since(start)}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			step.Status = statusOf(err)
			step.Error = err.Error()
			logger.Warn("Network did not go idle, continuing.", zap.Error(err))
		}
		res.Steps = append(res.Steps, step)
	}

	start := time.Now()
	if err := r.sleep(ctx, r.plan.SettlePause); err != nil {
		return err
	}
	res.Steps = append(res.Steps, StepResult{Name: "settle", Status: StepOK, Duration: time.Since(start)})
	return nil
}

func (r *Runner) capture(ctx context.Context, page browser.Page, res *Result, name, path string, fullPage bool) error {
	start := time.Now()
	err := page.Screenshot(ctx, path, fullPage)
	step := StepResult{Name: name, Status: StepOK, Duration: time.Since(start)}
	if err != nil {
		step.Status = statusOf(err)
		step.Error = err.Error()
		res.Steps = append(res.Steps, step)
		return err
	}
	res.Steps = append(res.Steps, step)
	res.Screenshot = path
	return nil
}

// fail ends the run after a tier 1 miss.
func (r *Runner) fail(ctx context.Context, page browser.Page, res *Result, cause error) (*Result, error) {
	res.Outcome = OutcomeFailed
	r.logger.Warn("Tier 1 check failed.", zap.Error(cause))
	if err := r.capture(ctx, page, res, "error screenshot", r.plan.ErrorPath, false); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) collectConsole(res *Result, page browser.Page) {
	logs := page.ConsoleLogs()
	res.ConsoleLogs = len(logs)
	for _, l := range logs {
		if l.IsError() {
			res.ConsoleErrors = append(res.ConsoleErrors, l)
		}
	}
}

func statusOf(err error) StepStatus {
	if browser.IsTimeout(err) {
		return StepTimeout
	}
	return StepError
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
