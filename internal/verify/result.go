// internal/verify/result.go
package verify

import (
	"fmt"
	"time"

	"github.com/xkilldash9x/homecheck/internal/browser"
)

// Outcome summarizes a completed run.
type Outcome string

const (
	// OutcomePassed means every check was satisfied.
	OutcomePassed Outcome = "passed"
	// OutcomeDegraded means a tier 2 check missed; the success screenshot was still taken.
	OutcomeDegraded Outcome = "degraded"
	// OutcomeFailed means a tier 1 check missed; only the error screenshot was taken.
	OutcomeFailed Outcome = "failed"
)

// Tier orders checks by how much a miss matters.
type Tier int

const (
	TierNone Tier = iota
	Tier1
	Tier2
)

// StepStatus is the result of a single step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepTimeout StepStatus = "timeout"
	StepSkipped StepStatus = "skipped"
	StepError   StepStatus = "error"
)

// StepResult records one step of a run.
type StepResult struct {
	Name     string        `json:"name"`
	Selector string        `json:"selector,omitempty"`
	Tier     Tier          `json:"tier,omitempty"`
	Status   StepStatus    `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is what a run returns when it reaches one of its planned ends.
type Result struct {
	RunID         string               `json:"run_id"`
	Target        string               `json:"target"`
	Driver        string               `json:"driver"`
	Outcome       Outcome              `json:"outcome"`
	Steps         []StepResult         `json:"steps"`
	Screenshot    string               `json:"screenshot"`
	StartedAt     time.Time            `json:"started_at"`
	Duration      time.Duration        `json:"duration"`
	ConsoleLogs   int                  `json:"console_logs"`
	ConsoleErrors []browser.ConsoleLog `json:"console_errors,omitempty"`

	// Failures holds the tier 1 or tier 2 misses in the order they happened.
	Failures []*VerificationError `json:"-"`
}

// VerificationError is a check that timed out.
type VerificationError struct {
	Tier Tier
	Step string
	Err  error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("tier %d check %q failed: %v", e.Tier, e.Step, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }
