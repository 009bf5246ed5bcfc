// cmd/run_test.go
package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/browser"
	"github.com/xkilldash9x/homecheck/internal/config"
	"github.com/xkilldash9x/homecheck/internal/mocks"
	"github.com/xkilldash9x/homecheck/internal/preflight"
	"github.com/xkilldash9x/homecheck/internal/service"
)

const defaultTarget = "http://localhost:8080/index.html"

// runDoubles is a browser stack built from mocks whose page satisfies every check.
type runDoubles struct {
	factory *mocks.MockComponentFactory
	prober  *mocks.MockProber
	driver  *mocks.MockDriver
	session *mocks.MockSession
	page    *mocks.MockPage
}

func newRunDoubles() *runDoubles {
	d := &runDoubles{
		factory: new(mocks.MockComponentFactory),
		prober:  new(mocks.MockProber),
		driver:  new(mocks.MockDriver),
		session: mocks.NewMockSession(),
	}
	d.page = d.session.MockPage

	d.driver.On("Name").Return("mock")
	d.driver.On("NewSession", mock.Anything).Return(d.session, nil)
	d.driver.On("Shutdown", mock.Anything).Return(nil)
	d.session.On("Close", mock.Anything).Return(nil)
	d.page.On("ConsoleLogs").Return(nil).Maybe()
	return d
}

// healthyPage registers permissive expectations after any specific ones.
func (d *runDoubles) healthyPage() {
	d.expectCreate(nil)
	d.page.On("Navigate", mock.Anything, mock.Anything).Return(nil)
	d.page.On("WaitFor", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.page.On("ScrollIntoView", mock.Anything, mock.Anything).Return(nil)
	d.page.On("WaitNetworkIdle", mock.Anything, mock.Anything).Return(nil).Maybe()
	d.page.On("Screenshot", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (d *runDoubles) expectCreate(err error) {
	if err != nil {
		d.factory.On("Create", mock.Anything, mock.AnythingOfType("*config.Config"), mock.Anything).Return(nil, err).Once()
		return
	}
	components := service.NewComponents(d.driver, zap.NewNop())
	d.factory.On("Create", mock.Anything, mock.AnythingOfType("*config.Config"), mock.Anything).Return(components, nil).Once()
}

// createdWith returns the config the factory was called with.
func (d *runDoubles) createdWith(t *testing.T) *config.Config {
	t.Helper()
	require.NotEmpty(t, d.factory.Calls)
	return d.factory.Calls[0].Arguments.Get(1).(*config.Config)
}

func (d *runDoubles) expectProbe(url string, err error) {
	rep := &preflight.Report{URL: url, StatusCode: 200, Title: "LoopFlix", Found: []string{"#movies-list", "#genre-rows"}}
	if err != nil {
		rep = nil
	}
	d.prober.On("Probe", mock.Anything, url).Return(rep, err).Once()
}

func (d *runDoubles) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeCommand(t, newTestRoot(d.factory, d.prober), append([]string{"run", "--settle", "1ms"}, args...)...)
	return out, err
}

func TestRunCommand(t *testing.T) {
	t.Run("healthy page", func(t *testing.T) {
		resetForTest(t)
		d := newRunDoubles()
		d.expectProbe(defaultTarget, nil)
		d.healthyPage()
		outDir := t.TempDir()

		out, err := d.execute(t, "--out-dir", outDir)
		require.NoError(t, err)

		assert.Contains(t, out, "Waiting for initial load...")
		assert.Contains(t, out, "Extra rows found!")
		assert.Contains(t, out, "Genre rows found!")
		assert.Contains(t, out, "Screenshot saved to "+filepath.Join(outDir, "home.png"))

		d.page.AssertCalled(t, "Navigate", mock.Anything, defaultTarget)
		d.page.AssertCalled(t, "Screenshot", mock.Anything, filepath.Join(outDir, "home.png"), true)
		d.session.AssertNumberOfCalls(t, "Close", 1)
		d.driver.AssertCalled(t, "Shutdown", mock.Anything)
		d.prober.AssertExpectations(t)
	})

	t.Run("positional url and flag overrides", func(t *testing.T) {
		resetForTest(t)
		d := newRunDoubles()
		target := "http://staging.local:3000/"
		d.expectProbe(target, nil)
		d.healthyPage()

		_, err := d.execute(t, target, "--timeout", "3s", "--driver", "rod", "--wait-network-idle", "--out-dir", t.TempDir())
		require.NoError(t, err)

		d.page.AssertCalled(t, "Navigate", mock.Anything, target)
		d.page.AssertCalled(t, "WaitFor", mock.Anything, browser.CSS("#movies-list .card"), 3*time.Second)
		d.page.AssertCalled(t, "WaitNetworkIdle", mock.Anything, 500*time.Millisecond)
		assert.Equal(t, "rod", d.createdWith(t).Browser.Driver)
	})

	t.Run("invalid positional url", func(t *testing.T) {
		resetForTest(t)
		d := newRunDoubles()

		_, err := d.execute(t, "file:///etc/passwd")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid target")
		d.prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
	})

	t.Run("settle pause cannot be disabled", func(t *testing.T) {
		resetForTest(t)
		d := newRunDoubles()

		_, err := d.execute(t, "--settle", "0s")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "settle_pause must be a positive duration")
		d.factory.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unreachable target stops before the browser", func(t *testing.T) {
		resetForTest(t)
		d := newRunDoubles()
		d.expectProbe(defaultTarget, preflight.ErrUnreachable)

		_, err := d.execute(t)
		require.Error(t, err)
		assert.ErrorIs(t, err, preflight.ErrUnreachable)
		assert.Equal(t, 1, ExitCode(err))
		d.factory.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no preflight", func(t *testing.T) {
		resetForTest(t)
		d := newRunDoubles()
		d.healthyPage()

		_, err := d.execute(t, "--no-preflight", "--out-dir", t.TempDir())
		require.NoError(t, err)
		d.prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
	})

	t.Run("navigation error exits 1 without screenshots", func(t *testing.T) {
		resetForTest(t)
		d := newRunDoubles()
		d.expectProbe(defaultTarget, nil)
		d.expectCreate(nil)
		d.page.On("Navigate", mock.Anything, defaultTarget).Return(browser.NavigationError(defaultTarget, errors.New("net::ERR_CONNECTION_REFUSED")))

		_, err := d.execute(t)
		require.Error(t, err)
		assert.ErrorIs(t, err, browser.ErrNavigation)
		assert.Equal(t, 1, ExitCode(err))
		d.page.AssertNotCalled(t, "Screenshot", mock.Anything, mock.Anything, mock.Anything)
		d.session.AssertNumberOfCalls(t, "Close", 1)
		d.driver.AssertCalled(t, "Shutdown", mock.Anything)
	})

	t.Run("factory error", func(t *testing.T) {
		resetForTest(t)
		d := newRunDoubles()
		d.expectProbe(defaultTarget, nil)
		d.expectCreate(browser.ErrLaunch)

		_, err := d.execute(t)
		require.Error(t, err)
		assert.ErrorIs(t, err, browser.ErrLaunch)
		assert.Contains(t, err.Error(), "failed to initialize browser components")
	})
}

func TestRunCommandOutcomes(t *testing.T) {
	waitTimeout := func(sel browser.Selector) error {
		return &browser.WaitError{Selector: sel, Timeout: 10 * time.Second, Err: browser.ClassifyError(context.DeadlineExceeded)}
	}
	missingExtra := browser.Text("h2", "New Releases")
	missingGenre := browser.Text("h2", "Action & Adventure")

	tests := []struct {
		name     string
		missing  browser.Selector
		strict   bool
		wantCode int
		wantShot string
	}{
		{"failed without strict", missingExtra, false, 0, "error.png"},
		{"failed with strict", missingExtra, true, exitStrictFailed, "error.png"},
		{"degraded without strict", missingGenre, false, 0, "home.png"},
		{"degraded with strict", missingGenre, true, exitStrictDegraded, "home.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetForTest(t)
			d := newRunDoubles()
			d.expectProbe(defaultTarget, nil)
			d.page.On("WaitFor", mock.Anything, tt.missing, mock.Anything).Return(waitTimeout(tt.missing))
			d.healthyPage()
			outDir := t.TempDir()

			args := []string{"--out-dir", outDir}
			if tt.strict {
				args = append(args, "--strict")
			}
			_, err := d.execute(t, args...)
			assert.Equal(t, tt.wantCode, ExitCode(err))

			d.page.AssertCalled(t, "Screenshot", mock.Anything, filepath.Join(outDir, tt.wantShot), tt.wantShot == "home.png")
		})
	}
}

func TestRunCommandReport(t *testing.T) {
	resetForTest(t)
	d := newRunDoubles()
	d.expectProbe(defaultTarget, nil)
	d.healthyPage()
	reportPath := filepath.Join(t.TempDir(), "reports", "run.json")

	_, err := d.execute(t, "--out-dir", t.TempDir(), "--report", reportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcome": "passed"`)
	assert.Contains(t, string(data), `"driver": "mock"`)
}
