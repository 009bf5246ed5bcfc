// internal/browser/rod/driver_test.go
package rod

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/homecheck/internal/browser"
	"github.com/xkilldash9x/homecheck/internal/browser/browsertest"
	"github.com/xkilldash9x/homecheck/internal/config"
)

func TestLaunchFlags(t *testing.T) {
	cfg := config.BrowserConfig{
		Headless:        true,
		IgnoreTLSErrors: true,
		Viewport:        config.ViewportConfig{Width: 1280, Height: 720},
		Args:            []string{"--lang=en-US", "--mute-audio", "--disable-features=A,B"},
	}
	flags := launchFlags(cfg, "linux")

	assert.Contains(t, flags, "ignore-certificate-errors")
	assert.Contains(t, flags, "disable-gpu")
	assert.Contains(t, flags, "no-sandbox")
	assert.Equal(t, []string{"1280,720"}, flags["window-size"])
	assert.Equal(t, []string{"en-US"}, flags["lang"])
	assert.Nil(t, flags["mute-audio"])
	assert.Equal(t, []string{"A", "B"}, flags["disable-features"])

	headed := launchFlags(config.BrowserConfig{}, "darwin")
	assert.NotContains(t, headed, "disable-gpu")
	assert.NotContains(t, headed, "no-sandbox")
	assert.NotContains(t, headed, "window-size")
}

func TestTextPattern(t *testing.T) {
	p := textPattern(" Action & Adventure ")
	assert.Equal(t, `/Action\s+&\s+Adventure/i`, p)

	re := regexp.MustCompile("(?i)" + strings.TrimSuffix(strings.TrimPrefix(p, "/"), "/i"))
	assert.True(t, re.MatchString("Action & Adventure"))
	assert.True(t, re.MatchString("ACTION &\n  adventure"))
	assert.False(t, re.MatchString("Action Adventure"))

	assert.Equal(t, `/Rated\s+\(All\s+Time\)/i`, textPattern("Rated (All Time)"))
}

func TestSessionConsoleEvents(t *testing.T) {
	s := &Session{}

	s.onConsole(&proto.RuntimeConsoleAPICalled{
		Type:      proto.RuntimeConsoleAPICalledTypeError,
		Args:      []*proto.RuntimeRemoteObject{{Value: gson.New("failed to fetch")}, {Description: "Error: 404"}},
		Timestamp: 1700000000000,
	})
	s.onException(&proto.RuntimeExceptionThrown{ExceptionDetails: &proto.RuntimeExceptionDetails{
		Text:      "Uncaught",
		Exception: &proto.RuntimeRemoteObject{Description: "TypeError: boom"},
	}})
	s.onException(&proto.RuntimeExceptionThrown{})

	logs := s.ConsoleLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, "error", logs[0].Type)
	assert.Equal(t, "failed to fetch Error: 404", logs[0].Text)
	assert.Equal(t, time.UnixMilli(1700000000000), logs[0].Timestamp)
	assert.Equal(t, "exception", logs[1].Type)
	assert.Equal(t, "TypeError: boom", logs[1].Text)
	assert.True(t, logs[1].Timestamp.IsZero())
}

func TestDriverAgainstFixture(t *testing.T) {
	execPath := browsertest.RequireBrowser(t)

	cfg := config.NewDefaultConfig().Browser
	cfg.Driver = config.DriverRod
	cfg.ExecPath = execPath

	d, err := NewDriver(context.Background(), zaptest.NewLogger(t), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})

	site := browsertest.DefaultSite()
	site.ConsoleErrors = []string{"genre fetch failed"}
	_, url := browsertest.NewServer(t, site)

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	s, err := d.NewSession(ctx)
	require.NoError(t, err)
	defer s.Close(context.Background())
	page := s.Page()

	require.NoError(t, page.Navigate(ctx, url))
	require.NoError(t, page.WaitFor(ctx, browser.CSS("#movies-list .card"), 10*time.Second))
	for _, h := range site.ExtraHeadings {
		require.NoError(t, page.WaitFor(ctx, browser.Text("h2", h), 10*time.Second))
	}

	err = page.WaitFor(ctx, browser.Text("h2", "Action & Adventure"), 300*time.Millisecond)
	assert.True(t, browser.IsTimeout(err), "genre rows should wait for the scroll")

	require.NoError(t, page.ScrollIntoView(ctx, browser.CSS("#genre-rows")))
	require.NoError(t, page.WaitFor(ctx, browser.Text("h2", "Action & Adventure"), 10*time.Second))
	require.NoError(t, page.WaitFor(ctx, browser.Text("h2", "action  &  ADVENTURE"), time.Second), "text match ignores case and spacing")

	path := filepath.Join(t.TempDir(), "home.png")
	require.NoError(t, page.Screenshot(ctx, path, true))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
	assert.ErrorIs(t, page.Navigate(ctx, url), browser.ErrSessionClosed)
}
