// Package browsertest provides fixture pages and browser lookup for
// integration tests of the browser drivers and the verification runner.
package browsertest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"

	jsoniter "github.com/json-iterator/go"
)

// ExecPathEnv overrides browser discovery in tests.
const ExecPathEnv = "HOMECHECK_BROWSER_EXEC_PATH"

var candidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"chrome",
}

// RequireBrowser returns a Chrome or Chromium binary, skipping the test under
// -short or when none is installed.
func RequireBrowser(t testing.TB) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}
	if p := os.Getenv(ExecPathEnv); p != "" {
		return p
	}
	for _, name := range candidates {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome or Chromium binary found")
	return ""
}

// Site describes the fixture home page.
type Site struct {
	Cards         int
	ExtraHeadings []string
	GenreHeadings []string
	// ConsoleErrors are logged with console.error once the page loads.
	ConsoleErrors []string
}

// DefaultSite mirrors a healthy home page.
func DefaultSite() Site {
	return Site{
		Cards:         4,
		ExtraHeadings: []string{"Popular This Week", "Top Rated All Time", "New Releases"},
		GenreHeadings: []string{"Action & Adventure", "Comedy"},
	}
}

// NewServer serves site at /index.html and returns the page URL.
func NewServer(t testing.TB, site Site) (*httptest.Server, string) {
	t.Helper()
	page := Render(site)

	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, page)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, srv.URL + "/index.html"
}

// Render builds the fixture HTML. Cards and extra rows appear shortly after
// load; genre rows appear only once #genre-rows scrolls into view.
func Render(site Site) string {
	extra, _ := jsoniter.MarshalToString(site.ExtraHeadings)
	genres, _ := jsoniter.MarshalToString(site.GenreHeadings)
	errs, _ := jsoniter.MarshalToString(site.ConsoleErrors)

	return fmt.Sprintf(`<!doctype html>
<html>
<head><title>LoopFlix</title>
<style>.card{width:120px;height:180px;display:inline-block;background:#333;margin:4px}.spacer{height:2400px}</style>
</head>
<body>
<div id="movies-list"></div>
<div id="extra-rows"></div>
<div class="spacer"></div>
<div id="genre-rows" style="min-height:40px"></div>
<script>
const CARDS = %d, EXTRA = %s, GENRES = %s, ERRORS = %s;
function heading(parent, text) {
  const h = document.createElement('h2');
  h.textContent = text;
  parent.appendChild(h);
}
setTimeout(() => {
  const list = document.getElementById('movies-list');
  for (let i = 0; i < CARDS; i++) {
    const c = document.createElement('div');
    c.className = 'card';
    c.textContent = 'Movie ' + i;
    list.appendChild(c);
  }
  const rows = document.getElementById('extra-rows');
  (EXTRA || []).forEach(t => heading(rows, t));
  (ERRORS || []).forEach(e => console.error(e));
}, 50);
const genreRows = document.getElementById('genre-rows');
const observer = new IntersectionObserver(entries => {
  if (!entries.some(e => e.isIntersecting)) return;
  observer.disconnect();
  (GENRES || []).forEach(t => heading(genreRows, t));
});
observer.observe(genreRows);
</script>
</body>
</html>`, site.Cards, extra, genres, errs)
}
