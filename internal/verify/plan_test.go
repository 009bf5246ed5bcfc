// internal/verify/plan_test.go
package verify

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/homecheck/internal/browser"
	"github.com/xkilldash9x/homecheck/internal/config"
)

func TestNewPlanDefaults(t *testing.T) {
	got := NewPlan(config.NewDefaultConfig().Verify)

	want := Plan{
		Target:  "http://localhost:8080/index.html",
		Initial: browser.CSS("#movies-list .card"),
		ExtraRows: []browser.Selector{
			browser.Text("h2", "Popular This Week"),
			browser.Text("h2", "Top Rated All Time"),
			browser.Text("h2", "New Releases"),
		},
		ScrollContainer:    browser.CSS("#genre-rows"),
		GenreRows:          []browser.Selector{browser.Text("h2", "Action & Adventure")},
		NavigationTimeout:  30 * time.Second,
		WaitTimeout:        10 * time.Second,
		SettlePause:        2 * time.Second,
		NetworkIdleQuiet:   500 * time.Millisecond,
		NetworkIdleTimeout: 10 * time.Second,
		SuccessPath:        filepath.Join("verification", "home.png"),
		ErrorPath:          filepath.Join("verification", "error.png"),
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewPlan() mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Plan)
		wantErr string
	}{
		{name: "default plan", mutate: func(*Plan) {}},
		{name: "no target", mutate: func(p *Plan) { p.Target = "" }, wantErr: "no target"},
		{name: "no initial selector", mutate: func(p *Plan) { p.Initial = browser.CSS("") }, wantErr: "no initial load selector"},
		{name: "no extra rows", mutate: func(p *Plan) { p.ExtraRows = nil }, wantErr: "no extra row headings"},
		{name: "no scroll container", mutate: func(p *Plan) { p.ScrollContainer = browser.Selector{} }, wantErr: "no scroll container"},
		{name: "no genre rows", mutate: func(p *Plan) { p.GenreRows = nil }, wantErr: "no genre row headings"},
		{name: "no settle pause", mutate: func(p *Plan) { p.SettlePause = 0 }, wantErr: "no settle pause"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlan(config.NewDefaultConfig().Verify)
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
