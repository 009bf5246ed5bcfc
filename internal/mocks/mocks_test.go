// internal/mocks/mocks_test.go
package mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/homecheck/internal/browser"
	"github.com/xkilldash9x/homecheck/internal/preflight"
	"github.com/xkilldash9x/homecheck/internal/service"
)

var (
	_ browser.Driver           = (*MockDriver)(nil)
	_ browser.Session          = (*MockSession)(nil)
	_ browser.Page             = (*MockPage)(nil)
	_ service.ComponentFactory = (*MockComponentFactory)(nil)
)

func TestMockDriverNilSession(t *testing.T) {
	d := new(MockDriver)
	boom := errors.New("launch failed")
	d.On("NewSession", mock.Anything).Return(nil, boom)

	s, err := d.NewSession(context.Background())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, boom)
	d.AssertExpectations(t)
}

func TestMockSessionPage(t *testing.T) {
	s := NewMockSession()
	s.MockPage.On("WaitFor", mock.Anything, browser.CSS("#x"), time.Second).Return(nil)
	s.MockPage.On("ConsoleLogs").Return(nil)

	assert.NoError(t, s.Page().WaitFor(context.Background(), browser.CSS("#x"), time.Second))
	assert.Nil(t, s.Page().ConsoleLogs())
	s.MockPage.AssertExpectations(t)
}

func TestMockProber(t *testing.T) {
	p := new(MockProber)
	p.On("Probe", mock.Anything, "http://x").Return(&preflight.Report{StatusCode: 200}, nil)

	r, err := p.Probe(context.Background(), "http://x")
	assert.NoError(t, err)
	assert.Equal(t, 200, r.StatusCode)
}
