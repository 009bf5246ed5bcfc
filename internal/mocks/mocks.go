// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/browser"
	"github.com/xkilldash9x/homecheck/internal/config"
	"github.com/xkilldash9x/homecheck/internal/preflight"
	"github.com/xkilldash9x/homecheck/internal/service"
)

// -- Browser Driver Mock --

// MockDriver mocks browser.Driver.
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) Name() string { return m.Called().String(0) }

func (m *MockDriver) NewSession(ctx context.Context) (browser.Session, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(browser.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDriver) Shutdown(ctx context.Context) error { return m.Called(ctx).Error(0) }

// -- Session Mock --

// MockSession mocks browser.Session. Page always returns the embedded MockPage.
type MockSession struct {
	mock.Mock
	MockPage *MockPage
}

// NewMockSession returns a session backed by a fresh MockPage.
func NewMockSession() *MockSession {
	return &MockSession{MockPage: new(MockPage)}
}

func (m *MockSession) ID() string { return m.Called().String(0) }

func (m *MockSession) Page() browser.Page { return m.MockPage }

func (m *MockSession) Close(ctx context.Context) error { return m.Called(ctx).Error(0) }

// -- Page Mock --

// MockPage mocks browser.Page.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) WaitFor(ctx context.Context, sel browser.Selector, timeout time.Duration) error {
	return m.Called(ctx, sel, timeout).Error(0)
}

func (m *MockPage) ScrollIntoView(ctx context.Context, sel browser.Selector) error {
	return m.Called(ctx, sel).Error(0)
}

func (m *MockPage) WaitNetworkIdle(ctx context.Context, quiet time.Duration) error {
	return m.Called(ctx, quiet).Error(0)
}

func (m *MockPage) Screenshot(ctx context.Context, path string, fullPage bool) error {
	return m.Called(ctx, path, fullPage).Error(0)
}

func (m *MockPage) ConsoleLogs() []browser.ConsoleLog {
	args := m.Called()
	if logs := args.Get(0); logs != nil {
		return logs.([]browser.ConsoleLog)
	}
	return nil
}

// -- Component Factory Mock --

// MockComponentFactory mocks service.ComponentFactory.
type MockComponentFactory struct {
	mock.Mock
}

func (m *MockComponentFactory) Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service.Components, error) {
	args := m.Called(ctx, cfg, logger)
	if c := args.Get(0); c != nil {
		return c.(*service.Components), args.Error(1)
	}
	return nil, args.Error(1)
}

// -- Prober Mock --

// MockProber mocks the preflight check used by the run and probe commands.
type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, url string) (*preflight.Report, error) {
	args := m.Called(ctx, url)
	if r := args.Get(0); r != nil {
		return r.(*preflight.Report), args.Error(1)
	}
	return nil, args.Error(1)
}
