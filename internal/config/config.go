// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Supported browser drivers.
const (
	DriverCDP = "cdp"
	DriverRod = "rod"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Verify    VerifyConfig    `mapstructure:"verify" yaml:"verify"`
	Preflight PreflightConfig `mapstructure:"preflight" yaml:"preflight"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Driver          string         `mapstructure:"driver" yaml:"driver"`
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Debug           bool           `mapstructure:"debug" yaml:"debug"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	LaunchTimeout   time.Duration  `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// ViewportConfig is the window size used for the page.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// VerifyConfig describes what the runner checks on the target page and where
// it writes its screenshots.
type VerifyConfig struct {
	TargetURL          string        `mapstructure:"target_url" yaml:"target_url"`
	InitialSelector    string        `mapstructure:"initial_selector" yaml:"initial_selector"`
	HeadingTag         string        `mapstructure:"heading_tag" yaml:"heading_tag"`
	ExtraRowHeadings   []string      `mapstructure:"extra_row_headings" yaml:"extra_row_headings"`
	ScrollContainer    string        `mapstructure:"scroll_container" yaml:"scroll_container"`
	GenreHeadings      []string      `mapstructure:"genre_headings" yaml:"genre_headings"`
	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	WaitTimeout        time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	SettlePause        time.Duration `mapstructure:"settle_pause" yaml:"settle_pause"`
	WaitNetworkIdle    bool          `mapstructure:"wait_network_idle" yaml:"wait_network_idle"`
	NetworkIdleQuiet   time.Duration `mapstructure:"network_idle_quiet" yaml:"network_idle_quiet"`
	NetworkIdleTimeout time.Duration `mapstructure:"network_idle_timeout" yaml:"network_idle_timeout"`
	OutputDir          string        `mapstructure:"output_dir" yaml:"output_dir"`
	SuccessScreenshot  string        `mapstructure:"success_screenshot" yaml:"success_screenshot"`
	ErrorScreenshot    string        `mapstructure:"error_screenshot" yaml:"error_screenshot"`
	ReportPath         string        `mapstructure:"report_path" yaml:"report_path"`
	Strict             bool          `mapstructure:"strict" yaml:"strict"`
}

// SuccessPath is where the full-page screenshot of a passing run goes.
func (v VerifyConfig) SuccessPath() string {
	return filepath.Join(v.OutputDir, v.SuccessScreenshot)
}

// ErrorPath is where the diagnostic screenshot of a failed run goes.
func (v VerifyConfig) ErrorPath() string {
	return filepath.Join(v.OutputDir, v.ErrorScreenshot)
}

// PreflightConfig controls the plain HTTP probe that runs before the browser starts.
type PreflightConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Markers         []string      `mapstructure:"markers" yaml:"markers"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "homecheck")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", DriverCDP)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 720)
	v.SetDefault("browser.launch_timeout", "30s")

	// -- Verify --
	v.SetDefault("verify.target_url", "http://localhost:8080/index.html")
	v.SetDefault("verify.initial_selector", "#movies-list .card")
	v.SetDefault("verify.heading_tag", "h2")
	v.SetDefault("verify.extra_row_headings", []string{"Popular This Week", "Top Rated All Time", "New Releases"})
	v.SetDefault("verify.scroll_container", "#genre-rows")
	v.SetDefault("verify.genre_headings", []string{"Action & Adventure"})
	v.SetDefault("verify.navigation_timeout", "30s")
	v.SetDefault("verify.wait_timeout", "10s")
	v.SetDefault("verify.settle_pause", "2s")
	v.SetDefault("verify.wait_network_idle", false)
	v.SetDefault("verify.network_idle_quiet", "500ms")
	v.SetDefault("verify.network_idle_timeout", "10s")
	v.SetDefault("verify.output_dir", "verification")
	v.SetDefault("verify.success_screenshot", "home.png")
	v.SetDefault("verify.error_screenshot", "error.png")
	v.SetDefault("verify.report_path", "")
	v.SetDefault("verify.strict", false)

	// -- Preflight --
	v.SetDefault("preflight.enabled", true)
	v.SetDefault("preflight.timeout", "5s")
	v.SetDefault("preflight.markers", []string{"#movies-list", "#genre-rows"})
	v.SetDefault("preflight.ignore_tls_errors", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every file system path setting.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Logger.LogFile, &c.Browser.ExecPath, &c.Verify.OutputDir, &c.Verify.ReportPath} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("could not resolve path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.Verify.Validate(); err != nil {
		return fmt.Errorf("verify configuration invalid: %w", err)
	}
	if c.Preflight.Enabled && c.Preflight.Timeout <= 0 {
		return fmt.Errorf("preflight.timeout must be a positive duration")
	}
	return nil
}

// Validate checks the BrowserConfig settings.
func (b *BrowserConfig) Validate() error {
	b.Driver = strings.ToLower(strings.TrimSpace(b.Driver))
	switch b.Driver {
	case DriverCDP, DriverRod:
	default:
		return fmt.Errorf("driver must be one of %q or %q, got %q", DriverCDP, DriverRod, b.Driver)
	}
	if b.Viewport.Width <= 0 || b.Viewport.Height <= 0 {
		return fmt.Errorf("viewport width and height must be positive")
	}
	if b.LaunchTimeout <= 0 {
		return fmt.Errorf("launch_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the VerifyConfig settings.
func (v *VerifyConfig) Validate() error {
	u, err := url.Parse(v.TargetURL)
	if err != nil {
		return fmt.Errorf("target_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target_url must use http or https, got %q", v.TargetURL)
	}
	if strings.TrimSpace(v.InitialSelector) == "" {
		return fmt.Errorf("initial_selector is required")
	}
	if strings.TrimSpace(v.HeadingTag) == "" {
		return fmt.Errorf("heading_tag is required")
	}
	if len(v.ExtraRowHeadings) == 0 {
		return fmt.Errorf("extra_row_headings must list at least one heading")
	}
	if len(v.GenreHeadings) == 0 {
		return fmt.Errorf("genre_headings must list at least one heading")
	}
	if strings.TrimSpace(v.ScrollContainer) == "" {
		return fmt.Errorf("scroll_container is required")
	}
	if v.NavigationTimeout <= 0 || v.WaitTimeout <= 0 {
		return fmt.Errorf("navigation_timeout and wait_timeout must be positive durations")
	}
	if v.SettlePause <= 0 {
		return fmt.Errorf("settle_pause must be a positive duration")
	}
	if v.WaitNetworkIdle && (v.NetworkIdleQuiet <= 0 || v.NetworkIdleTimeout <= 0) {
		return fmt.Errorf("network_idle_quiet and network_idle_timeout must be positive when wait_network_idle is set")
	}
	if v.SuccessScreenshot == "" || v.ErrorScreenshot == "" {
		return fmt.Errorf("success_screenshot and error_screenshot are required")
	}
	if v.SuccessPath() == v.ErrorPath() {
		return fmt.Errorf("success and error screenshots must not share a path")
	}
	return nil
}
