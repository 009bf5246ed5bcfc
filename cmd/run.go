// cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/config"
	"github.com/xkilldash9x/homecheck/internal/observability"
	"github.com/xkilldash9x/homecheck/internal/preflight"
	"github.com/xkilldash9x/homecheck/internal/report"
	"github.com/xkilldash9x/homecheck/internal/service"
	"github.com/xkilldash9x/homecheck/internal/verify"
)

// Exit codes used by --strict.
const (
	exitStrictFailed   = 2
	exitStrictDegraded = 3
)

// Prober checks the target over plain HTTP before a browser is started.
type Prober interface {
	Probe(ctx context.Context, url string) (*preflight.Report, error)
}

// newRunCmd creates the run command. Nil arguments select the real
// component factory and an HTTP prober built from the loaded config.
func newRunCmd(factory service.ComponentFactory, prober Prober) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [url]",
		Short: "Load the home page in a headless browser and verify its rows",
		Long: `Loads the target page, waits for the initial movie cards and the extra rows,
scrolls the genre container into view, waits for the genre rows and saves a
full-page screenshot. A missing initial load or extra row saves an error
screenshot instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			if err := applyRunOverrides(cmd, cfg, args); err != nil {
				return err
			}

			f := factory
			if f == nil {
				f = service.NewComponentFactory()
			}
			p := prober
			if p == nil {
				p = preflight.NewProber(cfg.Preflight, nil, observability.GetLogger())
			}

			outcome, err := runRun(ctx, cmd.OutOrStdout(), observability.GetLogger(), cfg, f, p)
			if err != nil {
				return err
			}
			return strictExit(cfg.Verify.Strict, outcome)
		},
	}

	fs := cmd.Flags()
	fs.String("driver", config.DriverCDP, "browser driver to use (cdp or rod)")
	fs.Bool("headless", true, "run the browser without a window")
	fs.Duration("timeout", 0, "per-check wait timeout (default from config, 10s)")
	fs.Duration("settle", 0, "pause before the success screenshot (default from config, 2s)")
	fs.Bool("wait-network-idle", false, "wait for the network to go quiet before the settle pause")
	fs.String("out-dir", "", "directory for screenshots (default from config, ./verification)")
	fs.String("report", "", "write a JSON run report to this path (\"stdout\" for standard output)")
	fs.Bool("strict", false, "exit 2 when the run fails and 3 when it is degraded")
	fs.Bool("no-preflight", false, "skip the HTTP probe before launching the browser")

	annotateFlag(fs, "driver", "browser.driver")
	annotateFlag(fs, "headless", "browser.headless")
	annotateFlag(fs, "timeout", "verify.wait_timeout")
	annotateFlag(fs, "settle", "verify.settle_pause")
	annotateFlag(fs, "wait-network-idle", "verify.wait_network_idle")
	annotateFlag(fs, "out-dir", "verify.output_dir")
	annotateFlag(fs, "report", "verify.report_path")
	annotateFlag(fs, "strict", "verify.strict")
	return cmd
}

// applyRunOverrides applies what cannot be bound to a config key directly:
// the positional URL and the inverted preflight switch.
func applyRunOverrides(cmd *cobra.Command, cfg *config.Config, args []string) error {
	if noPreflight, _ := cmd.Flags().GetBool("no-preflight"); noPreflight {
		cfg.Preflight.Enabled = false
	}
	if len(args) == 0 {
		return nil
	}
	cfg.Verify.TargetURL = args[0]
	if err := cfg.Verify.Validate(); err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}
	return nil
}

// runRun probes the target, starts the browser driver and performs one
// verification run. Progress lines go to out.
func runRun(ctx context.Context, out io.Writer, logger *zap.Logger, cfg *config.Config, factory service.ComponentFactory, prober Prober) (verify.Outcome, error) {
	target := cfg.Verify.TargetURL

	if cfg.Preflight.Enabled {
		rep, err := prober.Probe(ctx, target)
		if err != nil {
			return "", fmt.Errorf("preflight check failed: %w", err)
		}
		logger.Info("Preflight check passed.",
			zap.Int("status", rep.StatusCode),
			zap.String("title", rep.Title),
			zap.Strings("missing_markers", rep.Missing),
		)
	}

	components, err := factory.Create(ctx, cfg, logger)
	if err != nil {
		return "", fmt.Errorf("failed to initialize browser components: %w", err)
	}
	defer components.Shutdown(ctx)

	runner := verify.NewRunner(components.Driver, verify.NewPlan(cfg.Verify), out, logger)
	res, err := runner.Run(ctx)
	if err != nil {
		return "", err
	}

	if len(res.ConsoleErrors) > 0 {
		logger.Warn("Page logged console errors.", zap.Int("count", len(res.ConsoleErrors)), zap.String("first", res.ConsoleErrors[0].Text))
	}

	if path := cfg.Verify.ReportPath; path != "" {
		if err := report.Write(path, res); err != nil {
			return res.Outcome, err
		}
		logger.Info("Run report written.", zap.String("path", path))
	}
	return res.Outcome, nil
}

func strictExit(strict bool, outcome verify.Outcome) error {
	if !strict {
		return nil
	}
	switch outcome {
	case verify.OutcomeFailed:
		return &ExitError{Code: exitStrictFailed}
	case verify.OutcomeDegraded:
		return &ExitError{Code: exitStrictDegraded}
	}
	return nil
}
