// cmd/probe.go
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/homecheck/internal/observability"
	"github.com/xkilldash9x/homecheck/internal/preflight"
)

func newProbeCmd(prober Prober) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [url]",
		Short: "Check that the target answers over HTTP and serves the expected markup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			target := cfg.Verify.TargetURL
			if len(args) == 1 {
				target = args[0]
			}

			p := prober
			if p == nil {
				p = preflight.NewProber(cfg.Preflight, nil, observability.GetLogger())
			}

			rep, err := p.Probe(cmd.Context(), target)
			if rep != nil {
				printProbeReport(cmd.OutOrStdout(), rep)
			}
			return err
		},
	}
}

func printProbeReport(w io.Writer, rep *preflight.Report) {
	fmt.Fprintf(w, "URL:     %s\n", rep.URL)
	fmt.Fprintf(w, "Status:  %d\n", rep.StatusCode)
	if rep.Title != "" {
		fmt.Fprintf(w, "Title:   %s\n", rep.Title)
	}
	if len(rep.Found) > 0 {
		fmt.Fprintf(w, "Found:   %s\n", strings.Join(rep.Found, ", "))
	}
	if len(rep.Missing) > 0 {
		fmt.Fprintf(w, "Missing: %s\n", strings.Join(rep.Missing, ", "))
	}
	fmt.Fprintf(w, "Took:    %s\n", rep.Duration)
}
