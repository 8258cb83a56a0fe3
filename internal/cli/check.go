package cli

import (
	"github.com/spf13/cobra"

	"mailstack/internal/engine"
	"mailstack/internal/errs"
	"mailstack/internal/fetcher"
	"mailstack/internal/flags"
	"mailstack/internal/host"
	"mailstack/internal/scorer"
)

func (a *app) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Audit host readiness",
		Long: `Audit whether this host can run the mail stack.

Every check runs against live host state and is classified PASS, WARN or FAIL.
The host is ready when nothing FAILs; warnings only produce suggestions. When
the host is not ready and the failures have a known fix, a single remediation
command is printed. It is never executed.

Examples:
  mailstack check
  mailstack check --checks memory,disk,port-*
  mailstack check --no-console --out report.json --metrics-file /var/lib/node_exporter/mailstack.prom

Exit codes:
  0 = host meets requirements
  1 = at least one check failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h := a.host()
			if err := requireRoot(cmd, h); err != nil {
				return err
			}
			_, v, err := a.engine(h).Run(cmd.Context(), a.cfg, a.stdout)
			if err != nil {
				return err
			}
			return exitFor(v)
		},
	}
	cmd.Flags().StringVar(&a.cfg.Probe.Checks, flags.FlagChecks, a.cfg.Probe.Checks, "Check selector: comma-separated ids or globs (empty = all checks)")
	a.addOutputFlags(cmd)
	a.addRuntimeFlags(cmd)
	return cmd
}

func (a *app) fetcher(h host.Host) *fetcher.Fetcher {
	return fetcher.NewFetcher(h, fetcher.WithInstallDir(a.cfg.Stack.InstallDir), fetcher.WithLogger(a.logger))
}

func (a *app) engine(h host.Host) *engine.Engine {
	eng := engine.NewEngine(a.fetcher(h), a.cfg, a.logger)
	eng.Color = a.colorize()
	return eng
}

// exitFor turns a verdict into the command result. The report is already
// printed, so a failing verdict exits silently.
func exitFor(v scorer.Verdict) error {
	if v.OK {
		return nil
	}
	return errs.ExitStatus(engine.ExitCodeFor(v))
}
