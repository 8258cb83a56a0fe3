package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mailstack/internal/config"
	"mailstack/internal/engine"
	"mailstack/internal/errs"
	"mailstack/internal/flags"
	"mailstack/internal/host"
	"mailstack/internal/install"
	"mailstack/internal/journal"
	"mailstack/internal/probe"
	"mailstack/internal/provision"
	"mailstack/internal/verify"
)

func (a *app) newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install, start and verify the mail stack",
		Long: `Install the mail stack and verify it is serving.

The current installation state is detected first from live host queries:

  ABSENT            install from scratch
  PARTIAL           DESTRUCTIVE: stop, purge and remove, then install
  COMPLETE_STOPPED  DESTRUCTIVE: stop, purge and remove, then install
  COMPLETE_RUNNING  refuse; a running stack is never reconfigured

For the native flavor reconciliation purges the Postfix and Dovecot packages
and deletes /etc/postfix, /etc/dovecot and all mailboxes under
/var/mail/vhosts. For the compose flavor it runs "docker compose down";
volumes are kept.

Before anything changes the host is audited; installation only starts when no
check fails. Port checks are skipped when the stack itself is (partly)
installed, since its own daemons hold those ports.

After start the services get a settle delay, then the service verification
report decides the exit status.

Examples:
  mailstack install
  mailstack --flavor native install --domain example.com --timezone Europe/Berlin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInstall(cmd)
		},
	}
	cmd.Flags().StringVar(&a.cfg.Stack.Domain, flags.FlagDomain, a.cfg.Stack.Domain, "Mail domain (native flavor); the mail host becomes mail.<domain>")
	cmd.Flags().StringVar(&a.cfg.Stack.Timezone, flags.FlagTimezone, a.cfg.Stack.Timezone, "Timezone (native flavor, default UTC)")
	a.addOutputFlags(cmd)
	a.addRuntimeFlags(cmd)
	return cmd
}

func (a *app) runInstall(cmd *cobra.Command) error {
	ctx := cmd.Context()
	h := a.host()
	b, err := a.backend(h, true)
	if err != nil {
		return err
	}
	if err := requireRoot(cmd, h); err != nil {
		return err
	}
	release, err := a.lock(cmd)
	if err != nil {
		return err
	}
	defer release()

	j := a.openJournal(ctx)
	defer closeJournal(j)
	rec := a.recorder(j, journal.NewRunID(), "install")

	eng := a.engine(h)
	m := install.NewMachine(b, a.logger)
	m.OnTransition = transitions(rec)
	m.Gate = func(ctx context.Context, initial install.State) error {
		return a.preflight(ctx, eng, b, initial)
	}
	if a.sleep != nil {
		m.Sleep = a.sleep
	}
	out, err := m.Run(ctx)
	if err != nil {
		return err
	}

	rep := a.verifier(b, h).Verify(ctx)
	v, err := eng.Publish(a.cfg, a.stdout, engine.RunVerify, rep)
	if err != nil {
		return err
	}
	if !v.OK {
		err := errs.Verification("install", "%d verification check(s) failed; the stack is left as is for inspection", v.Fail).
			WithRemediation(b.LogHint())
		rec(ctx, journal.Entry{From: string(install.PhaseRunning), Detail: "verify", Error: err.Error()})
		return err
	}
	rec(ctx, journal.Entry{From: string(install.PhaseRunning), To: string(install.PhaseRunning), Detail: "verified"})

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nMail stack (%s) is running.\n", b.Flavor())
	if u := out.Bootstrap; u != nil {
		fmt.Fprintf(w, "Test mailbox: %s\nPassword:     %s\n(shown once; not stored anywhere in clear text)\n", u.Address, u.Password)
	}
	return nil
}

// preflight runs the readiness checks that matter for the backend and refuses
// to install on a failing host.
func (a *app) preflight(ctx context.Context, eng *engine.Engine, b install.Backend, initial install.State) error {
	checks := gateChecks(probe.List(), b, initial)
	rep := eng.Probe(ctx, checks)

	gateCfg := *a.cfg
	gateCfg.Output = config.Output{
		ConsoleFormat: a.cfg.Output.ConsoleFormat,
		NoConsole:     a.cfg.Output.NoConsole,
		NoColor:       a.cfg.Output.NoColor,
	}
	v, err := eng.Publish(&gateCfg, a.stdout, engine.RunCheck, rep)
	if err != nil {
		return err
	}
	if v.OK {
		return nil
	}
	fix := v.Remediation
	if fix == "" {
		fix = "mailstack check"
	}
	return errs.Precondition("install", "host does not meet the requirements (%d check(s) failed)", v.Fail).
		WithRemediation(fix)
}

// gateChecks drops checks that do not apply to the backend: port checks for
// ports it does not bind and the container runtime for the native flavor.
// When the stack is already (partly) installed its own listeners hold the
// ports until reconciliation, so no port check applies.
func gateChecks(all []probe.Check, b install.Backend, initial install.State) []probe.Check {
	ports := b.RequiredPorts()
	var out []probe.Check
	for _, c := range all {
		id := c.ID()
		if p, ok := strings.CutPrefix(id, "port-"); ok {
			n, err := strconv.Atoi(p)
			if err == nil && (!slices.Contains(ports, n) || initial != install.StateAbsent) {
				continue
			}
		}
		if id == "container-runtime" && b.Flavor() == config.FlavorNative {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (a *app) verifier(b install.Backend, h host.Host) *verify.Verifier {
	v := verify.NewVerifier(b, h, a.logger)
	if a.smtpAddr != "" {
		v.SMTPAddr = a.smtpAddr
	}
	return v
}

// backend builds the installer for the configured flavor. With forInstall set
// the flavor's inputs are validated and a compose checkout must exist.
func (a *app) backend(h host.Host, forInstall bool) (install.Backend, error) {
	if a.cfg.Stack.Flavor == config.FlavorNative {
		var params provision.Params
		if forInstall {
			if a.cfg.Stack.Domain == "" {
				return nil, errs.Validation("install", "the native flavor needs a mail domain").
					WithRemediation("mailstack --flavor native install --domain example.com --timezone UTC")
			}
			tz := a.cfg.Stack.Timezone
			if tz == "" {
				tz = "UTC"
			}
			p, err := provision.NativeParams(a.cfg.Stack.Domain, tz)
			if err != nil {
				return nil, err
			}
			params = p
		}
		nb := install.NewNativeBackend(h.Runner, params, a.logger)
		nb.Root = a.root
		nb.Users = install.NewUserStore(h.Runner, a.root)
		return nb, nil
	}

	cwd := ""
	if a.getwd != nil {
		cwd, _ = a.getwd()
	}
	dir, err := provision.ResolveWorkDir(cwd, a.cfg.Stack.InstallDir)
	if err != nil {
		if forInstall {
			return nil, err
		}
		dir = a.cfg.Stack.InstallDir
	}
	return install.NewComposeBackend(h.Runner, dir, a.logger), nil
}
