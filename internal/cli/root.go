// Package cli wires the mailstack commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mailstack/internal/config"
	"mailstack/internal/errs"
	"mailstack/internal/flags"
	"mailstack/internal/host"
	"mailstack/internal/logfields"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// app carries the configuration and the host seams of one invocation.
type app struct {
	cfg        *config.Config
	configPath string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	newHost    func(*slog.Logger) host.Host
	getwd      func() (string, error)
	isTerminal func() bool
	readSecret func(prompt string) (string, error)
	// sleep replaces the installer's settle wait when set.
	sleep func(context.Context, time.Duration) error
	// root prefixes every file the native flavor writes.
	root     string
	smtpAddr string

	h      *host.Host
	cancel context.CancelFunc
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	a := &app{
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		logger:  slog.New(slog.DiscardHandler),
		newHost: host.Local,
		getwd:   os.Getwd,
		root:    "/",
	}
	a.isTerminal = func() bool {
		f, ok := a.stdin.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
	a.readSecret = a.readTerminalSecret
	return a
}

// Run executes one mailstack invocation and returns its exit status.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return newApp(stdin, stdout, stderr).run(args)
}

// Execute runs mailstack against the process arguments and exits.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func (a *app) run(args []string) int {
	path, explicit := scanConfigFlag(args)
	cfg, err := config.Load(path, explicit)
	if err != nil {
		fmt.Fprintln(a.stderr, errs.Format(errs.Validation("load config", "%v", err)))
		return 1
	}
	a.cfg = cfg
	a.configPath = path
	defer func() {
		if a.cancel != nil {
			a.cancel()
		}
	}()

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err = root.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}
	if msg := errs.Format(err); msg != "" {
		fmt.Fprintln(a.stderr, msg)
	}
	if strings.HasPrefix(err.Error(), "unknown command") || strings.HasPrefix(err.Error(), "unknown flag") {
		fmt.Fprintln(a.stderr)
		fmt.Fprint(a.stderr, root.UsageString())
	}
	return errs.ExitCode(err)
}

// scanConfigFlag finds --config before cobra parses anything, so the file can
// supply flag defaults.
func scanConfigFlag(args []string) (path string, explicit bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if v, ok := strings.CutPrefix(arg, "--"+flags.FlagConfig+"="); ok {
			return v, true
		}
		if arg == "--"+flags.FlagConfig && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return config.DefaultPath, false
}

func (a *app) newRootCmd() *cobra.Command {
	cfg := a.cfg
	root := &cobra.Command{
		Use:   "mailstack",
		Short: "Audit, configure, install and verify a mailcow or Postfix/Dovecot mail server",
		Long: `mailstack provisions a mail server on this host.

The pipeline runs in stages, each gating the next:
  check      audit host readiness (hardware, OS, ports, time sync, runtime)
  config     generate the mailcow settings file with fresh secrets
  install    reconcile any partial install, install, start and verify
  verify     re-run the post-install service verification

Two flavors are supported: "compose" (mailcow-dockerized, default) and
"native" (Debian packages for Postfix and Dovecot).

Examples:
  # Is this host ready?
  mailstack check

  # mailcow
  mailstack config mail.example.com Europe/Berlin
  mailstack install

  # Native Postfix/Dovecot
  mailstack --flavor native install --domain example.com --timezone UTC

Exit codes:
  0 = success (host ready, stack running and verified)
  1 = any failure; the cause and a suggested fix are printed to stderr`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return errs.Validation("flags", "%v", err)
			}
			level := slog.LevelInfo
			if cfg.Runtime.Verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
			a.cancel = func() {
				cancel()
				stop()
			}
			cmd.SetContext(ctx)
			return nil
		},
	}
	root.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, flags.FlagConfig, a.configPath, "YAML configuration file")
	pf.StringVar(&cfg.Stack.Flavor, flags.FlagFlavor, cfg.Stack.Flavor, "Installation flavor: compose|native")
	pf.StringVar(&cfg.Stack.InstallDir, flags.FlagInstallDir, cfg.Stack.InstallDir, "mailcow checkout directory")
	pf.BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, cfg.Runtime.Verbose, "Enable debug logging and full collaborator errors")
	pf.DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Overall timeout for the command")

	root.AddCommand(
		a.newCheckCmd(),
		a.newConfigCmd(),
		a.newInstallCmd(),
		a.newUninstallCmd(),
		a.newVerifyCmd(),
		a.newUserCmd(),
		a.newChecksCmd(),
		a.newHistoryCmd(),
		newVersionCmd(),
	)
	return root
}

// addOutputFlags registers the report sink flags shared by check, install and
// verify.
func (a *app) addOutputFlags(cmd *cobra.Command) {
	out := &a.cfg.Output
	f := cmd.Flags()
	f.StringVar(&out.ConsoleFormat, flags.FlagConsoleFormat, out.ConsoleFormat, "Console output format: text|json|ndjson")
	f.StringSliceVar(&out.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, out.ConsoleFilterStatus, "Only print results with these statuses (PASS, WARN, FAIL). Comma-separated.")
	f.StringVar(&out.Report, flags.FlagReport, out.Report, "Write a Markdown report to this path")
	f.StringVar(&out.Out, flags.FlagOut, out.Out, "Write structured output to this path")
	f.StringVar(&out.OutFormat, flags.FlagOutFormat, out.OutFormat, "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	f.StringVar(&out.MetricsFile, flags.FlagMetricsFile, out.MetricsFile, "Write a Prometheus textfile-collector file to this path")
	f.BoolVar(&out.NoConsole, flags.FlagNoConsole, out.NoConsole, "Suppress console output (use with --out/--report)")
	f.BoolVar(&out.NoColor, flags.FlagNoColor, out.NoColor, "Disable colored console output")
}

func (a *app) addRuntimeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&a.cfg.Runtime.Concurrency, flags.FlagConcurrency, a.cfg.Runtime.Concurrency, "Host facts gathered concurrently")
}

func (a *app) host() host.Host {
	if a.h == nil {
		h := a.newHost(a.logger)
		a.h = &h
	}
	return *a.h
}

// colorize reports whether the console is a color-capable terminal.
func (a *app) colorize() bool {
	return a.stdout == io.Writer(os.Stdout) && !color.NoColor
}

func requireRoot(cmd *cobra.Command, h host.Host) error {
	if h.System.EUID() == 0 {
		return nil
	}
	return errs.Precondition(cmd.Name(), "must be run as root").
		WithRemediation("sudo " + cmd.CommandPath())
}

// lock takes the host lock for a mutating command.
func (a *app) lock(cmd *cobra.Command) (func(), error) {
	release, err := host.Lock(a.cfg.Paths.LockFile)
	if errors.Is(err, host.ErrLocked) {
		return nil, errs.Precondition(cmd.Name(), "%v (lock %s)", err, a.cfg.Paths.LockFile).
			WithRemediation("wait for the other run to finish, then retry")
	}
	if err != nil {
		return nil, errs.Precondition(cmd.Name(), "%v", err)
	}
	return func() {
		if err := release(); err != nil {
			a.logger.Warn("release host lock", logfields.Path(a.cfg.Paths.LockFile), logfields.Error(err))
		}
	}, nil
}

// exactArgs reports a wrong argument count as a validation error with the
// command's usage line as the fix.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return errs.Validation(cmd.Name(), "expected %d argument(s), got %d", n, len(args)).
				WithRemediation(cmd.UseLine())
		}
		return nil
	}
}
