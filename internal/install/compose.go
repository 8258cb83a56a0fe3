package install

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"mailstack/internal/errs"
	"mailstack/internal/host"
	"mailstack/internal/logfields"
	"mailstack/internal/probe/checks"
	"mailstack/internal/provision"
)

// ComposeProject is the compose project name of a mailcow checkout.
const ComposeProject = "mailcowdockerized"

const (
	postfixContainer = "postfix-mailcow"
	dovecotContainer = "dovecot-mailcow"
)

// ComposeBackend runs mailcow through docker compose in WorkDir.
type ComposeBackend struct {
	Runner  host.Runner
	WorkDir string
	Logger  *slog.Logger
}

func NewComposeBackend(r host.Runner, workDir string, logger *slog.Logger) *ComposeBackend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ComposeBackend{Runner: r, WorkDir: workDir, Logger: logger}
}

func (b *ComposeBackend) Flavor() string { return "compose" }

func (b *ComposeBackend) compose(args ...string) host.Command {
	cmd := host.Cmd("docker", append([]string{"compose"}, args...)...)
	cmd.Dir = b.WorkDir
	return cmd
}

func (b *ComposeBackend) run(ctx context.Context, cmd host.Command) (host.Result, error) {
	res, err := b.Runner.Run(ctx, cmd)
	if errors.Is(err, host.ErrNotFound) {
		return res, errs.Precondition(cmd.Line(), "docker is not installed").
			WithRemediation("curl -fsSL https://get.docker.com | sh")
	}
	if err != nil {
		return res, errs.ExternalTool(cmd.Line(), err)
	}
	return res, nil
}

// Detect lists the project's containers and reads the postfix and dovecot
// ones. A missing container counts as not installed.
func (b *ComposeBackend) Detect(ctx context.Context) (Inventory, error) {
	res, err := b.run(ctx, host.Cmd("docker", "ps", "-a",
		"--filter", "label=com.docker.compose.project="+ComposeProject,
		"--format", "{{.Names}}\t{{.State}}"))
	if err != nil {
		return Inventory{}, err
	}

	inv := Inventory{Daemons: []Daemon{{Name: "postfix"}, {Name: "dovecot"}}}
	for _, line := range strings.Split(res.Stdout, "\n") {
		name, state, ok := strings.Cut(strings.TrimSpace(line), "\t")
		if !ok {
			continue
		}
		var d *Daemon
		switch {
		case strings.Contains(name, postfixContainer):
			d = &inv.Daemons[0]
		case strings.Contains(name, dovecotContainer):
			d = &inv.Daemons[1]
		default:
			continue
		}
		d.Installed = true
		d.Active = d.Active || strings.TrimSpace(state) == "running"
	}
	return inv, nil
}

// Reconcile takes the project down. Named volumes, and with them the mail
// data, are kept.
func (b *ComposeBackend) Reconcile(ctx context.Context) error {
	_, err := b.run(ctx, b.compose("down", "--remove-orphans"))
	return err
}

// Install pulls the images of an already configured checkout.
func (b *ComposeBackend) Install(ctx context.Context) error {
	settings := filepath.Join(b.WorkDir, provision.SettingsFile)
	env, err := provision.ReadSettings(settings)
	if errors.Is(err, fs.ErrNotExist) {
		return errs.NotInstalled("install", "%s not found; generate the configuration first", settings).
			WithRemediation("mailstack config <hostname> <timezone>")
	}
	if err != nil {
		return errs.Validation("install", "unusable settings: %v", err).
			WithRemediation("mailstack config <hostname> <timezone>")
	}
	b.Logger.Info("using settings", logfields.Path(settings), slog.String("hostname", env["MAILCOW_HOSTNAME"]))
	_, err = b.run(ctx, b.compose("pull", "--quiet"))
	return err
}

// Configure has nothing to do: the settings file is the configuration.
func (b *ComposeBackend) Configure(context.Context) error {
	return nil
}

func (b *ComposeBackend) Start(ctx context.Context) error {
	_, err := b.run(ctx, b.compose("up", "-d"))
	return err
}

// Bootstrap creates nothing: mailcow mailboxes are managed in its web UI.
func (b *ComposeBackend) Bootstrap(context.Context) (*BootstrapUser, error) {
	return nil, nil
}

func (b *ComposeBackend) RequiredPorts() []int {
	return checks.MailPorts
}

func (b *ComposeBackend) QueueCommand() host.Command {
	return b.compose("exec", "-T", postfixContainer, "postqueue", "-p")
}

func (b *ComposeBackend) TeardownHint() string {
	return fmt.Sprintf("cd %s && docker compose down", b.WorkDir)
}

func (b *ComposeBackend) LogHint() string {
	return fmt.Sprintf("cd %s && docker compose logs --tail=200 %s %s", b.WorkDir, postfixContainer, dovecotContainer)
}
