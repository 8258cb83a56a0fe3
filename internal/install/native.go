package install

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mailstack/internal/errs"
	"mailstack/internal/host"
	"mailstack/internal/logfields"
	"mailstack/internal/provision"
)

// Native stack layout.
const (
	VmailUser   = "vmail"
	VmailUID    = "5000"
	MailRoot    = "/var/mail/vhosts"
	UsersFile   = "/etc/dovecot/users"
	postfixUnit = "postfix"
	dovecotUnit = "dovecot"
)

// NativePackages are installed and purged as one set.
var NativePackages = []string{"postfix", "dovecot-core", "dovecot-imapd", "dovecot-pop3d", "dovecot-lmtpd"}

// nativePurgePaths are removed by reconciliation. This includes mailbox data.
var nativePurgePaths = []string{"/etc/postfix", "/etc/dovecot", MailRoot, "/var/lib/dovecot", "/var/spool/postfix"}

// NativePorts are the listeners of the native stack.
var NativePorts = []int{25, 110, 143, 993, 995}

type NativeBackend struct {
	Runner host.Runner
	Params provision.Params
	// Root prefixes every file the backend touches directly.
	Root   string
	Users  *UserStore
	Logger *slog.Logger
}

func NewNativeBackend(r host.Runner, p provision.Params, logger *slog.Logger) *NativeBackend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NativeBackend{
		Runner: r,
		Params: p,
		Root:   "/",
		Users:  NewUserStore(r, "/"),
		Logger: logger,
	}
}

func (b *NativeBackend) Flavor() string { return "native" }

func (b *NativeBackend) path(p string) string {
	return filepath.Join(b.Root, p)
}

func (b *NativeBackend) run(ctx context.Context, cmd host.Command) (host.Result, error) {
	res, err := b.Runner.Run(ctx, cmd)
	if err != nil {
		return res, errs.ExternalTool(cmd.Line(), err)
	}
	return res, nil
}

func (b *NativeBackend) Detect(ctx context.Context) (Inventory, error) {
	daemons := []struct{ name, pkg string }{
		{postfixUnit, "postfix"},
		{dovecotUnit, "dovecot-core"},
	}
	var inv Inventory
	for _, d := range daemons {
		res, err := b.Runner.Run(ctx, host.Cmd("dpkg-query", "-W", "-f=${Status}", d.pkg))
		if errors.Is(err, host.ErrNotFound) {
			return Inventory{}, errs.Precondition("detect", "the native flavor needs a Debian-family host (dpkg-query not found)").
				WithRemediation("mailstack --flavor compose install")
		}
		if err := ctx.Err(); err != nil {
			return Inventory{}, err
		}
		installed := err == nil && strings.Contains(res.Stdout, "install ok installed")

		active := false
		if installed {
			res, err := b.Runner.Run(ctx, host.Cmd("systemctl", "is-active", d.name))
			active = err == nil && strings.TrimSpace(res.Stdout) == "active"
		}
		inv.Daemons = append(inv.Daemons, Daemon{Name: d.name, Installed: installed, Active: active})
	}
	return inv, nil
}

// Reconcile stops both daemons, purges their packages and removes their
// configuration and data directories, mailboxes included.
func (b *NativeBackend) Reconcile(ctx context.Context) error {
	for _, unit := range []string{postfixUnit, dovecotUnit} {
		_, err := b.run(ctx, host.Cmd("systemctl", "stop", unit))
		if err != nil {
			b.Logger.Debug("stop failed, continuing", logfields.Unit(unit),
				logfields.ExitCode(host.ExitCodeOf(err)), logfields.Error(err))
		}
		if err := errs.Swallow(err); err != nil {
			return err
		}
	}

	args := append([]string{"purge", "-y"}, NativePackages...)
	if _, err := b.run(ctx, aptGet(args...)); err != nil {
		return err
	}

	for _, p := range nativePurgePaths {
		if err := os.RemoveAll(b.path(p)); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
		b.Logger.Info("removed", logfields.Path(p))
	}
	return nil
}

func aptGet(args ...string) host.Command {
	cmd := host.Cmd("apt-get", args...)
	cmd.Env = []string{"DEBIAN_FRONTEND=noninteractive"}
	return cmd
}

func (b *NativeBackend) Install(ctx context.Context) error {
	preseed := host.Cmd("debconf-set-selections")
	preseed.Stdin = fmt.Sprintf("postfix postfix/mailname string %s\npostfix postfix/main_mailer_type string 'Internet Site'\n", b.Params.Hostname)
	if _, err := b.run(ctx, preseed); err != nil {
		return err
	}
	if _, err := b.run(ctx, aptGet("update")); err != nil {
		return err
	}
	args := append([]string{"install", "-y"}, NativePackages...)
	_, err := b.run(ctx, aptGet(args...))
	return err
}

// Configure sets the host timezone, writes the daemon configuration, makes
// sure the vmail account exists and re-applies ownership on every run.
func (b *NativeBackend) Configure(ctx context.Context) error {
	if b.Params.Timezone != "" {
		if _, err := b.run(ctx, host.Cmd("timedatectl", "set-timezone", b.Params.Timezone)); err != nil {
			return err
		}
		b.Logger.Info("set timezone", slog.String("timezone", b.Params.Timezone))
	}

	files, err := provision.RenderNative(b.Params)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := writeFile(b.path(f.Path), f.Content, f.Mode); err != nil {
			return err
		}
		b.Logger.Info("wrote configuration", logfields.Path(f.Path))
	}
	for _, p := range []string{provision.PostfixVmailbox, UsersFile} {
		if err := touch(b.path(p), 0o640); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(b.path(filepath.Join(MailRoot, b.Params.Domain)), 0o770); err != nil {
		return fmt.Errorf("create mail root: %w", err)
	}

	if err := b.ensureVmail(ctx); err != nil {
		return err
	}

	for _, cmd := range []host.Command{
		host.Cmd("chown", "-R", VmailUser+":"+VmailUser, MailRoot),
		host.Cmd("chmod", "-R", "u=rwX,g=rwX,o=", MailRoot),
		host.Cmd("chown", "root:dovecot", UsersFile),
		host.Cmd("chmod", "0640", UsersFile),
	} {
		if _, err := b.run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (b *NativeBackend) ensureVmail(ctx context.Context) error {
	if _, err := b.Runner.Run(ctx, host.Cmd("getent", "group", VmailUser)); err != nil {
		if _, err := b.run(ctx, host.Cmd("groupadd", "-g", VmailUID, VmailUser)); err != nil {
			return err
		}
		b.Logger.Info("created group", slog.String("group", VmailUser))
	}
	if _, err := b.Runner.Run(ctx, host.Cmd("getent", "passwd", VmailUser)); err != nil {
		if _, err := b.run(ctx, host.Cmd("useradd", "-u", VmailUID, "-g", VmailUser, "-d", MailRoot, "-s", "/usr/sbin/nologin", "-M", VmailUser)); err != nil {
			return err
		}
		b.Logger.Info("created user", slog.String("user", VmailUser))
	}
	return nil
}

func (b *NativeBackend) Start(ctx context.Context) error {
	if _, err := b.run(ctx, host.Cmd("systemctl", "enable", postfixUnit, dovecotUnit)); err != nil {
		return err
	}
	_, err := b.run(ctx, host.Cmd("systemctl", "restart", postfixUnit, dovecotUnit))
	return err
}

// BootstrapUsername is the smoke-test mailbox of a fresh native install.
const BootstrapUsername = "testuser"

func (b *NativeBackend) Bootstrap(ctx context.Context) (*BootstrapUser, error) {
	password, err := provision.GenerateSecret(nil, 20)
	if err != nil {
		return nil, err
	}
	u, err := b.Users.Add(ctx, BootstrapUsername, b.Params.Domain, password)
	if err != nil {
		return nil, err
	}
	return &BootstrapUser{Address: u.Address(), Password: password}, nil
}

func (b *NativeBackend) RequiredPorts() []int {
	return NativePorts
}

func (b *NativeBackend) QueueCommand() host.Command {
	return host.Cmd("postqueue", "-p")
}

func (b *NativeBackend) TeardownHint() string {
	return "mailstack uninstall (or: systemctl stop postfix dovecot && apt-get purge -y " + strings.Join(NativePackages, " ") + ")"
}

func (b *NativeBackend) LogHint() string {
	return "journalctl -u postfix -u dovecot --since '-10min'"
}

func writeFile(path string, content []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Chmod(path, mode)
}

func touch(path string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return f.Close()
}
