// Package provision generates the mail stack configuration: the mailcow
// settings file with fresh secrets for the compose flavor and the daemon
// configuration set for the native flavor.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/errs"
	"mailstack/internal/fetcher"
	"mailstack/internal/host"
	"mailstack/internal/logfields"
)

const (
	SettingsFile       = "mailcow.conf"
	EnvAlias           = ".env"
	DeploymentInfoFile = "DEPLOYMENT_INFO.txt"

	// ClamdMinMemoryKiB is the MemTotal at or below which ClamAV is skipped.
	ClamdMinMemoryKiB = 2621440
)

// Config is one generated provisioning run. Secrets are only ever written to
// the settings and deployment-info files.
type Config struct {
	Params     Params
	Secrets    Secrets
	SkipClamd  bool
	EnableIPv6 bool

	WorkDir            string
	SettingsPath       string
	BackupPath         string
	DeploymentInfoPath string
	Certificate        Certificate
}

type Generator struct {
	Fetcher    *fetcher.Fetcher
	InstallDir string
	KeyBits    int

	Getwd  func() (string, error)
	Now    func() time.Time
	Rand   io.Reader
	Logger *slog.Logger
}

func NewGenerator(f *fetcher.Fetcher, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		Fetcher:    f,
		InstallDir: f.InstallDir(),
		KeyBits:    DefaultKeyBits,
		Getwd:      os.Getwd,
		Now:        time.Now,
		Logger:     logger,
	}
}

// Generate validates the parameters, then writes the settings file with fresh
// secrets, its .env alias, the fallback certificate and the deployment info.
// Validation happens before any file is touched.
func (g *Generator) Generate(ctx context.Context, hostname, timezone string) (*Config, error) {
	params, err := ComposeParams(hostname, timezone)
	if err != nil {
		return nil, err
	}
	log := g.Logger.With(logfields.Stage("config"))

	cwd := ""
	if g.Getwd != nil {
		cwd, _ = g.Getwd()
	}
	workDir, err := ResolveWorkDir(cwd, g.InstallDir)
	if err != nil {
		return nil, err
	}
	now := g.Now().UTC()

	c := &Config{
		Params:             params,
		WorkDir:            workDir,
		SettingsPath:       filepath.Join(workDir, SettingsFile),
		DeploymentInfoPath: filepath.Join(workDir, DeploymentInfoFile),
	}

	c.BackupPath, err = Backup(c.SettingsPath, now)
	if err != nil {
		return nil, errs.Precondition("back up settings", "%v", err)
	}
	if c.BackupPath != "" {
		log.Info("previous settings backed up", logfields.Path(c.BackupPath))
	}

	c.SkipClamd = g.skipClamd(ctx, log)
	c.EnableIPv6 = g.ipv6Usable(log)

	c.Secrets, err = NewSecrets(g.Rand)
	if err != nil {
		return nil, err
	}
	log.Info("secrets generated", slog.Any("secrets", c.Secrets))

	blob, err := RenderSettings(c, now.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	if err := writePrivate(c.SettingsPath, blob, true); err != nil {
		return nil, err
	}
	log.Info("settings written", logfields.Path(c.SettingsPath),
		slog.Bool("skip_clamd", c.SkipClamd), slog.Bool("ipv6", c.EnableIPv6))

	if err := linkEnvAlias(workDir, now); err != nil {
		return nil, err
	}

	c.Certificate, err = EnsureSelfSigned(workDir, params.Hostname, g.KeyBits, now)
	if err != nil {
		return nil, fmt.Errorf("fallback certificate: %w", err)
	}
	log.Info("fallback certificate ready", logfields.Path(c.Certificate.CertPath),
		slog.Bool("generated", c.Certificate.Generated), slog.Bool("installed", c.Certificate.Installed))

	info, err := render("deployment-info.txt.tmpl", newSettingsData(c, now.Format(time.RFC3339)))
	if err != nil {
		return nil, err
	}
	if err := writePrivate(c.DeploymentInfoPath, info, false); err != nil {
		return nil, err
	}
	return c, nil
}

func (g *Generator) skipClamd(ctx context.Context, log *slog.Logger) bool {
	v, err := g.Fetcher.Fetch(ctx, data.DepMemory)
	if err != nil {
		log.Warn("memory unknown, skipping ClamAV", logfields.Error(err))
		return true
	}
	return v.(*models.Memory).TotalKiB <= ClamdMinMemoryKiB
}

func (g *Generator) ipv6Usable(log *slog.Logger) bool {
	addrs, err := g.Fetcher.Host().System.InterfaceAddrs()
	if err != nil {
		log.Warn("interface addresses unknown, disabling IPv6", logfields.Error(err))
		return false
	}
	return host.HasRoutableIPv6(addrs)
}

// writePrivate writes an owner-only file. With exclusive set the file must not
// exist yet.
func writePrivate(path string, content []byte, exclusive bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if exclusive {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := f.Chmod(0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// linkEnvAlias points .env at the settings file. An existing symlink is
// replaced; a regular file is backed up first.
func linkEnvAlias(workDir string, now time.Time) error {
	alias := filepath.Join(workDir, EnvAlias)
	info, err := os.Lstat(alias)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("stat %s: %w", alias, err)
	case info.Mode()&os.ModeSymlink != 0:
		if err := os.Remove(alias); err != nil {
			return fmt.Errorf("replace %s: %w", alias, err)
		}
	default:
		if _, err := Backup(alias, now); err != nil {
			return err
		}
	}
	if err := os.Symlink(SettingsFile, alias); err != nil {
		return fmt.Errorf("link %s: %w", alias, err)
	}
	return nil
}
