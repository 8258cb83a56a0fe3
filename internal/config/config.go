package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is read when --config is not given. A missing default file
	// is not an error.
	DefaultPath = "/etc/mailstack/config.yaml"

	DefaultInstallDir = "/opt/mailcow-dockerized"
	DefaultLockFile   = "/run/mailstack.lock"
	DefaultJournal    = "/var/lib/mailstack/journal.db"

	FlavorCompose = "compose"
	FlavorNative  = "native"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in
	// sync: CLI flags in internal/cli and config.example.yaml.
	Stack   Stack   `yaml:"stack"`
	Probe   Probe   `yaml:"probe"`
	Output  Output  `yaml:"output"`
	Runtime Runtime `yaml:"runtime"`
	Paths   Paths   `yaml:"paths"`
}

type Stack struct {
	// Flavor selects the installation backend (see --flavor).
	// Allowed values: compose, native.
	Flavor string `yaml:"flavor"`

	// InstallDir is the canonical mailcow checkout (see --install-dir). Its
	// filesystem is also the one measured by the disk check.
	InstallDir string `yaml:"install_dir"`

	// Domain is the mail domain for the native flavor (see install --domain).
	Domain string `yaml:"domain"`

	// Timezone for the native flavor (see install --timezone).
	Timezone string `yaml:"timezone"`
}

type Probe struct {
	// Checks selects which checks to run (see --checks). Empty means all.
	Checks string `yaml:"checks"`
}

type Output struct {
	// ConsoleFormat controls the console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string `yaml:"console_format"`

	// ConsoleFilterStatus filters console output by result status (see --console-filter-status).
	// Allowed values: PASS, WARN, FAIL.
	ConsoleFilterStatus []string `yaml:"console_filter_status"`

	// Report writes a Markdown report to this path (see --report).
	Report string `yaml:"report"`

	// Out writes structured output to this path (see --out).
	Out string `yaml:"out"`

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string `yaml:"out_format"`

	// MetricsFile writes a Prometheus textfile-collector file (see --metrics-file).
	MetricsFile string `yaml:"metrics_file"`

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool `yaml:"no_console"`

	// NoColor disables colored console output (see --no-color).
	NoColor bool `yaml:"no_color"`
}

type Runtime struct {
	// Concurrency bounds how many host facts are gathered at once (see --concurrency).
	// Must be >= 1.
	Concurrency int `yaml:"concurrency"`

	// Timeout bounds a whole command run (see --timeout). Must be > 0.
	Timeout time.Duration `yaml:"timeout"`

	// Verbose enables debug logging and full collaborator errors (see --verbose).
	Verbose bool `yaml:"verbose"`
}

type Paths struct {
	// LockFile is the host-wide lock taken by mutating commands.
	LockFile string `yaml:"lock_file"`

	// Journal is the SQLite run journal. Empty disables journaling.
	Journal string `yaml:"journal"`
}

func New() *Config {
	return &Config{
		Stack: Stack{
			Flavor:     FlavorCompose,
			InstallDir: DefaultInstallDir,
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency: 4,
			Timeout:     30 * time.Minute,
		},
		Paths: Paths{
			LockFile: DefaultLockFile,
			Journal:  DefaultJournal,
		},
	}
}

// Load returns defaults overlaid with the YAML file at path. When explicit is
// false a missing file yields plain defaults.
func Load(path string, explicit bool) (*Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)

	c.Stack.Flavor = normalizeEnumValue(c.Stack.Flavor)
	if c.Stack.Flavor == "" {
		c.Stack.Flavor = FlavorCompose
	}
	if c.Stack.Flavor != FlavorCompose && c.Stack.Flavor != FlavorNative {
		return fmt.Errorf("unsupported --flavor: %s (must be one of: compose, native)", c.Stack.Flavor)
	}
	if strings.TrimSpace(c.Stack.InstallDir) == "" {
		return errors.New("--install-dir must not be empty")
	}
	c.Stack.InstallDir = filepath.Clean(c.Stack.InstallDir)

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}
	for i, st := range c.Output.ConsoleFilterStatus {
		v := strings.ToUpper(strings.TrimSpace(st))
		if v != "PASS" && v != "WARN" && v != "FAIL" {
			return fmt.Errorf("unsupported --console-filter-status: %s (must be one of: PASS, WARN, FAIL)", st)
		}
		c.Output.ConsoleFilterStatus[i] = v
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	if strings.TrimSpace(c.Paths.LockFile) == "" {
		c.Paths.LockFile = DefaultLockFile
	}
	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// splitCommaList accepts repeated flags and comma-separated values alike.
func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
