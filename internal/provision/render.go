package provision

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/joho/godotenv"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("").
		Funcs(template.FuncMap{
			"yesno": func(b bool) string {
				if b {
					return "y"
				}
				return "n"
			},
		}).
		Option("missingkey=error").
		ParseFS(templateFS, "templates/*.tmpl"),
)

// settingsData is the typed record behind the settings and deployment-info
// templates.
type settingsData struct {
	Hostname   string
	Domain     string
	Timezone   string
	WorkDir    string
	Generated  string
	DBPass     string
	DBRoot     string
	RedisPass  string
	SogoKey    string
	SkipClamd  bool
	EnableIPv6 bool
}

func newSettingsData(c *Config, generated string) settingsData {
	return settingsData{
		Hostname:   c.Params.Hostname,
		Domain:     c.Params.Domain,
		Timezone:   c.Params.Timezone,
		WorkDir:    c.WorkDir,
		Generated:  generated,
		DBPass:     c.Secrets.DBPass,
		DBRoot:     c.Secrets.DBRoot,
		RedisPass:  c.Secrets.RedisPass,
		SogoKey:    c.Secrets.SogoKey,
		SkipClamd:  c.SkipClamd,
		EnableIPv6: c.EnableIPv6,
	}
}

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// requiredSettings must be present and non-empty in every rendered settings
// file.
var requiredSettings = []string{
	"MAILCOW_HOSTNAME", "TZ", "DBPASS", "DBROOT", "REDISPASS",
	"SOGO_URL_ENCRYPTION_KEY", "SKIP_CLAMD", "ENABLE_IPV6", "COMPOSE_PROJECT_NAME",
}

// RenderSettings renders mailcow.conf and parses it back to make sure the
// key=value contract holds.
func RenderSettings(c *Config, generated string) ([]byte, error) {
	blob, err := render("mailcow.conf.tmpl", newSettingsData(c, generated))
	if err != nil {
		return nil, err
	}
	if err := ValidateSettings(blob); err != nil {
		return nil, err
	}
	return blob, nil
}

// ValidateSettings checks that blob parses as key=value lines and carries
// every required key.
func ValidateSettings(blob []byte) error {
	env, err := godotenv.UnmarshalBytes(blob)
	if err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}
	return requireSettings(env)
}

func requireSettings(env map[string]string) error {
	var missing []string
	for _, k := range requiredSettings {
		if strings.TrimSpace(env[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("settings missing required keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ReadSettings parses an existing settings file and checks it carries every
// required key. A missing file satisfies errors.Is(err, fs.ErrNotExist).
func ReadSettings(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := requireSettings(env); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}
