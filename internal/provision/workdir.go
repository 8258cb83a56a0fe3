package provision

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mailstack/internal/errs"
)

// ProjectMarker identifies a mailcow checkout.
const ProjectMarker = "docker-compose.yml"

// ResolveWorkDir picks the directory that receives the settings: cwd when it
// is a mailcow checkout, otherwise installDir, which must already exist.
func ResolveWorkDir(cwd, installDir string) (string, error) {
	if cwd != "" && isCheckout(cwd) {
		return cwd, nil
	}
	info, err := os.Stat(installDir)
	if err == nil && info.IsDir() {
		return installDir, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", errs.Precondition("resolve work dir", "stat %s: %v", installDir, err)
	}
	return "", errs.NotInstalled("resolve work dir", "mailcow is not checked out at %s and the current directory is not a mailcow checkout", installDir).
		WithRemediation("git clone https://github.com/mailcow/mailcow-dockerized " + installDir)
}

func isCheckout(dir string) bool {
	raw, err := os.ReadFile(filepath.Join(dir, ProjectMarker))
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(raw)), "mailcow")
}
