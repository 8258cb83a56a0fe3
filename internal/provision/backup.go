package provision

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// BackupTimeFormat is the UTC suffix layout of settings backups.
const BackupTimeFormat = "20060102T150405Z"

// Backup renames an existing file at path to path.backup.<UTC time>. Nothing
// is ever deleted or overwritten: a name taken within the same second gets a
// -N suffix. It returns "" when there was nothing to back up.
func Backup(path string, now time.Time) (string, error) {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	base := fmt.Sprintf("%s.backup.%s", path, now.UTC().Format(BackupTimeFormat))
	dst := base
	for n := 1; ; n++ {
		_, err := os.Lstat(dst)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", dst, err)
		}
		dst = fmt.Sprintf("%s-%d", base, n)
	}

	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("back up %s: %w", path, err)
	}
	return dst, nil
}
