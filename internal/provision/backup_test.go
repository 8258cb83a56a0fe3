package provision

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup_NothingToBackUp(t *testing.T) {
	dst, err := Backup(filepath.Join(t.TempDir(), "mailcow.conf"), time.Now())
	require.NoError(t, err)
	assert.Empty(t, dst)
}

func TestBackup_SameSecondCollisionsKeepEveryCopy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mailcow.conf")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var backups []string
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o600))
		dst, err := Backup(path, now)
		require.NoError(t, err)
		backups = append(backups, dst)
	}

	assert.Equal(t, []string{
		path + ".backup.20260301T120000Z",
		path + ".backup.20260301T120000Z-1",
		path + ".backup.20260301T120000Z-2",
	}, backups)
	for i, b := range backups {
		raw, err := os.ReadFile(b)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte('a' + i)}, raw)
	}
	assert.NoFileExists(t, path)
}

func TestBackup_UsesUTC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mailcow.conf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	loc := time.FixedZone("UTC+2", 2*60*60)
	dst, err := Backup(path, time.Date(2026, 3, 1, 14, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, path+".backup.20260301T120000Z", dst)
}
