package host

import (
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// System exposes the read-only host facts that do not need a collaborator
// command.
type System interface {
	ReadFile(path string) ([]byte, error)
	Machine() (string, error)
	DiskFree(path string) (uint64, error)
	InterfaceAddrs() ([]net.Addr, error)
	EUID() int
}

// Host bundles the two collaborator seams every stage consumes.
type Host struct {
	Runner Runner
	System System
}

// Local returns a Host backed by the running machine.
func Local(logger *slog.Logger) Host {
	return Host{
		Runner: &ExecRunner{Logger: logger},
		System: LocalSystem{},
	}
}

// LocalSystem reads facts from the running kernel.
type LocalSystem struct{}

func (LocalSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (LocalSystem) Machine() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uts.Machine[:]), nil
}

// DiskFree returns the bytes available to unprivileged users on the filesystem
// holding path. A path that does not exist yet is resolved to its nearest
// existing parent, so the install directory can be measured before creation.
func (LocalSystem) DiskFree(path string) (uint64, error) {
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return 0, err
		}
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	var st unix.Statfs_t
	if err := unix.Statfs(p, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

func (LocalSystem) InterfaceAddrs() ([]net.Addr, error) {
	return net.InterfaceAddrs()
}

func (LocalSystem) EUID() int {
	return os.Geteuid()
}
