package hosttest

import (
	"fmt"
	"io/fs"
	"net"

	"mailstack/internal/host"
)

// System is an in-memory host.System.
type System struct {
	Files       map[string]string
	MachineName string
	FreeBytes   uint64
	DiskErr     error
	Addrs       []net.Addr
	UID         int
}

// NewSystem returns a root-owned x86_64 host with plenty of disk.
func NewSystem() *System {
	return &System{
		Files:       make(map[string]string),
		MachineName: "x86_64",
		FreeBytes:   50 << 30,
	}
}

func (s *System) ReadFile(path string) ([]byte, error) {
	c, ok := s.Files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	return []byte(c), nil
}

func (s *System) Machine() (string, error) {
	return s.MachineName, nil
}

func (s *System) DiskFree(string) (uint64, error) {
	if s.DiskErr != nil {
		return 0, s.DiskErr
	}
	return s.FreeBytes, nil
}

func (s *System) InterfaceAddrs() ([]net.Addr, error) {
	return s.Addrs, nil
}

func (s *System) EUID() int {
	return s.UID
}

// Host bundles a fake runner and system.
func Host(r *Runner, s *System) host.Host {
	return host.Host{Runner: r, System: s}
}
