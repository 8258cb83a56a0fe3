package models

import "sort"

// Arch is the kernel machine name.
type Arch struct {
	Machine string
}

// OSRelease is the parsed os-release. Found is false when the file is absent.
type OSRelease struct {
	Found      bool
	ID         string
	VersionID  string
	PrettyName string
}

// Virtualization is the detected virtualization type. "none" means bare metal.
type Virtualization struct {
	Type   string
	Source string
}

// CPU describes the processors. ClockKnown is false when no source reported a
// clock speed.
type CPU struct {
	Cores      int
	Model      string
	MHz        float64
	ClockKnown bool
}

// Memory holds /proc/meminfo totals in KiB.
type Memory struct {
	TotalKiB     uint64
	SwapTotalKiB uint64
}

// Disk is the free space on the filesystem that will hold Path.
type Disk struct {
	Path      string
	FreeBytes uint64
}

// ListeningPorts maps bound TCP ports to the owning process when known.
type ListeningPorts struct {
	Ports  map[int]string
	Source string
}

// Bound reports whether port is in LISTEN state.
func (l *ListeningPorts) Bound(port int) bool {
	if l == nil {
		return false
	}
	_, ok := l.Ports[port]
	return ok
}

// Sorted returns the bound ports in ascending order.
func (l *ListeningPorts) Sorted() []int {
	if l == nil {
		return nil
	}
	out := make([]int, 0, len(l.Ports))
	for p := range l.Ports {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Firewall names the active firewall manager, empty when none is active.
type Firewall struct {
	Active string
}

// TimeSync is the NTP state. Known is false when no sync-status tool answered.
type TimeSync struct {
	Known        bool
	Synchronized bool
	Source       string
}

// ContainerRuntime records the container engine and its compose subcommand.
type ContainerRuntime struct {
	EnginePresent  bool
	EngineVersion  string
	ComposePresent bool
	ComposeVersion string
}

// DefaultRoute is the interface carrying the default route. Found is false when
// the host has no default route.
type DefaultRoute struct {
	Found     bool
	Interface string
	MTU       int
}
