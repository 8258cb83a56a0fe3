package data

const (
	// DepArch is the kernel machine name (uname -m).
	DepArch DependencyKey = "host.arch"

	// DepOSRelease is the parsed /etc/os-release, or an absent marker.
	DepOSRelease DependencyKey = "host.os_release"

	// DepVirtualization is the detected hypervisor or container type.
	DepVirtualization DependencyKey = "host.virtualization"

	// DepCPU describes core count and, when obtainable, clock speed.
	DepCPU DependencyKey = "host.cpu"

	// DepMemory holds MemTotal and SwapTotal from /proc/meminfo.
	DepMemory DependencyKey = "host.memory"

	// DepDisk is the free space on the filesystem that will hold the install
	// directory.
	DepDisk DependencyKey = "host.disk"

	// DepListeningPorts is the set of TCP ports bound in LISTEN state.
	//
	// Sources, in order: ss, netstat.
	DepListeningPorts DependencyKey = "net.listening_ports"

	// DepFirewall names the first active host firewall manager
	// (firewalld before ufw).
	DepFirewall DependencyKey = "host.firewall"

	// DepTimeSync is the NTP synchronization status reported by systemd.
	DepTimeSync DependencyKey = "host.time_sync"

	// DepContainerRuntime records presence of the container engine and its
	// compose subcommand.
	DepContainerRuntime DependencyKey = "container.runtime"

	// DepDefaultRoute is the default-route interface and its MTU.
	DepDefaultRoute DependencyKey = "net.default_route"
)

// Priority returns the gather priority for a fact key (lower is earlier).
// Facts read from procfs are cheap and go first; facts that shell out to
// collaborators follow.
func Priority(key DependencyKey) int {
	switch key {
	case DepArch, DepOSRelease, DepMemory, DepDisk, DepCPU:
		return 0
	case DepListeningPorts, DepDefaultRoute:
		return 1
	default:
		return 2
	}
}
