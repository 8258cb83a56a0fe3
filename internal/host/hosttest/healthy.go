package hosttest

import "mailstack/internal/host"

// Healthy returns a fake Ubuntu 22.04 KVM guest that meets every readiness
// threshold: 8 GiB RAM, 2 GiB swap, 50 GiB free, no mail ports bound, NTP
// synchronized, docker and compose present, MTU 1500.
func Healthy() (*Runner, *System) {
	s := NewSystem()
	s.Files[host.OSReleasePath] = "ID=ubuntu\nVERSION_ID=\"22.04\"\nPRETTY_NAME=\"Ubuntu 22.04.4 LTS\"\n"
	s.Files["/proc/cpuinfo"] = "processor\t: 0\nmodel name\t: AMD EPYC\ncpu MHz\t\t: 2445.404\n\n" +
		"processor\t: 1\nmodel name\t: AMD EPYC\ncpu MHz\t\t: 2445.404\n"
	s.Files["/proc/meminfo"] = "MemTotal:        8131096 kB\nMemFree:         4120000 kB\nSwapTotal:       2097148 kB\n"
	s.Files["/sys/class/net/eth0/mtu"] = "1500\n"

	r := NewRunner().
		OK("systemd-detect-virt", "kvm\n").
		OK("ss -H -tlnp", "LISTEN 0 128 0.0.0.0:22 0.0.0.0:* users:((\"sshd\",pid=701,fd=3))\n").
		OK("systemctl is-active firewalld", "inactive\n").
		OK("ufw status", "Status: inactive\n").
		OK("timedatectl show -p NTPSynchronized --value", "yes\n").
		OK("docker --version", "Docker version 27.3.1, build ce12230\n").
		OK("docker compose version", "Docker Compose version v2.29.7\n").
		OK("ip route show default", "default via 10.0.0.1 dev eth0 proto dhcp metric 100\n")
	return r, s
}
