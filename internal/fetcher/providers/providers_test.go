package providers_test

import (
	"context"
	"errors"
	"testing"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
	_ "mailstack/internal/fetcher/providers"
	"mailstack/internal/host"
	"mailstack/internal/host/hosttest"
	"mailstack/internal/probe"
	_ "mailstack/internal/probe/checks"
)

func fetchFact[T any](t *testing.T, r *hosttest.Runner, s *hosttest.System, key data.DependencyKey) T {
	t.Helper()
	f := fetcher.NewFetcher(hosttest.Host(r, s), fetcher.WithInstallDir("/opt/mailcow-dockerized"))
	v, err := f.Fetch(context.Background(), key)
	if err != nil {
		t.Fatalf("Fetch(%s) failed: %v", key, err)
	}
	out, ok := v.(T)
	if !ok {
		t.Fatalf("Fetch(%s) returned %T", key, v)
	}
	return out
}

func fetchErr(t *testing.T, r *hosttest.Runner, s *hosttest.System, key data.DependencyKey) error {
	t.Helper()
	f := fetcher.NewFetcher(hosttest.Host(r, s))
	_, err := f.Fetch(context.Background(), key)
	return err
}

func TestOSRelease(t *testing.T) {
	s := hosttest.NewSystem()
	s.Files[host.OSReleasePath] = "NAME=\"Ubuntu\"\nID=ubuntu\nVERSION_ID=\"22.04\"\nPRETTY_NAME=\"Ubuntu 22.04.4 LTS\"\n"

	rel := fetchFact[*models.OSRelease](t, hosttest.NewRunner(), s, data.DepOSRelease)
	if !rel.Found || rel.ID != "ubuntu" || rel.VersionID != "22.04" {
		t.Errorf("unexpected os-release: %+v", rel)
	}

	absent := fetchFact[*models.OSRelease](t, hosttest.NewRunner(), hosttest.NewSystem(), data.DepOSRelease)
	if absent.Found {
		t.Errorf("expected Found=false when file is absent")
	}
}

func TestVirtualization(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(r *hosttest.Runner)
		wantType   string
		wantSource string
	}{
		{
			name:       "kvm",
			setup:      func(r *hosttest.Runner) { r.OK("systemd-detect-virt", "kvm\n") },
			wantType:   "kvm",
			wantSource: "systemd-detect-virt",
		},
		{
			name: "bare metal exits 1",
			setup: func(r *hosttest.Runner) {
				r.On("systemd-detect-virt", hosttest.Response{Stdout: "none\n", ExitCode: 1})
			},
			wantType:   "none",
			wantSource: "systemd-detect-virt",
		},
		{
			name: "falls back to virt-what",
			setup: func(r *hosttest.Runner) {
				r.Missing("systemd-detect-virt")
				r.OK("virt-what", "openvz\n")
			},
			wantType:   "openvz",
			wantSource: "virt-what",
		},
		{
			name: "virt-what silent means none",
			setup: func(r *hosttest.Runner) {
				r.Missing("systemd-detect-virt")
			},
			wantType:   "none",
			wantSource: "virt-what",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := hosttest.NewRunner()
			tt.setup(r)
			v := fetchFact[*models.Virtualization](t, r, hosttest.NewSystem(), data.DepVirtualization)
			if v.Type != tt.wantType || v.Source != tt.wantSource {
				t.Errorf("got %+v, want type=%s source=%s", v, tt.wantType, tt.wantSource)
			}
		})
	}
}

func TestVirtualization_Unknown(t *testing.T) {
	r := hosttest.NewRunner().Missing("systemd-detect-virt", "virt-what")
	err := fetchErr(t, r, hosttest.NewSystem(), data.DepVirtualization)
	if !errors.Is(err, host.ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
}

func TestCPU(t *testing.T) {
	t.Run("cpuinfo with clock", func(t *testing.T) {
		s := hosttest.NewSystem()
		s.Files["/proc/cpuinfo"] = "processor\t: 0\nmodel name\t: AMD EPYC\ncpu MHz\t\t: 2445.404\n\nprocessor\t: 1\nmodel name\t: AMD EPYC\ncpu MHz\t\t: 2445.404\n"
		cpu := fetchFact[*models.CPU](t, hosttest.NewRunner(), s, data.DepCPU)
		if cpu.Cores != 2 || !cpu.ClockKnown || cpu.MHz < 2445 || cpu.Model != "AMD EPYC" {
			t.Errorf("unexpected cpu: %+v", cpu)
		}
	})

	t.Run("cpuinfo without clock borrows lscpu", func(t *testing.T) {
		s := hosttest.NewSystem()
		s.Files["/proc/cpuinfo"] = "processor\t: 0\nBogoMIPS\t: 50.00\n"
		r := hosttest.NewRunner().OK("lscpu", "CPU(s):  1\nCPU max MHz:  2000.0000\n")
		cpu := fetchFact[*models.CPU](t, r, s, data.DepCPU)
		if cpu.Cores != 1 || !cpu.ClockKnown || cpu.MHz != 2000 {
			t.Errorf("unexpected cpu: %+v", cpu)
		}
	})

	t.Run("clock unknown", func(t *testing.T) {
		s := hosttest.NewSystem()
		s.Files["/proc/cpuinfo"] = "processor\t: 0\n"
		r := hosttest.NewRunner().Missing("lscpu")
		cpu := fetchFact[*models.CPU](t, r, s, data.DepCPU)
		if cpu.ClockKnown {
			t.Errorf("expected unknown clock: %+v", cpu)
		}
	})

	t.Run("lscpu only", func(t *testing.T) {
		r := hosttest.NewRunner().OK("lscpu", "CPU(s):  4\nModel name:  Neoverse-N1\n")
		cpu := fetchFact[*models.CPU](t, r, hosttest.NewSystem(), data.DepCPU)
		if cpu.Cores != 4 || cpu.ClockKnown {
			t.Errorf("unexpected cpu: %+v", cpu)
		}
	})
}

func TestMemory(t *testing.T) {
	s := hosttest.NewSystem()
	s.Files["/proc/meminfo"] = "MemTotal:        8131096 kB\nMemFree:          412344 kB\nSwapTotal:       2097148 kB\n"
	mem := fetchFact[*models.Memory](t, hosttest.NewRunner(), s, data.DepMemory)
	if mem.TotalKiB != 8131096 || mem.SwapTotalKiB != 2097148 {
		t.Errorf("unexpected memory: %+v", mem)
	}

	s.Files["/proc/meminfo"] = "MemFree: 1 kB\n"
	if err := fetchErr(t, hosttest.NewRunner(), s, data.DepMemory); err == nil {
		t.Error("expected error when MemTotal is missing")
	}
}

func TestDisk(t *testing.T) {
	s := hosttest.NewSystem()
	s.FreeBytes = 21 << 30
	d := fetchFact[*models.Disk](t, hosttest.NewRunner(), s, data.DepDisk)
	if d.FreeBytes != 21<<30 || d.Path != "/opt/mailcow-dockerized" {
		t.Errorf("unexpected disk: %+v", d)
	}
}

func TestListeningPorts(t *testing.T) {
	t.Run("ss", func(t *testing.T) {
		r := hosttest.NewRunner().OK("ss -H -tlnp",
			"LISTEN 0 100 0.0.0.0:25 0.0.0.0:* users:((\"master\",pid=812,fd=13))\n"+
				"LISTEN 0 4096 [::]:443 [::]:* users:((\"nginx\",pid=90,fd=7))\n"+
				"LISTEN 0 4096 127.0.0.53%lo:53 0.0.0.0:*\n")
		lp := fetchFact[*models.ListeningPorts](t, r, hosttest.NewSystem(), data.DepListeningPorts)
		if lp.Source != "ss" {
			t.Errorf("Source = %q, want ss", lp.Source)
		}
		if !lp.Bound(25) || lp.Ports[25] != "master" || !lp.Bound(443) || !lp.Bound(53) {
			t.Errorf("unexpected ports: %+v", lp.Ports)
		}
		if lp.Bound(587) {
			t.Errorf("587 should not be bound")
		}
	})

	t.Run("netstat fallback", func(t *testing.T) {
		r := hosttest.NewRunner().Missing("ss").OK("netstat -tlnp",
			"Active Internet connections (only servers)\n"+
				"Proto Recv-Q Send-Q Local Address Foreign Address State PID/Program name\n"+
				"tcp 0 0 0.0.0.0:993 0.0.0.0:* LISTEN 1201/dovecot\n")
		lp := fetchFact[*models.ListeningPorts](t, r, hosttest.NewSystem(), data.DepListeningPorts)
		if lp.Source != "netstat" || lp.Ports[993] != "dovecot" || len(lp.Ports) != 1 {
			t.Errorf("unexpected result: %+v", lp)
		}
	})

	t.Run("both missing", func(t *testing.T) {
		r := hosttest.NewRunner().Missing("ss", "netstat")
		if err := fetchErr(t, r, hosttest.NewSystem(), data.DepListeningPorts); !errors.Is(err, host.ErrUnknown) {
			t.Errorf("expected ErrUnknown, got %v", err)
		}
	})
}

func TestFirewall(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *hosttest.Runner)
		want  string
	}{
		{
			name:  "firewalld wins",
			setup: func(r *hosttest.Runner) { r.OK("systemctl is-active firewalld", "active\n") },
			want:  "firewalld",
		},
		{
			name: "ufw active",
			setup: func(r *hosttest.Runner) {
				r.On("systemctl is-active firewalld", hosttest.Response{Stdout: "inactive\n", ExitCode: 3})
				r.OK("ufw status", "Status: active\n")
			},
			want: "ufw",
		},
		{
			name: "none",
			setup: func(r *hosttest.Runner) {
				r.On("systemctl is-active firewalld", hosttest.Response{Stdout: "inactive\n", ExitCode: 3})
				r.Missing("ufw")
			},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := hosttest.NewRunner()
			tt.setup(r)
			fw := fetchFact[*models.Firewall](t, r, hosttest.NewSystem(), data.DepFirewall)
			if fw.Active != tt.want {
				t.Errorf("Active = %q, want %q", fw.Active, tt.want)
			}
		})
	}
}

func TestTimeSync(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(r *hosttest.Runner)
		wantKnown bool
		wantSync  bool
	}{
		{
			name:      "synchronized",
			setup:     func(r *hosttest.Runner) { r.OK("timedatectl show -p NTPSynchronized --value", "yes\n") },
			wantKnown: true,
			wantSync:  true,
		},
		{
			name:      "unsynchronized",
			setup:     func(r *hosttest.Runner) { r.OK("timedatectl show -p NTPSynchronized --value", "no\n") },
			wantKnown: true,
		},
		{
			name: "old timedatectl falls back to status",
			setup: func(r *hosttest.Runner) {
				r.Fail("timedatectl show -p NTPSynchronized --value", 1, "Unknown operation show")
				r.OK("timedatectl status", "      Local time: Mon\nNTP synchronized: yes\n")
			},
			wantKnown: true,
			wantSync:  true,
		},
		{
			name:  "no tool",
			setup: func(r *hosttest.Runner) { r.Missing("timedatectl") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := hosttest.NewRunner()
			tt.setup(r)
			ts := fetchFact[*models.TimeSync](t, r, hosttest.NewSystem(), data.DepTimeSync)
			if ts.Known != tt.wantKnown || ts.Synchronized != tt.wantSync {
				t.Errorf("got %+v, want known=%v sync=%v", ts, tt.wantKnown, tt.wantSync)
			}
		})
	}
}

func TestContainerRuntime(t *testing.T) {
	r := hosttest.NewRunner().
		OK("docker --version", "Docker version 27.3.1, build ce12230\n").
		OK("docker compose version", "Docker Compose version v2.29.7\n")
	rt := fetchFact[*models.ContainerRuntime](t, r, hosttest.NewSystem(), data.DepContainerRuntime)
	if !rt.EnginePresent || !rt.ComposePresent || rt.ComposeVersion != "Docker Compose version v2.29.7" {
		t.Errorf("unexpected runtime: %+v", rt)
	}

	r = hosttest.NewRunner().Fail("docker compose version", 125, "docker: 'compose' is not a docker command.")
	rt = fetchFact[*models.ContainerRuntime](t, r, hosttest.NewSystem(), data.DepContainerRuntime)
	if !rt.EnginePresent || rt.ComposePresent {
		t.Errorf("unexpected runtime: %+v", rt)
	}

	r = hosttest.NewRunner().Missing("docker")
	rt = fetchFact[*models.ContainerRuntime](t, r, hosttest.NewSystem(), data.DepContainerRuntime)
	if rt.EnginePresent || rt.ComposePresent {
		t.Errorf("unexpected runtime: %+v", rt)
	}
}

func TestDefaultRoute(t *testing.T) {
	t.Run("ip route and sysfs", func(t *testing.T) {
		s := hosttest.NewSystem()
		s.Files["/sys/class/net/eth0/mtu"] = "1450\n"
		r := hosttest.NewRunner().OK("ip route show default", "default via 10.0.0.1 dev eth0 proto dhcp metric 100\n")
		dr := fetchFact[*models.DefaultRoute](t, r, s, data.DepDefaultRoute)
		if !dr.Found || dr.Interface != "eth0" || dr.MTU != 1450 {
			t.Errorf("unexpected route: %+v", dr)
		}
	})

	t.Run("no default route", func(t *testing.T) {
		r := hosttest.NewRunner().OK("ip route show default", "")
		dr := fetchFact[*models.DefaultRoute](t, r, hosttest.NewSystem(), data.DepDefaultRoute)
		if dr.Found {
			t.Errorf("expected Found=false: %+v", dr)
		}
	})

	t.Run("proc net route fallback", func(t *testing.T) {
		s := hosttest.NewSystem()
		s.Files["/proc/net/route"] = "Iface\tDestination\tGateway\tFlags\tRefCnt\tUse\tMetric\tMask\n" +
			"ens3\t0000A8C0\t00000000\t0001\t0\t0\t0\t00FFFFFF\n" +
			"ens3\t00000000\t0100A8C0\t0003\t0\t0\t0\t00000000\n"
		s.Files["/sys/class/net/ens3/mtu"] = "1500"
		r := hosttest.NewRunner().Missing("ip")
		dr := fetchFact[*models.DefaultRoute](t, r, s, data.DepDefaultRoute)
		if !dr.Found || dr.Interface != "ens3" || dr.MTU != 1500 {
			t.Errorf("unexpected route: %+v", dr)
		}
	})
}

func TestEveryCheckDependencyHasAFetcher(t *testing.T) {
	registered := make(map[data.DependencyKey]bool)
	var prev data.DependencyKey
	for _, df := range fetcher.ListDataFetchers() {
		if df.Key() < prev {
			t.Errorf("fetchers not sorted: %s after %s", df.Key(), prev)
		}
		prev = df.Key()
		registered[df.Key()] = true
	}
	for _, c := range probe.List() {
		for _, dep := range c.Dependencies() {
			if !registered[dep] {
				t.Errorf("check %s depends on %s, which has no fetcher", c.ID(), dep)
			}
		}
	}
}
