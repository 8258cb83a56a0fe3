package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
	"mailstack/internal/host"
)

const procNetRoute = "/proc/net/route"

type defaultRouteFetcher struct{}

func (d *defaultRouteFetcher) Key() data.DependencyKey { return data.DepDefaultRoute }

func (d *defaultRouteFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	h := f.Host()

	// An empty interface name with a nil error means the source answered and
	// there is no default route.
	iface, _, err := host.FirstSuccess(ctx,
		host.Candidate[string]{Name: "ip route", Probe: func(ctx context.Context) (string, error) {
			res, err := h.Runner.Run(ctx, host.Cmd("ip", "route", "show", "default"))
			if err != nil {
				return "", err
			}
			return parseIPRouteDev(res.Stdout), nil
		}},
		host.Candidate[string]{Name: procNetRoute, Probe: func(context.Context) (string, error) {
			raw, err := h.System.ReadFile(procNetRoute)
			if err != nil {
				return "", err
			}
			return parseProcNetRoute(string(raw)), nil
		}},
	)
	if err != nil {
		return nil, err
	}
	if iface == "" {
		return &models.DefaultRoute{Found: false}, nil
	}

	mtu, err := interfaceMTU(ctx, h, iface)
	if err != nil {
		return nil, err
	}
	return &models.DefaultRoute{Found: true, Interface: iface, MTU: mtu}, nil
}

// parseIPRouteDev reads "default via 10.0.0.1 dev eth0 proto dhcp".
func parseIPRouteDev(out string) string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "default" {
			continue
		}
		for i := 0; i+1 < len(fields); i++ {
			if fields[i] == "dev" {
				return fields[i+1]
			}
		}
	}
	return ""
}

// parseProcNetRoute finds the row whose destination and mask are both zero.
func parseProcNetRoute(content string) string {
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 8 || fields[0] == "Iface" {
			continue
		}
		if fields[1] == "00000000" && fields[7] == "00000000" {
			return fields[0]
		}
	}
	return ""
}

func interfaceMTU(ctx context.Context, h host.Host, iface string) (int, error) {
	mtu, _, err := host.FirstSuccess(ctx,
		host.Candidate[int]{Name: "sysfs", Probe: func(context.Context) (int, error) {
			raw, err := h.System.ReadFile("/sys/class/net/" + iface + "/mtu")
			if err != nil {
				return 0, err
			}
			return strconv.Atoi(strings.TrimSpace(string(raw)))
		}},
		host.Candidate[int]{Name: "ip link", Probe: func(ctx context.Context) (int, error) {
			res, err := h.Runner.Run(ctx, host.Cmd("ip", "-o", "link", "show", "dev", iface))
			if err != nil {
				return 0, err
			}
			fields := strings.Fields(res.Stdout)
			for i := 0; i+1 < len(fields); i++ {
				if fields[i] == "mtu" {
					return strconv.Atoi(fields[i+1])
				}
			}
			return 0, fmt.Errorf("no mtu in ip link output")
		}},
	)
	return mtu, err
}

func init() {
	fetcher.RegisterDataFetcher(&defaultRouteFetcher{})
}
