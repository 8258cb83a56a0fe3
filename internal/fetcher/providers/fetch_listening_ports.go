package providers

import (
	"context"
	"strconv"
	"strings"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
	"mailstack/internal/host"
)

type listeningPortsFetcher struct{}

func (l *listeningPortsFetcher) Key() data.DependencyKey { return data.DepListeningPorts }

func (l *listeningPortsFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	r := f.Host().Runner

	ports, source, err := host.FirstSuccess(ctx,
		host.Candidate[map[int]string]{Name: "ss", Probe: func(ctx context.Context) (map[int]string, error) {
			res, err := r.Run(ctx, host.Cmd("ss", "-H", "-tlnp"))
			if err != nil {
				return nil, err
			}
			return parseSocketTable(res.Stdout, 3, ssProcess), nil
		}},
		host.Candidate[map[int]string]{Name: "netstat", Probe: func(ctx context.Context) (map[int]string, error) {
			res, err := r.Run(ctx, host.Cmd("netstat", "-tlnp"))
			if err != nil {
				return nil, err
			}
			return parseSocketTable(res.Stdout, 3, netstatProcess), nil
		}},
	)
	if err != nil {
		return nil, err
	}
	return &models.ListeningPorts{Ports: ports, Source: source}, nil
}

// parseSocketTable extracts the port of the local-address column from ss or
// netstat output. Header lines and non-TCP rows are skipped.
func parseSocketTable(out string, localCol int, process func([]string) string) map[int]string {
	ports := make(map[int]string)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) <= localCol {
			continue
		}
		first := strings.ToLower(fields[0])
		if first == "state" || first == "proto" || first == "active" {
			continue
		}
		port, ok := portOf(fields[localCol])
		if !ok {
			continue
		}
		if _, seen := ports[port]; !seen || ports[port] == "" {
			ports[port] = process(fields)
		}
	}
	return ports
}

func portOf(addr string) (int, bool) {
	i := strings.LastIndexByte(addr, ':')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(addr[i+1:])
	if err != nil || n <= 0 || n > 65535 {
		return 0, false
	}
	return n, true
}

// ssProcess reads users:(("master",pid=812,fd=13)).
func ssProcess(fields []string) string {
	for _, f := range fields {
		if !strings.HasPrefix(f, "users:") {
			continue
		}
		start := strings.IndexByte(f, '"')
		if start < 0 {
			return ""
		}
		end := strings.IndexByte(f[start+1:], '"')
		if end < 0 {
			return ""
		}
		return f[start+1 : start+1+end]
	}
	return ""
}

// netstatProcess reads the trailing "812/master" column.
func netstatProcess(fields []string) string {
	last := fields[len(fields)-1]
	if _, name, ok := strings.Cut(last, "/"); ok {
		return name
	}
	return ""
}

func init() {
	fetcher.RegisterDataFetcher(&listeningPortsFetcher{})
}
