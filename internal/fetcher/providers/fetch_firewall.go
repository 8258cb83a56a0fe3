package providers

import (
	"context"
	"strings"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
	"mailstack/internal/host"
)

type firewallFetcher struct{}

func (fw *firewallFetcher) Key() data.DependencyKey { return data.DepFirewall }

// Fetch reports firewalld before ufw. A manager that is not installed, or
// answers with a non-zero status, counts as inactive.
func (fw *firewallFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	r := f.Host().Runner

	res, err := r.Run(ctx, host.Cmd("systemctl", "is-active", "firewalld"))
	if err == nil && strings.TrimSpace(res.Stdout) == "active" {
		return &models.Firewall{Active: "firewalld"}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err = r.Run(ctx, host.Cmd("ufw", "status"))
	if err == nil && strings.Contains(strings.ToLower(res.Stdout), "status: active") {
		return &models.Firewall{Active: "ufw"}, nil
	}
	return &models.Firewall{}, nil
}

func init() {
	fetcher.RegisterDataFetcher(&firewallFetcher{})
}
