package providers

import (
	"context"
	"strings"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
	"mailstack/internal/host"
)

type virtualizationFetcher struct{}

func (v *virtualizationFetcher) Key() data.DependencyKey { return data.DepVirtualization }

func (v *virtualizationFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	r := f.Host().Runner

	typ, source, err := host.FirstSuccess(ctx,
		host.Candidate[string]{Name: "systemd-detect-virt", Probe: func(ctx context.Context) (string, error) {
			res, err := r.Run(ctx, host.Cmd("systemd-detect-virt"))
			out := strings.TrimSpace(res.Stdout)
			// Exits 1 and prints "none" on bare metal.
			if err != nil && out != "none" {
				return "", err
			}
			if out == "" {
				return "", host.ErrUnknown
			}
			return strings.ToLower(out), nil
		}},
		host.Candidate[string]{Name: "virt-what", Probe: func(ctx context.Context) (string, error) {
			res, err := r.Run(ctx, host.Cmd("virt-what"))
			if err != nil {
				return "", err
			}
			lines := strings.Fields(res.Stdout)
			if len(lines) == 0 {
				return "none", nil
			}
			return strings.ToLower(lines[0]), nil
		}},
	)
	if err != nil {
		return nil, err
	}
	return &models.Virtualization{Type: typ, Source: source}, nil
}

func init() {
	fetcher.RegisterDataFetcher(&virtualizationFetcher{})
}
