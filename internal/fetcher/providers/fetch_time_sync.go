package providers

import (
	"context"
	"errors"
	"strings"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
	"mailstack/internal/host"
)

type timeSyncFetcher struct{}

func (t *timeSyncFetcher) Key() data.DependencyKey { return data.DepTimeSync }

func (t *timeSyncFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	r := f.Host().Runner

	synced, source, err := host.FirstSuccess(ctx,
		host.Candidate[bool]{Name: "timedatectl show", Probe: func(ctx context.Context) (bool, error) {
			res, err := r.Run(ctx, host.Cmd("timedatectl", "show", "-p", "NTPSynchronized", "--value"))
			if err != nil {
				return false, err
			}
			return parseYesNo(strings.TrimSpace(res.Stdout))
		}},
		host.Candidate[bool]{Name: "timedatectl status", Probe: func(ctx context.Context) (bool, error) {
			res, err := r.Run(ctx, host.Cmd("timedatectl", "status"))
			if err != nil {
				return false, err
			}
			for _, line := range strings.Split(res.Stdout, "\n") {
				key, value, ok := strings.Cut(line, ":")
				if !ok {
					continue
				}
				switch strings.TrimSpace(key) {
				case "System clock synchronized", "NTP synchronized":
					return parseYesNo(strings.TrimSpace(value))
				}
			}
			return false, host.ErrUnknown
		}},
	)
	if errors.Is(err, host.ErrUnknown) {
		return &models.TimeSync{Known: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.TimeSync{Known: true, Synchronized: synced, Source: source}, nil
}

func parseYesNo(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	}
	return false, host.ErrUnknown
}

func init() {
	fetcher.RegisterDataFetcher(&timeSyncFetcher{})
}
