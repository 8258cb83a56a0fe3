package providers

import (
	"context"
	"strings"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
)

type archFetcher struct{}

func (a *archFetcher) Key() data.DependencyKey { return data.DepArch }

func (a *archFetcher) Fetch(_ context.Context, f *fetcher.Fetcher) (any, error) {
	m, err := f.Host().System.Machine()
	if err != nil {
		return nil, err
	}
	return &models.Arch{Machine: strings.TrimSpace(m)}, nil
}

func init() {
	fetcher.RegisterDataFetcher(&archFetcher{})
}
