package providers

import (
	"context"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
)

type diskFetcher struct{}

func (d *diskFetcher) Key() data.DependencyKey { return data.DepDisk }

func (d *diskFetcher) Fetch(_ context.Context, f *fetcher.Fetcher) (any, error) {
	path := f.InstallDir()
	free, err := f.Host().System.DiskFree(path)
	if err != nil {
		return nil, err
	}
	return &models.Disk{Path: path, FreeBytes: free}, nil
}

func init() {
	fetcher.RegisterDataFetcher(&diskFetcher{})
}
