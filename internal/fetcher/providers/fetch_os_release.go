package providers

import (
	"context"
	"errors"
	"io/fs"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
	"mailstack/internal/host"
)

type osReleaseFetcher struct{}

func (o *osReleaseFetcher) Key() data.DependencyKey { return data.DepOSRelease }

func (o *osReleaseFetcher) Fetch(_ context.Context, f *fetcher.Fetcher) (any, error) {
	raw, err := f.Host().System.ReadFile(host.OSReleasePath)
	if errors.Is(err, fs.ErrNotExist) {
		return &models.OSRelease{Found: false}, nil
	}
	if err != nil {
		return nil, err
	}
	rel, err := host.ParseOSRelease(raw)
	if err != nil {
		return nil, err
	}
	return &models.OSRelease{
		Found:      true,
		ID:         rel.ID,
		VersionID:  rel.VersionID,
		PrettyName: rel.PrettyName,
	}, nil
}

func init() {
	fetcher.RegisterDataFetcher(&osReleaseFetcher{})
}
