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

type containerRuntimeFetcher struct{}

func (c *containerRuntimeFetcher) Key() data.DependencyKey { return data.DepContainerRuntime }

func (c *containerRuntimeFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	r := f.Host().Runner
	rt := &models.ContainerRuntime{}

	res, err := r.Run(ctx, host.Cmd("docker", "--version"))
	switch {
	case err == nil:
		rt.EnginePresent = true
		rt.EngineVersion = firstLine(res.Stdout)
	case errors.Is(err, host.ErrNotFound):
		return rt, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		// A docker binary that cannot report its version is not usable.
		return rt, nil
	}

	res, err = r.Run(ctx, host.Cmd("docker", "compose", "version"))
	if err == nil {
		rt.ComposePresent = true
		rt.ComposeVersion = firstLine(res.Stdout)
	}
	return rt, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

func init() {
	fetcher.RegisterDataFetcher(&containerRuntimeFetcher{})
}
