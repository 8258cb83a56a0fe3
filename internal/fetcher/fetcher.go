package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mailstack/internal/data"
	"mailstack/internal/host"
	"mailstack/internal/logfields"
)

// DefaultInstallDir is measured for free disk space when no other path is set.
const DefaultInstallDir = "/opt/mailcow-dockerized"

type Fetcher struct {
	host       host.Host
	group      Group
	cache      *Cache
	installDir string
	logger     *slog.Logger
}

type fetchChainKey struct{}

type Option func(*Fetcher)

// WithInstallDir sets the path whose filesystem is measured by the disk fact.
func WithInstallDir(dir string) Option {
	return func(f *Fetcher) {
		if dir != "" {
			f.installDir = dir
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

func NewFetcher(h host.Host, opts ...Option) *Fetcher {
	f := &Fetcher{
		host:       h,
		cache:      NewCache(),
		installDir: DefaultInstallDir,
		logger:     slog.Default(),
	}
	for _, apply := range opts {
		if apply != nil {
			apply(f)
		}
	}
	return f
}

func (f *Fetcher) Host() host.Host {
	return f.host
}

func (f *Fetcher) InstallDir() string {
	return f.installDir
}

// Fetch returns the fact for key, gathering it at most once per Fetcher.
// Failures are cached too: every check depending on a fact sees the same
// outcome for the whole run.
func (f *Fetcher) Fetch(ctx context.Context, key data.DependencyKey) (any, error) {
	if ctx == nil {
		return nil, fmt.Errorf("Fetch: nil context")
	}
	if f == nil {
		return nil, fmt.Errorf("Fetch: nil Fetcher")
	}
	if f.host.Runner == nil || f.host.System == nil {
		return nil, fmt.Errorf("Fetch: host collaborators not set (use NewFetcher)")
	}
	if f.cache == nil {
		return nil, fmt.Errorf("Fetch: nil cache (use NewFetcher)")
	}
	if key == "" {
		return nil, fmt.Errorf("Fetch: empty dependency key")
	}

	fetchImpl, ok := ResolveDataFetcher(key)
	if !ok {
		return nil, fmt.Errorf("unsupported dependency key: %s", key)
	}

	ctx, err := withFetchChain(ctx, string(key))
	if err != nil {
		return nil, err
	}

	if entry, ok := f.cache.Get(string(key)); ok {
		return entry.Value, entry.Err
	}

	val, err := f.group.Do(string(key), func() (any, error) {
		start := time.Now()
		v, err := fetchImpl.Fetch(ctx, f)
		f.logger.Debug("fact gathered", slog.String("fact", string(key)), logfields.Duration(time.Since(start)), logfields.Error(err))
		return v, err
	})

	f.cache.Set(string(key), Entry{Value: val, Err: err})
	return val, err
}

// Gather fetches every key with at most concurrency facts in flight. Facts are
// independent, so order only affects latency. Per-fact failures are returned
// in errs; they never abort the other gathers.
func (f *Fetcher) Gather(ctx context.Context, keys []data.DependencyKey, concurrency int) (values map[data.DependencyKey]any, errs map[data.DependencyKey]error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	sorted := append([]data.DependencyKey(nil), keys...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := data.Priority(sorted[i]), data.Priority(sorted[j])
		if pi != pj {
			return pi < pj
		}
		return sorted[i] < sorted[j]
	})

	values = make(map[data.DependencyKey]any, len(sorted))
	errs = make(map[data.DependencyKey]error)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, key := range sorted {
		g.Go(func() error {
			v, err := f.Fetch(gctx, key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[key] = err
				return nil
			}
			values[key] = v
			return nil
		})
	}
	_ = g.Wait()
	return values, errs
}

func withFetchChain(ctx context.Context, flightKey string) (context.Context, error) {
	chain := getFetchChain(ctx)
	for _, existing := range chain {
		if existing == flightKey {
			return nil, fmt.Errorf("Fetch: dependency cycle detected: %s -> %s", strings.Join(chain, " -> "), flightKey)
		}
	}

	updated := make([]string, 0, len(chain)+1)
	updated = append(updated, chain...)
	updated = append(updated, flightKey)
	return context.WithValue(ctx, fetchChainKey{}, updated), nil
}

func getFetchChain(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	v := ctx.Value(fetchChainKey{})
	chain, ok := v.([]string)
	if !ok {
		return nil
	}
	return chain
}
