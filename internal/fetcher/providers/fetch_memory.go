package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
)

const procMeminfo = "/proc/meminfo"

type memoryFetcher struct{}

func (m *memoryFetcher) Key() data.DependencyKey { return data.DepMemory }

func (m *memoryFetcher) Fetch(_ context.Context, f *fetcher.Fetcher) (any, error) {
	raw, err := f.Host().System.ReadFile(procMeminfo)
	if err != nil {
		return nil, err
	}
	return parseMeminfo(string(raw))
}

// parseMeminfo reads MemTotal and SwapTotal. Values are in kB as printed by
// the kernel (which means KiB).
func parseMeminfo(content string) (*models.Memory, error) {
	mem := &models.Memory{}
	var haveTotal bool
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "MemTotal":
			mem.TotalKiB = n
			haveTotal = true
		case "SwapTotal":
			mem.SwapTotalKiB = n
		}
	}
	if !haveTotal {
		return nil, fmt.Errorf("%s: MemTotal not found", procMeminfo)
	}
	return mem, nil
}

func init() {
	fetcher.RegisterDataFetcher(&memoryFetcher{})
}
