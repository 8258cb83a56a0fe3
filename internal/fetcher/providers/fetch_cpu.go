package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/fetcher"
	"mailstack/internal/host"
)

type cpuFetcher struct{}

func (c *cpuFetcher) Key() data.DependencyKey { return data.DepCPU }

func (c *cpuFetcher) Fetch(ctx context.Context, f *fetcher.Fetcher) (any, error) {
	h := f.Host()

	cpu, _, err := host.FirstSuccess(ctx,
		host.Candidate[*models.CPU]{Name: "/proc/cpuinfo", Probe: func(context.Context) (*models.CPU, error) {
			raw, err := h.System.ReadFile("/proc/cpuinfo")
			if err != nil {
				return nil, err
			}
			return parseCPUInfo(string(raw))
		}},
		host.Candidate[*models.CPU]{Name: "lscpu", Probe: func(ctx context.Context) (*models.CPU, error) {
			res, err := h.Runner.Run(ctx, host.Cmd("lscpu"))
			if err != nil {
				return nil, err
			}
			return parseLscpu(res.Stdout)
		}},
	)
	if err != nil {
		return nil, err
	}

	// Many ARM and virtual hosts omit "cpu MHz" from cpuinfo; lscpu may still know.
	if !cpu.ClockKnown {
		if res, err := h.Runner.Run(ctx, host.Cmd("lscpu")); err == nil {
			if alt, err := parseLscpu(res.Stdout); err == nil && alt.ClockKnown {
				cpu.MHz = alt.MHz
				cpu.ClockKnown = true
			}
		}
	}
	return cpu, nil
}

func parseCPUInfo(content string) (*models.CPU, error) {
	cpu := &models.CPU{}
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "processor":
			cpu.Cores++
		case "model name":
			if cpu.Model == "" {
				cpu.Model = value
			}
		case "cpu MHz":
			if !cpu.ClockKnown {
				if mhz, err := strconv.ParseFloat(value, 64); err == nil && mhz > 0 {
					cpu.MHz = mhz
					cpu.ClockKnown = true
				}
			}
		}
	}
	if cpu.Cores == 0 {
		return nil, fmt.Errorf("cpuinfo: no processor entries")
	}
	return cpu, nil
}

func parseLscpu(out string) (*models.CPU, error) {
	cpu := &models.CPU{}
	var maxMHz, curMHz float64
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "CPU(s)":
			if n, err := strconv.Atoi(value); err == nil {
				cpu.Cores = n
			}
		case "Model name":
			cpu.Model = value
		case "CPU max MHz":
			maxMHz, _ = strconv.ParseFloat(value, 64)
		case "CPU MHz":
			curMHz, _ = strconv.ParseFloat(value, 64)
		}
	}
	if cpu.Cores == 0 {
		return nil, fmt.Errorf("lscpu: no CPU(s) line")
	}
	switch {
	case maxMHz > 0:
		cpu.MHz, cpu.ClockKnown = maxMHz, true
	case curMHz > 0:
		cpu.MHz, cpu.ClockKnown = curMHz, true
	}
	return cpu, nil
}

func init() {
	fetcher.RegisterDataFetcher(&cpuFetcher{})
}
