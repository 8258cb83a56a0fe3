package checks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/probe"
)

// MinSwapKiB is 1 GiB.
const MinSwapKiB uint64 = 1024 * 1024

type SwapCheck struct{}

func (c *SwapCheck) ID() string {
	return "swap"
}

func (c *SwapCheck) Title() string {
	return "Swap Space"
}

func (c *SwapCheck) Description() string {
	return "Recommends at least 1 GiB of swap (SwapTotal)."
}

func (c *SwapCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepMemory}
}

func (c *SwapCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	mem, res := fact[*models.Memory](dc, c.ID(), data.DepMemory)
	if res != nil {
		return *res, nil
	}

	ev := strconv.FormatUint(mem.SwapTotalKiB, 10)
	if mem.SwapTotalKiB < MinSwapKiB {
		return probe.Warn(c.ID(), fmt.Sprintf("%s swap, recommend at least 1 GiB", humanize.IBytes(mem.SwapTotalKiB*1024))).
			WithCause(probe.CauseSwapLow).
			WithEvidence("swap_total_kib", ev), nil
	}
	return probe.Pass(c.ID(), humanize.IBytes(mem.SwapTotalKiB*1024)+" swap").WithEvidence("swap_total_kib", ev), nil
}

func init() {
	probe.Register(&SwapCheck{})
}
