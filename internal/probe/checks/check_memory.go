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

// MinMemoryKiB is 6 GiB.
const MinMemoryKiB uint64 = 6 * 1024 * 1024

type MemoryCheck struct{}

func (c *MemoryCheck) ID() string {
	return "memory"
}

func (c *MemoryCheck) Title() string {
	return "Physical Memory"
}

func (c *MemoryCheck) Description() string {
	return "Requires at least 6 GiB of RAM (MemTotal)."
}

func (c *MemoryCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepMemory}
}

func (c *MemoryCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	mem, res := fact[*models.Memory](dc, c.ID(), data.DepMemory)
	if res != nil {
		return *res, nil
	}

	have := humanize.IBytes(mem.TotalKiB * 1024)
	ev := strconv.FormatUint(mem.TotalKiB, 10)
	if mem.TotalKiB < MinMemoryKiB {
		return probe.Fail(c.ID(), fmt.Sprintf("%s RAM, need %s", have, humanize.IBytes(MinMemoryKiB*1024))).
			WithEvidence("mem_total_kib", ev), nil
	}
	return probe.Pass(c.ID(), have+" RAM").WithEvidence("mem_total_kib", ev), nil
}

func init() {
	probe.Register(&MemoryCheck{})
}
