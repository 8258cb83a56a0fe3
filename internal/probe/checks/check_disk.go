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

// MinDiskBytes is 20 GiB.
const MinDiskBytes uint64 = 20 << 30

type DiskCheck struct{}

func (c *DiskCheck) ID() string {
	return "disk"
}

func (c *DiskCheck) Title() string {
	return "Free Disk Space"
}

func (c *DiskCheck) Description() string {
	return "Requires at least 20 GiB free on the filesystem holding the install directory."
}

func (c *DiskCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepDisk}
}

func (c *DiskCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	disk, res := fact[*models.Disk](dc, c.ID(), data.DepDisk)
	if res != nil {
		return *res, nil
	}

	free := humanize.IBytes(disk.FreeBytes)
	out := probe.Pass(c.ID(), fmt.Sprintf("%s free for %s", free, disk.Path))
	if disk.FreeBytes < MinDiskBytes {
		out = probe.Fail(c.ID(), fmt.Sprintf("%s free for %s, need %s", free, disk.Path, humanize.IBytes(MinDiskBytes)))
	}
	return out.WithEvidence("path", disk.Path).WithEvidence("free_bytes", strconv.FormatUint(disk.FreeBytes, 10)), nil
}

func init() {
	probe.Register(&DiskCheck{})
}
