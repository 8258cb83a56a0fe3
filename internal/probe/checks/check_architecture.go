package checks

import (
	"context"
	"fmt"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/probe"
)

var supportedArchitectures = map[string]bool{
	"x86_64":  true,
	"aarch64": true,
}

type ArchitectureCheck struct{}

func (c *ArchitectureCheck) ID() string {
	return "architecture"
}

func (c *ArchitectureCheck) Title() string {
	return "Supported CPU Architecture"
}

func (c *ArchitectureCheck) Description() string {
	return "Verifies that the kernel machine type is x86_64 or aarch64."
}

func (c *ArchitectureCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepArch}
}

func (c *ArchitectureCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	arch, res := fact[*models.Arch](dc, c.ID(), data.DepArch)
	if res != nil {
		return *res, nil
	}
	if !supportedArchitectures[arch.Machine] {
		return probe.Fail(c.ID(), fmt.Sprintf("unsupported architecture %q (need x86_64 or aarch64)", arch.Machine)).
			WithEvidence("machine", arch.Machine), nil
	}
	return probe.Pass(c.ID(), arch.Machine).WithEvidence("machine", arch.Machine), nil
}

func init() {
	probe.Register(&ArchitectureCheck{})
}
