package checks

import (
	"context"
	"fmt"
	"strconv"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/probe"
)

type CPUCheck struct{}

func (c *CPUCheck) ID() string {
	return "cpu"
}

func (c *CPUCheck) Title() string {
	return "CPU"
}

func (c *CPUCheck) Description() string {
	return "Reports processor count and clock speed. Informational only."
}

func (c *CPUCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepCPU}
}

func (c *CPUCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	cpu, res := fact[*models.CPU](dc, c.ID(), data.DepCPU)
	if res != nil {
		return *res, nil
	}

	msg := fmt.Sprintf("%d cores", cpu.Cores)
	if cpu.ClockKnown {
		msg = fmt.Sprintf("%d cores @ %.0f MHz", cpu.Cores, cpu.MHz)
	}
	out := probe.Pass(c.ID(), msg).WithEvidence("cores", strconv.Itoa(cpu.Cores))
	if cpu.ClockKnown {
		out = out.WithEvidence("mhz", strconv.FormatFloat(cpu.MHz, 'f', 0, 64))
	}
	return out, nil
}

func init() {
	probe.Register(&CPUCheck{})
}
