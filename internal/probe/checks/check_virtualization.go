package checks

import (
	"context"
	"fmt"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/probe"
)

type VirtualizationCheck struct{}

func (c *VirtualizationCheck) ID() string {
	return "virtualization"
}

func (c *VirtualizationCheck) Title() string {
	return "Virtualization Type"
}

func (c *VirtualizationCheck) Description() string {
	return "Full virtualization and bare metal pass; OpenVZ and LXC cannot run the container stack."
}

func (c *VirtualizationCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepVirtualization}
}

func (c *VirtualizationCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	v, res := fact[*models.Virtualization](dc, c.ID(), data.DepVirtualization)
	if res != nil {
		return *res, nil
	}

	switch v.Type {
	case "none":
		return probe.Pass(c.ID(), "bare metal").WithEvidence("type", v.Type), nil
	case "kvm", "vmware", "hyperv", "microsoft":
		return probe.Pass(c.ID(), v.Type).WithEvidence("type", v.Type), nil
	case "openvz", "lxc":
		return probe.Fail(c.ID(), fmt.Sprintf("%s containers are not supported", v.Type)).WithEvidence("type", v.Type), nil
	default:
		return probe.Warn(c.ID(), fmt.Sprintf("untested virtualization %q", v.Type)).WithEvidence("type", v.Type), nil
	}
}

func init() {
	probe.Register(&VirtualizationCheck{})
}
