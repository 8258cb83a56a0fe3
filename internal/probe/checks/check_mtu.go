package checks

import (
	"context"
	"fmt"
	"strconv"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/probe"
)

const standardMTU = 1500

type MTUCheck struct{}

func (c *MTUCheck) ID() string {
	return "mtu"
}

func (c *MTUCheck) Title() string {
	return "Default Route MTU"
}

func (c *MTUCheck) Description() string {
	return "Warns when the default-route interface MTU differs from 1500, which breaks container networking unless configured."
}

func (c *MTUCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepDefaultRoute}
}

func (c *MTUCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	route, res := fact[*models.DefaultRoute](dc, c.ID(), data.DepDefaultRoute)
	if res != nil {
		return *res, nil
	}
	if !route.Found {
		return probe.Skipped(c.ID(), "no default route"), nil
	}
	ev := strconv.Itoa(route.MTU)
	if route.MTU != standardMTU {
		return probe.Warn(c.ID(), fmt.Sprintf("%s MTU is %d; set the compose network MTU to match", route.Interface, route.MTU)).
			WithEvidence("interface", route.Interface).
			WithEvidence("mtu", ev), nil
	}
	return probe.Pass(c.ID(), fmt.Sprintf("%s MTU %d", route.Interface, route.MTU)).
		WithEvidence("interface", route.Interface).
		WithEvidence("mtu", ev), nil
}

func init() {
	probe.Register(&MTUCheck{})
}
