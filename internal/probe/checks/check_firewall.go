package checks

import (
	"context"
	"fmt"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/probe"
)

type FirewallCheck struct{}

func (c *FirewallCheck) ID() string {
	return "firewall"
}

func (c *FirewallCheck) Title() string {
	return "Host Firewall"
}

func (c *FirewallCheck) Description() string {
	return "Warns when firewalld or ufw is active, since mail ports must be opened explicitly."
}

func (c *FirewallCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepFirewall}
}

func (c *FirewallCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	fw, res := fact[*models.Firewall](dc, c.ID(), data.DepFirewall)
	if res != nil {
		return *res, nil
	}
	if fw.Active != "" {
		return probe.Warn(c.ID(), fmt.Sprintf("%s is active; make sure the mail ports are open", fw.Active)).
			WithCause(probe.CauseFirewallActive).
			WithEvidence("manager", fw.Active), nil
	}
	return probe.Pass(c.ID(), "no active firewall manager"), nil
}

func init() {
	probe.Register(&FirewallCheck{})
}
