package checks

import (
	"context"
	"fmt"
	"strconv"

	"mailstack/internal/data"
	"mailstack/internal/data/models"
	"mailstack/internal/probe"
)

// MailPorts are the TCP ports the mail stack binds: SMTP, HTTP(S), POP3,
// IMAP, submission, their TLS variants, and ManageSieve.
var MailPorts = []int{25, 80, 110, 143, 443, 465, 587, 993, 995, 4190}

// PortCheck fails when Port is already bound by another process.
type PortCheck struct {
	Port int
}

func (c *PortCheck) ID() string {
	return "port-" + strconv.Itoa(c.Port)
}

func (c *PortCheck) Title() string {
	return fmt.Sprintf("Port %d Available", c.Port)
}

func (c *PortCheck) Description() string {
	return fmt.Sprintf("Verifies that no process is listening on TCP port %d.", c.Port)
}

func (c *PortCheck) Dependencies() []data.DependencyKey {
	return []data.DependencyKey{data.DepListeningPorts}
}

func (c *PortCheck) Evaluate(_ context.Context, dc data.DataContext) (probe.Result, error) {
	ports, res := fact[*models.ListeningPorts](dc, c.ID(), data.DepListeningPorts)
	if res != nil {
		return *res, nil
	}
	if !ports.Bound(c.Port) {
		return probe.Pass(c.ID(), "free"), nil
	}
	owner := ports.Ports[c.Port]
	msg := fmt.Sprintf("port %d already in use", c.Port)
	if owner != "" {
		msg = fmt.Sprintf("port %d already in use by %s", c.Port, owner)
	}
	return probe.Fail(c.ID(), msg).WithEvidence("process", owner), nil
}

func init() {
	for _, p := range MailPorts {
		probe.Register(&PortCheck{Port: p})
	}
}
