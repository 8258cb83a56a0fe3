package install

import (
	"context"

	"mailstack/internal/host"
)

// Backend is one installation flavor. Every method blocks until its
// collaborators exit.
type Backend interface {
	// Flavor is the config name of the backend ("native", "compose").
	Flavor() string

	// Detect queries the host for both daemons.
	Detect(ctx context.Context) (Inventory, error)

	// Reconcile destructively removes a partial or stopped installation.
	// Stopping is best-effort; removal failures are fatal.
	Reconcile(ctx context.Context) error

	Install(ctx context.Context) error
	Configure(ctx context.Context) error
	Start(ctx context.Context) error

	// Bootstrap creates the smoke-test artifacts of a fresh install.
	Bootstrap(ctx context.Context) (*BootstrapUser, error)

	// RequiredPorts lists the TCP ports the running stack must listen on.
	RequiredPorts() []int

	// QueueCommand inspects the mail queue.
	QueueCommand() host.Command

	// TeardownHint is the manual command that removes a live stack.
	TeardownHint() string

	// LogHint is the command that shows daemon logs.
	LogHint() string
}

// BootstrapUser is the smoke-test mailbox created on a native install. The
// password is shown to the operator once and never logged.
type BootstrapUser struct {
	Address  string
	Password string
}
