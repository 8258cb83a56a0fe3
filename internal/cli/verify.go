package cli

import (
	"github.com/spf13/cobra"

	"mailstack/internal/engine"
)

func (a *app) newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the running mail stack",
		Long: `Verify an installed mail stack from the outside.

Both daemons must be active, their ports must listen and the mail queue must be
readable. An SMTP handshake on 127.0.0.1:25 is attempted as well; when it fails
the result is a warning only.

Examples:
  mailstack verify
  mailstack --flavor native verify --out verify.json

Exit codes:
  0 = every verification passed
  1 = at least one verification failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h := a.host()
			if err := requireRoot(cmd, h); err != nil {
				return err
			}
			b, err := a.backend(h, false)
			if err != nil {
				return err
			}
			rep := a.verifier(b, h).Verify(cmd.Context())
			v, err := a.engine(h).Publish(a.cfg, a.stdout, engine.RunVerify, rep)
			if err != nil {
				return err
			}
			return exitFor(v)
		},
	}
	a.addOutputFlags(cmd)
	return cmd
}
