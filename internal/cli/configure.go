package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mailstack/internal/journal"
	"mailstack/internal/provision"
)

func (a *app) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config <hostname> <timezone>",
		Short: "Generate the mailcow settings file",
		Long: `Generate mailcow.conf for the mailcow checkout with fresh random secrets.

The checkout is the current directory when it holds a mailcow
docker-compose.yml, otherwise --install-dir. An existing mailcow.conf is
renamed to mailcow.conf.backup.<UTC timestamp>, never overwritten. .env is
pointed at the new file and a self-signed fallback certificate is created when
none exists. Secrets are written only to mailcow.conf and
DEPLOYMENT_INFO.txt, both mode 0600.

Examples:
  mailstack config mail.example.com Europe/Berlin
  mailstack --install-dir /srv/mailcow config mail.example.com UTC`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := provision.ComposeParams(args[0], args[1])
			if err != nil {
				return err
			}
			h := a.host()
			if err := requireRoot(cmd, h); err != nil {
				return err
			}
			release, err := a.lock(cmd)
			if err != nil {
				return err
			}
			defer release()

			ctx := cmd.Context()
			j := a.openJournal(ctx)
			defer closeJournal(j)
			rec := a.recorder(j, journal.NewRunID(), "config")

			gen := provision.NewGenerator(a.fetcher(h), a.logger)
			gen.Getwd = a.getwd
			c, err := gen.Generate(ctx, params.Hostname, params.Timezone)
			if err != nil {
				rec(ctx, journal.Entry{Detail: params.Hostname, Error: err.Error()})
				return err
			}
			rec(ctx, journal.Entry{To: "CONFIGURED", Detail: "settings " + c.SettingsPath})

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Settings written to %s\n", c.SettingsPath)
			if c.BackupPath != "" {
				fmt.Fprintf(w, "Previous settings kept as %s\n", c.BackupPath)
			}
			fmt.Fprintf(w, "Credentials recorded in %s (mode 0600)\n", c.DeploymentInfoPath)
			if c.SkipClamd {
				fmt.Fprintln(w, "ClamAV disabled: not enough memory")
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Create these DNS records before installing:")
			fmt.Fprintf(w, "  %s.  A     <public IPv4 of this host>\n", c.Params.Hostname)
			fmt.Fprintf(w, "  %s.  MX 10 %s.\n", c.Params.Domain, c.Params.Hostname)
			fmt.Fprintf(w, "  %s.  TXT   \"v=spf1 mx -all\"\n", c.Params.Domain)
			fmt.Fprintf(w, "  autodiscover.%s.  CNAME %s.\n", c.Params.Domain, c.Params.Hostname)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Next: mailstack install")
			return nil
		},
	}
}
