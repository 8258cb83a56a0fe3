package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mailstack/internal/errs"
	"mailstack/internal/flags"
	"mailstack/internal/install"
	"mailstack/internal/journal"
)

func (a *app) newUninstallCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the mail stack (DESTRUCTIVE)",
		Long: `Remove the installed mail stack.

For the native flavor this stops Postfix and Dovecot, purges their packages and
deletes their configuration together with every mailbox under /var/mail/vhosts.
For the compose flavor the project is taken down; volumes are kept.

Examples:
  mailstack uninstall
  mailstack --flavor native uninstall --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h := a.host()
			if err := requireRoot(cmd, h); err != nil {
				return err
			}
			b, err := a.backend(h, false)
			if err != nil {
				return err
			}
			inv, err := b.Detect(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if inv.State() == install.StateAbsent {
				fmt.Fprintln(w, "Nothing to remove.")
				return nil
			}

			if !yes {
				ok, err := a.confirm(fmt.Sprintf("Remove the %s mail stack (%s)? Mail data may be lost. [y/N] ", b.Flavor(), inv))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(w, "Aborted.")
					return nil
				}
			}

			release, err := a.lock(cmd)
			if err != nil {
				return err
			}
			defer release()
			j := a.openJournal(ctx)
			defer closeJournal(j)

			m := install.NewMachine(b, a.logger)
			m.OnTransition = transitions(a.recorder(j, journal.NewRunID(), "uninstall"))
			removed, err := m.Teardown(ctx)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintf(w, "Removed the %s mail stack.\n", b.Flavor())
			} else {
				fmt.Fprintln(w, "Nothing to remove.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, flags.FlagYes, false, "Do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question on the terminal. Without a terminal the
// answer cannot be trusted and the command must be re-run with --yes.
func (a *app) confirm(prompt string) (bool, error) {
	if !a.isTerminal() {
		return false, errs.Precondition("confirm", "refusing to remove without confirmation on a non-interactive input").
			WithRemediation("mailstack uninstall --yes")
	}
	fmt.Fprint(a.stdout, prompt)
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
