package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mailstack/internal/config"
	"mailstack/internal/errs"
	"mailstack/internal/install"
	"mailstack/internal/journal"
	"mailstack/internal/provision"
)

func (a *app) newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage mailboxes of the native stack",
		Long: `Manage virtual mailboxes of the native Postfix/Dovecot stack.

Passwords are stored as bcrypt hashes in /etc/dovecot/users. mailcow mailboxes
are managed in the mailcow web UI instead.

Examples:
  mailstack --flavor native user add alice@example.com
  mailstack --flavor native user list
  mailstack --flavor native user delete alice@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(a.newUserAddCmd(), a.newUserListCmd(), a.newUserDeleteCmd())
	return cmd
}

func (a *app) userStore(cmd *cobra.Command) (*install.UserStore, error) {
	if a.cfg.Stack.Flavor != config.FlavorNative {
		return nil, errs.Precondition(cmd.CommandPath(), "mailboxes are only managed for the native flavor").
			WithRemediation("mailstack --flavor native " + strings.TrimPrefix(cmd.CommandPath(), "mailstack "))
	}
	h := a.host()
	if err := requireRoot(cmd, h); err != nil {
		return nil, err
	}
	return install.NewUserStore(h.Runner, a.root), nil
}

func (a *app) newUserAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <address>",
		Short: "Create a mailbox",
		Long: `Create a mailbox. The password is read from the terminal, or from one line
of standard input when it is not a terminal. An empty password generates a
random one, which is printed once.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			username, domain, err := install.ParseAddress(args[0])
			if err != nil {
				return err
			}
			store, err := a.userStore(cmd)
			if err != nil {
				return err
			}

			password, err := a.readSecret("Password for " + username + "@" + domain + " (empty to generate): ")
			if err != nil {
				return err
			}
			generated := password == ""
			if generated {
				if password, err = provision.GenerateSecret(nil, 20); err != nil {
					return err
				}
			}

			release, err := a.lock(cmd)
			if err != nil {
				return err
			}
			defer release()
			j := a.openJournal(ctx)
			defer closeJournal(j)
			rec := a.recorder(j, journal.NewRunID(), "user add")

			u, err := store.Add(ctx, username, domain, password)
			if err != nil {
				rec(ctx, journal.Entry{Detail: username + "@" + domain, Error: err.Error()})
				return err
			}
			rec(ctx, journal.Entry{Detail: "added " + u.Address()})

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Created %s (%s)\n", u.Address(), u.Maildir)
			if generated {
				fmt.Fprintf(w, "Password: %s\n(shown once)\n", password)
			}
			return nil
		},
	}
}

func (a *app) newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List mailboxes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.userStore(cmd)
			if err != nil {
				return err
			}
			users, err := store.List()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(w, "No mailboxes.")
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ADDRESS\tMAILDIR")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\n", u.Address(), u.Maildir)
			}
			return tw.Flush()
		},
	}
}

func (a *app) newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <address>",
		Short: "Delete a mailbox and its mail",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			username, domain, err := install.ParseAddress(args[0])
			if err != nil {
				return err
			}
			store, err := a.userStore(cmd)
			if err != nil {
				return err
			}
			release, err := a.lock(cmd)
			if err != nil {
				return err
			}
			defer release()
			j := a.openJournal(ctx)
			defer closeJournal(j)
			rec := a.recorder(j, journal.NewRunID(), "user delete")

			addr := username + "@" + domain
			if err := store.Delete(ctx, username, domain); err != nil {
				rec(ctx, journal.Entry{Detail: addr, Error: err.Error()})
				return err
			}
			rec(ctx, journal.Entry{Detail: "deleted " + addr})
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", addr)
			return nil
		},
	}
}

// readTerminalSecret reads a password without echo when stdin is a terminal
// and one line of stdin otherwise.
func (a *app) readTerminalSecret(prompt string) (string, error) {
	if f, ok := a.stdin.(*os.File); ok && a.isTerminal() {
		fmt.Fprint(a.stderr, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", nil
	}
	return strings.TrimRight(line, "\r\n"), nil
}
