package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mailstack/internal/errs"
	"mailstack/internal/flags"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded pipeline runs",
		Long: `Show the most recent entries of the run journal, oldest first.

The journal records every state transition of config, install, uninstall and
mailbox changes. It is informational: installation state is always detected
from the host, never read from the journal.

Examples:
  mailstack history
  mailstack history --limit 200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Paths.Journal == "" {
				return errs.Precondition("history", "the run journal is disabled").
					WithRemediation("set paths.journal in " + a.configPath)
			}
			if limit <= 0 {
				return errs.Validation("history", "--%s must be positive", flags.FlagLimit)
			}
			ctx := cmd.Context()
			j := a.openJournal(ctx)
			if j == nil {
				return errs.Precondition("history", "cannot open the run journal %s", a.cfg.Paths.Journal)
			}
			defer closeJournal(j)

			entries, err := j.List(ctx, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tRUN\tCOMMAND\tFLAVOR\tTRANSITION\tDETAIL")
			for _, e := range entries {
				step := e.To
				if e.From != "" {
					step = e.From + " -> " + e.To
				}
				detail := e.Detail
				if e.Error != "" {
					detail = "ERROR: " + e.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					humanize.Time(e.At), shortID(e.RunID), e.Command, e.Flavor, step, detail)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, flags.FlagLimit, 50, "Number of entries to show")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
