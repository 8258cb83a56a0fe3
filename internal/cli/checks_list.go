package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mailstack/internal/errs"
	"mailstack/internal/probe"
)

func (a *app) newChecksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checks",
		Short: "List readiness checks",
		Long: `Discover which readiness checks exist and what each one verifies.
Checks run during "mailstack check" and before "mailstack install".

Examples:
  mailstack checks list
  mailstack checks show memory`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var quiet bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List available checks",
		Long: `List all checks registered in this build, sorted by check ID.

Output:
  ----------------------------------------
  CHECK: {ID}
  ----------------------------------------
  {TITLE}
  {DESCRIPTION}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range probe.List() {
				if quiet {
					fmt.Fprintln(cmd.OutOrStdout(), c.ID())
				} else {
					printCheck(cmd.OutOrStdout(), c)
				}
			}
			return nil
		},
	}
	list.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print check IDs")

	show := &cobra.Command{
		Use:   "show <check-id>",
		Short: "Show details of a check",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ok := probe.Get(args[0])
			if !ok {
				return errs.Validation("checks show", "unknown check %q", args[0]).
					WithRemediation("mailstack checks list -q")
			}
			printCheck(cmd.OutOrStdout(), c)
			return nil
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func printCheck(w io.Writer, c probe.Check) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "CHECK: %s\n", c.ID())
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, c.Title())
	fmt.Fprintln(w, c.Description())

	if deps := c.Dependencies(); len(deps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Host facts:")
		for _, d := range deps {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
	fmt.Fprintln(w)
}
