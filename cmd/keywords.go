package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tuffix/internal/errs"
	"tuffix/internal/installer"
	"tuffix/internal/keyword"
	"tuffix/internal/state"
)

// newAddCmd installs keywords and records them in the state file.
// `tuffix add all` installs every keyword not installed yet.
func newAddCmd(inv *invocation) *cobra.Command {
	c := &cobra.Command{
		Use:   "add",
		Short: "add (install) one or more keywords",
		// arity is checked by installer.Mark, together with "all"
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return installer.Mark(inv.installer(), installer.Add, args)
		},
	}
	c.Flags().BoolVarP(&inv.yes, "yes", "y", false, "Do not ask before adding all keywords")
	return c
}

// newRemoveCmd is the inverse of add.
func newRemoveCmd(inv *invocation) *cobra.Command {
	c := &cobra.Command{
		Use:   "remove",
		Short: "remove (uninstall) one or more keywords",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return installer.Mark(inv.installer(), installer.Remove, args)
		},
	}
	c.Flags().BoolVarP(&inv.yes, "yes", "y", false, "Do not ask before removing all keywords")
	return c
}

// newListCmd prints the catalog. It works without a state file.
func newListCmd(inv *invocation) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list all available keywords",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "tuffix list of keywords:")
			for _, k := range keyword.All(inv.tools) {
				fmt.Fprintf(out, "%-*s  %s\n", keyword.MaxNameLength, k.Name(), k.Description())
			}
			return nil
		},
	}
}

// newInstalledCmd prints what the state file records. Names this build does
// not know (left behind by an older version) are flagged rather than hidden.
func newInstalledCmd(inv *invocation) *cobra.Command {
	return &cobra.Command{
		Use:   "installed",
		Short: "list all currently-installed keywords",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := state.Read(inv.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(st.Installed) == 0 {
				fmt.Fprintln(out, "no keywords are installed")
				return nil
			}
			fmt.Fprintln(out, "tuffix installed keywords:")
			for _, name := range st.Installed {
				if keyword.Known(inv.tools, name) {
					fmt.Fprintln(out, name)
				} else {
					fmt.Fprintf(out, "%s (unknown keyword)\n", name)
				}
			}
			return nil
		},
	}
}

// newDescribeCmd prints one keyword's description.
func newDescribeCmd(inv *invocation) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "describe a keyword",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errs.Usage("you must supply exactly one keyword to describe")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := keyword.Find(inv.tools, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", k.Name(), k.Description())
			return nil
		},
	}
}
