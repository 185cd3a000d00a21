package cmd

import (
	"github.com/spf13/cobra"

	"tuffix/internal/errs"
	"tuffix/internal/installer"
	"tuffix/internal/state"
	"tuffix/internal/status"
	"tuffix/internal/system"
)

// newInitCmd creates the state file. Every other stateful command needs it.
func newInitCmd(inv *invocation) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "initialize tuffix",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return installer.Init(inv.installer())
		},
	}
}

// newStatusCmd prints the host report. It only reads, so root is not needed.
func newStatusCmd(inv *invocation) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "status of the current host",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := state.Read(inv.cfg)
			if err != nil {
				return err
			}
			user, err := inv.tools.Privileges.LoginUser()
			if err != nil {
				return err
			}

			src := status.Sources{
				Probes: inv.env.Probes,
				User:   user,
				Nvidia: inv.env.Nvidia,
			}
			if dir := inv.env.NetworkDir; dir != "" {
				src.Network = func() (bool, error) { return system.NetworkConnected(dir) }
			}

			report, err := status.Collect(cmd.Context(), src, st.Installed)
			if err != nil {
				return errs.WrapEnvironment(err, "status interrupted")
			}
			report.Render(cmd.OutOrStdout())
			return nil
		},
	}
}

// newRekeyCmd regenerates the login user's ssh or gpg key.
func newRekeyCmd(inv *invocation) *cobra.Command {
	return &cobra.Command{
		Use:   "rekey",
		Short: "regenerate the ssh or gpg key of the login user",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errs.Usage("you must specify what to rekey: %s or %s", installer.RekeySSH, installer.RekeyGPG)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return installer.Rekey(inv.installer(), args[0])
		},
	}
}
