package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/sentinel/internal/ui"
	"github.com/spf13/cobra"
)

var hostAddPort int

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Manage monitored hosts",
	Long: `Add, remove, and list the hosts sentinel polls.

Examples:
  sentinel host add web-1 10.0.0.5
  sentinel host add build 10.0.0.9 --port 2222
  sentinel host add local 0.0.0.1
  sentinel host remove host-1b2c3d4e
  sentinel host list`,
}

var hostAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Add a host",
	Long: `Add a host to the fleet. The address is an IP, a hostname, or an alias
from your ssh_config. Use the local address (0.0.0.1 by default) to
monitor this machine without SSH.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd.ErrOrStderr(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		h, err := a.fleet.AddHost(cmd.Context(), args[0], args[1], hostAddPort)
		if err != nil {
			return err
		}

		if machineMode {
			return WriteJSONSuccess(cmd.OutOrStdout(), h)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Added host '%s' (%s) as %s\n", ui.SymbolSuccess, h.Name, h.Address, h.ID)
		return nil
	},
}

var hostRemoveCmd = &cobra.Command{
	Use:     "remove <host-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a host and its history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd.ErrOrStderr(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		h, err := a.resolveHost(args[0])
		if err != nil {
			return err
		}
		if err := a.fleet.RemoveHost(cmd.Context(), h.ID); err != nil {
			return err
		}

		if machineMode {
			return WriteJSONSuccess(cmd.OutOrStdout(), map[string]string{"removed": h.ID})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Removed host '%s' (%s)\n", ui.SymbolSuccess, h.Name, h.ID)
		return nil
	},
}

var hostListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List hosts with their last known status",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd.ErrOrStderr(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		hosts := a.fleet.Snapshot()
		if machineMode {
			return WriteJSONSuccess(cmd.OutOrStdout(), hosts)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderHostTable(hosts, time.Now()))
		return nil
	},
}

func init() {
	hostAddCmd.Flags().IntVarP(&hostAddPort, "port", "p", 0, "SSH port (default from ssh.default_port)")

	hostCmd.AddCommand(hostAddCmd, hostRemoveCmd, hostListCmd)
	rootCmd.AddCommand(hostCmd)
}
