package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/sentinel/internal/monitor"
	"github.com/rileyhilliard/sentinel/internal/ui"
	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll [host-id]",
	Short: "Poll hosts once and print the result",
	Long: `Run a single refresh of every host (or one host) and print what was
collected. Results are saved to the store exactly as 'sentinel serve'
would save them.

Examples:
  sentinel poll
  sentinel poll web-1`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd.ErrOrStderr(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			target, err := a.resolveHost(args[0])
			if err != nil {
				return err
			}
			h, err := a.fleet.Refresh(cmd.Context(), target.ID)
			if err != nil {
				return err
			}
			if machineMode {
				return WriteJSONSuccess(out, h)
			}
			renderHostDetail(out, h, time.Now())
			return nil
		}

		sum := a.fleet.RefreshAll(cmd.Context())
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		hosts := a.fleet.Snapshot()
		if machineMode {
			return WriteJSONSuccess(out, struct {
				Polled  int            `json:"polled"`
				Online  int            `json:"online"`
				Offline int            `json:"offline"`
				Hosts   []monitor.Host `json:"hosts"`
			}{sum.Polled, sum.Online, sum.Offline, hosts})
		}
		fmt.Fprintf(out, "Polled %d hosts: %d online, %d offline\n\n", sum.Polled, sum.Online, sum.Offline)
		fmt.Fprintln(out, ui.RenderHostTable(hosts, time.Now()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pollCmd)
}
