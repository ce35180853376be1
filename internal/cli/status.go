package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/sentinel/internal/monitor"
	"github.com/rileyhilliard/sentinel/internal/ui"
	"github.com/spf13/cobra"
)

const gaugeWidth = 24

var statusCmd = &cobra.Command{
	Use:   "status [host-id]",
	Short: "Show stored host status without polling",
	Long: `Show the last recorded state of every host, or the full detail of one
host including its containers. Nothing is polled; run 'sentinel poll' or
'sentinel serve' to refresh.

Examples:
  sentinel status
  sentinel status web-1
  sentinel status host-1b2c --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd.ErrOrStderr(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			hosts := a.fleet.Snapshot()
			if machineMode {
				return WriteJSONSuccess(out, hosts)
			}
			fmt.Fprintln(out, ui.RenderHostTable(hosts, time.Now()))
			return nil
		}

		h, err := a.resolveHost(args[0])
		if err != nil {
			return err
		}
		if machineMode {
			return WriteJSONSuccess(out, h)
		}
		renderHostDetail(out, h, time.Now())
		return nil
	},
}

// renderHostDetail prints one host's readings and containers.
func renderHostDetail(w io.Writer, h monitor.Host, now time.Time) {
	title := lipgloss.NewStyle().Bold(true)
	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	errStyle := lipgloss.NewStyle().Foreground(ui.ColorError)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", ui.HostSymbol(h.Status), title.Render(h.Name), muted.Render(h.ID))
	fmt.Fprintf(&b, "  address  %s (port %d)\n", h.Address, h.Port())
	fmt.Fprintf(&b, "  status   %s, polled %s\n", h.Status, ui.Ago(h.LastPolled, now))
	if h.LastError != "" {
		fmt.Fprintf(&b, "  error    %s\n", errStyle.Render(h.LastError))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  cpu      %s\n", ui.RenderGauge(h.CPUUsage, gaugeWidth))
	fmt.Fprintf(&b, "  memory   %s  %s\n", ui.RenderGauge(h.MemoryUsage, gaugeWidth), muted.Render(ui.UsedOfTotal(h.MemoryUsedGB, h.MemoryTotalGB)))
	fmt.Fprintf(&b, "  disk     %s  %s\n", ui.RenderGauge(h.DiskUsage, gaugeWidth), muted.Render(ui.UsedOfTotal(h.DiskUsedGB, h.DiskTotalGB)))
	fmt.Fprintf(&b, "  history  %s samples\n\n", ui.Count(len(h.History)))
	b.WriteString(ui.RenderContainerTable(h.Containers, now))
	b.WriteString("\n")

	fmt.Fprint(w, b.String())
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
