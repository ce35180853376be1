package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/sentinel/internal/config"
	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/internal/fleet"
	"github.com/rileyhilliard/sentinel/internal/monitor"
	"github.com/rileyhilliard/sentinel/internal/ui"
	"github.com/spf13/cobra"
)

var (
	statsMetricFlag string
	statsWindowFlag time.Duration
	statsPointsFlag int
)

var statsCmd = &cobra.Command{
	Use:   "stats <host-id>",
	Short: "Aggregate a host's metric history",
	Long: `Summarize the recorded history of one host: the current and average
value of the host and each of its containers over a time window, with a
sparkline of the down-sampled series.

Examples:
  sentinel stats web-1
  sentinel stats web-1 --metric memory --window 6h
  sentinel stats host-1b2c --window 0 --points 50 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, ok := monitor.ParseMetricKey(statsMetricFlag)
		if !ok {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Unknown metric '%s'", statsMetricFlag),
				"Use --metric cpu or --metric memory.")
		}

		a, err := openApp(cmd.Context(), cmd.ErrOrStderr(), appOptions{
			configure: func(cfg *config.Config) {
				if statsPointsFlag > 0 {
					cfg.History.DownsampleThreshold = statsPointsFlag
				}
			},
		})
		if err != nil {
			return err
		}
		defer a.close()

		h, err := a.resolveHost(args[0])
		if err != nil {
			return err
		}

		st, err := a.fleet.Stats(h.ID, key, statsWindowFlag, time.Now())
		if err != nil {
			return err
		}

		if machineMode {
			return WriteJSONSuccess(cmd.OutOrStdout(), st)
		}
		renderStats(cmd, st)
		return nil
	},
}

func renderStats(cmd *cobra.Command, st fleet.Stats) {
	out := cmd.OutOrStdout()
	title := lipgloss.NewStyle().Bold(true)
	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)

	window := "all history"
	if !st.From.IsZero() {
		window = "last " + st.To.Sub(st.From).String()
	}
	fmt.Fprintf(out, "%s %s %s\n", title.Render(st.Host.Name), string(st.Key),
		muted.Render(fmt.Sprintf("(%s, %s samples)", window, ui.Count(st.Samples))))

	if st.Samples == 0 {
		fmt.Fprintln(out, muted.Render("No samples in this window."))
		return
	}
	fmt.Fprintln(out)

	width := ui.TerminalWidth(stdoutFile(cmd)) - 26
	if width < 10 {
		width = 10
	}
	fmt.Fprint(out, ui.RenderSummaryTable(st.Summaries, st.Series, width))
}

func init() {
	statsCmd.Flags().StringVarP(&statsMetricFlag, "metric", "m", "cpu", "metric to aggregate: cpu or memory")
	statsCmd.Flags().DurationVarP(&statsWindowFlag, "window", "w", time.Hour, "how far back to look (0 for all history)")
	statsCmd.Flags().IntVar(&statsPointsFlag, "points", 0, "maximum series points (default history.downsample_threshold)")
	rootCmd.AddCommand(statsCmd)
}
