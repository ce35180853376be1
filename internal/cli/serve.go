package cli

import (
	"time"

	"github.com/rileyhilliard/sentinel/internal/config"
	"github.com/spf13/cobra"
)

var serveIntervalFlag time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll every host on an interval until interrupted",
	Long: `Start the refresh loop. Every host is polled immediately and then once
per interval; results are written to the store as they arrive. A host
that is still being polled when the next tick fires is skipped for that
tick. Stop with Ctrl+C.

Examples:
  sentinel serve
  sentinel serve --interval 10s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd.ErrOrStderr(), appOptions{
			configure: func(cfg *config.Config) {
				if serveIntervalFlag > 0 {
					cfg.Interval = serveIntervalFlag
				}
			},
			logBatches: true,
		})
		if err != nil {
			return err
		}
		defer a.close()

		return a.fleet.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().DurationVar(&serveIntervalFlag, "interval", 0, "refresh interval (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
