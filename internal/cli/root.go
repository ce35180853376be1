package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rileyhilliard/sentinel/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	configFlag  string
	noColorFlag bool
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Monitor containers and resources across a fleet of hosts",
	Long: `sentinel polls a fleet of hosts over SSH (or the local machine directly),
collecting container inventory plus CPU, memory and disk usage. Each host
keeps a bounded metric history that can be aggregated and charted.

Examples:
  sentinel host add web-1 10.0.0.5
  sentinel serve
  sentinel status
  sentinel stats host-1b2c3d4e --metric memory --window 6h`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.ConfigureColors(cmd.OutOrStdout(), noColorFlag || machineMode)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ./sentinel.yaml, then ~/.config/sentinel/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "print machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log at debug level")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context so the refresh loop can stop cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if machineMode {
			_ = WriteJSONFromError(os.Stdout, err)
		} else {
			msg := err.Error()
			if !strings.HasSuffix(msg, "\n") {
				msg += "\n"
			}
			fmt.Fprint(os.Stderr, msg)
		}
		os.Exit(1)
	}
}
