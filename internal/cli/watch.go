package cli

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mintwatch/mintwatch/internal/format"
	"github.com/mintwatch/mintwatch/internal/metrics"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously refresh and print sale and supply state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if _, err := a.session.Connect(ctx); err != nil {
			return err
		}

		// Refresh requests published by other components (a purchase in
		// this process, for instance) also update the snapshot.
		detach := a.syncer.Attach(a.bus)
		defer detach()

		out := cmd.OutOrStdout()
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		for {
			st, err := a.syncer.Refresh(ctx)
			if err != nil {
				logger.Warn(fmt.Sprintf("refresh incomplete: %v", err))
			}

			line := time.Now().Format("15:04:05")
			if st.Sale != nil {
				stale := ""
				if st.SaleStale {
					stale = " (stale)"
				}
				active := "inactive"
				if st.Sale.Active {
					active = "active"
				}
				line += fmt.Sprintf("  sale %s%s, %s", active, stale,
					format.EtherWithSymbol(st.Sale.UnitPrice, registry.Default().NativeCurrency.Symbol))
			}
			if st.Supply != nil {
				line += fmt.Sprintf("  supply %s (%s)", format.Supply(*st.Supply), format.Progress(*st.Supply))
			}
			fmt.Fprintln(out, line)

			select {
			case <-ctx.Done():
				printWatchStats(out)
				return nil
			case <-ticker.C:
			}
		}
	},
}

// printWatchStats summarizes the session's refresh activity on exit.
func printWatchStats(w io.Writer) {
	snap := metrics.Global.Snapshot()
	fmt.Fprintf(w, "loads %d (%d failed, avg %.1fms)  refresh requests %d  stale results dropped %d\n",
		snap.LoadsTotal, snap.LoadErrors, metrics.Global.LoadLatencyAvgMs(),
		snap.RefreshRequests, snap.StaleDiscards)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 15*time.Second, "refresh interval")
	rootCmd.AddCommand(watchCmd)
}
