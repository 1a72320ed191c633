package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mintwatch/mintwatch/internal/format"
)

var purchaseWait bool

var purchaseCmd = &cobra.Command{
	Use:   "purchase",
	Short: "Buy one blind box at the current price",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.session.Connect(cmd.Context()); err != nil {
			return err
		}

		sale, err := a.syncer.LoadSale(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		profile := registry.Default()
		fmt.Fprintf(out, "Purchasing one box at %s\n",
			format.EtherWithSymbol(sale.UnitPrice, profile.NativeCurrency.Symbol))

		res, err := a.exec.Purchase(cmd.Context())
		if err != nil {
			// The classified diagnostic reaches the user through the
			// root error printer; nothing auto-dismisses here.
			return err
		}

		fmt.Fprintf(out, "Confirmed in block %d\n", res.BlockNumber)
		fmt.Fprintf(out, "Tx: %s\n", res.TxHash.Hex())
		if profile.BlockExplorerURL != "" {
			fmt.Fprintf(out, "    %s\n", profile.TxExplorerURL(res.TxHash.Hex()))
		}

		if purchaseWait {
			waitForResyncs(cmd, a)
		}
		return nil
	},
}

// waitForResyncs keeps the process alive until the staggered refresh
// passes have run, then prints the settled state.
func waitForResyncs(cmd *cobra.Command, a *app) {
	delays := cfg.Purchase.ResyncDelays()
	if len(delays) == 0 {
		return
	}
	longest := delays[len(delays)-1]
	for _, d := range delays {
		if d > longest {
			longest = d
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Waiting for resync passes...")
	select {
	case <-time.After(longest + time.Second):
	case <-cmd.Context().Done():
		return
	}

	st := a.syncer.State()
	if st.Supply != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Supply after resync: %s\n", format.Supply(*st.Supply))
	}
	if st.Balance != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Your balance: %s\n", st.Balance)
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	purchaseCmd.Flags().BoolVar(&purchaseWait, "wait", true, "wait for the delayed resync passes before exiting")
	rootCmd.AddCommand(purchaseCmd)
}
