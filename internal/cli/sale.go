package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mintwatch/mintwatch/internal/format"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

var saleCmd = &cobra.Command{
	Use:   "sale",
	Short: "Show the current sale terms and supply",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.session.Connect(cmd.Context()); err != nil {
			return err
		}

		sale, saleErr := a.syncer.LoadSale(cmd.Context())
		supply, supplyErr := a.syncer.LoadSupply(cmd.Context())

		out := cmd.OutOrStdout()
		profile := registry.Default()

		if saleErr == nil {
			fmt.Fprintf(out, "Sale:    %s", map[bool]string{true: "active", false: "inactive"}[sale.Active])
			fmt.Fprintf(out, " (%s phase)\n", format.PhaseName(sale.Phase))
			fmt.Fprintf(out, "Price:   %s\n", format.EtherWithSymbol(sale.UnitPrice, profile.NativeCurrency.Symbol))
			fmt.Fprintf(out, "Cap:     %s per wallet\n", sale.MaxPerWallet)
		} else {
			fmt.Fprintln(out, "Sale:    unavailable")
		}

		if supplyErr == nil {
			fmt.Fprintf(out, "Supply:  %s (%s)\n", format.Supply(supply), format.Progress(supply))
			if supply.SoldOut() {
				fmt.Fprintln(out, "Status:  SOLD OUT")
			} else if !supply.Unconfigured() {
				fmt.Fprintf(out, "Left:    %d\n", supply.Remaining())
			}
		} else {
			fmt.Fprintln(out, "Supply:  unavailable")
		}

		if binding, err := a.binder.Resolve(); err == nil {
			if mgr, err := binding.Reader().SaleManager(cmd.Context()); err == nil {
				fmt.Fprintf(out, "Manager: %s\n", mgr.Hex())
			}
		}

		if saleErr != nil && supplyErr != nil {
			return mwerr.Wrap(mwerr.ErrTransientRead, "sale and supply reads failed")
		}
		return nil
	},
}

var supplyCmd = &cobra.Command{
	Use:   "supply",
	Short: "Show issuance against the collection cap",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.session.Connect(cmd.Context()); err != nil {
			return err
		}

		supply, err := a.syncer.LoadSupply(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Supply:  %s (%s)\n", format.Supply(supply), format.Progress(supply))
		switch {
		case supply.Unconfigured():
			fmt.Fprintln(out, "Status:  cap not configured")
		case supply.SoldOut():
			fmt.Fprintln(out, "Status:  SOLD OUT")
		default:
			fmt.Fprintf(out, "Left:    %d\n", supply.Remaining())
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(saleCmd, supplyCmd)
}
