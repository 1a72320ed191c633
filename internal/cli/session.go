package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mintwatch/mintwatch/internal/format"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Establish a wallet session on the active network",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		sess, err := a.session.Connect(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Connected to chain %d as %s\n", sess.ChainID, format.ShortAddress(sess.Account))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session, network, and contract resolution state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()

		sess, err := a.session.Connect(cmd.Context())
		if err != nil {
			fmt.Fprintf(out, "Session:  %s\n", a.session.Session().State)
			return err
		}

		fmt.Fprintf(out, "Session:  %s\n", sess.State)
		if sess.HasAccount() {
			fmt.Fprintf(out, "Account:  %s\n", sess.Account)
		} else {
			fmt.Fprintln(out, "Account:  none (read-only)")
		}

		profile, supported := registry.ByChainID(sess.ChainID)
		if supported {
			fmt.Fprintf(out, "Network:  %s (chain %d)\n", profile.DisplayName, sess.ChainID)
		} else {
			fmt.Fprintf(out, "Network:  unsupported chain %d\n", sess.ChainID)
		}

		binding, berr := a.binder.Resolve()
		if berr != nil {
			fmt.Fprintln(out, "Contract: unresolved")
			return berr
		}
		fmt.Fprintf(out, "Contract: %s\n", binding.Address().Hex())
		if supported && profile.BlockExplorerURL != "" {
			fmt.Fprintf(out, "Explorer: %s\n", profile.AddressExplorerURL(binding.Address().Hex()))
		}
		_, writable := binding.Writer()
		fmt.Fprintf(out, "Writable: %v\n", writable)
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(connectCmd, statusCmd)
}
