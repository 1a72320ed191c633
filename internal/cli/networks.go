package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List the configured networks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()
		def := registry.Default()
		overrides := cfg.ContractOverrides()

		for _, p := range registry.Profiles() {
			marker := " "
			if p.NetworkID == def.NetworkID {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %-12s chain %-10d %s\n", marker, p.NetworkID, p.ChainID, p.DisplayName)
			fmt.Fprintf(w, "    rpc:      %s\n", p.RPCURL)
			if p.BlockExplorerURL != "" {
				fmt.Fprintf(w, "    explorer: %s\n", p.BlockExplorerURL)
			}
			if addr, ok := overrides[p.NetworkID]; ok {
				fmt.Fprintf(w, "    contract: %s\n", addr)
			}
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(networksCmd)
}
