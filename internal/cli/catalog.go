package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List purchasable collections on the active network",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		active := registry.Default().NetworkID

		shown := 0
		for _, entry := range cfg.Catalog {
			if entry.Network != active {
				continue
			}
			addr := entry.ContractAddress
			if addr == "" {
				addr = cfg.Networks[entry.Network].ContractAddress
			}
			if addr == "" {
				// No resolvable contract on this network, hide it.
				continue
			}

			marker := " "
			if entry.Featured {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-16s %s  %s\n", marker, entry.ID, addr, entry.Name)
			if entry.Description != "" {
				fmt.Fprintf(out, "    %s\n", entry.Description)
			}
			shown++
		}

		if shown == 0 {
			fmt.Fprintf(out, "no catalog entries for network %s\n", active)
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(catalogCmd)
}
