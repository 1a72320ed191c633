package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mintwatch/mintwatch/internal/format"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "List the blind boxes held by the connected account",
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

		assets, err := a.syncer.LoadOwnedAssets(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(assets) == 0 {
			fmt.Fprintf(out, "No assets held by %s\n", format.ShortAddress(sess.Account))
			return nil
		}

		fmt.Fprintf(out, "%d asset(s) held by %s\n", len(assets), format.ShortAddress(sess.Account))
		for _, asset := range assets {
			reveal := "unrevealed"
			if asset.Revealed {
				reveal = format.RarityName(asset.Rarity)
			}
			fmt.Fprintf(out, "  #%-6d %-11s %s\n", asset.TokenID, reveal, asset.MetadataURI)
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(assetsCmd)
}
