package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mintwatch/mintwatch/internal/wallet"
	mwerr "github.com/mintwatch/mintwatch/pkg/errors"
)

var walletWords int

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the local dev signer",
}

var walletInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a mnemonic and create the encrypted keystore",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := keystorePath()
		if _, err := os.Stat(path); err == nil {
			return mwerr.New("KEYSTORE_EXISTS",
				fmt.Sprintf("keystore already exists at %s", path))
		}

		mnemonic, err := wallet.GenerateMnemonic(walletWords)
		if err != nil {
			return err
		}

		passphrase, err := promptNewPassword()
		if err != nil {
			return err
		}
		err = wallet.SaveKeystore(path, mnemonic, string(passphrase))
		zeroBytes(passphrase)
		if err != nil {
			return err
		}

		w, err := wallet.FromMnemonic(mnemonic, 1)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Keystore written to %s\n", path)
		fmt.Fprintf(out, "First account: %s\n", w.Accounts()[0].Hex())
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Recovery mnemonic (write it down, it is not stored in plain text):")
		fmt.Fprintf(out, "  %s\n", mnemonic)
		return nil
	},
}

var walletAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Show the dev signer's derived addresses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := unlockWallet()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, addr := range w.Accounts() {
			fmt.Fprintf(out, "%d: %s\n", i, addr.Hex())
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletInitCmd.Flags().IntVar(&walletWords, "words", 12, "mnemonic length: 12 or 24")
	walletCmd.AddCommand(walletInitCmd, walletAddressCmd)
	rootCmd.AddCommand(walletCmd)
}
