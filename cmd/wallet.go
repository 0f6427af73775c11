package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/polkafarm/polkafarm/internal/ui"
	"github.com/polkafarm/polkafarm/internal/wallet"
)

var (
	walletKeyFlag string
	walletYes     bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets",
}

var walletImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import a private key as a signing wallet",
	Long: `Import a private key into the OS keychain (or the encrypted file store when
no keychain is available). Without --key the key is read from a hidden prompt,
or from ` + wallet.EnvPrivateKey + ` when it is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		key := walletKeyFlag
		if key == "" {
			key = os.Getenv(wallet.EnvPrivateKey)
		}
		if key == "" {
			var err error
			key, err = ui.Secret("Private key", validateKey)
			if err != nil {
				return err
			}
		}

		mgr := newWalletManager()
		w, err := mgr.AddWithKey(name, key)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Signing wallet %q imported: %s", name, ui.Addr(w.Address))))
		printUseHint(mgr, name)
		return nil
	},
}

var walletGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new signing wallet",
	Long: `Generate a fresh keypair and store the private key in the keychain.
Fund the address with WND from the Westend faucet before staking.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr := newWalletManager()
		w, err := mgr.Generate(name)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Printf("  %s  %s\n", ui.Meta("Wallet :"), ui.Val(w.Name))
		fmt.Printf("  %s  %s\n\n", ui.Meta("Address:"), ui.Addr(w.Address))
		fmt.Println(ui.Hint("The key is stored in your keychain and never printed."))
		printUseHint(mgr, name)
		return nil
	},
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Add a watch-only wallet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, address := args[0], args[1]
		mgr := newWalletManager()
		if err := mgr.AddWatchOnly(name, address); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(address))))
		printUseHint(mgr, name)
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		wallets, err := mgr.List()
		if err != nil {
			return err
		}
		if len(wallets) == 0 {
			fmt.Println(ui.Info("No wallets configured yet."))
			fmt.Println(ui.Hint("Import one with: polkafarm wallet import farmer"))
			return nil
		}

		def, _ := mgr.Default()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 44},
			{Title: "Type", Width: 12},
			{Title: "Default", Width: 8},
		})
		for _, w := range wallets {
			mark := ""
			if def != nil && def.Name == w.Name {
				mark = ui.StyleSuccess.Render("✓")
			}
			t.AddRow(ui.Row{ui.Val(w.Name), ui.Addr(w.Address), ui.Meta(w.Type), mark})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := newWalletManager().SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !walletYes && !ui.ConfirmDanger(fmt.Sprintf("Remove wallet %q?", name), "Signing keys are deleted from the keychain.") {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		mgr := newWalletManager()
		if err := mgr.Remove(name); err != nil {
			return err
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

func validateKey(s string) error {
	if _, err := crypto.HexToECDSA(trimHexPrefix(s)); err != nil {
		return errors.New("not a valid hex private key")
	}
	return nil
}

func trimHexPrefix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}

func printUseHint(mgr *wallet.Manager, name string) {
	if w, _ := mgr.Default(); w != nil && w.Name == name {
		return
	}
	fmt.Println(ui.Hint(fmt.Sprintf("Set as default with: polkafarm wallet use %s", name)))
}

func init() {
	walletImportCmd.Flags().StringVar(&walletKeyFlag, "key", "", "hex private key")
	walletRemoveCmd.Flags().BoolVarP(&walletYes, "yes", "y", false, "skip confirmation")
	walletCmd.AddCommand(walletImportCmd, walletGenerateCmd, walletAddCmd, walletListCmd, walletUseCmd, walletRemoveCmd)
}
