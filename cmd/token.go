package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/ui"
	"github.com/polkafarm/polkafarm/internal/wallet"
)

var tokenYes bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Reward token commands",
}

var tokenInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the reward token and your balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		gw, _, closeFn, err := farmReader(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		name, err := gw.TokenName(ctx)
		if err != nil {
			return fmt.Errorf("token name: %w", err)
		}
		symbol, err := gw.TokenSymbol(ctx)
		if err != nil {
			return fmt.Errorf("token symbol: %w", err)
		}
		decimals, err := gw.TokenDecimals(ctx)
		if err != nil {
			return fmt.Errorf("token decimals: %w", err)
		}

		rows := [][2]string{
			{"Name", name},
			{"Symbol", symbol},
			{"Decimals", fmt.Sprintf("%d", decimals)},
			{"Address", ui.Addr(gw.Token.Address().Hex())},
		}
		if w, _ := resolveWallet(); w != nil {
			bal, err := gw.TokenBalance(ctx, w.Account())
			if err != nil {
				return fmt.Errorf("token balance: %w", err)
			}
			rows = append(rows, [2]string{"Balance (" + w.Name + ")", chain.FormatUnits(bal, int(decimals)) + " " + symbol})
		}
		fmt.Println(ui.KeyValueBlock("Reward token", rows))
		return nil
	},
}

var tokenTransferCmd = &cobra.Command{
	Use:   "transfer <to> <amount>",
	Short: "Send reward tokens",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("%w: %s", wallet.ErrInvalidAddress, args[0])
		}
		to := common.HexToAddress(args[0])

		ctx, cancel := signalContext()
		defer cancel()

		svc, err := readyService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()
		sess := svc.Session()
		gw := sess.Gateway()

		decimals, err := gw.TokenDecimals(ctx)
		if err != nil {
			return fmt.Errorf("token decimals: %w", err)
		}
		symbol, err := gw.TokenSymbol(ctx)
		if err != nil {
			return fmt.Errorf("token symbol: %w", err)
		}
		amount, err := chain.ParseUnits(args[1], int(decimals))
		if err != nil || amount.Sign() <= 0 {
			return fmt.Errorf("please enter a valid amount: %q", args[1])
		}

		shown := args[1] + " " + symbol
		if !tokenYes && !ui.Confirm(fmt.Sprintf("Send %s to %s?", shown, ui.TruncateAddr(to.Hex())), "") {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		spin := ui.NewSpinner(fmt.Sprintf("Sending %s...", shown))
		spin.Start()
		tx, err := gw.Token.Transfer(ctx, to, amount)
		if err != nil {
			spin.Stop()
			return fmt.Errorf("transfer: %w", err)
		}
		_, err = sess.Client.WaitForReceipt(ctx, tx.Hash(), config.TxConfirmTimeout)
		spin.Stop()
		if err != nil {
			return fmt.Errorf("transfer %s: %w", tx.Hash().Hex(), err)
		}
		fmt.Println(ui.Success(fmt.Sprintf("Sent %s to %s", shown, ui.Addr(to.Hex()))))
		fmt.Println(ui.Hint(txLink(sess.Network, tx.Hash().Hex())))
		return nil
	},
}

// resolveWallet returns the --wallet or default wallet, or nil when none is set.
func resolveWallet() (*wallet.Wallet, error) {
	mgr := newWalletManager()
	if walletFlag != "" {
		return mgr.Get(walletFlag)
	}
	if cfg.DefaultWallet != "" {
		return mgr.Get(cfg.DefaultWallet)
	}
	return mgr.Default()
}

func init() {
	tokenTransferCmd.Flags().BoolVarP(&tokenYes, "yes", "y", false, "skip confirmation")
	tokenCmd.AddCommand(tokenInfoCmd, tokenTransferCmd)
}
