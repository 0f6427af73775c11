package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/polkafarm/polkafarm/internal/connector"
	"github.com/polkafarm/polkafarm/internal/ui"
)

var connectSwitch bool

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect a wallet to the farm",
	Long: `Authorise a wallet for polkafarm. Signing wallets are unlocked and sign a
connect challenge; the session is remembered until ` + "`polkafarm disconnect`" + `.

Examples:
  polkafarm connect                  # default wallet
  polkafarm connect --wallet farmer  # a specific wallet
  polkafarm connect --switch         # also move to the farm network`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		if walletFlag == "" {
			name, err := pickWallet()
			if err != nil {
				return err
			}
			walletFlag = name
		}

		svc := newService()
		defer svc.Close()

		spin := ui.NewSpinner("Connecting wallet...")
		spin.Start()
		view, err := svc.Connect(ctx)
		if view == connector.ViewWrongNetwork && connectSwitch {
			spin.Update("Switching network...")
			view, err = svc.SwitchNetwork(ctx)
		}
		spin.Stop()

		var wrong *connector.WrongNetworkError
		switch {
		case view == connector.ViewDashboard:
			s := svc.Session()
			fmt.Println(ui.Success(fmt.Sprintf("Connected %s on %s", ui.Addr(s.Account.Hex()), ui.ChainName(s.Network.DisplayName))))
			if s.ReadOnly {
				fmt.Println(ui.Hint("Watch-only wallet: balances only, no staking."))
			}
			return nil
		case errors.As(err, &wrong):
			s := svc.Session()
			fmt.Println(ui.Success(fmt.Sprintf("Connected %s", ui.Addr(s.Account.Hex()))))
			fmt.Println(ui.Warn(wrong.Error()))
			fmt.Println(ui.Hint("Run `polkafarm network switch` or reconnect with --switch."))
			return nil
		case errors.Is(err, connector.ErrNoAccounts):
			fmt.Println(ui.Info(err.Error()))
			fmt.Println(ui.Hint("polkafarm wallet import <name>"))
			return nil
		}
		return err
	},
}

// pickWallet asks which wallet to connect when several exist and none is the
// default. It returns "" when there is nothing to ask.
func pickWallet() (string, error) {
	if cfg.DefaultWallet != "" {
		return "", nil
	}
	mgr := newWalletManager()
	if def, _ := mgr.Default(); def != nil {
		return "", nil
	}
	wallets, err := mgr.List()
	if err != nil || len(wallets) < 2 {
		return "", err
	}
	choices := make([]ui.Choice, 0, len(wallets))
	for _, w := range wallets {
		choices = append(choices, ui.Choice{
			Label: fmt.Sprintf("%-16s %s  %s", w.Name, ui.TruncateAddr(w.Address), w.Type),
			Value: w.Name,
		})
	}
	return ui.Select("Connect which wallet?", choices)
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the connected wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService()
		defer svc.Close()
		if err := svc.Disconnect(); err != nil {
			return err
		}
		fmt.Println(ui.Success("Disconnected."))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connection state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		svc := newService()
		defer svc.Close()

		view, err := svc.Resume(ctx)
		var wrong *connector.WrongNetworkError
		if err != nil && !errors.As(err, &wrong) {
			return err
		}

		s := svc.Session()
		if s == nil {
			fmt.Println(ui.KeyValueBlock("Connection", [][2]string{
				{"State", view.String()},
			}))
			fmt.Println(ui.Hint("Run `polkafarm connect` to start."))
			return nil
		}

		target := cfg.FarmNetwork
		if s.Target != nil {
			target = fmt.Sprintf("%s (%d)", s.Target.DisplayName, s.Target.ChainID)
		}
		network := fmt.Sprintf("chain %d", s.ChainID)
		if s.Network != nil {
			network = fmt.Sprintf("%s (%d)", s.Network.DisplayName, s.ChainID)
		}
		access := "signing"
		if s.ReadOnly {
			access = "watch-only"
		}
		fmt.Println(ui.KeyValueBlock("Connection", [][2]string{
			{"State", view.String()},
			{"Wallet", s.Wallet},
			{"Account", ui.Addr(s.Account.Hex())},
			{"Access", access},
			{"Network", network},
			{"Farm network", target},
			{"RPC", s.RPCURL},
			{"Connected", s.ConnectedAt.Local().Format(time.DateTime)},
		}))
		if wrong != nil {
			fmt.Println(ui.Warn(wrong.Error()))
		}
		return nil
	},
}

func init() {
	connectCmd.Flags().BoolVar(&connectSwitch, "switch", false, "switch to the farm network if needed")
}
