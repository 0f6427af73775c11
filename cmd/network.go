package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polkafarm/polkafarm/internal/config"
	"github.com/polkafarm/polkafarm/internal/connector"
	"github.com/polkafarm/polkafarm/internal/ui"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known networks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := newConnector().Registry()
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 20},
			{Title: "Display", Width: 26},
			{Title: "Chain ID", Width: 11},
			{Title: "Currency", Width: 9},
			{Title: "", Width: 14},
		})

		for _, n := range reg.All() {
			var marks []string
			if n.Name == cfg.Network {
				marks = append(marks, "active")
			}
			if n.Name == cfg.FarmNetwork {
				marks = append(marks, "farm")
			}
			t.AddRow(ui.Row{
				ui.ChainName(n.Name),
				n.DisplayName,
				fmt.Sprintf("%d", n.ChainID),
				n.Currency.Symbol,
				ui.StyleSuccess.Render(strings.Join(marks, ", ")),
			})
		}

		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d networks", len(reg.All()))))
		if _, err := reg.GetByName(cfg.FarmNetwork); err != nil {
			fmt.Println(ui.Hint(fmt.Sprintf("The farm network %q is added on `polkafarm network switch`.", cfg.FarmNetwork)))
		}
		return nil
	},
}

var networkSwitchCmd = &cobra.Command{
	Use:   "switch",
	Short: "Switch the wallet to the farm network",
	Long: `Make the farm network the active network, adding it first when the wallet
does not know it yet.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		n, err := newConnector().SwitchNetwork(ctx)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Switched to %s (Chain ID: %d)", ui.ChainName(n.DisplayName), n.ChainID)))
		return nil
	},
}

var (
	netAddChainID  int64
	netAddDisplay  string
	netAddSymbol   string
	netAddCurrency string
	netAddDecimals int
	netAddRPCs     []string
	netAddExplorer string
	netAddTestnet  bool
)

var networkAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a network",
	Long: `Add a network to the wallet, or replace one with the same name or chain ID.

Example:
  polkafarm network add local --chain-id 31337 --symbol ETH --rpc http://127.0.0.1:8545`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry := config.NetworkEntry{
			Name:           strings.ToLower(args[0]),
			DisplayName:    netAddDisplay,
			ChainID:        netAddChainID,
			CurrencyName:   netAddCurrency,
			CurrencySymbol: netAddSymbol,
			Decimals:       netAddDecimals,
			RPCs:           netAddRPCs,
			Explorer:       netAddExplorer,
			Testnet:        netAddTestnet,
		}
		if len(entry.RPCs) == 0 {
			return fmt.Errorf("at least one --rpc is required")
		}
		if err := cfg.AddNetwork(entry); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		n := connector.FromEntry(entry)
		fmt.Println(ui.Success(fmt.Sprintf("Added %s (Chain ID: %d)", ui.ChainName(n.DisplayName), n.ChainID)))
		return nil
	},
}

func init() {
	f := networkAddCmd.Flags()
	f.Int64Var(&netAddChainID, "chain-id", 0, "chain ID (required)")
	f.StringVar(&netAddDisplay, "display", "", "display name")
	f.StringVar(&netAddSymbol, "symbol", "ETH", "native currency symbol")
	f.StringVar(&netAddCurrency, "currency", "", "native currency name")
	f.IntVar(&netAddDecimals, "decimals", 18, "native currency decimals")
	f.StringSliceVar(&netAddRPCs, "rpc", nil, "RPC URL (repeatable)")
	f.StringVar(&netAddExplorer, "explorer", "", "block explorer URL")
	f.BoolVar(&netAddTestnet, "testnet", false, "mark as a testnet")
	networkAddCmd.MarkFlagRequired("chain-id") //nolint:errcheck

	networkCmd.AddCommand(networkListCmd, networkSwitchCmd, networkAddCmd)
}
