package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/ui"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show farm contract details",
	Long: `Read the reward token and staking pool straight from the farm network.
No wallet is needed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		gw, target, closeFn, err := farmReader(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		spin := ui.NewSpinner(fmt.Sprintf("Reading farm on %s...", ui.ChainName(target.DisplayName)))
		spin.Start()
		rows, err := farmInfo(ctx, gw, target)
		spin.Stop()
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("PolkaFarm", rows))
		return nil
	},
}

type farmStats interface {
	TokenName(ctx context.Context) (string, error)
	TokenSymbol(ctx context.Context) (string, error)
	TokenDecimals(ctx context.Context) (uint8, error)
	TotalStaked(ctx context.Context) (*big.Int, error)
	RewardRate(ctx context.Context) (*big.Int, error)
}

func farmInfo(ctx context.Context, gw farmStats, target *chain.Network) ([][2]string, error) {
	name, err := gw.TokenName(ctx)
	if err != nil {
		return nil, fmt.Errorf("token name: %w", err)
	}
	symbol, err := gw.TokenSymbol(ctx)
	if err != nil {
		return nil, fmt.Errorf("token symbol: %w", err)
	}
	decimals, err := gw.TokenDecimals(ctx)
	if err != nil {
		return nil, fmt.Errorf("token decimals: %w", err)
	}
	total, err := gw.TotalStaked(ctx)
	if err != nil {
		return nil, fmt.Errorf("total staked: %w", err)
	}
	rate, err := gw.RewardRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("reward rate: %w", err)
	}

	return [][2]string{
		{"Network", fmt.Sprintf("%s (%d)", target.DisplayName, target.ChainID)},
		{"Token", fmt.Sprintf("%s (%s)", name, symbol)},
		{"Token address", ui.Addr(cfg.TokenAddress)},
		{"Staking address", ui.Addr(cfg.StakingAddress)},
		{"Total staked", chain.FormatUnits(total, target.Currency.Decimals) + " " + target.Currency.Symbol},
		{"Reward rate", ui.FormatRate(chain.ToFloat(rate, int(decimals))) + " " + symbol + "/block"},
	}, nil
}
