package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/connector"
	"github.com/polkafarm/polkafarm/internal/portfolio"
	"github.com/polkafarm/polkafarm/internal/ui"
)

var balanceWatch bool

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show your farm portfolio",
	Long: `Show native, staked and reward-token balances for the connected wallet,
with USD estimates and your share of the pool.

Examples:
  polkafarm balance           # one snapshot
  polkafarm balance --watch   # refresh every refresh_interval seconds`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		svc, err := readyService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()
		sess := svc.Session()

		spin := ui.NewSpinner(fmt.Sprintf("Loading balances on %s...", ui.ChainName(sess.Network.DisplayName)))
		spin.Start()
		snap, err := svc.Load(ctx)
		spin.Stop()
		if err != nil {
			return err
		}
		fmt.Println(renderPortfolio(sess, snap, svc.Derive(ctx, snap)))

		if !balanceWatch {
			return nil
		}
		fmt.Println(ui.Hint(fmt.Sprintf("Refreshing every %s, Ctrl+C to stop.", cfg.RefreshEvery())))
		return svc.Watch(ctx, cfg.RefreshEvery(), func(snap *portfolio.Snapshot, err error) {
			if err != nil {
				fmt.Println(ui.Warn(err.Error()))
				return
			}
			d := svc.Derive(ctx, snap)
			fmt.Printf("%s  %s  %s  %s\n",
				ui.Meta(snap.UpdatedAt.Local().Format(time.TimeOnly)),
				ui.FormatAmount(d.Native, sess.Symbol()),
				ui.Val(ui.FormatAmount(d.Staked, sess.Symbol())+" staked"),
				ui.FormatAmount(d.Token, snap.Stats.TokenSymbol),
			)
		})
	},
}

func renderPortfolio(sess *connector.Session, snap *portfolio.Snapshot, d portfolio.Derived) string {
	sym, tok := sess.Symbol(), snap.Stats.TokenSymbol
	staked := ui.FormatAmount(d.Staked, sym)
	switch snap.StakeSource {
	case portfolio.SourcePresumed:
		staked += ui.Meta(" (presumed)")
	case portfolio.SourceNone:
		staked += ui.Meta(" (unavailable)")
	}
	rate := chain.ToFloat(snap.Stats.RewardRate, int(snap.Stats.TokenDecimals))

	return ui.KeyValueBlock(fmt.Sprintf("Portfolio on %s", sess.Network.DisplayName), [][2]string{
		{"Account", ui.Addr(ui.TruncateAddr(snap.Account.Hex()))},
		{"Available", ui.FormatAmount(d.Native, sym) + "  " + ui.FormatUSD(d.NativeUSD)},
		{"Staked", staked + "  " + ui.FormatUSD(d.StakedUSD)},
		{tok + " balance", ui.FormatAmount(d.Token, tok) + "  " + ui.FormatUSD(d.TokenUSD)},
		{"Pool total", ui.FormatLargeNumber(d.Total) + " " + sym},
		{"Your share", ui.FormatPercent(d.Share)},
		{"Reward rate", ui.FormatRate(rate) + " " + tok + "/block"},
		{"APY", fmt.Sprintf("%.1f%%", d.APY)},
		{"Daily rewards", ui.FormatRewards(d.DailyRewards, tok) + "  " + ui.FormatUSD(d.DailyRewardsUSD)},
	})
}

func init() {
	balanceCmd.Flags().BoolVar(&balanceWatch, "watch", false, "keep refreshing until interrupted")
}
